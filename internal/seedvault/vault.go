// Package seedvault keeps the fairness server seed in the OS keychain, with a
// JSON file fallback for machines that have no keyring service.
package seedvault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
)

const (
	keyServerSeed = "server-seed"
	keyClientSeed = "client-seed"
	keyNonce      = "nonce"
)

// ErrNotFound is returned when no seed is stored for a profile
var ErrNotFound = keyring.ErrNotFound

// Vault wraps the OS keychain with an optional file fallback.
type Vault struct {
	service      string
	fallbackPath string
	mu           sync.Mutex
}

// SeedState is the persisted state of one profile's roll stream
type SeedState struct {
	ServerSeed string `json:"serverSeed"`
	ClientSeed string `json:"clientSeed"`
	Nonce      uint64 `json:"nonce"`
}

// New creates a vault for the given keyring service name.
func New(serviceName, fallbackPath string) *Vault {
	if strings.TrimSpace(serviceName) == "" {
		serviceName = "pokethrow-desktop"
	}
	return &Vault{service: serviceName, fallbackPath: fallbackPath}
}

func (v *Vault) key(profile, part string) string {
	return fmt.Sprintf("%s/%s", profile, part)
}

// Load reads the seed state for a profile.
func (v *Vault) Load(profile string) (SeedState, error) {
	seed, err := v.getSecret(profile, keyServerSeed)
	if err != nil {
		return SeedState{}, err
	}
	st := SeedState{ServerSeed: seed}
	if client, err := v.getSecret(profile, keyClientSeed); err == nil {
		st.ClientSeed = client
	}
	if raw, err := v.getSecret(profile, keyNonce); err == nil {
		fmt.Sscanf(raw, "%d", &st.Nonce)
	}
	return st, nil
}

// Save stores the seed state for a profile.
func (v *Vault) Save(profile string, st SeedState) error {
	if err := v.setSecret(profile, keyServerSeed, st.ServerSeed); err != nil {
		return err
	}
	if err := v.setSecret(profile, keyClientSeed, st.ClientSeed); err != nil {
		return err
	}
	return v.setSecret(profile, keyNonce, fmt.Sprintf("%d", st.Nonce))
}

// LoadOrCreate returns the stored state, generating and saving a new server
// seed on first use.
func (v *Vault) LoadOrCreate(profile string) (SeedState, error) {
	st, err := v.Load(profile)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return SeedState{}, err
	}
	seed, err := fairness.NewServerSeed()
	if err != nil {
		return SeedState{}, err
	}
	st = SeedState{ServerSeed: seed, ClientSeed: profile}
	if err := v.Save(profile, st); err != nil {
		return SeedState{}, err
	}
	return st, nil
}

// Delete removes all secrets for a profile.
func (v *Vault) Delete(profile string) error {
	var errs []error
	for _, part := range []string{keyServerSeed, keyClientSeed, keyNonce} {
		if err := keyring.Delete(v.service, v.key(profile, part)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	_ = v.deleteFallbackProfile(profile)
	if len(errs) > 0 && !isKeyringUnavailable(errs[0]) {
		return fmt.Errorf("seedvault: keyring delete failed: %w", errs[0])
	}
	return nil
}

func (v *Vault) setSecret(profile, part, value string) error {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return fmt.Errorf("seedvault: profile is required")
	}

	if err := keyring.Set(v.service, v.key(profile, part), value); err == nil {
		return nil
	} else if !isKeyringUnavailable(err) {
		return fmt.Errorf("seedvault: keyring set %s: %w", part, err)
	}

	return v.setFallback(profile, part, value)
}

func (v *Vault) getSecret(profile, part string) (string, error) {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return "", fmt.Errorf("seedvault: profile is required")
	}

	val, err := keyring.Get(v.service, v.key(profile, part))
	if err == nil {
		return val, nil
	}
	if !isKeyringUnavailable(err) && !errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("seedvault: keyring get %s: %w", part, err)
	}

	fallback, ferr := v.getFallback(profile, part)
	if ferr == nil {
		return fallback, nil
	}
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(ferr, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return "", ferr
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

type fallbackSecrets map[string]map[string]string

func (v *Vault) setFallback(profile, part, value string) error {
	if strings.TrimSpace(v.fallbackPath) == "" {
		return fmt.Errorf("seedvault: keyring unavailable and no fallback path configured")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.readFallbackUnlocked()
	if err != nil {
		return err
	}
	if _, ok := data[profile]; !ok {
		data[profile] = map[string]string{}
	}
	data[profile][part] = value
	return v.writeFallbackUnlocked(data)
}

func (v *Vault) getFallback(profile, part string) (string, error) {
	if strings.TrimSpace(v.fallbackPath) == "" {
		return "", fmt.Errorf("seedvault: fallback path not configured")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.readFallbackUnlocked()
	if err != nil {
		return "", err
	}
	val, ok := data[profile][part]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return val, nil
}

func (v *Vault) deleteFallbackProfile(profile string) error {
	if strings.TrimSpace(v.fallbackPath) == "" {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	data, err := v.readFallbackUnlocked()
	if err != nil {
		return err
	}
	delete(data, profile)
	return v.writeFallbackUnlocked(data)
}

func (v *Vault) readFallbackUnlocked() (fallbackSecrets, error) {
	out := fallbackSecrets{}
	raw, err := os.ReadFile(v.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("seedvault: read fallback: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("seedvault: decode fallback: %w", err)
	}
	return out, nil
}

func (v *Vault) writeFallbackUnlocked(data fallbackSecrets) error {
	if err := os.MkdirAll(filepath.Dir(v.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("seedvault: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("seedvault: encode fallback: %w", err)
	}
	if err := os.WriteFile(v.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("seedvault: write fallback: %w", err)
	}
	return nil
}
