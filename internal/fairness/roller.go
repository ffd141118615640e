package fairness

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// Draw records one roll handed out by a Roller
type Draw struct {
	Nonce uint64  `json:"nonce"`
	Value float64 `json:"value"`
}

// Commitment is the public part of a seed pair
type Commitment struct {
	ServerSeedHash string `json:"serverSeedHash"`
	ClientSeed     string `json:"clientSeed"`
	Nonce          uint64 `json:"nonce"`
}

// Reveal is returned when a server seed is retired
type Reveal struct {
	ServerSeed     string `json:"serverSeed"`
	ServerSeedHash string `json:"serverSeedHash"`
	ClientSeed     string `json:"clientSeed"`
	LastNonce      uint64 `json:"lastNonce"`
}

// Roller hands out one float per nonce. Safe for concurrent use.
type Roller struct {
	mu         sync.Mutex
	serverSeed string
	clientSeed string
	nonce      uint64
	history    []Draw
	maxHistory int
}

// NewRoller creates a roller starting after startNonce
func NewRoller(serverSeed, clientSeed string, startNonce uint64) (*Roller, error) {
	if strings.TrimSpace(serverSeed) == "" {
		return nil, fmt.Errorf("fairness: server seed is required")
	}
	if strings.TrimSpace(clientSeed) == "" {
		clientSeed = "pokethrow"
	}
	return &Roller{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      startNonce,
		maxHistory: 256,
	}, nil
}

// Float64 returns the next roll in [0, 1)
func (r *Roller) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonce++
	v := Float(r.serverSeed, r.clientSeed, r.nonce)
	if len(r.history) >= r.maxHistory {
		r.history = r.history[1:]
	}
	r.history = append(r.history, Draw{Nonce: r.nonce, Value: v})
	return v
}

// IntRange returns a uniform integer in [lo, hi]
func (r *Roller) IntRange(lo, hi int) int {
	return IntRange(r, lo, hi)
}

// Nonce returns the last nonce consumed
func (r *Roller) Nonce() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nonce
}

// Commitment returns the publishable seed state
func (r *Roller) Commitment() Commitment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Commitment{
		ServerSeedHash: HashSeed(r.serverSeed),
		ClientSeed:     r.clientSeed,
		Nonce:          r.nonce,
	}
}

// History returns the most recent draws, oldest first
func (r *Roller) History() []Draw {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Draw, len(r.history))
	copy(out, r.history)
	return out
}

// Rotate swaps in a new server seed and reveals the old one.
// An empty clientSeed keeps the current client seed.
func (r *Roller) Rotate(newServerSeed, clientSeed string) (Reveal, error) {
	if strings.TrimSpace(newServerSeed) == "" {
		return Reveal{}, fmt.Errorf("fairness: server seed is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rev := Reveal{
		ServerSeed:     r.serverSeed,
		ServerSeedHash: HashSeed(r.serverSeed),
		ClientSeed:     r.clientSeed,
		LastNonce:      r.nonce,
	}
	r.serverSeed = newServerSeed
	if strings.TrimSpace(clientSeed) != "" {
		r.clientSeed = clientSeed
	}
	r.nonce = 0
	r.history = r.history[:0]
	return rev, nil
}

// Source is anything that yields floats in [0, 1)
type Source interface {
	Float64() float64
}

// IntRange maps one draw from src onto [lo, hi]
func IntRange(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	n := hi - lo + 1
	v := int(src.Float64() * float64(n))
	if v >= n {
		v = n - 1
	}
	return lo + v
}

// Verify recomputes the roll for a revealed seed pair and nonce
func Verify(serverSeed, clientSeed string, nonce uint64, value float64) bool {
	return Float(serverSeed, clientSeed, nonce) == value
}

// NewServerSeed returns 32 random bytes hex-encoded
func NewServerSeed() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("fairness: generate seed: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
