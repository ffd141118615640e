// Package pokemon defines the creature metadata shown after a capture.
package pokemon

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidRecord is wrapped by Validate failures
var ErrInvalidRecord = errors.New("invalid pokemon record")

// Stat is one base stat
type Stat struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Record is the metadata for one creature.
type Record struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Image  string   `json:"image"`
	Types  []string `json:"types"`
	Height int      `json:"height,omitempty"`
	Weight int      `json:"weight,omitempty"`
	Stats  []Stat   `json:"stats,omitempty"`
}

// Validate checks that every displayed field is present
func (r Record) Validate() error {
	switch {
	case r.ID <= 0:
		return fmt.Errorf("%w: id must be positive, got %d", ErrInvalidRecord, r.ID)
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	case strings.TrimSpace(r.Image) == "":
		return fmt.Errorf("%w: image is required", ErrInvalidRecord)
	case len(r.Types) == 0:
		return fmt.Errorf("%w: at least one type is required", ErrInvalidRecord)
	}
	for i, t := range r.Types {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: type %d is empty", ErrInvalidRecord, i)
		}
	}
	return nil
}

// Normalize trims fields and removes duplicate types, keeping first-seen order
func (r Record) Normalize() Record {
	r.Name = strings.TrimSpace(r.Name)
	r.Image = strings.TrimSpace(r.Image)
	seen := make(map[string]bool, len(r.Types))
	types := make([]string, 0, len(r.Types))
	for _, t := range r.Types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		types = append(types, t)
	}
	r.Types = types
	return r
}

// DisplayName returns the name with its first letter upper-cased
func (r Record) DisplayName() string {
	first, size := utf8.DecodeRuneInString(r.Name)
	if first == utf8.RuneError {
		return r.Name
	}
	return string(unicode.ToUpper(first)) + r.Name[size:]
}

// Stat returns the named base stat
func (r Record) Stat(name string) (int, bool) {
	for _, s := range r.Stats {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}
