package pokemon

import (
	"errors"
	"reflect"
	"testing"
)

func validRecord() Record {
	return Record{
		ID:    25,
		Name:  "pikachu",
		Image: "https://example.test/25.png",
		Types: []string{"electric"},
	}
}

func TestValidate(t *testing.T) {
	if err := validRecord().Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"zero id", func(r *Record) { r.ID = 0 }},
		{"blank name", func(r *Record) { r.Name = "  " }},
		{"missing image", func(r *Record) { r.Image = "" }},
		{"no types", func(r *Record) { r.Types = nil }},
		{"empty type", func(r *Record) { r.Types = []string{"fire", ""} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate()
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("err = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	r := Record{ID: 6, Name: " charizard ", Image: " x ", Types: []string{"Fire", "flying", "fire", " "}}
	got := r.Normalize()
	if got.Name != "charizard" || got.Image != "x" {
		t.Errorf("fields not trimmed: %+v", got)
	}
	if !reflect.DeepEqual(got.Types, []string{"fire", "flying"}) {
		t.Errorf("Types = %v", got.Types)
	}
}

func TestDisplayName(t *testing.T) {
	if got := validRecord().DisplayName(); got != "Pikachu" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := (Record{}).DisplayName(); got != "" {
		t.Errorf("empty DisplayName = %q", got)
	}
}

func TestStat(t *testing.T) {
	r := validRecord()
	r.Stats = []Stat{{Name: "hp", Value: 35}, {Name: "speed", Value: 90}}
	if v, ok := r.Stat("speed"); !ok || v != 90 {
		t.Errorf("Stat(speed) = %d, %v", v, ok)
	}
	if _, ok := r.Stat("attack"); ok {
		t.Error("missing stat reported present")
	}
}
