package fairness

import (
	"testing"
)

func TestByteGeneratorFloatsInRange(t *testing.T) {
	tests := []struct {
		name   string
		cursor uint64
		count  int
	}{
		{"single float", 0, 1},
		{"many floats", 0, 40},
		{"cursor boundary", 31, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bg := NewByteGenerator("test_server_seed", "test_client_seed", 1, tt.cursor)
			for i := 0; i < tt.count; i++ {
				f := bg.NextFloat()
				if f < 0 || f >= 1 {
					t.Errorf("float %d out of range [0, 1): %f", i, f)
				}
			}
		})
	}
}

func TestFloatDeterministic(t *testing.T) {
	a := Float("server", "client", 7)
	b := Float("server", "client", 7)
	if a != b {
		t.Fatalf("Float not deterministic: %v vs %v", a, b)
	}
	if Float("server", "client", 8) == a {
		t.Error("different nonces produced the same float")
	}
	if Float("other", "client", 7) == a {
		t.Error("different server seeds produced the same float")
	}
}

func TestBytesToFloat(t *testing.T) {
	if got := bytesToFloat([4]byte{0, 0, 0, 0}); got != 0 {
		t.Errorf("zero bytes = %v", got)
	}
	if got := bytesToFloat([4]byte{128, 0, 0, 0}); got != 0.5 {
		t.Errorf("0x80 lead byte = %v, want 0.5", got)
	}
	if got := bytesToFloat([4]byte{255, 255, 255, 255}); got >= 1 {
		t.Errorf("max bytes = %v, want < 1", got)
	}
}

func TestHashSeed(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashSeed("abc"); got != want {
		t.Errorf("HashSeed = %s, want %s", got, want)
	}
}
