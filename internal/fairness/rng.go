// Package fairness provides the provably fair roll stream behind spawns and
// capture rolls. Each roll is derived from HMAC-SHA256(serverSeed,
// "clientSeed:nonce:round") so a revealed server seed lets anyone recompute it.
package fairness

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// ByteGenerator streams HMAC-SHA256 bytes for a single nonce
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        uint64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

// NewByteGenerator creates a byte generator positioned at cursor
func NewByteGenerator(serverSeed, clientSeed string, nonce uint64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed:   serverSeed,
		clientSeed:   clientSeed,
		nonce:        nonce,
		currentRound: cursor / 32,
		currentPos:   int(cursor % 32),
	}
	bg.generateRound()
	return bg
}

// Next returns the next byte, advancing to a new HMAC round every 32 bytes
func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}
	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// NextFloat consumes 4 bytes and returns a float in [0, 1)
func (bg *ByteGenerator) NextFloat() float64 {
	return bytesToFloat([4]byte{bg.Next(), bg.Next(), bg.Next(), bg.Next()})
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	copy(bg.buffer[:], h.Sum(nil))
}

func bytesToFloat(b [4]byte) float64 {
	result := 0.0
	for i, v := range b {
		result += float64(v) / math.Pow(256, float64(i+1))
	}
	return result
}

// Float returns the first float for the given seeds and nonce
func Float(serverSeed, clientSeed string, nonce uint64) float64 {
	return NewByteGenerator(serverSeed, clientSeed, nonce, 0).NextFloat()
}

// HashSeed returns the hex SHA-256 of a server seed, safe to publish before reveal
func HashSeed(serverSeed string) string {
	h := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(h[:])
}
