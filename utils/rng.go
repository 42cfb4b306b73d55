package utils

import (
	crand "crypto/rand"
	"encoding/binary"
	"log"
	"math/rand"
	"sync"
)

// lockedSource makes a rand.Source safe for the shared service-level stream.
// Stdlib on purpose: no repo in our stack wraps RNG in a library, and the
// seeded/production split is all the abstraction the rollers need.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// NewSeededRNG returns a deterministic stream for tests and replays
func NewSeededRNG(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed)})
}

// NewSecureRNG returns a stream seeded from crypto/rand for production rolls
func NewSecureRNG() *rand.Rand {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		log.Printf("⚠️  crypto seed unavailable, falling back to constant seed: %v", err)
		return NewSeededRNG(1)
	}
	return NewSeededRNG(int64(binary.LittleEndian.Uint64(b[:])))
}
