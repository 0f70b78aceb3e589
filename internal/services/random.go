package services

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"
	"sync"
)

// RandomSource supplies uniform draws to the engines.
type RandomSource interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// IntN returns a uniform value in [0, n). It panics if n <= 0.
	IntN(n int) int
}

// CryptoSource draws from crypto/rand. It is the default for real play.
type CryptoSource struct{}

func NewCryptoSource() CryptoSource { return CryptoSource{} }

func (CryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return mrand.Float64()
	}
	// 53 random bits map exactly onto the float64 mantissa.
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

func (CryptoSource) IntN(n int) int {
	if n <= 0 {
		panic("services: IntN called with non-positive n")
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return mrand.IntN(n)
	}
	// Rejection sampling keeps the draw unbiased for every n.
	limit := ^uint64(0) - (^uint64(0) % uint64(n))
	for {
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % uint64(n))
		}
		if _, err := rand.Read(buf[:]); err != nil {
			return mrand.IntN(n)
		}
	}
}

// SeededSource is a reproducible PCG stream, used for simulations and property tests.
type SeededSource struct {
	mu sync.Mutex
	r  *mrand.Rand
}

func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{r: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *SeededSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// SequenceSource replays fixed draws in order. It panics once a sequence runs out,
// so a test that consumes more draws than it scripted fails loudly.
type SequenceSource struct {
	floats []float64
	ints   []int
}

func NewSequenceSource(floats []float64, ints []int) *SequenceSource {
	return &SequenceSource{floats: floats, ints: ints}
}

func (s *SequenceSource) Float64() float64 {
	if len(s.floats) == 0 {
		panic("services: SequenceSource float sequence exhausted")
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *SequenceSource) IntN(n int) int {
	if len(s.ints) == 0 {
		panic("services: SequenceSource int sequence exhausted")
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("services: scripted draw %d outside [0, %d)", v, n))
	}
	return v
}

func (s *SequenceSource) Remaining() (floats, ints int) {
	return len(s.floats), len(s.ints)
}
