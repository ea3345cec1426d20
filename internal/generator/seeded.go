package generator

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// Source is the minimal engine a Seeded strategy draws from.
// *math/rand.Rand satisfies it.
type Source interface {
	Uint64() uint64
}

// Layout carries the per-version overrides applied after drawing random bits.
// Node and ClockSeq only apply to the time-based layouts (versions 1 and 6).
type Layout struct {
	Version  int
	Node     []byte
	ClockSeq *uint16
}

// Seeded produces a reproducible stream of format-valid identifiers.
type Seeded struct {
	mu      sync.Mutex
	seed    int64
	seeded  bool
	src     Source
	layout  Layout
	version int
}

// NewSeeded returns a strategy reproducible from seed.
func NewSeeded(seed int64, layout Layout) (*Seeded, error) {
	s, err := newSeeded(layout)
	if err != nil {
		return nil, err
	}
	s.seed = seed
	s.seeded = true
	s.src = rand.New(rand.NewSource(seed))
	return s, nil
}

// NewSeededFromSource returns a strategy drawing from a caller-owned engine.
// Reset leaves the engine untouched.
func NewSeededFromSource(src Source, layout Layout) (*Seeded, error) {
	if src == nil {
		return nil, fmt.Errorf("seeded generator: nil source")
	}
	s, err := newSeeded(layout)
	if err != nil {
		return nil, err
	}
	s.src = src
	return s, nil
}

func newSeeded(layout Layout) (*Seeded, error) {
	if layout.Version == 0 {
		layout.Version = 4
	}
	if err := CheckVersion(layout.Version); err != nil {
		return nil, err
	}
	if layout.Node != nil && len(layout.Node) != 6 {
		return nil, fmt.Errorf("seeded generator: node must be 6 bytes, got %d", len(layout.Node))
	}
	layout.Node = append([]byte(nil), layout.Node...)
	return &Seeded{layout: layout, version: layout.Version}, nil
}

func (s *Seeded) Generate() (uuid.UUID, error) {
	s.mu.Lock()
	hi := s.src.Uint64()
	lo := s.src.Uint64()
	s.mu.Unlock()

	var u uuid.UUID
	binary.BigEndian.PutUint64(u[0:8], hi)
	binary.BigEndian.PutUint64(u[8:16], lo)
	s.layout.apply(&u)
	return u, nil
}

// Reset re-seeds the engine when the strategy owns it.
func (s *Seeded) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeded {
		s.src = rand.New(rand.NewSource(s.seed))
	}
}

// Seed returns the integer seed, if the strategy was built from one.
func (s *Seeded) Seed() (int64, bool) {
	return s.seed, s.seeded
}

// Version returns the version nibble written into every value.
func (s *Seeded) Version() int {
	return s.version
}

func (l Layout) apply(u *uuid.UUID) {
	if l.Version == 1 || l.Version == 6 {
		if l.ClockSeq != nil {
			cs := *l.ClockSeq & 0x3fff
			u[8] = byte(cs >> 8)
			u[9] = byte(cs)
		}
		if len(l.Node) == 6 {
			copy(u[10:], l.Node)
		}
	}
	shape(u, l.Version)
}

// shape forces the version nibble and the RFC 4122 variant bits.
func shape(u *uuid.UUID, version int) {
	u[6] = (u[6] & 0x0f) | byte(version)<<4
	u[8] = (u[8] & 0x3f) | 0x80
}
