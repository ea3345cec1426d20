package generator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sequence returns a fixed list of values in order, then follows its
// exhaustion policy.
type Sequence struct {
	mu        sync.Mutex
	values    []uuid.UUID
	policy    Exhaustion
	version   int
	idx       int
	exhausted bool
	fallback  *rand.Rand
}

// NewSequence returns a Sequence over a copy of values. version shapes the
// values produced by the Random policy; zero means 4.
func NewSequence(values []uuid.UUID, policy Exhaustion, version int) (*Sequence, error) {
	policy, err := ParseExhaustion(string(policy))
	if err != nil {
		return nil, err
	}
	if version == 0 {
		version = 4
	}
	if err := CheckVersion(version); err != nil {
		return nil, err
	}
	return &Sequence{
		values:   append([]uuid.UUID(nil), values...),
		policy:   policy,
		version:  version,
		fallback: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

func (s *Sequence) Generate() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx < len(s.values) {
		v := s.values[s.idx]
		s.idx++
		return v, nil
	}
	s.exhausted = true

	switch s.policy {
	case Cycle:
		if len(s.values) == 0 {
			return s.random(), nil
		}
		s.idx = 1
		return s.values[0], nil
	case Random:
		return s.random(), nil
	default:
		return uuid.Nil, &ExhaustedError{Count: len(s.values)}
	}
}

// random must be called with mu held.
func (s *Sequence) random() uuid.UUID {
	var u uuid.UUID
	s.fallback.Read(u[:])
	shape(&u, s.version)
	return u
}

// Reset rewinds to the first value and clears the exhausted flag.
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx = 0
	s.exhausted = false
}

// Exhausted reports whether every value has been handed out at least once.
func (s *Sequence) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exhausted
}

// SetPolicy changes the exhaustion policy without rewinding.
func (s *Sequence) SetPolicy(policy Exhaustion) error {
	policy, err := ParseExhaustion(string(policy))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.policy = policy
	s.mu.Unlock()
	return nil
}

// Policy returns the current exhaustion policy.
func (s *Sequence) Policy() Exhaustion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Len returns the number of configured values.
func (s *Sequence) Len() int {
	return len(s.values)
}
