package uuidfreeze

import (
	"sync"
	"testing"
)

// testState tracks the fixtures attached to one test.
type testState struct {
	mu       sync.Mutex
	mocker   *Mocker
	spy      *Spy
	freezers []*Freezer
}

var (
	states   = map[testing.TB]*testState{}
	statesMu sync.Mutex
)

// stateFor returns the state for t, creating it and scheduling its removal on first use.
func stateFor(t testing.TB) *testState {
	statesMu.Lock()
	defer statesMu.Unlock()
	if st, ok := states[t]; ok {
		return st
	}
	st := &testState{}
	states[t] = st
	t.Cleanup(func() {
		statesMu.Lock()
		delete(states, t)
		statesMu.Unlock()
	})
	return st
}

func (s *testState) addFreezer(f *Freezer) {
	s.mu.Lock()
	s.freezers = append(s.freezers, f)
	s.mu.Unlock()
}

func (s *testState) removeFreezer(f *Freezer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.freezers {
		if existing == f {
			s.freezers = append(s.freezers[:i], s.freezers[i+1:]...)
			return
		}
	}
}

// boundFreezer returns the innermost active Freezer bound to the test for version.
func (s *testState) boundFreezer(version int) *Freezer {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.freezers) - 1; i >= 0; i-- {
		f := s.freezers[i]
		if f.settings.version == version && f.Active() {
			return f
		}
	}
	return nil
}
