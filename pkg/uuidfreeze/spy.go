package uuidfreeze

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"uuidfreeze/internal/logging"
	"uuidfreeze/internal/proxy"
)

// Spy observes identifier generation without changing it: every call gets a
// real value and is recorded as not intercepted.
type Spy struct {
	ledgerViews

	proxy   *proxy.Proxy
	version int

	mu    sync.Mutex
	token *proxy.Token
}

// NewSpy returns an inactive Spy. Only the Version option is meaningful.
func NewSpy(opts ...Option) (*Spy, error) {
	s := defaultSettings()
	if err := s.apply(opts); err != nil {
		return nil, err
	}
	return &Spy{ledgerViews: newViews(), proxy: proxy.Default, version: s.version}, nil
}

// SpyOn returns the Spy for t, starting it on first call and stopping it in
// t.Cleanup. SpyOn and Mock cannot be combined in one test.
func SpyOn(t testing.TB, opts ...Option) *Spy {
	t.Helper()
	st := stateFor(t)
	st.mu.Lock()
	mocker, existing := st.mocker, st.spy
	st.mu.Unlock()
	if mocker != nil {
		t.Fatalf("uuidfreeze: Mock and SpyOn cannot be used in the same test; use Mocker.Spy() to observe real values")
	}
	if existing != nil {
		return existing
	}

	s, err := NewSpy(opts...)
	if err != nil {
		t.Fatalf("uuidfreeze: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("uuidfreeze: %v", err)
	}
	st.mu.Lock()
	st.spy = s
	st.mu.Unlock()
	t.Cleanup(s.Stop)
	return s
}

// Start activates the Spy.
func (s *Spy) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != nil {
		return ErrAlreadyActive
	}
	tok, err := s.proxy.Push(s.version, spyHandle{s})
	if err != nil {
		return err
	}
	s.token = tok
	logging.ScopeDebug("spy started v%d", s.version)
	return nil
}

// Stop deactivates the Spy. Safe to call twice.
func (s *Spy) Stop() {
	s.mu.Lock()
	tok := s.token
	s.token = nil
	s.mu.Unlock()
	if tok != nil {
		s.proxy.Pop(tok)
	}
}

// Reset clears the call ledger.
func (s *Spy) Reset() {
	s.ledger.Reset()
}

type spyHandle struct {
	s *Spy
}

func (h spyHandle) Ignores() []string { return nil }

func (h spyHandle) Produce() (uuid.UUID, bool, error) {
	u, err := h.s.proxy.CallOriginal(h.s.version)
	return u, false, err
}

func (h spyHandle) Record(rec CallRecord) { h.s.ledger.Record(rec) }
