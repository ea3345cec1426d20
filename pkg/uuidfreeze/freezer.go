package uuidfreeze

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"uuidfreeze/internal/config"
	"uuidfreeze/internal/generator"
	"uuidfreeze/internal/logging"
	"uuidfreeze/internal/proxy"
)

var (
	// ErrMissingNodeID is returned by Enter when SeedFromNode has no test identity to hash.
	ErrMissingNodeID = errors.New("uuidfreeze: SeedFromNode requires a node id (use NodeID, Test or Bind)")
	// ErrAlreadyActive is returned when entering a Freezer that is already active.
	ErrAlreadyActive = errors.New("uuidfreeze: freezer is already active")
)

// Freezer is a scope that overrides one identifier producer while active.
// A fresh strategy is built and the call ledger cleared on every Enter;
// the configuration is captured once, by Freeze.
type Freezer struct {
	ledgerViews

	settings settings
	policy   generator.Exhaustion
	ignores  []string
	proxy    *proxy.Proxy

	mu     sync.Mutex
	gen    generator.Generator
	seed   int64
	seeded bool
	token  *proxy.Token
}

// Freeze returns an inactive Freezer. Invalid options (unparsable values,
// unknown exhaustion policy, unsupported version) fail here rather than on Enter.
func Freeze(opts ...Option) (*Freezer, error) {
	s := defaultSettings()
	if err := s.apply(opts); err != nil {
		return nil, err
	}
	cfg := config.Get()
	policy, err := s.policy(cfg)
	if err != nil {
		return nil, err
	}
	return &Freezer{
		ledgerViews: newViews(),
		settings:    s,
		policy:      policy,
		ignores:     s.ignoreList(cfg),
		proxy:       proxy.Default,
	}, nil
}

// MustFreeze is Freeze that panics on error.
func MustFreeze(opts ...Option) *Freezer {
	f, err := Freeze(opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Freezer) clone() *Freezer {
	return &Freezer{
		ledgerViews: newViews(),
		settings:    f.settings,
		policy:      f.policy,
		ignores:     f.ignores,
		proxy:       f.proxy,
	}
}

// Enter activates the Freezer.
func (f *Freezer) Enter() error {
	return f.enter(f.settings.nodeID)
}

func (f *Freezer) enter(nodeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token != nil {
		return ErrAlreadyActive
	}
	gen, seed, seeded, err := f.settings.build(f.proxy, f.policy, nodeID)
	if err != nil {
		return err
	}
	tok, err := f.proxy.Push(f.settings.version, freezeHandle{f})
	if err != nil {
		return err
	}
	f.gen, f.seed, f.seeded = gen, seed, seeded
	f.ledger.Reset()
	f.token = tok
	logging.ScopeDebug("freezer entered v%d node=%q strategy=%T", f.settings.version, nodeID, gen)
	return nil
}

// Exit deactivates the Freezer. Calling it when inactive is a no-op.
func (f *Freezer) Exit() {
	f.mu.Lock()
	tok := f.token
	f.token = nil
	f.gen = nil
	f.mu.Unlock()
	if tok != nil {
		f.proxy.Pop(tok)
		logging.ScopeDebug("freezer exited v%d", f.settings.version)
	}
}

// Active reports whether the Freezer is between Enter and Exit.
func (f *Freezer) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token != nil
}

// Run calls fn with the Freezer active. Exit runs even if fn panics; the
// panic is not recovered.
func (f *Freezer) Run(fn func()) error {
	if err := f.Enter(); err != nil {
		return err
	}
	defer f.Exit()
	fn()
	return nil
}

// RunE is Run for functions that return an error.
func (f *Freezer) RunE(fn func() error) error {
	if err := f.Enter(); err != nil {
		return err
	}
	defer f.Exit()
	return fn()
}

// Wrap returns fn decorated to run under this Freezer on every call.
func (f *Freezer) Wrap(fn func()) func() error {
	return func() error { return f.Run(fn) }
}

// Test decorates a test function. The test identity defaults to t.Name().
func (f *Freezer) Test(fn func(t *testing.T)) func(t *testing.T) {
	return func(t *testing.T) {
		t.Helper()
		if err := f.enter(f.nodeFor(t)); err != nil {
			t.Fatalf("uuidfreeze: %v", err)
		}
		defer f.Exit()
		fn(t)
	}
}

// Bind activates the Freezer for the rest of t and deactivates it in
// t.Cleanup. A Mocker created later in the same test falls back to it.
func (f *Freezer) Bind(t testing.TB) *Freezer {
	t.Helper()
	if err := f.enter(f.nodeFor(t)); err != nil {
		t.Fatalf("uuidfreeze: %v", err)
	}
	st := stateFor(t)
	st.addFreezer(f)
	t.Cleanup(func() {
		st.removeFreezer(f)
		f.Exit()
	})
	return f
}

// FreezeTest is Freeze followed by Bind.
func FreezeTest(t testing.TB, opts ...Option) *Freezer {
	t.Helper()
	f, err := Freeze(opts...)
	if err != nil {
		t.Fatalf("uuidfreeze: %v", err)
	}
	return f.Bind(t)
}

// RunMethods runs every exported Test* method of suite as a subtest, each
// under its own copy of the Freezer. Methods may have the signature func(),
// func(*testing.T) or func(*testing.T, *Freezer); the last receives the
// active copy.
func (f *Freezer) RunMethods(t *testing.T, suite any) {
	t.Helper()
	v := reflect.ValueOf(suite)
	typ := v.Type()
	ran := 0
	for i := 0; i < typ.NumMethod(); i++ {
		name := typ.Method(i).Name
		if !strings.HasPrefix(name, "Test") {
			continue
		}
		var call func(*testing.T, *Freezer)
		switch fn := v.Method(i).Interface().(type) {
		case func():
			call = func(*testing.T, *Freezer) { fn() }
		case func(*testing.T):
			call = func(t *testing.T, _ *Freezer) { fn(t) }
		case func(*testing.T, *Freezer):
			call = fn
		default:
			continue
		}
		ran++
		t.Run(name, func(t *testing.T) {
			c := f.clone()
			if err := c.enter(c.nodeFor(t)); err != nil {
				t.Fatalf("uuidfreeze: %v", err)
			}
			defer c.Exit()
			call(t, c)
		})
	}
	if ran == 0 {
		t.Fatalf("uuidfreeze: %T has no Test methods", suite)
	}
}

func (f *Freezer) nodeFor(t testing.TB) string {
	if f.settings.nodeID != "" {
		return f.settings.nodeID
	}
	return t.Name()
}

// Generator returns the active strategy, or nil when the Freezer is inactive.
func (f *Freezer) Generator() Generator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

// Seed returns the effective seed of the last Enter, including node-derived
// seeds. It stays readable after Exit.
func (f *Freezer) Seed() (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seed, f.seeded
}

// Ignores returns the package prefixes this Freezer lets through to the real producer.
func (f *Freezer) Ignores() []string {
	return append([]string{}, f.ignores...)
}

// Reset rewinds the strategy and clears the call ledger.
func (f *Freezer) Reset() {
	if gen := f.Generator(); gen != nil {
		gen.Reset()
	}
	f.ledger.Reset()
}

// produce serves one intercepted call; also used by a Mocker delegating here.
func (f *Freezer) produce() (uuid.UUID, bool, error) {
	gen := f.Generator()
	if gen == nil {
		u, err := f.proxy.CallOriginal(f.settings.version)
		return u, false, err
	}
	u, err := gen.Generate()
	return u, true, err
}

// freezeHandle adapts a Freezer to proxy.Handle without widening its API.
type freezeHandle struct {
	f *Freezer
}

func (h freezeHandle) Ignores() []string { return h.f.ignores }

func (h freezeHandle) Produce() (uuid.UUID, bool, error) { return h.f.produce() }

func (h freezeHandle) Record(rec CallRecord) { h.f.ledger.Record(rec) }
