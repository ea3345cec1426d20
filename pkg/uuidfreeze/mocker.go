package uuidfreeze

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"uuidfreeze/internal/config"
	"uuidfreeze/internal/generator"
	"uuidfreeze/internal/logging"
	"uuidfreeze/internal/proxy"
)

// Mocker is a test fixture whose strategy can be changed while it is active.
// Until a strategy is set it serves values from a Freezer bound to the same
// test, or real values when there is none, recording every call either way.
type Mocker struct {
	ledgerViews

	proxy   *proxy.Proxy
	version int
	nodeID  string
	state   *testState
	base    []string

	mu     sync.Mutex
	gen    generator.Generator
	policy generator.Exhaustion
	extra  []string
	layout generator.Layout
	values []uuid.UUID // set when gen was built from a value list
	spying bool
	seed   int64
	seeded bool
	token  *proxy.Token
	subs   map[int]*Mocker
}

// NewMocker returns an inactive Mocker. Value options (Value, Values, Seed,
// ...) set its initial strategy.
func NewMocker(opts ...Option) (*Mocker, error) {
	s := defaultSettings()
	if err := s.apply(opts); err != nil {
		return nil, err
	}
	cfg := config.Get()
	policy, err := s.policy(cfg)
	if err != nil {
		return nil, err
	}
	baseSettings := s
	baseSettings.ignore = nil

	m := &Mocker{
		ledgerViews: newViews(),
		proxy:       proxy.Default,
		version:     s.version,
		nodeID:      s.nodeID,
		base:        baseSettings.ignoreList(cfg),
		policy:      policy,
		extra:       append([]string{}, s.ignore...),
		layout:      s.layout(),
	}
	if s.configured() {
		gen, seed, seeded, err := s.build(m.proxy, policy, s.nodeID)
		if err != nil {
			return nil, err
		}
		m.gen, m.seed, m.seeded = gen, seed, seeded
		if s.fromValues() {
			m.values = append([]uuid.UUID{}, s.values...)
		}
	}
	return m, nil
}

// Mock returns the Mocker for t, creating and starting it on first call. Its
// node id is t.Name() unless NodeID is given; it stops in t.Cleanup. Options
// are ignored on later calls within the same test. Mock and SpyOn cannot be
// combined in one test.
func Mock(t testing.TB, opts ...Option) *Mocker {
	t.Helper()
	st := stateFor(t)
	st.mu.Lock()
	spy, existing := st.spy, st.mocker
	st.mu.Unlock()
	if spy != nil {
		t.Fatalf("uuidfreeze: Mock and SpyOn cannot be used in the same test; use Mocker.Spy() to observe real values")
	}
	if existing != nil {
		return existing
	}

	m, err := NewMocker(append([]Option{NodeID(t.Name())}, opts...)...)
	if err != nil {
		t.Fatalf("uuidfreeze: %v", err)
	}
	m.state = st
	if err := m.Start(); err != nil {
		t.Fatalf("uuidfreeze: %v", err)
	}
	st.mu.Lock()
	st.mocker = m
	st.mu.Unlock()
	t.Cleanup(m.Stop)
	return m
}

// Start activates the Mocker and any sub-mockers already created.
func (m *Mocker) Start() error {
	m.mu.Lock()
	if m.token != nil {
		m.mu.Unlock()
		return ErrAlreadyActive
	}
	tok, err := m.proxy.Push(m.version, mockHandle{m})
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.token = tok
	subs := m.children()
	m.mu.Unlock()

	logging.ScopeDebug("mocker started v%d node=%q", m.version, m.nodeID)
	for _, sub := range subs {
		if err := sub.Start(); err != nil {
			return err
		}
	}
	return nil
}

// Stop deactivates the Mocker and its sub-mockers. Safe to call twice.
func (m *Mocker) Stop() {
	m.mu.Lock()
	tok := m.token
	m.token = nil
	subs := m.children()
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Stop()
	}
	if tok != nil {
		m.proxy.Pop(tok)
		logging.ScopeDebug("mocker stopped v%d", m.version)
	}
}

// children must be called with mu held.
func (m *Mocker) children() []*Mocker {
	out := make([]*Mocker, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub)
	}
	return out
}

// V1 returns the sub-mocker for version 1 identifiers (NewUUID).
func (m *Mocker) V1() *Mocker { return m.sub(1) }

// V6 returns the sub-mocker for version 6 identifiers.
func (m *Mocker) V6() *Mocker { return m.sub(6) }

// V7 returns the sub-mocker for version 7 identifiers.
func (m *Mocker) V7() *Mocker { return m.sub(7) }

// V8 returns the sub-mocker for version 8 identifiers.
func (m *Mocker) V8() *Mocker { return m.sub(8) }

func (m *Mocker) sub(version int) *Mocker {
	if version == m.version {
		return m
	}
	m.mu.Lock()
	if sub, ok := m.subs[version]; ok {
		m.mu.Unlock()
		return sub
	}
	layout := m.layout
	layout.Version = version
	sub := &Mocker{
		ledgerViews: newViews(),
		proxy:       m.proxy,
		version:     version,
		nodeID:      m.nodeID,
		state:       m.state,
		base:        m.base,
		policy:      m.policy,
		extra:       append([]string{}, m.extra...),
		layout:      layout,
	}
	if m.subs == nil {
		m.subs = map[int]*Mocker{}
	}
	m.subs[version] = sub
	active := m.token != nil
	m.mu.Unlock()

	if active {
		if err := sub.Start(); err != nil {
			logging.ScopeWarn("sub-mocker v%d not started: %v", version, err)
		}
	}
	return sub
}

func (m *Mocker) setGenerator(gen generator.Generator, seed int64, seeded bool) {
	m.mu.Lock()
	m.gen, m.seed, m.seeded = gen, seed, seeded
	m.values = nil
	m.spying = false
	m.mu.Unlock()
}

// fromValues builds the strategy for a value list: a single value under the
// cycle policy is fixed, anything else is a sequence.
func (m *Mocker) fromValues(us []uuid.UUID, policy generator.Exhaustion) (generator.Generator, error) {
	if len(us) == 1 && policy == generator.Cycle {
		return generator.NewFixed(us[0]), nil
	}
	return generator.NewSequence(us, policy, m.version)
}

// Set replays values in order and then follows the exhaustion policy. A
// single value under the cycle policy is returned forever. Set with no
// values leaves the current strategy in place.
func (m *Mocker) Set(values ...string) error {
	us, err := generator.ParseUUIDs(values)
	if err != nil {
		return err
	}
	return m.SetUUIDs(us...)
}

// SetUUIDs is Set for parsed identifiers.
func (m *Mocker) SetUUIDs(us ...uuid.UUID) error {
	if len(us) == 0 {
		return nil
	}
	m.mu.Lock()
	policy := m.policy
	m.mu.Unlock()
	gen, err := m.fromValues(us, policy)
	if err != nil {
		return err
	}
	m.setGenerator(gen, 0, false)
	m.mu.Lock()
	m.values = append([]uuid.UUID{}, us...)
	m.mu.Unlock()
	return nil
}

// SetDefault pins every call to value.
func (m *Mocker) SetDefault(value string) error {
	u, err := generator.ParseUUID(value)
	if err != nil {
		return err
	}
	m.setGenerator(generator.NewFixed(u), 0, false)
	return nil
}

// SetSeed switches to a reproducible stream from seed.
func (m *Mocker) SetSeed(seed int64) error {
	m.mu.Lock()
	layout := m.layout
	m.mu.Unlock()
	gen, err := generator.NewSeeded(seed, layout)
	if err != nil {
		return err
	}
	m.setGenerator(gen, seed, true)
	return nil
}

// SetSeedSource switches to a stream drawn from a caller-owned engine.
func (m *Mocker) SetSeedSource(src Source) error {
	m.mu.Lock()
	layout := m.layout
	m.mu.Unlock()
	gen, err := generator.NewSeededFromSource(src, layout)
	if err != nil {
		return err
	}
	m.setGenerator(gen, 0, false)
	return nil
}

// SetSeedFromNode seeds from the test identity.
func (m *Mocker) SetSeedFromNode() error {
	if m.nodeID == "" {
		return ErrMissingNodeID
	}
	return m.SetSeed(NodeSeed(m.nodeID))
}

// SetNode fixes the node of future seeded version 1 and 6 identifiers.
func (m *Mocker) SetNode(node []byte) error {
	if len(node) != 6 {
		return fmt.Errorf("uuidfreeze: node must be 6 bytes, got %d", len(node))
	}
	m.mu.Lock()
	m.layout.Node = append([]byte{}, node...)
	m.mu.Unlock()
	return nil
}

// SetClockSeq fixes the clock sequence of future seeded version 1 and 6 identifiers.
func (m *Mocker) SetClockSeq(seq uint16) {
	m.mu.Lock()
	m.layout.ClockSeq = &seq
	m.mu.Unlock()
}

// SetExhaustion changes the policy for the current and future value lists.
// A live sequence keeps its position; a single fixed value from Set becomes
// a one-element sequence when the new policy is not cycle.
func (m *Mocker) SetExhaustion(policy string) error {
	e, err := generator.ParseExhaustion(policy)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = e
	switch gen := m.gen.(type) {
	case *generator.Sequence:
		return gen.SetPolicy(e)
	case *generator.Fixed:
		if len(m.values) == 1 && e != generator.Cycle {
			seq, err := generator.NewSequence(m.values, e, m.version)
			if err != nil {
				return err
			}
			m.gen = seq
		}
	}
	return nil
}

// SetIgnore replaces the extra ignored package prefixes. Configured and
// default prefixes still apply.
func (m *Mocker) SetIgnore(prefixes ...string) {
	m.mu.Lock()
	m.extra = append([]string{}, prefixes...)
	m.mu.Unlock()
}

// Ignores returns the effective ignored package prefixes.
func (m *Mocker) Ignores() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ignores()
}

// ignores must be called with mu held.
func (m *Mocker) ignores() []string {
	out := append([]string{}, m.base...)
	for _, p := range m.extra {
		dup := false
		for _, b := range m.base {
			if b == p {
				dup = true
				break
			}
		}
		if !dup && p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Spy drops the strategy: calls get real values and are still recorded.
func (m *Mocker) Spy() {
	m.mu.Lock()
	m.gen = nil
	m.seeded = false
	m.spying = true
	m.mu.Unlock()
}

// Reset rewinds the strategy and clears the call ledger.
func (m *Mocker) Reset() {
	if gen := m.Generator(); gen != nil {
		gen.Reset()
	}
	m.ledger.Reset()
}

// Generator returns the current strategy, or nil.
func (m *Mocker) Generator() Generator {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Seed returns the seed of the current strategy, if it was built from one.
func (m *Mocker) Seed() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seed, m.seeded
}

// Version returns the version this Mocker intercepts.
func (m *Mocker) Version() int {
	return m.version
}

func (m *Mocker) produce() (uuid.UUID, bool, error) {
	m.mu.Lock()
	gen, spying, st := m.gen, m.spying, m.state
	m.mu.Unlock()

	if gen != nil {
		u, err := gen.Generate()
		return u, true, err
	}
	if !spying && st != nil {
		if f := st.boundFreezer(m.version); f != nil {
			return f.produce()
		}
	}
	u, err := m.proxy.CallOriginal(m.version)
	return u, false, err
}

type mockHandle struct {
	m *Mocker
}

func (h mockHandle) Ignores() []string { return h.m.Ignores() }

func (h mockHandle) Produce() (uuid.UUID, bool, error) { return h.m.produce() }

func (h mockHandle) Record(rec CallRecord) { h.m.ledger.Record(rec) }
