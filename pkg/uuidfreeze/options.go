package uuidfreeze

import (
	"fmt"

	"github.com/google/uuid"

	"uuidfreeze/internal/config"
	"uuidfreeze/internal/generator"
	"uuidfreeze/internal/proxy"
	"uuidfreeze/internal/tracking"
)

// Option configures a Freezer, Mocker or Spy.
type Option func(*settings)

type settings struct {
	value     *uuid.UUID
	values    []uuid.UUID
	hasValues bool

	seed         *int64
	source       generator.Source
	seedFromNode bool
	nodeID       string

	exhaustion     string
	ignore         []string
	ignoreDefaults bool
	version        int
	node           []byte
	clockSeq       *uint16

	err error
}

func defaultSettings() settings {
	return settings{ignoreDefaults: true, version: 4}
}

func (s *settings) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Value pins every call to one identifier.
func Value(v string) Option {
	return func(s *settings) {
		u, err := generator.ParseUUID(v)
		if err != nil {
			s.fail(err)
			return
		}
		s.value = &u
	}
}

// UUIDValue pins every call to u.
func UUIDValue(u uuid.UUID) Option {
	return func(s *settings) { s.value = &u }
}

// Values replays identifiers in order, then applies the exhaustion policy.
// A single value under the cycle policy behaves like Value.
func Values(vs ...string) Option {
	return func(s *settings) {
		us, err := generator.ParseUUIDs(vs)
		if err != nil {
			s.fail(err)
			return
		}
		s.values = us
		s.hasValues = true
	}
}

// UUIDs is Values for parsed identifiers.
func UUIDs(us ...uuid.UUID) Option {
	return func(s *settings) {
		s.values = append([]uuid.UUID{}, us...)
		s.hasValues = true
	}
}

// Seed produces a reproducible stream from seed.
func Seed(seed int64) Option {
	return func(s *settings) { s.seed = &seed }
}

// SeedSource draws from a caller-owned engine. Reset does not rewind it.
func SeedSource(src Source) Option {
	return func(s *settings) {
		if src == nil {
			s.fail(fmt.Errorf("uuidfreeze: nil seed source"))
			return
		}
		s.source = src
	}
}

// SeedFromNode derives the seed from the test identity (see NodeSeed), so
// each test gets its own stable stream.
func SeedFromNode() Option {
	return func(s *settings) { s.seedFromNode = true }
}

// NodeID sets the test identity used by SeedFromNode. Test and Bind default
// it to t.Name().
func NodeID(id string) Option {
	return func(s *settings) { s.nodeID = id }
}

// OnExhausted picks the sequence exhaustion policy: "cycle", "random" or "raise".
func OnExhausted(policy string) Option {
	return func(s *settings) { s.exhaustion = policy }
}

// Ignore adds package path prefixes whose calls get real identifiers.
func Ignore(prefixes ...string) Option {
	return func(s *settings) { s.ignore = append(s.ignore, prefixes...) }
}

// IgnoreDefaults controls whether DefaultIgnorePackages apply. On by default.
func IgnoreDefaults(on bool) Option {
	return func(s *settings) { s.ignoreDefaults = on }
}

// Version selects which producer the scope intercepts: 1, 4 (default), 6, 7 or 8.
func Version(v int) Option {
	return func(s *settings) { s.version = v }
}

// Node fixes the 48-bit node of seeded version 1 and 6 identifiers.
func Node(node []byte) Option {
	return func(s *settings) {
		if len(node) != 6 {
			s.fail(fmt.Errorf("uuidfreeze: node must be 6 bytes, got %d", len(node)))
			return
		}
		s.node = append([]byte{}, node...)
	}
}

// ClockSeq fixes the 14-bit clock sequence of seeded version 1 and 6 identifiers.
func ClockSeq(seq uint16) Option {
	return func(s *settings) { s.clockSeq = &seq }
}

// NodeSeed is the seed SeedFromNode uses for a given test identity.
func NodeSeed(nodeID string) int64 {
	return tracking.NodeSeed(nodeID)
}

func (s *settings) apply(opts []Option) error {
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return s.err
	}
	return generator.CheckVersion(s.version)
}

// policy resolves the exhaustion policy against the configuration snapshot.
func (s *settings) policy(cfg *config.Config) (generator.Exhaustion, error) {
	if s.exhaustion == "" {
		return cfg.DefaultExhaustion, nil
	}
	return generator.ParseExhaustion(s.exhaustion)
}

// ignoreList merges configuration, explicit prefixes and the defaults, without duplicates.
func (s *settings) ignoreList(cfg *config.Config) []string {
	var out []string
	seen := map[string]bool{}
	add := func(ps []string) {
		for _, p := range ps {
			if p != "" && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	add(cfg.IgnoreList())
	add(s.ignore)
	if s.ignoreDefaults {
		add(DefaultIgnorePackages)
	}
	return out
}

// fromValues reports whether build picks a strategy from the Values list.
func (s *settings) fromValues() bool {
	return s.hasValues && s.value == nil && s.seed == nil && s.source == nil && !s.seedFromNode
}

func (s *settings) layout() generator.Layout {
	return generator.Layout{Version: s.version, Node: s.node, ClockSeq: s.clockSeq}
}

// configured reports whether any value-producing option was given.
func (s *settings) configured() bool {
	return s.seed != nil || s.source != nil || s.seedFromNode || s.value != nil || s.hasValues
}

// build picks the strategy for one activation. Seeds take precedence over
// values. seed is only meaningful when seeded is true.
func (s *settings) build(p *proxy.Proxy, policy generator.Exhaustion, nodeID string) (gen generator.Generator, seed int64, seeded bool, err error) {
	switch {
	case s.seedFromNode:
		if nodeID == "" {
			return nil, 0, false, ErrMissingNodeID
		}
		seed = tracking.NodeSeed(nodeID)
		gen, err = generator.NewSeeded(seed, s.layout())
		return gen, seed, err == nil, err
	case s.seed != nil:
		gen, err = generator.NewSeeded(*s.seed, s.layout())
		return gen, *s.seed, err == nil, err
	case s.source != nil:
		gen, err = generator.NewSeededFromSource(s.source, s.layout())
		return gen, 0, false, err
	case s.value != nil:
		return generator.NewFixed(*s.value), 0, false, nil
	case s.hasValues:
		if len(s.values) == 1 && policy == generator.Cycle {
			return generator.NewFixed(s.values[0]), 0, false, nil
		}
		gen, err = generator.NewSequence(s.values, policy, s.version)
		return gen, 0, false, err
	}
	version := s.version
	return generator.NewPassthrough(func() (uuid.UUID, error) {
		return p.CallOriginal(version)
	}), 0, false, nil
}
