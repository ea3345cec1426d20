package generator

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	idA = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	idB = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	idC = uuid.MustParse("33333333-3333-4333-8333-333333333333")
)

func draw(t *testing.T, g Generator, n int) []uuid.UUID {
	t.Helper()
	out := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		u, err := g.Generate()
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func TestParseExhaustion(t *testing.T) {
	tests := []struct {
		in      string
		want    Exhaustion
		wantErr bool
	}{
		{"cycle", Cycle, false},
		{"random", Random, false},
		{"raise", Raise, false},
		{" Raise ", Raise, false},
		{"explode", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExhaustion(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidExhaustion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUUIDs(t *testing.T) {
	got, err := ParseUUIDs([]string{idA.String(), idB.String()})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{idA, idB}, got)

	_, err = ParseUUIDs([]string{idA.String(), "not-a-uuid"})
	assert.ErrorIs(t, err, ErrInvalidUUID)
}

func TestFixed(t *testing.T) {
	g := NewFixed(idA)
	assert.Equal(t, []uuid.UUID{idA, idA, idA}, draw(t, g, 3))
	g.Reset()
	assert.Equal(t, idA, g.Value())
}

func TestSequence_Cycle(t *testing.T) {
	g, err := NewSequence([]uuid.UUID{idA, idB}, Cycle, 0)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{idA, idB, idA, idB, idA}, draw(t, g, 5))
	assert.True(t, g.Exhausted())
}

func TestSequence_Random(t *testing.T) {
	g, err := NewSequence([]uuid.UUID{idA, idB}, Random, 0)
	require.NoError(t, err)

	got := draw(t, g, 4)
	assert.Equal(t, idA, got[0])
	assert.Equal(t, idB, got[1])
	for _, u := range got[2:] {
		assert.NotContains(t, []uuid.UUID{idA, idB}, u)
		assert.Equal(t, uuid.Version(4), u.Version())
		assert.Equal(t, uuid.RFC4122, u.Variant())
	}
}

func TestSequence_Raise(t *testing.T) {
	g, err := NewSequence([]uuid.UUID{idA, idB}, Raise, 0)
	require.NoError(t, err)

	draw(t, g, 2)
	for i := 0; i < 2; i++ {
		_, err = g.Generate()
		var exhausted *ExhaustedError
		require.True(t, errors.As(err, &exhausted))
		assert.Equal(t, 2, exhausted.Count)
		assert.Contains(t, err.Error(), "exhausted after 2")
	}

	g.Reset()
	assert.False(t, g.Exhausted())
	assert.Equal(t, []uuid.UUID{idA, idB}, draw(t, g, 2))
}

func TestSequence_Empty(t *testing.T) {
	t.Run("raise", func(t *testing.T) {
		g, err := NewSequence(nil, Raise, 0)
		require.NoError(t, err)
		_, err = g.Generate()
		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 0, exhausted.Count)
	})
	t.Run("cycle falls back to random", func(t *testing.T) {
		g, err := NewSequence(nil, Cycle, 7)
		require.NoError(t, err)
		got := draw(t, g, 2)
		assert.NotEqual(t, got[0], got[1])
		assert.Equal(t, uuid.Version(7), got[0].Version())
	})
}

func TestSequence_SetPolicy(t *testing.T) {
	g, err := NewSequence([]uuid.UUID{idA}, Raise, 0)
	require.NoError(t, err)
	draw(t, g, 1)

	require.NoError(t, g.SetPolicy(Cycle))
	assert.Equal(t, Cycle, g.Policy())
	assert.Equal(t, []uuid.UUID{idA, idA}, draw(t, g, 2))

	assert.ErrorIs(t, g.SetPolicy("never"), ErrInvalidExhaustion)
}

func TestSequence_CopiesInput(t *testing.T) {
	values := []uuid.UUID{idA, idB}
	g, err := NewSequence(values, Cycle, 0)
	require.NoError(t, err)
	values[0] = idC
	assert.Equal(t, idA, draw(t, g, 1)[0])
	assert.Equal(t, 2, g.Len())
}

func TestNewSequence_Invalid(t *testing.T) {
	_, err := NewSequence(nil, "sometimes", 0)
	assert.ErrorIs(t, err, ErrInvalidExhaustion)

	_, err = NewSequence(nil, Cycle, 3)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestSeeded_Deterministic(t *testing.T) {
	a, err := NewSeeded(42, Layout{})
	require.NoError(t, err)
	b, err := NewSeeded(42, Layout{})
	require.NoError(t, err)

	first := draw(t, a, 5)
	assert.Equal(t, first, draw(t, b, 5))
	for _, u := range first {
		assert.Equal(t, uuid.Version(4), u.Version())
		assert.Equal(t, uuid.RFC4122, u.Variant())
	}

	a.Reset()
	assert.Equal(t, first, draw(t, a, 5))

	seed, ok := a.Seed()
	assert.True(t, ok)
	assert.Equal(t, int64(42), seed)
}

func TestSeeded_DifferentSeedsDiffer(t *testing.T) {
	a, _ := NewSeeded(1, Layout{})
	b, _ := NewSeeded(2, Layout{})
	assert.NotEqual(t, draw(t, a, 3), draw(t, b, 3))
}

func TestSeeded_Versions(t *testing.T) {
	for _, v := range SupportedVersions {
		g, err := NewSeeded(7, Layout{Version: v})
		require.NoError(t, err)
		u := draw(t, g, 1)[0]
		assert.Equal(t, uuid.Version(v), u.Version(), "version %d", v)
		assert.Equal(t, uuid.RFC4122, u.Variant())
		assert.Equal(t, v, g.Version())
	}

	_, err := NewSeeded(7, Layout{Version: 2})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestSeeded_NodeAndClockSeq(t *testing.T) {
	node := []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	cs := uint16(0x1234)
	g, err := NewSeeded(9, Layout{Version: 1, Node: node, ClockSeq: &cs})
	require.NoError(t, err)

	u := draw(t, g, 1)[0]
	assert.Equal(t, node, u.NodeID())
	assert.Equal(t, int(cs&0x3fff), u.ClockSequence())
	assert.Equal(t, uuid.Version(1), u.Version())

	// Overrides are ignored for non time-based layouts.
	g4, err := NewSeeded(9, Layout{Version: 4, Node: node})
	require.NoError(t, err)
	assert.NotEqual(t, node, draw(t, g4, 1)[0].NodeID())

	_, err = NewSeeded(9, Layout{Version: 1, Node: []byte{1, 2}})
	assert.Error(t, err)
}

func TestSeeded_ExternalSource(t *testing.T) {
	src := rand.New(rand.NewSource(5))
	g, err := NewSeededFromSource(src, Layout{})
	require.NoError(t, err)

	first := draw(t, g, 2)
	g.Reset() // caller-owned engine is not rewound
	assert.NotEqual(t, first, draw(t, g, 2))

	_, ok := g.Seed()
	assert.False(t, ok)

	_, err = NewSeededFromSource(nil, Layout{})
	assert.Error(t, err)
}

func TestPassthrough(t *testing.T) {
	calls := 0
	g := NewPassthrough(func() (uuid.UUID, error) {
		calls++
		return idC, nil
	})
	assert.Equal(t, idC, draw(t, g, 1)[0])
	g.Reset()
	assert.Equal(t, 1, calls)
}

func TestStrategies_ConcurrentUse(t *testing.T) {
	seq, err := NewSequence([]uuid.UUID{idA, idB, idC}, Cycle, 0)
	require.NoError(t, err)
	seeded, err := NewSeeded(3, Layout{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = seq.Generate()
				_, _ = seeded.Generate()
			}
		}()
	}
	wg.Wait()

	// 800 draws of a 3-cycle leaves the cursor at 800 % 3 == 2.
	u, err := seq.Generate()
	require.NoError(t, err)
	assert.Equal(t, idC, u)
}
