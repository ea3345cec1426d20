package proxy_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"uuidfreeze/internal/proxy"
	"uuidfreeze/internal/tracking"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	realID  = uuid.MustParse("aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa")
	fixedID = uuid.MustParse("bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb")
	innerID = uuid.MustParse("cccccccc-cccc-4ccc-8ccc-cccccccccccc")
)

type fakeResolver struct {
	stack tracking.Stack
}

func (r *fakeResolver) Resolve() tracking.Stack { return r.stack }

type fakeHandle struct {
	value    uuid.UUID
	err      error
	ignores  []string
	produced atomic.Int64
	ledger   *tracking.Ledger
}

func newHandle(v uuid.UUID, ignores ...string) *fakeHandle {
	return &fakeHandle{value: v, ignores: ignores, ledger: tracking.NewLedger()}
}

func (h *fakeHandle) Ignores() []string { return h.ignores }

func (h *fakeHandle) Produce() (uuid.UUID, bool, error) {
	h.produced.Add(1)
	if h.err != nil {
		return uuid.Nil, false, h.err
	}
	return h.value, true, nil
}

func (h *fakeHandle) Record(rec tracking.CallRecord) { h.ledger.Record(rec) }

func newProxy(t *testing.T, caller string, pkgs ...string) (*proxy.Proxy, *atomic.Int64) {
	t.Helper()
	var realCalls atomic.Int64
	original := func() (uuid.UUID, error) {
		realCalls.Add(1)
		return realID, nil
	}
	r := &fakeResolver{stack: tracking.Stack{
		Caller:   tracking.CallerInfo{Module: caller, Function: "Create", QualifiedName: "(*Repo).Create"},
		Packages: append([]string{caller}, pkgs...),
	}}
	p := proxy.New(r, map[int]proxy.Producer{1: original, 4: original, 6: original, 7: original})
	p.Install()
	return p, &realCalls
}

func TestInstall_Idempotent(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	orig, err := p.Original(4)
	require.NoError(t, err)

	p.Install()
	p.Install()
	again, err := p.Original(4)
	require.NoError(t, err)
	assert.True(t, p.Installed())

	u1, _ := orig()
	u2, _ := again()
	assert.Equal(t, u1, u2)
}

func TestUninstall(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	_, err := p.Push(4, newHandle(fixedID))
	require.NoError(t, err)

	p.Uninstall()
	assert.False(t, p.Installed())
	assert.Zero(t, p.Depth(4))
	_, err = p.Call(4)
	assert.ErrorIs(t, err, proxy.ErrNotInstalled)
}

func TestCall_NoScopeUsesOriginalUnrecorded(t *testing.T) {
	p, realCalls := newProxy(t, "example.com/app")
	u, err := p.Call(4)
	require.NoError(t, err)
	assert.Equal(t, realID, u)
	assert.Equal(t, int64(1), realCalls.Load())
}

func TestCall_InterceptsAndRecords(t *testing.T) {
	p, realCalls := newProxy(t, "example.com/app/models")
	h := newHandle(fixedID)
	tok, err := p.Push(4, h)
	require.NoError(t, err)
	defer p.Pop(tok)

	u, err := p.Call(4)
	require.NoError(t, err)
	assert.Equal(t, fixedID, u)
	assert.Zero(t, realCalls.Load())

	calls := h.ledger.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Intercepted)
	assert.Equal(t, 4, calls[0].Version)
	assert.Equal(t, "example.com/app/models", calls[0].Caller.Module)
	assert.Equal(t, "(*Repo).Create", calls[0].Caller.QualifiedName)
}

func TestCall_IgnoredCallerGetsOriginal(t *testing.T) {
	// The ignored package sits deeper in the stack than the immediate caller.
	p, realCalls := newProxy(t, "io", "github.com/aws/smithy-go/rand", "example.com/app")
	h := newHandle(fixedID, "github.com/aws/smithy-go")
	tok, err := p.Push(4, h)
	require.NoError(t, err)
	defer p.Pop(tok)

	u, err := p.Call(4)
	require.NoError(t, err)
	assert.Equal(t, realID, u)
	assert.Equal(t, int64(1), realCalls.Load())
	assert.Zero(t, h.produced.Load(), "ignored calls must not touch the strategy")

	calls := h.ledger.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Intercepted)
	assert.Equal(t, 1, h.ledger.RealCount())
}

func TestCall_ErrorPropagatesUnrecorded(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	boom := errors.New("exhausted")
	h := newHandle(fixedID)
	h.err = boom
	tok, err := p.Push(4, h)
	require.NoError(t, err)
	defer p.Pop(tok)

	_, err = p.Call(4)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, h.ledger.Count())
}

func TestNesting_InnerWinsOuterResumes(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	outer := newHandle(fixedID)
	inner := newHandle(innerID)

	tokOuter, err := p.Push(4, outer)
	require.NoError(t, err)
	u, _ := p.Call(4)
	assert.Equal(t, fixedID, u)

	tokInner, err := p.Push(4, inner)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Depth(4))
	assert.Same(t, inner, p.Current(4))
	u, _ = p.Call(4)
	assert.Equal(t, innerID, u)

	p.Pop(tokInner)
	u, _ = p.Call(4)
	assert.Equal(t, fixedID, u)

	p.Pop(tokOuter)
	assert.Nil(t, p.Current(4))
	assert.Equal(t, 2, outer.ledger.Count())
	assert.Equal(t, 1, inner.ledger.Count())
}

func TestPop_OutOfOrderRemovesByIdentity(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	a, b := newHandle(fixedID), newHandle(innerID)
	tokA, _ := p.Push(4, a)
	tokB, _ := p.Push(4, b)

	p.Pop(tokA)
	assert.Equal(t, 1, p.Depth(4))
	assert.Same(t, b, p.Current(4))

	p.Pop(tokA) // twice is a no-op
	p.Pop(nil)
	assert.Equal(t, 1, p.Depth(4))

	p.Pop(tokB)
	assert.Zero(t, p.Depth(4))
}

func TestVersionsAreIndependent(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	tok, _ := p.Push(7, newHandle(fixedID))
	defer p.Pop(tok)

	u, err := p.Call(4)
	require.NoError(t, err)
	assert.Equal(t, realID, u)

	u, err = p.Call(7)
	require.NoError(t, err)
	assert.Equal(t, fixedID, u)
	assert.Equal(t, 7, tok.Version())
}

func TestVersion8_Unavailable(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	_, err := p.Call(8)
	var unavailable *proxy.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 8, unavailable.Version)
	assert.Contains(t, err.Error(), "seed")

	tok, _ := p.Push(8, newHandle(fixedID))
	defer p.Pop(tok)
	u, err := p.Call(8)
	require.NoError(t, err)
	assert.Equal(t, fixedID, u)
}

func TestPush_UnsupportedVersion(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	_, err := p.Push(3, newHandle(fixedID))
	assert.ErrorIs(t, err, proxy.ErrUnsupportedVersion)
	_, err = p.Call(5)
	assert.ErrorIs(t, err, proxy.ErrUnsupportedVersion)
}

func TestIgnored(t *testing.T) {
	assert.True(t, proxy.Ignored([]string{"a", "github.com/aws/aws-sdk-go-v2/service/s3"}, []string{"github.com/aws/aws-sdk-go-v2"}))
	assert.False(t, proxy.Ignored([]string{"example.com/app"}, []string{"github.com/aws"}))
	assert.False(t, proxy.Ignored([]string{"example.com/app"}, []string{""}))
	assert.False(t, proxy.Ignored(nil, []string{"x"}))
}

func TestConcurrentPushPopAndCall(t *testing.T) {
	p, _ := newProxy(t, "example.com/app")
	base := newHandle(fixedID)
	baseTok, _ := p.Push(4, base)

	var g errgroup.Group
	var mu sync.Mutex
	seen := map[uuid.UUID]int{}
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 200; j++ {
				u, err := p.Call(4)
				if err != nil {
					return err
				}
				mu.Lock()
				seen[u]++
				mu.Unlock()
			}
			return nil
		})
	}
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for j := 0; j < 100; j++ {
				tok, err := p.Push(4, newHandle(innerID))
				if err != nil {
					return err
				}
				p.Pop(tok)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	p.Pop(baseTok)
	assert.Zero(t, p.Depth(4))
	assert.Equal(t, 1600, seen[fixedID]+seen[innerID])
	assert.NotContains(t, seen, realID)
}
