// Package proxy is the process-wide interception point every identifier
// request goes through. It keeps one stack of active scopes per UUID version;
// the innermost scope decides what a call returns.
package proxy

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"uuidfreeze/internal/logging"
	"uuidfreeze/internal/tracking"
)

// Producer is a real identifier producer such as uuid.NewRandom.
type Producer func() (uuid.UUID, error)

// Handle is an active scope as seen by the proxy.
type Handle interface {
	// Ignores lists package path prefixes whose calls bypass this scope.
	Ignores() []string
	// Produce returns the next value and whether it came from the scope's
	// strategy rather than the real producer.
	Produce() (value uuid.UUID, intercepted bool, err error)
	// Record receives every completed call routed to this scope.
	Record(rec tracking.CallRecord)
}

// Token identifies one Push; Pop removes exactly that entry.
type Token struct {
	version int
	handle  Handle
}

// Version returns the version stack the token was pushed on.
func (t *Token) Version() int { return t.version }

// Handle returns the scope the token was pushed for.
func (t *Token) Handle() Handle { return t.handle }

var (
	// ErrNotInstalled is returned when a producer is needed before Install.
	ErrNotInstalled = errors.New("uuid proxy not installed")
	// ErrUnsupportedVersion is returned for versions the proxy has no stack for.
	ErrUnsupportedVersion = errors.New("unsupported uuid version")
)

// UnavailableError reports a format with no real producer to fall back to.
type UnavailableError struct {
	Version  int
	Guidance string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("uuid version %d has no real producer: %s", e.Version, e.Guidance)
}

// Versions lists every version the proxy dispatches.
var Versions = []int{1, 4, 6, 7, 8}

// DefaultOriginals returns the real google/uuid producers. Version 8 is
// application-defined and has none.
func DefaultOriginals() map[int]Producer {
	return map[int]Producer{
		1: uuid.NewUUID,
		4: uuid.NewRandom,
		6: uuid.NewV6,
		7: uuid.NewV7,
	}
}

// InternalPackages are the dispatch packages skipped when locating a caller.
var InternalPackages = []string{
	"uuidfreeze/internal/proxy",
	"uuidfreeze/pkg/uuidfreeze",
}

// Proxy owns the captured originals and the per-version scope stacks.
type Proxy struct {
	mu        sync.Mutex
	installed bool
	source    map[int]Producer
	originals map[int]Producer
	stacks    map[int][]*Token
	resolver  tracking.CallerResolver
}

// Default is the proxy behind the public producers.
var Default = New(tracking.NewRuntimeResolver(InternalPackages...), DefaultOriginals())

// New returns an uninstalled proxy that will capture originals on Install.
func New(resolver tracking.CallerResolver, originals map[int]Producer) *Proxy {
	src := make(map[int]Producer, len(originals))
	for v, p := range originals {
		src[v] = p
	}
	return &Proxy{
		source:   src,
		stacks:   make(map[int][]*Token),
		resolver: resolver,
	}
}

// Install captures the real producers. Calling it again is a no-op.
func (p *Proxy) Install() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.installed {
		return
	}
	p.originals = make(map[int]Producer, len(p.source))
	for v, prod := range p.source {
		p.originals[v] = prod
	}
	p.installed = true
	logging.ProxyDebug("installed with %d originals", len(p.originals))
}

// Installed reports whether Install has run since the last Uninstall.
func (p *Proxy) Installed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installed
}

// Uninstall drops the captured originals and every active scope.
func (p *Proxy) Uninstall() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.installed = false
	p.originals = nil
	p.stacks = make(map[int][]*Token)
	logging.ProxyDebug("uninstalled")
}

// Push makes h the innermost scope for version.
func (p *Proxy) Push(version int, h Handle) (*Token, error) {
	if !supported(version) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	tok := &Token{version: version, handle: h}
	p.mu.Lock()
	p.stacks[version] = append(p.stacks[version], tok)
	depth := len(p.stacks[version])
	p.mu.Unlock()
	logging.ProxyDebug("push v%d depth=%d", version, depth)
	return tok, nil
}

// Pop removes tok. Entries above it stay in place; popping an unknown or
// already popped token is a no-op.
func (p *Proxy) Pop(tok *Token) {
	if tok == nil {
		return
	}
	p.mu.Lock()
	stack := p.stacks[tok.version]
	idx := -1
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tok {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return
	}
	top := idx == len(stack)-1
	p.stacks[tok.version] = append(stack[:idx:idx], stack[idx+1:]...)
	depth := len(p.stacks[tok.version])
	p.mu.Unlock()

	if top {
		logging.ProxyDebug("pop v%d depth=%d", tok.version, depth)
	} else {
		logging.ProxyWarn("out-of-order pop v%d at position %d, depth now %d", tok.version, idx, depth)
	}
}

// Current returns the innermost scope for version, or nil.
func (p *Proxy) Current(version int) Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.stacks[version]; len(s) > 0 {
		return s[len(s)-1].handle
	}
	return nil
}

// Depth returns the number of active scopes for version.
func (p *Proxy) Depth(version int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stacks[version])
}

// Original returns the captured real producer for version.
func (p *Proxy) Original(version int) (Producer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.original(version)
}

// original must be called with mu held.
func (p *Proxy) original(version int) (Producer, error) {
	if !supported(version) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if !p.installed {
		return nil, ErrNotInstalled
	}
	prod, ok := p.originals[version]
	if !ok {
		return nil, &UnavailableError{
			Version:  version,
			Guidance: "activate a scope with fixed values, a sequence or a seed for this version before calling it",
		}
	}
	return prod, nil
}

// CallOriginal invokes the real producer for version.
func (p *Proxy) CallOriginal(version int) (uuid.UUID, error) {
	prod, err := p.Original(version)
	if err != nil {
		return uuid.Nil, err
	}
	return prod()
}

// Call serves one identifier request. No lock is held while a strategy or
// real producer runs.
func (p *Proxy) Call(version int) (uuid.UUID, error) {
	p.mu.Lock()
	var top Handle
	if s := p.stacks[version]; len(s) > 0 {
		top = s[len(s)-1].handle
	}
	prod, perr := p.original(version)
	p.mu.Unlock()

	if top == nil {
		if perr != nil {
			return uuid.Nil, perr
		}
		return prod()
	}

	st := p.resolver.Resolve()
	if Ignored(st.Packages, top.Ignores()) {
		if perr != nil {
			return uuid.Nil, perr
		}
		u, err := prod()
		if err != nil {
			return uuid.Nil, err
		}
		top.Record(tracking.CallRecord{Value: u, Intercepted: false, Version: version, Caller: st.Caller})
		return u, nil
	}

	u, intercepted, err := top.Produce()
	if err != nil {
		return uuid.Nil, err
	}
	top.Record(tracking.CallRecord{Value: u, Intercepted: intercepted, Version: version, Caller: st.Caller})
	return u, nil
}

// Ignored reports whether any package on the stack starts with one of the prefixes.
func Ignored(packages, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		for _, pkg := range packages {
			if strings.HasPrefix(pkg, prefix) {
				return true
			}
		}
	}
	return false
}

func supported(version int) bool {
	for _, v := range Versions {
		if v == version {
			return true
		}
	}
	return false
}
