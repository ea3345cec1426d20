// Package tracking records every identifier handed out while a scope is
// active, together with where the request came from.
package tracking

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// CallerInfo describes the code that asked for an identifier.
// Empty strings and a zero Line mean the detail could not be determined.
type CallerInfo struct {
	Module        string // package import path
	File          string
	Line          int
	Function      string // simple name, e.g. "Save" or "func1"
	QualifiedName string // e.g. "(*Store).Save" or "handler.func1"
}

// CallRecord is one completed call through the interception proxy.
type CallRecord struct {
	Value       uuid.UUID
	Intercepted bool
	Version     int
	Caller      CallerInfo
}

// Ledger is an append-only, goroutine-safe log of calls.
// All read methods return copies.
type Ledger struct {
	mu    sync.Mutex
	calls []CallRecord
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends rec.
func (l *Ledger) Record(rec CallRecord) {
	l.mu.Lock()
	l.calls = append(l.calls, rec)
	l.mu.Unlock()
}

// Reset discards every record.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.calls = nil
	l.mu.Unlock()
}

// Count returns the number of calls recorded, intercepted or not.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// Values returns every produced value in call order.
func (l *Ledger) Values() []uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]uuid.UUID, len(l.calls))
	for i, c := range l.calls {
		out[i] = c.Value
	}
	return out
}

// Last returns the most recent value, or false when nothing was recorded.
func (l *Ledger) Last() (uuid.UUID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.calls) == 0 {
		return uuid.Nil, false
	}
	return l.calls[len(l.calls)-1].Value, true
}

// Calls returns every record.
func (l *Ledger) Calls() []CallRecord {
	return l.filter(func(CallRecord) bool { return true })
}

// InterceptedCalls returns records whose value came from the scope's strategy.
func (l *Ledger) InterceptedCalls() []CallRecord {
	return l.filter(func(c CallRecord) bool { return c.Intercepted })
}

// RealCalls returns records served by the real producer (ignored callers, spies).
func (l *Ledger) RealCalls() []CallRecord {
	return l.filter(func(c CallRecord) bool { return !c.Intercepted })
}

// InterceptedCount is len(InterceptedCalls()) without the copy.
func (l *Ledger) InterceptedCount() int {
	return l.count(func(c CallRecord) bool { return c.Intercepted })
}

// RealCount is len(RealCalls()) without the copy.
func (l *Ledger) RealCount() int {
	return l.count(func(c CallRecord) bool { return !c.Intercepted })
}

// CallsFrom returns records whose caller package starts with prefix.
func (l *Ledger) CallsFrom(prefix string) []CallRecord {
	return l.filter(func(c CallRecord) bool {
		return c.Caller.Module != "" && strings.HasPrefix(c.Caller.Module, prefix)
	})
}

func (l *Ledger) filter(keep func(CallRecord) bool) []CallRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CallRecord, 0, len(l.calls))
	for _, c := range l.calls {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (l *Ledger) count(keep func(CallRecord) bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if keep(c) {
			n++
		}
	}
	return n
}
