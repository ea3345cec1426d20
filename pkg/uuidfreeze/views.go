package uuidfreeze

import (
	"github.com/google/uuid"

	"uuidfreeze/internal/tracking"
)

// ledgerViews exposes the read side of a ledger on Freezer, Mocker and Spy.
type ledgerViews struct {
	ledger *tracking.Ledger
}

func newViews() ledgerViews {
	return ledgerViews{ledger: tracking.NewLedger()}
}

// CallCount returns how many identifiers were requested, including ignored callers.
func (v ledgerViews) CallCount() int { return v.ledger.Count() }

// Generated returns every identifier handed out, in order.
func (v ledgerViews) Generated() []uuid.UUID { return v.ledger.Values() }

// Last returns the most recent identifier, or false if none was produced.
func (v ledgerViews) Last() (uuid.UUID, bool) { return v.ledger.Last() }

// Calls returns every call record.
func (v ledgerViews) Calls() []CallRecord { return v.ledger.Calls() }

// InterceptedCalls returns calls served by the scope's strategy.
func (v ledgerViews) InterceptedCalls() []CallRecord { return v.ledger.InterceptedCalls() }

// RealCalls returns calls served by the real producer.
func (v ledgerViews) RealCalls() []CallRecord { return v.ledger.RealCalls() }

func (v ledgerViews) InterceptedCount() int { return v.ledger.InterceptedCount() }

func (v ledgerViews) RealCount() int { return v.ledger.RealCount() }

// CallsFrom returns calls whose caller package starts with prefix.
func (v ledgerViews) CallsFrom(prefix string) []CallRecord { return v.ledger.CallsFrom(prefix) }
