// Package generator holds the value strategies a freeze scope can install:
// fixed values, ordered sequences, seeded pseudo-random streams and passthrough
// to the real producer.
//
// Every strategy guards its own state, so one instance may be shared by
// goroutines running under the same scope.
package generator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator produces the next identifier for an active scope.
type Generator interface {
	Generate() (uuid.UUID, error)
	// Reset returns the strategy to its initial state.
	Reset()
}

// Exhaustion selects what a Sequence does once every value has been returned.
type Exhaustion string

const (
	Cycle  Exhaustion = "cycle"
	Random Exhaustion = "random"
	Raise  Exhaustion = "raise"
)

// DefaultExhaustion is used when neither the caller nor configuration picks a policy.
const DefaultExhaustion = Cycle

var (
	// ErrInvalidExhaustion is returned for an unknown exhaustion policy name.
	ErrInvalidExhaustion = errors.New("invalid exhaustion behavior")
	// ErrInvalidUUID is returned when a supplied value is not a UUID.
	ErrInvalidUUID = errors.New("invalid uuid")
	// ErrUnsupportedVersion is returned for versions without a generation layout.
	ErrUnsupportedVersion = errors.New("unsupported uuid version")
)

// ExhaustedError reports a Sequence configured with Raise that ran out of values.
// The scope that owns the sequence stays usable; Reset clears the condition.
type ExhaustedError struct {
	Count int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("uuid sequence exhausted after %d values; use exhaustion %q or %q to keep generating",
		e.Count, Cycle, Random)
}

// ParseExhaustion converts a policy name into an Exhaustion.
func ParseExhaustion(s string) (Exhaustion, error) {
	switch e := Exhaustion(strings.ToLower(strings.TrimSpace(s))); e {
	case Cycle, Random, Raise:
		return e, nil
	}
	return "", fmt.Errorf("%w: %q (valid: %s, %s, %s)", ErrInvalidExhaustion, s, Cycle, Random, Raise)
}

// Valid reports whether e names a known policy.
func (e Exhaustion) Valid() bool {
	_, err := ParseExhaustion(string(e))
	return err == nil
}

// SupportedVersions lists the layouts this package can shape.
var SupportedVersions = []int{1, 4, 6, 7, 8}

// CheckVersion returns ErrUnsupportedVersion for versions outside SupportedVersions.
func CheckVersion(version int) error {
	for _, v := range SupportedVersions {
		if v == version {
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
}

// ParseUUID parses one textual identifier.
func ParseUUID(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q: %v", ErrInvalidUUID, s, err)
	}
	return u, nil
}

// ParseUUIDs parses every value, failing on the first bad one.
func ParseUUIDs(values []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(values))
	for _, s := range values {
		u, err := ParseUUID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}
