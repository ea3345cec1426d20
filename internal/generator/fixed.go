package generator

import "github.com/google/uuid"

// Fixed returns the same value on every call.
type Fixed struct {
	value uuid.UUID
}

// NewFixed returns a Fixed strategy for value.
func NewFixed(value uuid.UUID) *Fixed {
	return &Fixed{value: value}
}

func (f *Fixed) Generate() (uuid.UUID, error) {
	return f.value, nil
}

// Reset is a no-op; Fixed has no state.
func (f *Fixed) Reset() {}

// Value returns the pinned value.
func (f *Fixed) Value() uuid.UUID {
	return f.value
}

// Passthrough delegates every call to the real producer captured at install time.
type Passthrough struct {
	original func() (uuid.UUID, error)
}

// NewPassthrough wraps original.
func NewPassthrough(original func() (uuid.UUID, error)) *Passthrough {
	return &Passthrough{original: original}
}

func (p *Passthrough) Generate() (uuid.UUID, error) {
	return p.original()
}

func (p *Passthrough) Reset() {}
