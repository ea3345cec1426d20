// Package uuidfreeze makes identifier generation controllable from tests.
//
// Production code obtains identifiers through this package (New, NewString,
// NewRandom, NewV7, ...) instead of calling github.com/google/uuid directly.
// With no scope active every call is served by google/uuid. Tests activate a
// scope (Freeze, Mock, SpyOn) to pin values, replay a sequence, seed a
// reproducible stream, or just record what was produced and by whom.
//
// Package-level function values such as
//
//	var newID = uuidfreeze.New
//
// captured at init time still route through the innermost active scope.
package uuidfreeze

import (
	"io"
	"sync"

	"github.com/google/uuid"

	"uuidfreeze/internal/config"
	"uuidfreeze/internal/generator"
	"uuidfreeze/internal/proxy"
	"uuidfreeze/internal/tracking"
)

func init() {
	proxy.Default.Install()
}

// Re-exported types so callers never import internal packages.
type (
	CallRecord     = tracking.CallRecord
	CallerInfo     = tracking.CallerInfo
	ExhaustedError = generator.ExhaustedError
	Generator      = generator.Generator
	Source         = generator.Source
	Exhaustion     = generator.Exhaustion
	// UnavailableError reports a version with no real producer and no active scope.
	UnavailableError = proxy.UnavailableError
	Config           = config.Config
)

const (
	Cycle  = generator.Cycle
	Random = generator.Random
	Raise  = generator.Raise
)

var (
	ErrInvalidExhaustion  = generator.ErrInvalidExhaustion
	ErrInvalidUUID        = generator.ErrInvalidUUID
	ErrUnsupportedVersion = generator.ErrUnsupportedVersion
	ErrNotInstalled       = proxy.ErrNotInstalled
)

// DefaultIgnorePackages are bypassed by every scope unless IgnoreDefaults(false)
// is given. AWS SDK retry and idempotency tokens must stay unique.
var DefaultIgnorePackages = []string{
	"github.com/aws/aws-sdk-go-v2",
	"github.com/aws/smithy-go",
}

// NewRandom returns a version 4 identifier.
func NewRandom() (uuid.UUID, error) {
	return proxy.Default.Call(4)
}

// New is NewRandom that panics on error, like uuid.New.
func New() uuid.UUID {
	return uuid.Must(proxy.Default.Call(4))
}

// NewString is New().String().
func NewString() string {
	return uuid.Must(proxy.Default.Call(4)).String()
}

// NewUUID returns a version 1 (time and node) identifier.
func NewUUID() (uuid.UUID, error) {
	return proxy.Default.Call(1)
}

// NewV6 returns a version 6 identifier.
func NewV6() (uuid.UUID, error) {
	return proxy.Default.Call(6)
}

// NewV7 returns a version 7 identifier.
func NewV7() (uuid.UUID, error) {
	return proxy.Default.Call(7)
}

// NewV8 returns a version 8 identifier. Version 8 layouts are application
// defined, so without an active scope for version 8 it returns an
// *UnavailableError.
func NewV8() (uuid.UUID, error) {
	return proxy.Default.Call(8)
}

type reader struct {
	mu sync.Mutex
}

// Reader is an io.Reader whose bytes come from successive version 4
// identifiers, so anything reading randomness from it (for example the AWS
// idempotency token provider) follows the active scope. Each 16 bytes read
// consume one identifier.
var Reader io.Reader = &reader{}

func (r *reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for n < len(p) {
		u, err := proxy.Default.Call(4)
		if err != nil {
			return n, err
		}
		n += copy(p[n:], u[:])
	}
	return n, nil
}

// Configure changes the process-wide defaults picked up by scopes created afterwards.
func Configure(opts config.Options) error {
	return config.Configure(opts)
}

// ConfigOptions selects the settings Configure changes.
type ConfigOptions = config.Options

// GetConfig returns a copy of the active configuration.
func GetConfig() *Config {
	return config.Get()
}

// ResetConfig restores the built-in defaults.
func ResetConfig() {
	config.Reset()
}

// LoadConfigFile merges the uuidfreeze section of a YAML or TOML project file
// into the active configuration. Values set through Configure win.
func LoadConfigFile(path string) error {
	return config.LoadFile(path)
}

// DiscoverConfig returns the first uuidfreeze.{yaml,yml,toml} in dir, or "".
func DiscoverConfig(dir string) string {
	return config.Discover(dir)
}
