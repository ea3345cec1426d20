package config

import (
	"fmt"
	"sync"

	"uuidfreeze/internal/generator"
)

// Config holds process-wide uuidfreeze defaults. A scope snapshots it when
// constructed; later changes never affect scopes that already exist.
type Config struct {
	// DefaultIgnoreList replaces the base list of ignored package prefixes.
	DefaultIgnoreList []string `yaml:"default_ignore_list" toml:"default_ignore_list" json:"default_ignore_list"`
	// ExtendIgnoreList is appended to DefaultIgnoreList.
	ExtendIgnoreList []string `yaml:"extend_ignore_list" toml:"extend_ignore_list" json:"extend_ignore_list"`
	// DefaultExhaustion is the policy used when a scope does not pick one.
	DefaultExhaustion generator.Exhaustion `yaml:"default_exhaustion_behavior" toml:"default_exhaustion_behavior" json:"default_exhaustion_behavior"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultIgnoreList: []string{},
		ExtendIgnoreList:  []string{},
		DefaultExhaustion: generator.DefaultExhaustion,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	return &Config{
		DefaultIgnoreList: append([]string{}, c.DefaultIgnoreList...),
		ExtendIgnoreList:  append([]string{}, c.ExtendIgnoreList...),
		DefaultExhaustion: c.DefaultExhaustion,
	}
}

// IgnoreList returns DefaultIgnoreList followed by ExtendIgnoreList.
func (c *Config) IgnoreList() []string {
	out := make([]string, 0, len(c.DefaultIgnoreList)+len(c.ExtendIgnoreList))
	out = append(out, c.DefaultIgnoreList...)
	return append(out, c.ExtendIgnoreList...)
}

// Validate checks the exhaustion policy.
func (c *Config) Validate() error {
	if _, err := generator.ParseExhaustion(string(c.DefaultExhaustion)); err != nil {
		return fmt.Errorf("invalid default_exhaustion_behavior: %w", err)
	}
	return nil
}

// Options selects which settings Configure changes. Nil slices and an empty
// exhaustion leave the current value alone; an empty non-nil slice clears it.
type Options struct {
	DefaultIgnoreList []string
	ExtendIgnoreList  []string
	DefaultExhaustion string
}

type key int

const (
	keyDefaultIgnore key = iota
	keyExtendIgnore
	keyExhaustion
)

var (
	current      = DefaultConfig()
	programmatic = map[key]bool{}
	mu           sync.RWMutex
)

// Get returns a copy of the active configuration.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current.Clone()
}

// Configure updates the active configuration. Values set here win over any
// configuration file loaded before or after.
func Configure(opts Options) error {
	var exhaustion generator.Exhaustion
	if opts.DefaultExhaustion != "" {
		e, err := generator.ParseExhaustion(opts.DefaultExhaustion)
		if err != nil {
			return err
		}
		exhaustion = e
	}

	mu.Lock()
	defer mu.Unlock()
	if opts.DefaultIgnoreList != nil {
		current.DefaultIgnoreList = append([]string{}, opts.DefaultIgnoreList...)
		programmatic[keyDefaultIgnore] = true
	}
	if opts.ExtendIgnoreList != nil {
		current.ExtendIgnoreList = append([]string{}, opts.ExtendIgnoreList...)
		programmatic[keyExtendIgnore] = true
	}
	if exhaustion != "" {
		current.DefaultExhaustion = exhaustion
		programmatic[keyExhaustion] = true
	}
	return nil
}

// Reset restores the built-in defaults and forgets programmatic settings.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = DefaultConfig()
	programmatic = map[key]bool{}
}

// apply merges values read from a file, skipping keys set through Configure.
func apply(s *section) {
	mu.Lock()
	defer mu.Unlock()
	if s.DefaultIgnoreList != nil && !programmatic[keyDefaultIgnore] {
		current.DefaultIgnoreList = append([]string{}, (*s.DefaultIgnoreList)...)
	}
	if s.ExtendIgnoreList != nil && !programmatic[keyExtendIgnore] {
		current.ExtendIgnoreList = append([]string{}, (*s.ExtendIgnoreList)...)
	}
	if s.DefaultExhaustion != nil && !programmatic[keyExhaustion] {
		current.DefaultExhaustion = generator.Exhaustion(*s.DefaultExhaustion)
	}
}
