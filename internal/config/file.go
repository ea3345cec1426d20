package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"uuidfreeze/internal/generator"
	"uuidfreeze/internal/logging"
)

// Section is the top-level key holding uuidfreeze settings in a project file.
const Section = "uuidfreeze"

// Environment variables consulted by Load after the file.
const (
	EnvExhaustion   = "UUIDFREEZE_DEFAULT_EXHAUSTION"
	EnvExtendIgnore = "UUIDFREEZE_EXTEND_IGNORE"
)

// DiscoverNames are the file names Discover looks for, in order.
var DiscoverNames = []string{"uuidfreeze.yaml", "uuidfreeze.yml", "uuidfreeze.toml"}

const schemaURL = "uuidfreeze.schema.json"

const sectionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "default_ignore_list": {"type": "array", "items": {"type": "string"}},
    "extend_ignore_list": {"type": "array", "items": {"type": "string"}},
    "default_exhaustion_behavior": {"type": "string", "enum": ["cycle", "random", "raise"]}
  }
}`

// section mirrors the file layout; nil fields were absent from the file.
type section struct {
	DefaultIgnoreList *[]string `json:"default_ignore_list"`
	ExtendIgnoreList  *[]string `json:"extend_ignore_list"`
	DefaultExhaustion *string   `json:"default_exhaustion_behavior"`
}

var compiledSchema *jsonschema.Schema

func schema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(sectionSchema)); err != nil {
		return nil, fmt.Errorf("failed to add config schema: %w", err)
	}
	s, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile config schema: %w", err)
	}
	compiledSchema = s
	return s, nil
}

func init() {
	if _, err := schema(); err != nil {
		panic(err)
	}
}

// readSection parses path and returns its uuidfreeze section. A missing file
// or a file without the section yields an empty section.
func readSection(path string) (*section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &section{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &section{}, nil
	}

	doc := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	raw, ok := doc[Section]
	if !ok {
		return &section{}, nil
	}

	// Round-trip through JSON so both decoders hand the schema the same shapes.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s section: %w", Section, err)
	}
	var payload any
	if err := json.Unmarshal(normalized, &payload); err != nil {
		return nil, fmt.Errorf("failed to normalize %s section: %w", Section, err)
	}
	s, err := schema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(payload); err != nil {
		return nil, fmt.Errorf("invalid %s section: %w", Section, err)
	}

	var out section
	if err := json.Unmarshal(normalized, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s section: %w", Section, err)
	}
	return &out, nil
}

// Load reads a project file and returns the defaults overlaid with the file's
// uuidfreeze section and environment overrides. The active configuration is
// not touched.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	s, err := readSection(path)
	if err != nil {
		return nil, err
	}
	if s.DefaultIgnoreList != nil {
		cfg.DefaultIgnoreList = *s.DefaultIgnoreList
	}
	if s.ExtendIgnoreList != nil {
		cfg.ExtendIgnoreList = *s.ExtendIgnoreList
	}
	if s.DefaultExhaustion != nil {
		cfg.DefaultExhaustion = generator.Exhaustion(*s.DefaultExhaustion)
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvExhaustion); v != "" {
		e, err := generator.ParseExhaustion(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvExhaustion, err)
		}
		c.DefaultExhaustion = e
	}
	if v := os.Getenv(EnvExtendIgnore); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.ExtendIgnoreList = append(c.ExtendIgnoreList, p)
			}
		}
	}
	return nil
}

// LoadFile merges the uuidfreeze section of path into the active
// configuration. Keys already set through Configure are kept. On error the
// active configuration is unchanged and a warning is logged.
func LoadFile(path string) error {
	s, err := readSection(path)
	if err != nil {
		logging.ConfigWarn("ignoring %s: %v", path, err)
		return err
	}
	apply(s)
	logging.ConfigDebug("loaded %s", path)
	return nil
}

// Discover returns the first known config file in dir, or "" when none exists.
func Discover(dir string) string {
	for _, name := range DiscoverNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Save writes the configuration under the uuidfreeze section, as TOML when
// path ends in .toml and YAML otherwise.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	doc := map[string]*Config{Section: c}
	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		data, err = toml.Marshal(doc)
	} else {
		data, err = yaml.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
