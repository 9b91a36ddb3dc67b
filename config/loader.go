package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360/syncmedia/errors"
)

// Format of a configuration document.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "SYNCMEDIA",
		lookupEnv: os.LookupEnv,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges all layers over Default, then applies environment overrides.
func (l *Loader) Load() (*Config, error) {
	merged, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "Loader", "Load", "default encoding")
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "load "+path)
		}
		merged = deepMergeMaps(merged, raw)
	}

	cfg, err := fromMap(merged)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "decode")
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Load reads and validates one configuration file.
func Load(path string) (*Config, error) {
	l := NewLoader()
	l.EnableValidation(true)
	return l.LoadFile(path)
}

// Parse decodes a document over Default without environment overrides and
// validates the result.
func Parse(data []byte, format Format) (*Config, error) {
	raw, err := decodeRaw(data, format)
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Parse", string(format)+" decode")
	}
	base, err := toMap(Default())
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "Parse", "default encoding")
	}
	cfg, err := fromMap(deepMergeMaps(base, raw))
	if err != nil {
		return nil, errors.WrapInvalid(err, "config", "Parse", "decode")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadRaw(path string) (map[string]any, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeRaw(data, format)
}

func decodeRaw(data []byte, format Format) (map[string]any, error) {
	var raw map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return normalize(raw).(map[string]any), nil
	case FormatJSON:
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw == nil {
			raw = map[string]any{}
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// normalize converts YAML maps with non-string keys so the tree can be
// re-encoded as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeValue(item)
		}
		return t
	default:
		return map[string]any{}
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeValue(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalizeValue(item)
		}
		return t
	default:
		return v
	}
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any) (*Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	str := func(name string, dst *string) error {
		key := l.envPrefix + "_" + name
		val, ok := l.lookupEnv(key)
		if !ok || val == "" {
			return nil
		}
		if err := validateEnvVar(key, val); err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", key)
		}
		*dst = val
		return nil
	}

	var urls, port string
	for name, dst := range map[string]*string{
		"LINK_NAME":      &cfg.Link.Name,
		"LINK_TRANSPORT": &cfg.Link.Transport,
		"LINK_ADDRESS":   &cfg.Link.Address,
		"NATS_URLS":      &urls,
		"NATS_USERNAME":  &cfg.NATS.Username,
		"NATS_PASSWORD":  &cfg.NATS.Password,
		"NATS_TOKEN":     &cfg.NATS.Token,
		"RELAY_SUBJECT":  &cfg.Relay.Subject,
		"RELAY_STREAM":   &cfg.Relay.Stream,
		"METRICS_PORT":   &port,
		"LOG_LEVEL":      &cfg.Log.Level,
		"LOG_FORMAT":     &cfg.Log.Format,
	} {
		if err := str(name, dst); err != nil {
			return err
		}
	}

	if urls != "" {
		cfg.NATS.URLs = strings.Split(urls, ",")
	}
	if port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", l.envPrefix+"_METRICS_PORT")
		}
		cfg.Metrics.Port = p
	}
	return nil
}
