package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/pkg/eop"
	"github.com/c360/syncmedia/receiver"
)

// Transport names accepted in link.transport.
const (
	TransportTCP       = "tcp"
	TransportUDP       = "udp"
	TransportWebSocket = "websocket"
)

// Config describes one link: where bytes come from, how they are framed and
// where frames go.
type Config struct {
	Version string        `json:"version,omitempty"`
	Link    LinkConfig    `json:"link"`
	Framing FramingConfig `json:"framing"`
	NATS    NATSConfig    `json:"nats"`
	Relay   RelayConfig   `json:"relay"`
	Metrics MetricsConfig `json:"metrics"`
	Log     LogConfig     `json:"log"`
}

// LinkConfig selects and configures the input transport.
type LinkConfig struct {
	Name            string            `json:"name"`
	Transport       string            `json:"transport"`                  // tcp, udp, websocket
	Address         string            `json:"address"`                    // host:port, bind host:port or ws(s) URL
	Headers         map[string]string `json:"headers,omitempty"`          // websocket handshake headers
	DialTimeout     Duration          `json:"dial_timeout,omitempty"`     // tcp dial or websocket handshake
	InitialCapacity int               `json:"initial_capacity,omitempty"` // receive buffer capacity
	Trace           bool              `json:"trace,omitempty"`            // log every chunk and frame at debug
}

// FramingConfig is the receive request issued for every frame.
type FramingConfig struct {
	// EOP lists terminators. Strings starting with 0x are hex, other strings
	// are literal text and numbers are single bytes.
	EOP      []any    `json:"eop,omitempty"`
	Count    int      `json:"count,omitempty"`
	WaitTime Duration `json:"wait_time,omitempty"`
	AllData  bool     `json:"all_data,omitempty"`
	Kind     string   `json:"kind,omitempty"` // bytes, text, scalar
	Width    int      `json:"width,omitempty"`
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string `json:"urls,omitempty"`
	Name          string   `json:"name,omitempty"`
	MaxReconnects int      `json:"max_reconnects,omitempty"`
	ReconnectWait Duration `json:"reconnect_wait,omitempty"`
	Username      string   `json:"username,omitempty"`
	Password      string   `json:"password,omitempty"`
	Token         string   `json:"token,omitempty"`
}

// RelayConfig defines where frames are published.
type RelayConfig struct {
	Subject  string `json:"subject,omitempty"`
	Stream   string `json:"stream,omitempty"`
	Encoding string `json:"encoding,omitempty"` // json, msgpack
}

// MetricsConfig defines the metrics and health endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port,omitempty"`
	Path    string `json:"path,omitempty"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // debug, info, warn, error
	Format string `json:"format,omitempty"` // json, text
}

// Default returns the configuration every file is layered over.
func Default() *Config {
	return &Config{
		Link: LinkConfig{
			Name:        "link",
			Transport:   TransportTCP,
			DialTimeout: Duration(5 * time.Second),
		},
		Framing: FramingConfig{
			WaitTime: Duration(time.Second),
			Kind:     "bytes",
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: Duration(2 * time.Second),
		},
		Relay: RelayConfig{
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Subject returns the relay subject, defaulting to syncmedia.frames.<link>.
func (c *Config) Subject() string {
	if c.Relay.Subject != "" {
		return c.Relay.Subject
	}
	return "syncmedia.frames." + c.Link.Name
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Link.Name == "" {
		return invalid("link.name is required")
	}
	if !isValidSubjectPart(c.Link.Name) {
		return invalid("link.name %q is not valid for NATS subjects (alphanumeric, dash, underscore)", c.Link.Name)
	}
	if err := c.validateLink(); err != nil {
		return err
	}
	if err := c.validateFraming(); err != nil {
		return err
	}
	if len(c.NATS.URLs) == 0 {
		return invalid("nats.urls is required")
	}
	switch c.Relay.Encoding {
	case "", "json", "msgpack":
	default:
		return invalid("relay.encoding must be one of: json, msgpack")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return invalid("metrics.port %d out of range", c.Metrics.Port)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level %q is not one of: debug, info, warn, error", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return invalid("log.format must be json or text")
	}
	return nil
}

func (c *Config) validateLink() error {
	l := c.Link
	if l.Address == "" {
		return invalid("link.address is required")
	}
	switch l.Transport {
	case TransportTCP, TransportUDP:
		if _, _, err := net.SplitHostPort(l.Address); err != nil {
			return invalid("link.address %q: %v", l.Address, err)
		}
	case TransportWebSocket:
		if !strings.HasPrefix(l.Address, "ws://") && !strings.HasPrefix(l.Address, "wss://") {
			return invalid("link.address must be a ws:// or wss:// URL for websocket links")
		}
	default:
		return invalid("link.transport must be one of: tcp, udp, websocket")
	}
	if l.DialTimeout < 0 {
		return invalid("link.dial_timeout cannot be negative")
	}
	if l.InitialCapacity < 0 {
		return invalid("link.initial_capacity cannot be negative")
	}
	return nil
}

func (c *Config) validateFraming() error {
	f := c.Framing
	terminators, err := f.Terminators()
	if err != nil {
		return err
	}
	if len(terminators) == 0 && f.Count <= 0 {
		return invalid("framing needs eop or count")
	}
	if f.Count < 0 {
		return invalid("framing.count cannot be negative")
	}
	if f.WaitTime <= 0 {
		return invalid("framing.wait_time must be positive")
	}
	kind, err := f.ResultKind()
	if err != nil {
		return err
	}
	if kind == receiver.Scalar {
		switch f.Width {
		case 1, 2, 4, 8:
		default:
			return invalid("framing.width must be 1, 2, 4 or 8 for scalar results")
		}
		if f.AllData {
			return invalid("framing.all_data cannot be combined with scalar results")
		}
	}
	return nil
}

// Terminators converts EOP entries to byte sequences.
func (f FramingConfig) Terminators() ([][]byte, error) {
	values := make([]any, 0, len(f.EOP))
	for i, v := range f.EOP {
		b, err := terminator(v)
		if err != nil {
			return nil, invalid("framing.eop[%d]: %v", i, err)
		}
		values = append(values, b)
	}
	out, err := eop.Parse(values)
	if err != nil {
		return nil, invalid("framing.eop: %v", err)
	}
	return out, nil
}

func terminator(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		if rest, ok := strings.CutPrefix(strings.ToLower(t), "0x"); ok {
			b, err := hex.DecodeString(strings.ReplaceAll(rest, " ", ""))
			if err != nil {
				return nil, fmt.Errorf("bad hex %q: %w", t, err)
			}
			return b, nil
		}
		return []byte(t), nil
	case float64:
		if t < 0 || t > math.MaxUint8 || t != math.Trunc(t) {
			return nil, fmt.Errorf("%v is not a byte value", t)
		}
		return []byte{byte(t)}, nil
	case int:
		if t < 0 || t > math.MaxUint8 {
			return nil, fmt.Errorf("%d is not a byte value", t)
		}
		return []byte{byte(t)}, nil
	default:
		return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

// ResultKind parses Kind.
func (f FramingConfig) ResultKind() (receiver.ResultKind, error) {
	kind, err := receiver.ParseResultKind(f.Kind)
	if err != nil {
		return 0, errors.WrapInvalid(err, "Config", "Validate", "framing.kind")
	}
	return kind, nil
}

// String returns a JSON representation of the config with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.NATS.Password != "" {
		masked.NATS.Password = "***"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, fmt.Sprintf(format, args...)),
		"Config", "Validate", "configuration check")
}

// isValidSubjectPart checks if a string is valid as one NATS subject token.
func isValidSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// Duration is a time.Duration that reads "5s", "14d" or nanoseconds.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON reads a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := parseDurationWithDays(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(n)
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
