package relay

import (
	"fmt"
	"time"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/pkg/retry"
	"github.com/c360/syncmedia/receiver"
)

// DefaultWaitTime bounds each Receive issued by the relay loop.
const DefaultWaitTime = time.Second

// Framing describes the Receive request issued for every frame.
type Framing struct {
	EOP      [][]byte
	Count    int
	WaitTime time.Duration
	AllData  bool
	Kind     receiver.ResultKind
	Width    int
}

// request builds a fresh request. Replies never accumulate across frames.
func (f Framing) request() *receiver.Request {
	return &receiver.Request{
		EOP:      f.EOP,
		Count:    f.Count,
		WaitTime: f.WaitTime,
		AllData:  f.AllData,
		Kind:     f.Kind,
		Width:    f.Width,
	}
}

// Config configures a Relay.
type Config struct {
	Subject  string   // defaults to "syncmedia.frames.<link>"
	Stream   string   // JetStream stream, empty for core NATS
	Encoding Encoding // defaults to EncodingJSON
	Framing  Framing
	Retry    retry.Config
}

func (c *Config) applyDefaults(link string) {
	if c.Subject == "" {
		c.Subject = "syncmedia.frames." + link
	}
	if c.Encoding == "" {
		c.Encoding = EncodingJSON
	}
	if c.Framing.WaitTime == 0 {
		c.Framing.WaitTime = DefaultWaitTime
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = errors.DefaultRetryConfig().ToRetryConfig()
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Subject == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "relay", "Validate", "subject is required")
	}
	if _, err := ParseEncoding(string(c.Encoding)); err != nil {
		return err
	}
	if c.Framing.WaitTime < 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: relay requires a bounded wait_time", errors.ErrInvalidConfig),
			"relay", "Validate", "wait time check")
	}
	if c.Framing.AllData && c.Framing.Kind == receiver.Scalar {
		return errors.WrapInvalid(fmt.Errorf("%w: all_data cannot be combined with scalar results", errors.ErrInvalidConfig),
			"relay", "Validate", "framing check")
	}
	if len(c.Framing.EOP) == 0 && c.Framing.Count <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: framing needs eop or count", errors.ErrInvalidConfig),
			"relay", "Validate", "framing check")
	}
	return nil
}
