// Package tcp provides a TCP client input. It dials a device, streams every
// byte it sends to a receiver and can write requests back to it.
package tcp

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/health"
	"github.com/c360/syncmedia/input"
	"github.com/c360/syncmedia/metric"
	"github.com/c360/syncmedia/pkg/retry"
)

const (
	defaultDialTimeout = 5 * time.Second
	readChunk          = 4096
	readPoll           = 100 * time.Millisecond
)

// Config configures the TCP client.
type Config struct {
	Address     string        `json:"address" yaml:"address"` // host:port
	DialTimeout time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Address == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "tcp-input", "Validate", "address check")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return errors.WrapInvalid(err, "tcp-input", "Validate", "address parse")
	}
	if c.DialTimeout < 0 {
		return errors.WrapInvalid(fmt.Errorf("negative dial timeout %v", c.DialTimeout),
			"tcp-input", "Validate", "dial timeout check")
	}
	return nil
}

// Input is a TCP client feeding a receiver.
type Input struct {
	cfg         Config
	feeder      *input.Feeder
	retryConfig retry.Config

	mu       sync.RWMutex
	conn     net.Conn
	writeMu  sync.Mutex
	running  atomic.Bool
	shutdown chan struct{}
	done     chan struct{}
}

var (
	_ input.Input  = (*Input)(nil)
	_ input.Sender = (*Input)(nil)
)

// NewInput creates a TCP input.
func NewInput(cfg Config, deps input.Deps) (*Input, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	feeder, err := input.NewFeeder("tcp", deps)
	if err != nil {
		return nil, err
	}
	return &Input{
		cfg:         cfg,
		feeder:      feeder,
		retryConfig: retry.Quick(),
	}, nil
}

// Start dials the device and begins reading.
func (c *Input) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running.Load() {
		return nil
	}

	c.feeder.Status(metric.LinkStarting)
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	err := retry.Do(ctx, c.retryConfig, func() error {
		conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
		if err != nil {
			return err
		}
		c.conn = conn
		return nil
	})
	if err != nil {
		c.feeder.Status(metric.LinkStopped)
		return errors.WrapTransient(err, "tcp-input", "Start", "dial "+c.cfg.Address)
	}

	c.shutdown = make(chan struct{})
	c.done = make(chan struct{})
	c.running.Store(true)
	c.feeder.Status(metric.LinkRunning)

	go func(conn net.Conn, shutdown, done chan struct{}) {
		defer close(done)
		c.readLoop(ctx, conn, shutdown)
	}(c.conn, c.shutdown, c.done)

	c.feeder.Logger().Info("TCP input connected", "address", c.cfg.Address)
	return nil
}

// Send writes data to the device. ctx bounds the write.
func (c *Input) Send(ctx context.Context, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || !c.running.Load() {
		return errors.WrapFatal(errors.ErrNotStarted, "tcp-input", "Send", "connection check")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline() // zero means no deadline
	_ = conn.SetWriteDeadline(deadline)
	if _, err := conn.Write(data); err != nil {
		return errors.WrapTransient(err, "tcp-input", "Send", "write")
	}
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (c *Input) Stop(timeout time.Duration) error {
	c.mu.Lock()
	if c.shutdown == nil {
		c.mu.Unlock()
		return nil
	}
	close(c.shutdown)
	c.shutdown = nil
	done := c.done
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"tcp-input", "Stop", "graceful shutdown")
	}

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	c.running.Store(false)
	c.feeder.Status(metric.LinkStopped)
	return nil
}

// Health reports whether the connection is being read.
func (c *Input) Health() health.Status {
	return c.feeder.Health(c.running.Load())
}

// Stats returns the feeder counters.
func (c *Input) Stats() input.Stats {
	return c.feeder.Stats()
}

func (c *Input) readLoop(ctx context.Context, conn net.Conn, shutdown <-chan struct{}) {
	buf := make([]byte, readChunk)

	for {
		select {
		case <-ctx.Done():
			c.running.Store(false)
			return
		case <-shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readPoll))
		n, err := conn.Read(buf)
		if n > 0 {
			if ferr := c.feeder.Feed(buf[:n]); ferr != nil {
				c.running.Store(false)
				c.feeder.Logger().Warn("Receiver rejected data", "error", ferr)
				return
			}
		}
		if err == nil || input.IsTimeout(err) {
			continue
		}

		select {
		case <-shutdown:
			return
		default:
		}
		if err == io.EOF {
			err = errors.ErrConnectionLost
		}
		c.running.Store(false)
		c.feeder.Fault(err, "readLoop")
		return
	}
}
