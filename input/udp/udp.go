// Package udp provides a UDP input that appends received datagrams to a
// receiver in arrival order.
package udp

import (
	"context"
	"fmt"
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
	maxDatagram      = 65536
	socketBufferSize = 2 * 1024 * 1024
	readPoll         = 100 * time.Millisecond
)

// Config configures the UDP listener.
type Config struct {
	Bind string `json:"bind" yaml:"bind"`
	Port int    `json:"port" yaml:"port"` // 0 picks a free port
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("invalid port %d", c.Port), "udp-input", "Validate", "port validation")
	}
	return nil
}

// Input listens on a UDP socket and feeds every datagram to a receiver.
type Input struct {
	cfg         Config
	feeder      *input.Feeder
	retryConfig retry.Config

	mu       sync.RWMutex
	conn     *net.UDPConn
	running  atomic.Bool
	shutdown chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
}

var _ input.Input = (*Input)(nil)

// NewInput creates a UDP input.
func NewInput(cfg Config, deps input.Deps) (*Input, error) {
	if cfg.Bind == "" {
		cfg.Bind = "0.0.0.0"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	feeder, err := input.NewFeeder("udp", deps)
	if err != nil {
		return nil, err
	}
	return &Input{
		cfg:         cfg,
		feeder:      feeder,
		retryConfig: retry.DefaultConfig(),
	}, nil
}

// Start binds the socket and begins reading.
func (u *Input) Start(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running.Load() {
		return nil
	}

	u.feeder.Status(metric.LinkStarting)
	if err := retry.Do(ctx, u.retryConfig, u.bindSocket); err != nil {
		u.feeder.Status(metric.LinkStopped)
		return errors.WrapTransient(err, "udp-input", "Start", "socket binding")
	}

	u.shutdown = make(chan struct{})
	u.done = make(chan struct{})
	u.running.Store(true)
	u.feeder.Status(metric.LinkRunning)

	u.wg.Add(1)
	go func(conn *net.UDPConn, shutdown, done chan struct{}) {
		defer u.wg.Done()
		defer close(done)
		u.readLoop(ctx, conn, shutdown)
	}(u.conn, u.shutdown, u.done)

	u.feeder.Logger().Info("UDP input started", "addr", u.conn.LocalAddr().String())
	return nil
}

func (u *Input) bindSocket() error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(u.cfg.Bind, fmt.Sprint(u.cfg.Port)))
	if err != nil {
		return retry.NonRetryable(fmt.Errorf("resolve %s:%d: %w", u.cfg.Bind, u.cfg.Port, err))
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen on UDP port %d: %w", u.cfg.Port, err)
	}
	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		u.feeder.Logger().Warn("Could not set UDP buffer size", "buffer_size", socketBufferSize, "error", err)
	}

	u.conn = conn
	return nil
}

// LocalAddr returns the bound address, or nil before Start.
func (u *Input) LocalAddr() net.Addr {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.conn == nil {
		return nil
	}
	return u.conn.LocalAddr()
}

// Stop closes the socket and waits for the read loop to exit.
func (u *Input) Stop(timeout time.Duration) error {
	u.mu.Lock()
	if u.shutdown == nil {
		u.mu.Unlock()
		return nil
	}
	close(u.shutdown)
	u.shutdown = nil
	done := u.done
	if u.conn != nil {
		_ = u.conn.Close()
	}
	u.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"udp-input", "Stop", "graceful shutdown")
	}

	u.mu.Lock()
	u.conn = nil
	u.mu.Unlock()
	u.running.Store(false)
	u.feeder.Status(metric.LinkStopped)
	return nil
}

// Health reports whether the listener is reading.
func (u *Input) Health() health.Status {
	return u.feeder.Health(u.running.Load())
}

// Stats returns the feeder counters.
func (u *Input) Stats() input.Stats {
	return u.feeder.Stats()
}

func (u *Input) readLoop(ctx context.Context, conn *net.UDPConn, shutdown <-chan struct{}) {
	buf := make([]byte, maxDatagram)

	for {
		select {
		case <-ctx.Done():
			u.running.Store(false)
			return
		case <-shutdown:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readPoll))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if input.IsTimeout(err) {
				continue
			}
			select {
			case <-shutdown:
				return
			default:
			}
			u.running.Store(false)
			u.feeder.Fault(err, "readLoop")
			return
		}

		if err := u.feeder.Feed(buf[:n]); err != nil {
			u.running.Store(false)
			u.feeder.Logger().Warn("Receiver rejected datagram", "error", err)
			return
		}
	}
}
