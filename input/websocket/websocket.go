// Package websocket provides a websocket client input. Binary and text message
// payloads are appended to a receiver as raw bytes in arrival order.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/health"
	"github.com/c360/syncmedia/input"
	"github.com/c360/syncmedia/metric"
	"github.com/c360/syncmedia/pkg/retry"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	closeGrace              = time.Second
)

// Config configures the websocket client.
type Config struct {
	URL              string            `json:"url" yaml:"url"`
	Headers          map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	HandshakeTimeout time.Duration     `json:"handshake_timeout" yaml:"handshake_timeout"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "websocket-input", "Validate", "url check")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.WrapInvalid(err, "websocket-input", "Validate", "url parse")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.WrapInvalid(fmt.Errorf("unsupported scheme %q", u.Scheme),
			"websocket-input", "Validate", "url scheme check")
	}
	return nil
}

// Input is a websocket client feeding a receiver.
type Input struct {
	cfg         Config
	feeder      *input.Feeder
	retryConfig retry.Config

	mu       sync.RWMutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	running  atomic.Bool
	shutdown chan struct{}
	done     chan struct{}
}

var (
	_ input.Input  = (*Input)(nil)
	_ input.Sender = (*Input)(nil)
)

// NewInput creates a websocket input.
func NewInput(cfg Config, deps input.Deps) (*Input, error) {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	feeder, err := input.NewFeeder("websocket", deps)
	if err != nil {
		return nil, err
	}
	return &Input{
		cfg:         cfg,
		feeder:      feeder,
		retryConfig: retry.Quick(),
	}, nil
}

func (w *Input) headers() http.Header {
	if len(w.cfg.Headers) == 0 {
		return nil
	}
	h := make(http.Header, len(w.cfg.Headers))
	for k, v := range w.cfg.Headers {
		h.Set(k, v)
	}
	return h
}

// Start dials the endpoint and begins reading messages.
func (w *Input) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return nil
	}

	w.feeder.Status(metric.LinkStarting)
	dialer := &websocket.Dialer{HandshakeTimeout: w.cfg.HandshakeTimeout}
	err := retry.Do(ctx, w.retryConfig, func() error {
		conn, resp, err := dialer.DialContext(ctx, w.cfg.URL, w.headers())
		if err != nil {
			if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return retry.NonRetryable(fmt.Errorf("handshake rejected with status %d: %w", resp.StatusCode, err))
			}
			return err
		}
		w.conn = conn
		return nil
	})
	if err != nil {
		w.feeder.Status(metric.LinkStopped)
		return errors.WrapTransient(err, "websocket-input", "Start", "dial")
	}

	w.shutdown = make(chan struct{})
	w.done = make(chan struct{})
	w.running.Store(true)
	w.feeder.Status(metric.LinkRunning)

	go func(conn *websocket.Conn, shutdown, done chan struct{}) {
		defer close(done)
		w.readLoop(ctx, conn, shutdown)
	}(w.conn, w.shutdown, w.done)

	w.feeder.Logger().Info("Websocket input connected", "url", w.cfg.URL)
	return nil
}

// Send writes data as one binary message.
func (w *Input) Send(ctx context.Context, data []byte) error {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()
	if conn == nil || !w.running.Load() {
		return errors.WrapFatal(errors.ErrNotStarted, "websocket-input", "Send", "connection check")
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return errors.WrapTransient(err, "websocket-input", "Send", "write message")
	}
	return nil
}

// Stop sends a close frame, closes the connection and waits for the read loop.
func (w *Input) Stop(timeout time.Duration) error {
	w.mu.Lock()
	if w.shutdown == nil {
		w.mu.Unlock()
		return nil
	}
	close(w.shutdown)
	w.shutdown = nil
	done := w.done
	if w.conn != nil {
		w.writeMu.Lock()
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(closeGrace))
		w.writeMu.Unlock()
		_ = w.conn.Close()
	}
	w.mu.Unlock()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"websocket-input", "Stop", "graceful shutdown")
	}

	w.mu.Lock()
	w.conn = nil
	w.mu.Unlock()
	w.running.Store(false)
	w.feeder.Status(metric.LinkStopped)
	return nil
}

// Health reports whether the connection is being read.
func (w *Input) Health() health.Status {
	return w.feeder.Health(w.running.Load())
}

// Stats returns the feeder counters.
func (w *Input) Stats() input.Stats {
	return w.feeder.Stats()
}

// readLoop blocks in ReadMessage. A gorilla connection is unusable after a
// read deadline expires, so shutdown is signalled by closing the connection.
func (w *Input) readLoop(ctx context.Context, conn *websocket.Conn, shutdown <-chan struct{}) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-shutdown:
				return
			default:
			}
			w.running.Store(false)
			if ctx.Err() != nil {
				return
			}
			w.feeder.Fault(err, "readLoop")
			return
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}
		if err := w.feeder.Feed(message); err != nil {
			w.running.Store(false)
			w.feeder.Logger().Warn("Receiver rejected message", "error", err)
			return
		}
	}
}
