package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/health"
	"github.com/c360/syncmedia/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int32

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by publish calls without a live connection.
var ErrNotConnected = stderrors.New("not connected to NATS")

// Client manages one NATS connection.
type Client struct {
	url    string
	status atomic.Int32
	logger *slog.Logger
	core   *metric.Metrics

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream

	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration

	username string
	password string
	token    string

	clientName string

	closeOnce sync.Once
}

// NewClient creates a client. It does not connect.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "url check")
	}

	c := &Client{
		url:           url,
		logger:        slog.Default(),
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		pingInterval:  30 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "natsclient")
	c.setStatus(StatusDisconnected)
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.status.Store(int32(s))
	if c.core != nil {
		c.core.RecordNATSStatus(s == StatusConnected)
	}
}

// IsHealthy returns true if the connection is healthy
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Health reports the connection state.
func (c *Client) Health() health.Status {
	switch s := c.Status(); s {
	case StatusConnected:
		return health.NewHealthy("nats", "connected")
	case StatusReconnecting, StatusConnecting:
		return health.NewDegraded("nats", s.String())
	default:
		return health.NewUnhealthy("nats", s.String())
	}
}

func (c *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
		nats.ErrorHandler(c.handleError),
	}
	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	return opts
}

// Connect dials the server and prepares the JetStream context.
func (c *Client) Connect(ctx context.Context) error {
	if c.Status() == StatusClosed {
		return errors.WrapFatal(errors.ErrAlreadyStopped, "Client", "Connect", "closed check")
	}
	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "url", c.url)

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	opts := c.connectionOptions()
	go func() {
		conn, err := nats.Connect(c.url, opts...)
		done <- result{conn, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		c.setStatus(StatusDisconnected)
		// Close the connection if the dial completes after we gave up.
		go func() {
			if late := <-done; late.conn != nil {
				late.conn.Close()
			}
		}()
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}
	if res.err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(res.err, "Client", "Connect", "establish connection")
	}

	js, err := jetstream.New(res.conn)
	if err != nil {
		res.conn.Close()
		c.setStatus(StatusDisconnected)
		return errors.WrapFatal(err, "Client", "Connect", "jetstream context")
	}

	c.mu.Lock()
	c.conn = res.conn
	c.js = js
	c.mu.Unlock()

	c.setStatus(StatusConnected)
	c.logger.Info("Connected to NATS", "url", c.url)
	return nil
}

func (c *Client) connection() (*nats.Conn, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		return nil, errors.WrapTransient(ErrNotConnected, "Client", "connection", "connection check")
	}
	return conn, nil
}

// RTT returns the round-trip time to the server and records it.
func (c *Client) RTT() (time.Duration, error) {
	conn, err := c.connection()
	if err != nil {
		return 0, err
	}
	rtt, err := conn.RTT()
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "RTT", "ping")
	}
	if c.core != nil {
		c.core.RecordNATSRTT(rtt)
	}
	return rtt, nil
}

// Publish publishes data on a core NATS subject.
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}
	if err := conn.Publish(subject, data); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", fmt.Sprintf("publish to %s", subject))
	}
	return nil
}

// EnsureStream creates or updates a stream capturing subjects.
func (c *Client) EnsureStream(ctx context.Context, name string, subjects ...string) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return errors.WrapTransient(err, "Client", "EnsureStream", fmt.Sprintf("create stream %s", name))
	}
	return nil
}

// PublishToStream publishes to a JetStream subject and waits for the ack.
func (c *Client) PublishToStream(ctx context.Context, subject string, data []byte) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}
	if _, err := js.Publish(ctx, subject, data); err != nil {
		return errors.WrapTransient(err, "Client", "PublishToStream", fmt.Sprintf("publish to %s", subject))
	}
	return nil
}

func (c *Client) jetStream() (jetstream.JetStream, error) {
	if _, err := c.connection(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("JetStream not initialized"),
			"Client", "JetStream", "get JetStream context")
	}
	return c.js, nil
}

// Close drains and closes the connection. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.js = nil
		c.mu.Unlock()

		defer c.setStatus(StatusClosed)
		if conn == nil || conn.IsClosed() {
			return
		}

		drained := make(chan error, 1)
		go func() { drained <- conn.Drain() }()
		select {
		case err = <-drained:
		case <-ctx.Done():
			err = ctx.Err()
		}
		conn.Close()
		if err != nil {
			err = errors.WrapTransient(err, "Client", "Close", "drain connection")
		}
	})
	return err
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.Status() == StatusClosed {
		return
	}
	c.setStatus(StatusReconnecting)
	c.logger.Warn("NATS disconnected", "error", err)
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.setStatus(StatusConnected)
	if c.core != nil {
		c.core.RecordNATSReconnect()
	}
	c.logger.Info("NATS reconnected")
}

func (c *Client) handleClosed(_ *nats.Conn) {
	if c.Status() != StatusClosed {
		c.setStatus(StatusDisconnected)
	}
}

func (c *Client) handleError(_ *nats.Conn, _ *nats.Subscription, err error) {
	c.logger.Error("NATS error", "error", err)
}
