package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/syncmedia/config"
	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/input"
	"github.com/c360/syncmedia/input/tcp"
	"github.com/c360/syncmedia/input/udp"
	"github.com/c360/syncmedia/input/websocket"
	"github.com/c360/syncmedia/metric"
	"github.com/c360/syncmedia/natsclient"
	"github.com/c360/syncmedia/receiver"
	"github.com/c360/syncmedia/relay"
)

// buildInput creates the transport named by link.transport.
func buildInput(cfg *config.Config, deps input.Deps) (input.Input, error) {
	link := cfg.Link
	switch link.Transport {
	case config.TransportTCP:
		return tcp.NewInput(tcp.Config{
			Address:     link.Address,
			DialTimeout: link.DialTimeout.D(),
		}, deps)
	case config.TransportUDP:
		host, port, err := splitBind(link.Address)
		if err != nil {
			return nil, err
		}
		return udp.NewInput(udp.Config{Bind: host, Port: port}, deps)
	case config.TransportWebSocket:
		return websocket.NewInput(websocket.Config{
			URL:              link.Address,
			Headers:          link.Headers,
			HandshakeTimeout: link.DialTimeout.D(),
		}, deps)
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: unknown transport %q", errors.ErrInvalidConfig, link.Transport),
			"main", "buildInput", "transport lookup")
	}
}

func splitBind(address string) (string, int, error) {
	i := strings.LastIndex(address, ":")
	if i < 0 {
		return "", 0, errors.WrapInvalid(errors.ErrInvalidConfig, "main", "splitBind", "bind address "+address)
	}
	var port int
	if _, err := fmt.Sscanf(address[i+1:], "%d", &port); err != nil {
		return "", 0, errors.WrapInvalid(err, "main", "splitBind", "bind port")
	}
	return strings.Trim(address[:i], "[]"), port, nil
}

// buildFraming converts the framing section into a relay request template.
func buildFraming(cfg *config.Config) (relay.Framing, error) {
	terminators, err := cfg.Framing.Terminators()
	if err != nil {
		return relay.Framing{}, err
	}
	kind, err := cfg.Framing.ResultKind()
	if err != nil {
		return relay.Framing{}, err
	}
	return relay.Framing{
		EOP:      terminators,
		Count:    cfg.Framing.Count,
		WaitTime: cfg.Framing.WaitTime.D(),
		AllData:  cfg.Framing.AllData,
		Kind:     kind,
		Width:    cfg.Framing.Width,
	}, nil
}

func buildReceiver(cfg *config.Config, registry *metric.MetricsRegistry, logger *slog.Logger) (*receiver.Receiver, error) {
	opts := []receiver.Option{
		receiver.WithLogger(logger),
		receiver.WithMetrics(registry, cfg.Link.Name),
	}
	if cfg.Link.InitialCapacity > 0 {
		opts = append(opts, receiver.WithInitialCapacity(cfg.Link.InitialCapacity))
	}
	if cfg.Link.Trace {
		opts = append(opts, receiver.WithTraceLogging(logger))
	}
	return receiver.New(opts...)
}

func buildNATSClient(cfg *config.Config, registry *metric.MetricsRegistry, logger *slog.Logger) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
	}
	if d := cfg.NATS.ReconnectWait.D(); d > 0 {
		opts = append(opts, natsclient.WithReconnectWait(d))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}
	if cfg.NATS.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.NATS.Token))
	}
	name := cfg.NATS.Name
	if name == "" {
		name = appName + "-" + cfg.Link.Name
	}
	opts = append(opts, natsclient.WithName(name))

	return natsclient.NewClient(strings.Join(cfg.NATS.URLs, ","), opts...)
}

func buildRelay(
	cfg *config.Config,
	source relay.Source,
	publisher relay.Publisher,
	registry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*relay.Relay, error) {
	framing, err := buildFraming(cfg)
	if err != nil {
		return nil, err
	}
	encoding, err := relay.ParseEncoding(cfg.Relay.Encoding)
	if err != nil {
		return nil, err
	}
	return relay.New(relay.Config{
		Subject:  cfg.Subject(),
		Stream:   cfg.Relay.Stream,
		Encoding: encoding,
		Framing:  framing,
	}, relay.Deps{
		Link:            cfg.Link.Name,
		Source:          source,
		Publisher:       publisher,
		MetricsRegistry: registry,
		Logger:          logger,
	})
}
