// Package main implements the syncmedia link daemon. It reads one byte stream
// from a TCP, UDP or WebSocket transport, cuts it into frames and publishes
// each frame to NATS.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/syncmedia/config"
	"github.com/c360/syncmedia/health"
	"github.com/c360/syncmedia/input"
	"github.com/c360/syncmedia/metric"
	"github.com/c360/syncmedia/natsclient"
	"github.com/c360/syncmedia/receiver"
	"github.com/c360/syncmedia/relay"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "syncmedia"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s (built %s)\n", appName, Version, BuildTime)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp(stdout, fs)
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg, cliCfg)

	logger := setupLogger(stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid")
		logger.Debug("Validated configuration", "config", cfg.String())
		return nil
	}

	logger.Info("Starting syncmedia",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"link", cfg.Link.Name,
		"transport", cfg.Link.Transport)

	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	d, err := newDaemon(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	if err := d.start(signalCtx); err != nil {
		d.shutdown(cliCfg.ShutdownTimeout)
		return err
	}
	logger.Info("syncmedia started", "subject", d.relay.Subject(), "session", d.relay.Session())

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("Received shutdown signal")
	case <-d.relay.Done():
		if runErr = d.relay.Err(); runErr != nil {
			runErr = fmt.Errorf("link faulted: %w", runErr)
		}
	}

	d.shutdown(cliCfg.ShutdownTimeout)
	logger.Info("syncmedia shutdown complete")
	return runErr
}

func applyCLIOverrides(cfg *config.Config, cliCfg *CLIConfig) {
	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}
}

// daemon owns the components of one link in start order.
type daemon struct {
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	monitor  *health.Monitor
	server   *metric.Server
	nats     *natsclient.Client
	receiver *receiver.Receiver
	input    input.Input
	relay    *relay.Relay
}

func newDaemon(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	d := &daemon{
		logger:   logger,
		registry: metric.NewMetricsRegistry(),
		monitor:  health.NewMonitor(),
	}

	natsClient, err := buildNATSClient(cfg, d.registry, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}
	logger.Info("Connecting to NATS", "urls", cfg.NATS.URLs)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	d.nats = natsClient

	recv, err := buildReceiver(cfg, d.registry, logger)
	if err != nil {
		d.shutdown(time.Second)
		return nil, fmt.Errorf("create receiver: %w", err)
	}
	d.receiver = recv

	in, err := buildInput(cfg, input.Deps{
		Link:            cfg.Link.Name,
		Sink:            recv,
		MetricsRegistry: d.registry,
		Logger:          logger,
	})
	if err != nil {
		d.shutdown(time.Second)
		return nil, fmt.Errorf("create input: %w", err)
	}
	d.input = in

	rl, err := buildRelay(cfg, recv, natsClient, d.registry, logger)
	if err != nil {
		d.shutdown(time.Second)
		return nil, fmt.Errorf("create relay: %w", err)
	}
	d.relay = rl

	d.monitor.Watch("nats", natsClient.Health)
	d.monitor.Watch("input", in.Health)
	d.monitor.Watch("relay", rl.Health)

	if cfg.Metrics.Enabled {
		d.server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, d.registry)
		d.server.SetHealthFunc(d.monitor.AggregateHealth)
	}
	return d, nil
}

func (d *daemon) start(ctx context.Context) error {
	if d.server != nil {
		go func() {
			if err := d.server.Start(); err != nil {
				d.logger.Error("Metrics server failed", "error", err)
			}
		}()
		d.logger.Info("Metrics server started", "address", d.server.Address())
	}

	if err := d.input.Start(ctx); err != nil {
		return fmt.Errorf("start input: %w", err)
	}
	if err := d.relay.Start(ctx); err != nil {
		return fmt.Errorf("start relay: %w", err)
	}
	return nil
}

// shutdown stops the components in reverse start order. Missing components
// are skipped so it can unwind a partial construction.
func (d *daemon) shutdown(timeout time.Duration) {
	if d.relay != nil {
		if err := d.relay.Stop(timeout); err != nil {
			d.logger.Warn("Relay stop failed", "error", err)
		}
	}
	if d.input != nil {
		if err := d.input.Stop(timeout); err != nil {
			d.logger.Warn("Input stop failed", "error", err)
		}
	}
	if d.receiver != nil {
		d.receiver.Close()
	}
	if d.nats != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := d.nats.Close(ctx); err != nil {
			d.logger.Warn("NATS close failed", "error", err)
		}
		cancel()
	}
	if d.server != nil {
		if err := d.server.Stop(); err != nil {
			d.logger.Warn("Metrics server stop failed", "error", err)
		}
	}
}
