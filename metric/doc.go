// Package metric collects Prometheus metrics for syncmedia links and serves
// them over HTTP.
//
// MetricsRegistry wraps a private prometheus.Registry preloaded with Go and
// process collectors and the link-level core metrics (Metrics). Packages
// register their own collectors through the MetricsRegistrar methods; each
// registration is keyed by service and metric name so that a second
// registration of the same pair fails instead of panicking.
//
//	registry := metric.NewMetricsRegistry()
//	rx, err := receiver.New(receiver.WithMetrics(registry, "meter-1"))
//
//	server := metric.NewServer(9090, "/metrics", registry)
//	server.SetHealthFunc(monitor.AggregateHealth)
//	go server.Start()
//	defer server.Stop()
//
// A nil registry disables metrics everywhere it is accepted.
package metric
