// Package natsclient wraps a NATS connection for publishing link frames.
//
// Client connects with reconnect handling, tracks connection state for health
// reporting, mirrors that state into the core link metrics and publishes
// either to core NATS subjects or, when a JetStream stream is configured, to
// the stream with publish acknowledgements.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithName("syncmedia-meter-1"),
//		natsclient.WithLogger(logger),
//	)
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Publish(ctx, "meters.raw", frame)
package natsclient
