// Package relay turns a receiver into a frame publisher.
//
// A Relay runs one consumer loop per link. Each iteration issues a Receive
// built from the configured Framing, wraps the delivered frame in an Envelope
// and publishes it on a subject:
//
//	r, err := relay.New(cfg, relay.Deps{
//	    Link:      "meter-1",
//	    Source:    recv,
//	    Publisher: natsClient,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := r.Start(ctx); err != nil {
//	    return err
//	}
//	defer r.Stop(5 * time.Second)
//
// Envelopes are encoded as JSON or msgpack. Every envelope carries the session
// ID of the relay run and a per-session sequence number so consumers can detect
// gaps.
//
// Receive timeouts are counted and the loop continues. A frame that cannot be
// decoded is dropped along with the buffered bytes so the link can resync.
// A transport fault or a closed receiver stops the loop and turns Health
// unhealthy. Publish failures are retried with backoff. A frame is dropped
// after the last failed attempt.
//
// When Config.Stream is set the publisher must also implement StreamPublisher.
// The stream is created or updated on Start and frames are published with
// JetStream acknowledgements.
package relay
