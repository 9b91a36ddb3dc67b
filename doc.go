// Package syncmedia turns an unframed device byte stream into discrete frames
// and relays them to NATS.
//
// # Philosophy: Framing Is Not Transport
//
// A device talks over some transport (TCP, UDP, WebSocket) and that transport
// delivers bytes in whatever chunks it likes. The receive engine never sees the
// transport. It accumulates bytes, waits for a frame boundary and hands back a
// frame. Inputs only append, the relay only receives.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            Input                    │  tcp, udp, websocket
//	│  (read loop, faults, reconnect)     │  Append / ReportError
//	└─────────────────────────────────────┘
//	           ↓ appends chunks
//	┌─────────────────────────────────────┐
//	│           Receiver                  │  buffer, eop matcher,
//	│  (accumulate, detect, assemble)     │  wait coordinator
//	└─────────────────────────────────────┘
//	           ↓ Receive(ctx, request)
//	┌─────────────────────────────────────┐
//	│            Relay                    │  envelope (json, msgpack)
//	│  (frame loop, publish with retry)   │  core NATS or JetStream
//	└─────────────────────────────────────┘
//
// # Packages
//
//   - pkg/eop: terminator parsing and KMP matching across chunk boundaries
//   - pkg/buffer: growable accumulation buffer with scan position
//   - pkg/event: producer/consumer signal plus the sticky fault slot
//   - receiver: the Receive operation and its request/reply types
//   - input: transports feeding a receiver
//   - relay: the frame loop publishing envelopes to NATS
//   - natsclient, metric, health, config, errors: shared infrastructure
//
// # Receive Semantics
//
// A request names terminators (EOP), a minimum byte count, or both. When both
// are set a frame is complete only after Count bytes are buffered and a
// terminator has been found. WaitTime of zero polls, a negative WaitTime waits
// until a frame arrives or the context ends. Faults reported by the input take
// precedence over buffered data until cleared.
//
// # Running
//
//	go build -o bin/syncmedia ./cmd/syncmedia
//	./bin/syncmedia --config configs/link.yaml
//
//	# Validate a configuration only
//	./bin/syncmedia --config configs/link.yaml --validate
package syncmedia
