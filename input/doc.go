// Package input holds the pieces shared by the transport inputs that feed a
// receiver: dependencies, the Input lifecycle and a Feeder that counts and
// forwards every chunk read from a connection.
//
// Transports live in sub-packages:
//
//	input/tcp        dials a device and streams its bytes
//	input/udp        listens for datagrams and appends them in arrival order
//	input/websocket  dials a websocket endpoint and appends message payloads
//
// A read error that is not a deadline expiry is reported to the receiver as a
// transport fault, which wakes a blocked consumer. The input then stops.
package input
