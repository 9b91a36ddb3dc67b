// Package testutil provides test helpers for syncmedia packages.
//
// # Overview
//
// Mock implementations:
//
// MockPublisher - in-memory publisher for relay tests:
//   - Thread-safe for concurrent use
//   - Stores every published payload per subject
//   - Configurable failures for retry and fault paths
//   - No external NATS server required
//
// RecordingSink - receiver.Sink that records what an input delivers:
//   - Copies every appended chunk
//   - Keeps reported transport faults and reset counts
//
// Test data:
//
//   - Line-terminated and binary frames
//   - Chunk and RandomChunks for splitting a stream the way a transport might
//
// Wait helpers:
//
//   - WaitForMessage / WaitForMessageCount poll a MockPublisher
//   - WaitForBytes / WaitForError poll a RecordingSink
//
// # Real Dependencies Preferred
//
// Use mocks only when real dependencies are impractical:
//   - Use testcontainers for NATS in integration tests
//   - Use MockPublisher for unit tests of the relay
//   - Use a real receiver when testing inputs end to end over loopback
//
// # Usage
//
//	func TestRelayPublishes(t *testing.T) {
//	    pub := testutil.NewMockPublisher()
//	    // ... run the relay with pub
//	    testutil.WaitForMessageCount(t, pub, "syncmedia.frames.link1", 2, time.Second)
//	}
package testutil
