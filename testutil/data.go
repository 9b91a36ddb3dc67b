package testutil

import "math/rand"

// TestLines are CR LF terminated ASCII frames.
var TestLines = [][]byte{
	[]byte("$GPGGA,123519,4807.038,N,01131.000,E*47\r\n"),
	[]byte("STATUS OK\r\n"),
	[]byte("VALUE=42\r\n"),
}

// CRLF terminates every entry in TestLines.
var CRLF = []byte("\r\n")

// TestBinaryFrames are 0x7E delimited binary frames.
var TestBinaryFrames = [][]byte{
	{0x01, 0x02, 0x03, 0x7E},
	{0x0A, 0x0B, 0x7E},
	{0xFF, 0xFE, 0xFD, 0xFC, 0x7E},
}

// TestErrors contains error messages seen on real links.
var TestErrors = []string{
	"read tcp 10.0.0.5:40122->10.0.0.9:4001: connection reset by peer",
	"dial tcp 192.168.1.20:502: connect: connection refused",
	"websocket: close 1006 (abnormal closure): unexpected EOF",
}

// Join concatenates frames into one stream.
func Join(frames [][]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

// Chunk splits data into pieces of at most size bytes.
func Chunk(data []byte, size int) [][]byte {
	if size <= 0 {
		size = 1
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

// RandomChunks splits data at random points into pieces of 1..maxSize bytes.
func RandomChunks(rng *rand.Rand, data []byte, maxSize int) [][]byte {
	if maxSize <= 0 {
		maxSize = 1
	}
	var chunks [][]byte
	for len(data) > 0 {
		n := min(1+rng.Intn(maxSize), len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}
