package receiver

import (
	"bytes"
	"context"
	stderrors "errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/metric"
	"github.com/c360/syncmedia/pkg/eop"
)

func newTestReceiver(t *testing.T, opts ...Option) *Receiver {
	t.Helper()
	r, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func appendAll(t *testing.T, r *Receiver, data []byte) {
	t.Helper()
	require.NoError(t, r.Append(data, 0, len(data)))
}

func TestReceive_TerminatorIncluded(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("ping\r\npong"))

	req := &Request{EOP: [][]byte{[]byte("\r\n")}, WaitTime: time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, RawBytes, req.Reply.Kind)
	assert.Equal(t, []byte("ping\r\n"), req.Reply.Bytes)
	assert.Equal(t, []byte("pong"), r.Received(), "remainder stays buffered")
}

func TestReceive_RoundTripAndTrim(t *testing.T) {
	r := newTestReceiver(t)
	payload := []byte{0x01, 0x02, 0x7E, 0x03}
	terminator := []byte{0x0D, 0x0A}
	appendAll(t, r, append(append([]byte{}, payload...), terminator...))

	req := &Request{EOP: [][]byte{terminator}, WaitTime: time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, append(append([]byte{}, payload...), terminator...), req.Reply.Bytes)
	assert.Equal(t, payload, eop.Trim(req.Reply.Bytes, req.EOP))
	assert.Equal(t, 0, r.Buffered())
}

func TestReceive_ChunkingIndependence(t *testing.T) {
	stream := []byte("alpha;beta;;gamma-delta;")
	terminators := [][]byte{[]byte(";")}

	collect := func(t *testing.T, chunks [][]byte) [][]byte {
		r := newTestReceiver(t)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for _, c := range chunks {
				_ = r.Append(c, 0, len(c))
				time.Sleep(time.Millisecond)
			}
		}()

		var frames [][]byte
		for i := 0; i < 4; i++ {
			req := &Request{EOP: terminators, WaitTime: 2 * time.Second}
			ok, err := r.Receive(context.Background(), req)
			require.NoError(t, err)
			require.True(t, ok)
			frames = append(frames, req.Reply.Bytes)
		}
		<-done
		return frames
	}

	bulk := collect(t, [][]byte{stream})
	var single [][]byte
	for i := range stream {
		single = append(single, stream[i:i+1])
	}
	byteWise := collect(t, single)

	assert.Equal(t, bulk, byteWise)
	assert.Equal(t, [][]byte{
		[]byte("alpha;"), []byte("beta;"), []byte(";"), []byte("gamma-delta;"),
	}, bulk)
}

func TestReceive_TerminatorAcrossChunks(t *testing.T) {
	r := newTestReceiver(t)
	terminator := []byte("END")

	go func() {
		for _, c := range []string{"data-E", "N", "D"} {
			time.Sleep(10 * time.Millisecond)
			_ = r.Append([]byte(c), 0, len(c))
		}
	}()

	req := &Request{EOP: [][]byte{terminator}, WaitTime: 2 * time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("data-END"), req.Reply.Bytes)
}

func TestReceive_TerminatorPriority(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("xxBxxAyy"))

	req := &Request{EOP: [][]byte{[]byte("A"), []byte("B")}, WaitTime: time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("xxBxxA"), req.Reply.Bytes, "first candidate in list wins")
}

func TestReceive_PollTimeout(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte{1, 2, 3})

	start := time.Now()
	req := &Request{Count: 5, WaitTime: 0}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, []byte{1, 2, 3}, r.Received())
	assert.True(t, req.Reply.IsZero())
}

func TestReceive_PollSatisfied(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte{1, 2, 3, 4, 5, 6})

	req := &Request{Count: 5}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, req.Reply.Bytes)
	assert.Equal(t, 1, r.Buffered())
}

func TestReceive_BoundedTimeout(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("partial"))

	start := time.Now()
	req := &Request{EOP: [][]byte{{'\n'}}, WaitTime: 40 * time.Millisecond}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Equal(t, []byte("partial"), r.Received())
}

func TestReceive_AllDataOnTimeout(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("early"))

	go func() {
		time.Sleep(200 * time.Millisecond)
		_ = r.Append([]byte("late"), 0, 4)
	}()

	req := &Request{EOP: [][]byte{{'\n'}}, WaitTime: 50 * time.Millisecond, AllData: true}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("early"), req.Reply.Bytes)

	require.Eventually(t, func() bool {
		return bytes.Equal(r.Received(), []byte("late"))
	}, time.Second, 10*time.Millisecond)
}

func TestReceive_AllDataEmptyBuffer(t *testing.T) {
	r := newTestReceiver(t)

	req := &Request{Count: 1, WaitTime: 10 * time.Millisecond, AllData: true}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, RawBytes, req.Reply.Kind)
	assert.Empty(t, req.Reply.Bytes)
}

func TestReceive_CountOnlyWaitsForBytes(t *testing.T) {
	r := newTestReceiver(t)

	go func() {
		for i := 0; i < 4; i++ {
			time.Sleep(5 * time.Millisecond)
			_ = r.Append([]byte{byte(i)}, 0, 1)
		}
	}()

	req := &Request{Count: 4, WaitTime: -1}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0, 1, 2, 3}, req.Reply.Bytes)
}

func TestReceive_CountAndTerminator(t *testing.T) {
	r := newTestReceiver(t)
	// The terminator inside the first Count bytes is part of the payload.
	appendAll(t, r, []byte{0x7E, 0x01, 0x7E, 0x02, 0x7E})

	req := &Request{EOP: [][]byte{{0x7E}}, Count: 1, WaitTime: time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x7E, 0x01, 0x7E}, req.Reply.Bytes)
}

func TestReceive_LeftoverFramesWithoutNewData(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("a\nb\nc\n"))

	for _, want := range []string{"a\n", "b\n", "c\n"} {
		req := &Request{EOP: [][]byte{{'\n'}}, WaitTime: 20 * time.Millisecond}
		ok, err := r.Receive(context.Background(), req)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, string(req.Reply.Bytes))
	}
}

func TestReceive_ReplyAccumulates(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("one|two|"))

	req := &Request{EOP: [][]byte{{'|'}}, WaitTime: time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "one|two|", string(req.Reply.Bytes))
}

func TestReceive_Text(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte{'c', 'a', 'f', 0xE9, '\n'})

	req := &Request{EOP: [][]byte{{'\n'}}, Kind: Text, WaitTime: time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Text, req.Reply.Kind)
	assert.Equal(t, "café\n", req.Reply.Text)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xE9, '\n'}, req.Reply.Payload())
}

func TestReceive_Scalar(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		width    int
		unsigned uint64
		signed   int64
	}{
		{"one byte", []byte{0xFF}, 1, 0xFF, -1},
		{"two bytes", []byte{0x01, 0x02}, 2, 0x0102, 0x0102},
		{"four bytes negative", []byte{0xFF, 0xFF, 0xFF, 0xFE}, 4, 0xFFFFFFFE, -2},
		{"eight bytes", []byte{0, 0, 0, 0, 0, 0, 1, 0}, 8, 256, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReceiver(t)
			appendAll(t, r, tt.data)

			req := &Request{Count: tt.width, Kind: Scalar, Width: tt.width, WaitTime: time.Second}
			ok, err := r.Receive(context.Background(), req)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.unsigned, req.Reply.Scalar)
			assert.Equal(t, tt.signed, req.Reply.Int64())
			assert.Equal(t, tt.data, req.Reply.Payload())
		})
	}
}

func TestReceive_ScalarDecodeErrorLeavesBuffer(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte{0x01, ';'})

	req := &Request{EOP: [][]byte{{';'}}, Kind: Scalar, Width: 4, WaitTime: time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errors.ErrDecode)
	assert.Equal(t, []byte{0x01, ';'}, r.Received())

	// The same frame is still found as raw bytes.
	raw := &Request{EOP: [][]byte{{';'}}, WaitTime: time.Second}
	ok, err = r.Receive(context.Background(), raw)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, ';'}, raw.Reply.Bytes)
}

func TestReceive_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
	}{
		{"nil request", nil},
		{"no eop and no count", &Request{}},
		{"negative count", &Request{Count: -1}},
		{"empty candidate", &Request{EOP: [][]byte{{}}}},
		{"bad scalar width", &Request{Count: 3, Kind: Scalar, Width: 3}},
		{"unknown kind", &Request{Count: 1, Kind: ResultKind(42)}},
		{"kind mismatch", &Request{Count: 1, Kind: Text, Reply: Reply{Kind: RawBytes, Bytes: []byte{1}}}},
		{"scalar extension", &Request{Count: 1, Kind: Scalar, Width: 1, Reply: Reply{Kind: Scalar, Width: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReceiver(t)
			start := time.Now()
			ok, err := r.Receive(context.Background(), tt.req)
			require.Error(t, err)
			assert.False(t, ok)
			assert.ErrorIs(t, err, errors.ErrUsage)
			assert.True(t, errors.IsInvalid(err))
			assert.Less(t, time.Since(start), 50*time.Millisecond, "usage errors never block")
		})
	}
}

func TestReceive_TransportFault(t *testing.T) {
	r := newTestReceiver(t)
	cause := stderrors.New("read: connection reset by peer")

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.ReportError(cause)
	}()

	req := &Request{EOP: [][]byte{{'\n'}}, WaitTime: -1}
	ok, err := r.Receive(context.Background(), req)
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errors.ErrTransportFault)
	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.IsFatal(err))

	// The fault persists until cleared.
	appendAll(t, r, []byte("x\n"))
	_, err = r.Receive(context.Background(), req)
	assert.ErrorIs(t, err, errors.ErrTransportFault)

	r.ClearError()
	ok, err = r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("x\n"), req.Reply.Bytes)
}

func TestReceive_FaultBeatsBufferedMatch(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("done\n"))
	r.ReportError(stderrors.New("port gone"))

	req := &Request{EOP: [][]byte{{'\n'}}, WaitTime: time.Second}
	ok, err := r.Receive(context.Background(), req)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errors.ErrTransportFault)
	assert.Equal(t, []byte("done\n"), r.Received(), "no buffer mutation on fault")
}

func TestReceive_ResetBufferClearsFault(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("stale"))
	r.ReportError(stderrors.New("boom"))

	r.ResetBuffer()
	assert.NoError(t, r.Err())
	assert.Equal(t, 0, r.Buffered())

	appendAll(t, r, []byte{9})
	req := &Request{Count: 1}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReceive_ContextCancel(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("abc"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	ok, err := r.Receive(ctx, &Request{EOP: [][]byte{{'\n'}}, WaitTime: -1})
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.IsTransient(err))
	assert.NoError(t, r.Err(), "cancellation is not a stored fault")
	assert.Equal(t, []byte("abc"), r.Received())
}

func TestReceiver_Close(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Receive(context.Background(), &Request{Count: 1, WaitTime: -1})
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	r.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, errors.ErrAlreadyStopped)
	case <-time.After(time.Second):
		t.Fatal("Close did not release the waiting receiver")
	}

	assert.ErrorIs(t, r.Append([]byte{1}, 0, 1), errors.ErrAlreadyStopped)
	_, err = r.Receive(context.Background(), &Request{Count: 1})
	assert.ErrorIs(t, err, errors.ErrAlreadyStopped)
}

func TestReceiver_AppendRangeError(t *testing.T) {
	r := newTestReceiver(t)
	err := r.Append([]byte{1, 2}, 1, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrBufferRange)
	assert.Equal(t, 0, r.Buffered())
}

func TestReceiver_ResetScan(t *testing.T) {
	r := newTestReceiver(t)
	appendAll(t, r, []byte("abcXYZ"))

	// A timed out scan for one terminator advances the scan position.
	ok, err := r.Receive(context.Background(), &Request{EOP: [][]byte{[]byte("Q")}})
	require.NoError(t, err)
	require.False(t, ok)

	r.ResetScan()
	req := &Request{EOP: [][]byte{[]byte("bc")}}
	ok, err = r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), req.Reply.Bytes)
}

func TestReceiver_Trace(t *testing.T) {
	var mu sync.Mutex
	var events []TraceEvent
	r := newTestReceiver(t, WithTrace(func(e TraceEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}))

	appendAll(t, r, []byte{0x01, 0x0A})
	req := &Request{EOP: [][]byte{{0x0A}}}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	r.ReportError(stderrors.New("gone"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, TraceReceived, events[0].Type)
	assert.Equal(t, "01 0A", events[0].DataString(false))
	assert.Equal(t, TraceFrame, events[1].Type)
	assert.Equal(t, TraceError, events[2].Type)
	assert.Contains(t, events[2].DataString(false), "gone")
}

func TestTraceEvent_Strings(t *testing.T) {
	e := TraceEvent{
		Time: time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC),
		Type: TraceReceived,
		Data: []byte("OK\r\n"),
	}
	assert.Equal(t, "OK..", e.DataString(true))
	assert.Equal(t, "4F 4B 0D 0A", e.DataString(false))
	assert.Equal(t, "13:04:05\tReceived\t4F 4B 0D 0A", e.String())
}

func TestReceiver_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	r := newTestReceiver(t, WithMetrics(registry, "meter-1"))

	appendAll(t, r, []byte("a;b"))
	ok, err := r.Receive(context.Background(), &Request{EOP: [][]byte{{';'}}})
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = r.Receive(context.Background(), &Request{EOP: [][]byte{{';'}}})
	require.NoError(t, err)
	require.False(t, ok)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	counters := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				counters[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), counters["syncmedia_receiver_frames_total"])
	assert.Equal(t, float64(1), counters["syncmedia_receiver_timeouts_total"])
	assert.Equal(t, float64(3), counters["syncmedia_buffer_appended_bytes_total"])
}

func TestReceive_ConcurrentRandomTrials(t *testing.T) {
	const trials = 50
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < trials; trial++ {
		frameCount := 1 + rng.Intn(8)
		var stream []byte
		var want [][]byte
		for i := 0; i < frameCount; i++ {
			body := make([]byte, rng.Intn(20))
			for j := range body {
				body[j] = byte('a' + rng.Intn(26))
			}
			frame := append(body, '\r', '\n')
			want = append(want, frame)
			stream = append(stream, frame...)
		}

		var chunks [][]byte
		for rest := stream; len(rest) > 0; {
			n := 1 + rng.Intn(len(rest))
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		r := newTestReceiver(t)
		go func(chunks [][]byte, seed int64) {
			local := rand.New(rand.NewSource(seed))
			for _, c := range chunks {
				if local.Intn(2) == 0 {
					time.Sleep(time.Duration(local.Intn(500)) * time.Microsecond)
				}
				_ = r.Append(c, 0, len(c))
			}
		}(chunks, int64(trial))

		for i := 0; i < frameCount; i++ {
			req := &Request{EOP: [][]byte{[]byte("\r\n")}, WaitTime: 2 * time.Second}
			ok, err := r.Receive(context.Background(), req)
			require.NoError(t, err, "trial %d frame %d", trial, i)
			require.True(t, ok, "trial %d frame %d lost a wakeup", trial, i)
			assert.Equal(t, want[i], req.Reply.Bytes, "trial %d frame %d", trial, i)
		}
		assert.Equal(t, 0, r.Buffered())
	}
}
