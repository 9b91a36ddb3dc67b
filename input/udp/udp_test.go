package udp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/input"
	"github.com/c360/syncmedia/receiver"
	"github.com/c360/syncmedia/testutil"
)

func startInput(t *testing.T, sink receiver.Sink) *Input {
	t.Helper()
	in, err := NewInput(Config{Bind: "127.0.0.1"}, input.Deps{Link: "udp-test", Sink: sink})
	require.NoError(t, err)
	require.NoError(t, in.Start(context.Background()))
	t.Cleanup(func() { _ = in.Stop(time.Second) })
	return in
}

func dial(t *testing.T, in *Input) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, in.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Port: 0}.Validate())
	assert.NoError(t, Config{Port: 65535}.Validate())

	err := Config{Port: 70000}.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewInput(Config{Port: -1}, input.Deps{Sink: testutil.NewRecordingSink()})
	assert.Error(t, err)
}

func TestDatagramsAppendedInOrder(t *testing.T) {
	sink := testutil.NewRecordingSink()
	in := startInput(t, sink)
	conn := dial(t, in)

	want := testutil.Join(testutil.TestLines)
	for _, line := range testutil.TestLines {
		_, err := conn.Write(line)
		require.NoError(t, err)
	}

	got := testutil.WaitForBytes(t, sink, len(want), 2*time.Second)
	assert.Equal(t, want, got)
	assert.Equal(t, len(testutil.TestLines), sink.Chunks())
	assert.Equal(t, int64(len(want)), in.Stats().Bytes)
	assert.True(t, in.Health().IsHealthy())
}

func TestFramesThroughReceiver(t *testing.T) {
	r, err := receiver.New()
	require.NoError(t, err)
	t.Cleanup(r.Close)

	in := startInput(t, r)
	conn := dial(t, in)

	// one frame split over two datagrams
	_, err = conn.Write([]byte("STATUS"))
	require.NoError(t, err)
	_, err = conn.Write([]byte(" OK\r\nNEXT"))
	require.NoError(t, err)

	req := &receiver.Request{EOP: [][]byte{testutil.CRLF}, WaitTime: 2 * time.Second}
	ok, err := r.Receive(context.Background(), req)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("STATUS OK\r\n"), req.Reply.Bytes)
}

func TestStartIsIdempotent(t *testing.T) {
	in := startInput(t, testutil.NewRecordingSink())
	addr := in.LocalAddr().String()
	require.NoError(t, in.Start(context.Background()))
	assert.Equal(t, addr, in.LocalAddr().String())
}

func TestStop(t *testing.T) {
	sink := testutil.NewRecordingSink()
	in, err := NewInput(Config{Bind: "127.0.0.1"}, input.Deps{Sink: sink})
	require.NoError(t, err)

	assert.NoError(t, in.Stop(time.Second), "stop before start")
	require.NoError(t, in.Start(context.Background()))
	require.NoError(t, in.Stop(time.Second))
	assert.NoError(t, in.Stop(time.Second), "second stop")

	assert.Nil(t, in.LocalAddr())
	assert.False(t, in.Health().IsHealthy())
	assert.Empty(t, sink.Errors(), "stopping is not a transport fault")
}

func TestContextCancelStopsReading(t *testing.T) {
	in, err := NewInput(Config{Bind: "127.0.0.1"}, input.Deps{Sink: testutil.NewRecordingSink()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, in.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !in.Health().IsHealthy() }, time.Second, 10*time.Millisecond)
	assert.NoError(t, in.Stop(time.Second))
}
