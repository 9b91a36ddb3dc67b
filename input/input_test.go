package input

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/metric"
	synctest "github.com/c360/syncmedia/testutil"
)

func TestNewFeederRequiresSink(t *testing.T) {
	_, err := NewFeeder("tcp", Deps{Link: "l1"})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestFeederFeed(t *testing.T) {
	sink := synctest.NewRecordingSink()
	reg := metric.NewMetricsRegistry()
	f, err := NewFeeder("tcp", Deps{Link: "l1", Sink: sink, MetricsRegistry: reg})
	require.NoError(t, err)

	require.NoError(t, f.Feed([]byte("abc")))
	require.NoError(t, f.Feed(nil))
	require.NoError(t, f.Feed([]byte("de")))

	assert.Equal(t, []byte("abcde"), sink.Bytes())
	stats := f.Stats()
	assert.Equal(t, int64(2), stats.Chunks)
	assert.Equal(t, int64(5), stats.Bytes)
	assert.False(t, stats.LastActivity.IsZero())

	core := reg.CoreMetrics()
	assert.Equal(t, 5.0, testutil.ToFloat64(core.BytesReceived.WithLabelValues("l1", "tcp")))
}

func TestFeederFeedRejected(t *testing.T) {
	sink := synctest.NewRecordingSink()
	sink.AppendErr = synctest.ErrMockFailed
	f, err := NewFeeder("udp", Deps{Sink: sink})
	require.NoError(t, err)

	err = f.Feed([]byte("x"))
	require.ErrorIs(t, err, synctest.ErrMockFailed)
	assert.Zero(t, f.Stats().Bytes)
}

func TestFeederFault(t *testing.T) {
	sink := synctest.NewRecordingSink()
	reg := metric.NewMetricsRegistry()
	f, err := NewFeeder("websocket", Deps{Link: "l2", Sink: sink, MetricsRegistry: reg})
	require.NoError(t, err)

	f.Fault(nil, "readLoop")
	assert.Empty(t, sink.Errors())

	f.Fault(synctest.ErrMockConnection, "readLoop")
	errs := sink.Errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], synctest.ErrMockConnection)
	assert.True(t, errors.IsFatal(errs[0]))
	assert.Equal(t, int64(1), f.Stats().Errors)

	core := reg.CoreMetrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(core.ReadErrors.WithLabelValues("l2", "websocket")))
	assert.Equal(t, float64(metric.LinkFaulted), testutil.ToFloat64(core.LinkStatus.WithLabelValues("l2")))
}

func TestFeederHealth(t *testing.T) {
	sink := synctest.NewRecordingSink()
	f, err := NewFeeder("tcp", Deps{Sink: sink})
	require.NoError(t, err)

	assert.True(t, f.Health(true).IsHealthy())

	stopped := f.Health(false)
	assert.True(t, stopped.IsUnhealthy())
	assert.Equal(t, "stopped", stopped.Message)

	f.Fault(fmt.Errorf("read tcp 10.0.0.5:4001: connection reset"), "readLoop")
	faulted := f.Health(false)
	assert.True(t, faulted.IsUnhealthy())
	assert.NotContains(t, faulted.Message, "10.0.0.5")
	require.NotNil(t, faulted.Metrics)
	assert.Equal(t, 1, faulted.Metrics.ErrorCount)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(synctest.ErrMockDeadline))
	assert.True(t, IsTimeout(fmt.Errorf("wrapped: %w", synctest.ErrMockDeadline)))
	assert.False(t, IsTimeout(synctest.ErrMockFailed))
	assert.False(t, IsTimeout(nil))
}
