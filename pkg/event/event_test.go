package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoReset_SetBeforeWaitIsNotLost(t *testing.T) {
	e := NewAutoReset()
	e.Set()
	assert.True(t, e.Wait(context.Background(), time.Second))
}

func TestAutoReset_ClearsAfterWait(t *testing.T) {
	e := NewAutoReset()
	e.Set()
	e.Set()
	require.True(t, e.Wait(context.Background(), 0))
	assert.False(t, e.Wait(context.Background(), 0), "repeated sets collapse into one")
}

func TestAutoReset_PollDoesNotBlock(t *testing.T) {
	e := NewAutoReset()
	start := time.Now()
	assert.False(t, e.Wait(context.Background(), 0))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestAutoReset_BoundedTimeout(t *testing.T) {
	e := NewAutoReset()
	start := time.Now()
	assert.False(t, e.Wait(context.Background(), 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestAutoReset_InfiniteWaitWakesOnSet(t *testing.T) {
	e := NewAutoReset()
	go func() {
		time.Sleep(20 * time.Millisecond)
		e.Set()
	}()
	assert.True(t, e.Wait(context.Background(), -1))
}

func TestAutoReset_ContextCancel(t *testing.T) {
	e := NewAutoReset()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	assert.False(t, e.Wait(ctx, -1))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestAutoReset_Reset(t *testing.T) {
	e := NewAutoReset()
	e.Set()
	e.Reset()
	assert.False(t, e.Wait(context.Background(), 0))
}

func TestFaultSlot(t *testing.T) {
	var f FaultSlot
	assert.NoError(t, f.Err())

	first := errors.New("first")
	second := errors.New("second")
	f.Report(first)
	f.Report(nil)
	assert.Equal(t, first, f.Err())
	assert.Equal(t, first, f.Err(), "reading does not clear")

	f.Report(second)
	assert.Equal(t, second, f.Err())

	f.Clear()
	assert.NoError(t, f.Err())
}

func TestCoordinator_FailWakesWaiter(t *testing.T) {
	c := NewCoordinator()
	boom := errors.New("port closed")

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Fail(boom)
	}()

	assert.True(t, c.Wait(context.Background(), time.Second))
	assert.Equal(t, boom, c.Err())
}

func TestCoordinator_Clear(t *testing.T) {
	c := NewCoordinator()
	c.Fail(errors.New("x"))
	c.Clear()
	assert.NoError(t, c.Err())
	assert.False(t, c.Wait(context.Background(), 0), "clear drops the stale signal")
}

func TestCoordinator_CloseReleasesWaiters(t *testing.T) {
	c := NewCoordinator()

	var wg sync.WaitGroup
	results := make(chan bool, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results <- c.Wait(context.Background(), -1)
	}()

	time.Sleep(10 * time.Millisecond)
	c.Close()
	c.Close()
	wg.Wait()

	assert.False(t, <-results)
	assert.True(t, c.Closed())
	select {
	case <-c.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestCoordinator_NoLostWakeups(t *testing.T) {
	c := NewCoordinator()
	const rounds = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			c.Signal()
		}
	}()

	// At least one signal is always observable once the producer finished.
	wg.Wait()
	assert.True(t, c.Wait(context.Background(), time.Second))
}
