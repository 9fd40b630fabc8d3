package xbridge

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverPool_DispatchAndDrain(t *testing.T) {
	pool := NewObserverPool(context.Background(), 2, 64)

	var seen atomic.Int64
	obs := ObserverFunc(func(Event) { seen.Add(1) })
	bad := ObserverFunc(func(Event) { panic("observer bug") })

	for i := 0; i < 10; i++ {
		pool.Notify(Event{Type: CreateDone}, []Observer{obs, bad})
	}
	require.NoError(t, pool.Close(time.Second))
	require.NoError(t, pool.Close(time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(10), seen.Load())
	assert.Equal(t, uint64(10), stats.Processed)
	assert.Equal(t, uint64(10), stats.Panics)
	assert.Equal(t, uint64(0), stats.Dropped)
	assert.Equal(t, 2, stats.Workers)
	assert.Equal(t, 64, stats.BufferSize)
}

func TestObserverPool_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	pool := NewObserverPool(context.Background(), 1, 1)

	blocking := ObserverFunc(func(Event) { <-release })
	for i := 0; i < 20; i++ {
		pool.Notify(Event{Type: SaveDone}, []Observer{blocking})
	}
	assert.Positive(t, pool.Stats().Dropped)

	close(release)
	require.NoError(t, pool.Close(time.Second))
}

func TestObserverPool_Defaults(t *testing.T) {
	pool := NewObserverPool(context.Background(), 0, 0)
	defer pool.Close(time.Second)

	stats := pool.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.Equal(t, 1000, stats.BufferSize)

	pool.Notify(Event{}, nil)
	assert.Equal(t, 0, pool.Stats().ActiveEvents)
}
