package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SubmitRunsTask(t *testing.T) {
	p, err := New(context.Background(), "test", 2)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	done := false
	require.NoError(t, p.Submit(func(ctx context.Context) {
		defer wg.Done()
		done = true
	}))
	wg.Wait()
	assert.True(t, done)
}

func TestPool_RecoversPanics(t *testing.T) {
	p, err := New(context.Background(), "test", 1)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func(ctx context.Context) {
		defer wg.Done()
		panic("boom")
	}))
	wg.Wait()

	wg.Add(1)
	require.NoError(t, p.Submit(func(ctx context.Context) { wg.Done() }))
	wg.Wait()
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p, err := New(context.Background(), "test", 1)
	require.NoError(t, err)
	p.Shutdown(time.Second)

	err = p.Submit(func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}
