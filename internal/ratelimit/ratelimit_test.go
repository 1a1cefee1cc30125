package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitteredEnforcesMinimumGap(t *testing.T) {
	limiter := NewJittered(20*time.Millisecond, 20*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestJitteredStaysInsideBand(t *testing.T) {
	limiter := NewJittered(5*time.Millisecond, 10*time.Millisecond)

	for i := 0; i < 20; i++ {
		d := limiter.delay()
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.Less(t, d, 10*time.Millisecond)
	}
}

func TestJitteredHonorsCancellation(t *testing.T) {
	limiter := NewJittered(time.Minute, time.Minute)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, limiter.Wait(ctx), context.DeadlineExceeded)
}

func TestJitteredSwapsDelayBand(t *testing.T) {
	limiter := NewJittered(time.Minute, time.Minute)
	limiter.SetDelay(time.Millisecond, 2*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))

	assert.Less(t, time.Since(start), time.Second)
}
