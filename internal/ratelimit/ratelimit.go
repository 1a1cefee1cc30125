// Package ratelimit paces outbound marketplace traffic so batch runs
// do not hammer the storefronts.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type Limiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// Jittered enforces a randomized minimum gap between actions. The
// jitter keeps request timing from looking mechanical to the sites.
type Jittered struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJittered(minDelay, maxDelay time.Duration) *Jittered {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Jittered{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Wait blocks until the gap since the previous action reaches the
// current delay, or the context is cancelled.
func (l *Jittered) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := time.Since(l.lastAction)
	delay := l.delay()

	if elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	l.lastAction = time.Now()
	return nil
}

func (l *Jittered) SetDelay(min, max time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.minDelay = min
	l.maxDelay = max
	if l.maxDelay < l.minDelay {
		l.maxDelay = l.minDelay
	}
}

func (l *Jittered) delay() time.Duration {
	if l.maxDelay <= l.minDelay {
		return l.minDelay
	}
	return l.minDelay + time.Duration(rand.Int63n(int64(l.maxDelay-l.minDelay)))
}
