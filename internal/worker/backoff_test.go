package worker

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffQuadratic(t *testing.T) {
	base, max := 5*time.Second, 5*time.Minute
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{attempts: 0, want: 5 * time.Second},
		{attempts: 1, want: 5 * time.Second},
		{attempts: 2, want: 20 * time.Second},
		{attempts: 3, want: 45 * time.Second},
		{attempts: 7, want: 245 * time.Second},
		{attempts: 8, want: max},
		{attempts: math.MaxInt32, want: max},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Backoff(tc.attempts, base, max), "attempts=%d", tc.attempts)
	}
}

func TestBackoffStrictlyIncreasingUntilCeiling(t *testing.T) {
	base, max := 250*time.Millisecond, 90*time.Second
	prev := time.Duration(0)
	for attempts := 1; attempts <= 100; attempts++ {
		d := Backoff(attempts, base, max)
		assert.LessOrEqual(t, d, max)
		if prev < max {
			assert.Greater(t, d, prev, "attempts=%d", attempts)
		} else {
			assert.Equal(t, max, d)
		}
		prev = d
	}
}

func TestBackoffDegenerateBase(t *testing.T) {
	assert.Zero(t, Backoff(3, 0, time.Minute))
}
