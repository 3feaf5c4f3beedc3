/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter(t *testing.T) {
	limiter, err := NewSlidingWindowLimiter(Rate{Count: 3, Duration: time.Minute}, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allow, _, allowErr := limiter.Allow(ctx, "qa.inspector")
		require.NoError(t, allowErr)
		require.True(t, allow)
	}
	allow, retryAfter, err := limiter.Allow(ctx, "qa.inspector")
	require.NoError(t, err)
	require.False(t, allow)
	require.Greater(t, retryAfter, time.Duration(0))
	require.LessOrEqual(t, retryAfter, time.Minute)

	allow, _, err = limiter.Allow(ctx, "plant.manager")
	require.NoError(t, err)
	require.True(t, allow)
}

func TestNewSlidingWindowLimiter_Errors(t *testing.T) {
	_, err := NewSlidingWindowLimiter(Rate{Count: 1, Duration: time.Second}, 0)
	require.Error(t, err)
}
