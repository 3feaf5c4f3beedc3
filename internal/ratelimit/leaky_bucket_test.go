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

func TestLeakyBucketLimiter(t *testing.T) {
	limiter, err := NewLeakyBucketLimiter(Rate{Count: 2, Duration: time.Second}, 1, 100)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allow, _, allowErr := limiter.Allow(ctx, "qa.inspector")
		require.NoError(t, allowErr)
		require.True(t, allow, "request %d must be allowed within the burst", i+1)
	}
	allow, retryAfter, err := limiter.Allow(ctx, "qa.inspector")
	require.NoError(t, err)
	require.False(t, allow)
	require.Greater(t, retryAfter, time.Duration(0))

	allow, _, err = limiter.Allow(ctx, "plant.manager")
	require.NoError(t, err)
	require.True(t, allow, "keys are limited independently")
}
