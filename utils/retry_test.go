package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyDelayGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.Delay(1))
	assert.Equal(t, 200*time.Millisecond, p.Delay(2))
	assert.Equal(t, 400*time.Millisecond, p.Delay(3))
	assert.Equal(t, 500*time.Millisecond, p.Delay(4))
	assert.Equal(t, 500*time.Millisecond, p.Delay(10))
}

func TestRetryPolicyZeroFallsBackToDefault(t *testing.T) {
	var p RetryPolicy
	assert.Equal(t, DefaultRetryPolicy.MaxAttempts, p.Attempts())
	assert.Equal(t, DefaultRetryPolicy.BaseDelay, p.Delay(1))
}

func TestRetryPolicyWaitHonorsContext(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Minute, MaxDelay: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
