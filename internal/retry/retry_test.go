package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPolicyExhausted(t *testing.T) {
	policy := DefaultPolicy()

	require.False(t, policy.Exhausted(0))
	require.False(t, policy.Exhausted(2))
	require.True(t, policy.Exhausted(3))
	require.True(t, policy.Exhausted(4))
}

func TestPolicyWaitCancel(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Delay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	policy.Wait(ctx)
	require.Less(t, time.Since(start), time.Second)
}

func TestPolicyWaitZeroDelay(t *testing.T) {
	policy := Policy{MaxAttempts: 3}

	start := time.Now()
	policy.Wait(context.Background())
	require.Less(t, time.Since(start), time.Second)
}
