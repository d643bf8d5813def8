package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate("0 */2 * * *"))
	assert.Error(t, Validate("every two hours"))
}

func TestNextUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("CST", 8*3600)
	c := NewCronScheduler("0 6 * * *", loc, nil)

	next, err := c.Next(time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, next.Equal(time.Date(2025, time.June, 10, 22, 0, 0, 0, time.UTC)))
}

func TestStartRejectsBadSpecAndStopIsIdempotent(t *testing.T) {
	t.Parallel()

	bad := NewCronScheduler("nope", nil, nil)
	assert.Error(t, bad.Start(context.Background(), func(time.Time) {}))

	good := NewCronScheduler("@every 1h", nil, nil)
	require.NoError(t, good.Start(context.Background(), func(time.Time) {}))
	require.NoError(t, good.Stop(context.Background()))
	require.NoError(t, good.Stop(context.Background()))
}
