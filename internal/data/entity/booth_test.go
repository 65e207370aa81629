package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoothSetOperatedStatusStampsOnce(t *testing.T) {
	b := &Booth{OperatedStatus: BoothStatusNotStarted}

	require.NoError(t, b.SetOperatedStatus(BoothStatusOperating, t0))
	require.NotNil(t, b.OpenTime)
	assert.Equal(t, t0, *b.OpenTime)

	require.NoError(t, b.SetOperatedStatus(BoothStatusPaused, t0.Add(time.Hour)))
	require.NoError(t, b.SetOperatedStatus(BoothStatusOperating, t0.Add(2*time.Hour)))
	assert.Equal(t, t0, *b.OpenTime, "open time keeps the first opening")
	assert.True(t, b.AcceptsWaitings())

	require.NoError(t, b.SetOperatedStatus(BoothStatusFinished, t0.Add(8*time.Hour)))
	require.NotNil(t, b.CloseTime)
	assert.False(t, b.AcceptsWaitings())

	assert.ErrorIs(t, b.SetOperatedStatus("closed", t0), ErrInvalidArgument)
}
