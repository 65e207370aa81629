package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitingGroupStatuses(t *testing.T) {
	cases := map[string][]WaitingStatus{
		"waiting":  {WaitingStatusWaiting},
		"calling":  {WaitingStatusReadyToConfirm, WaitingStatusConfirmed},
		"arrived":  {WaitingStatusArrived},
		"canceled": {WaitingStatusCanceled, WaitingStatusTimeOverCanceled},
	}
	for raw, want := range cases {
		group, err := ParseWaitingGroup(raw)
		require.NoError(t, err)
		assert.Equal(t, want, group.Statuses(), raw)
	}
}

func TestParseWaitingGroupRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"bogus", "", "Calling"} {
		_, err := ParseWaitingGroup(raw)
		assert.ErrorIs(t, err, ErrInvalidArgument, raw)
	}
}

func TestEveryStatusBelongsToOneGroup(t *testing.T) {
	all := []WaitingStatus{
		WaitingStatusWaiting, WaitingStatusReadyToConfirm, WaitingStatusConfirmed,
		WaitingStatusArrived, WaitingStatusCanceled, WaitingStatusTimeOverCanceled,
	}
	for _, s := range all {
		_, ok := GroupOf(s)
		assert.True(t, ok, s)
	}
	_, ok := GroupOf("bogus")
	assert.False(t, ok)
}

func TestStatusesReturnsCopy(t *testing.T) {
	statuses := WaitingGroupCalling.Statuses()
	statuses[0] = WaitingStatusArrived
	assert.Equal(t, WaitingStatusReadyToConfirm, WaitingGroupCalling.Statuses()[0])
}
