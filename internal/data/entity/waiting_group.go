package entity

import "fmt"

// WaitingGroup is an admin-facing bucket of statuses.
type WaitingGroup string

const (
	WaitingGroupWaiting  WaitingGroup = "waiting"
	WaitingGroupCalling  WaitingGroup = "calling"
	WaitingGroupArrived  WaitingGroup = "arrived"
	WaitingGroupCanceled WaitingGroup = "canceled"
)

var groupStatuses = map[WaitingGroup][]WaitingStatus{
	WaitingGroupWaiting:  {WaitingStatusWaiting},
	WaitingGroupCalling:  {WaitingStatusReadyToConfirm, WaitingStatusConfirmed},
	WaitingGroupArrived:  {WaitingStatusArrived},
	WaitingGroupCanceled: {WaitingStatusCanceled, WaitingStatusTimeOverCanceled},
}

// AllWaitingGroups is the display order of the admin dashboard.
var AllWaitingGroups = []WaitingGroup{
	WaitingGroupWaiting,
	WaitingGroupCalling,
	WaitingGroupArrived,
	WaitingGroupCanceled,
}

func ParseWaitingGroup(raw string) (WaitingGroup, error) {
	group := WaitingGroup(raw)
	if _, ok := groupStatuses[group]; !ok {
		return "", fmt.Errorf("%w: invalid status group %q", ErrInvalidArgument, raw)
	}
	return group, nil
}

// Statuses returns a fresh copy of the statuses in the group.
func (g WaitingGroup) Statuses() []WaitingStatus {
	return append([]WaitingStatus(nil), groupStatuses[g]...)
}

// GroupOf returns the group a status is displayed in.
func GroupOf(status WaitingStatus) (WaitingGroup, bool) {
	for group, statuses := range groupStatuses {
		for _, s := range statuses {
			if s == status {
				return group, true
			}
		}
	}
	return "", false
}
