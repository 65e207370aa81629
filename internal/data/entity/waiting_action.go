package entity

import "fmt"

type WaitingAction string

const (
	WaitingActionCall    WaitingAction = "call"
	WaitingActionConfirm WaitingAction = "confirm"
	WaitingActionArrive  WaitingAction = "arrive"
	WaitingActionCancel  WaitingAction = "cancel"
)

func ParseWaitingAction(raw string) (WaitingAction, error) {
	switch action := WaitingAction(raw); action {
	case WaitingActionCall, WaitingActionConfirm, WaitingActionArrive, WaitingActionCancel:
		return action, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidArgument, raw)
	}
}

// Actor records who drove a transition.
type Actor string

const (
	ActorUser      Actor = "user"
	ActorAdmin     Actor = "admin"
	ActorScheduler Actor = "scheduler"
	ActorSystem    Actor = "system"
)

// AllowedFor reports whether the actor may request the action directly.
// Admins call parties forward and check them in; users confirm; both cancel.
func (a WaitingAction) AllowedFor(actor Actor) bool {
	switch actor {
	case ActorAdmin:
		return a == WaitingActionCall || a == WaitingActionArrive || a == WaitingActionCancel
	case ActorUser:
		return a == WaitingActionConfirm || a == WaitingActionCancel
	case ActorSystem:
		return true
	default:
		return false
	}
}
