package entity

import (
	"fmt"
	"time"
)

type BoothOperatedStatus string

const (
	BoothStatusNotStarted BoothOperatedStatus = "not_started"
	BoothStatusOperating  BoothOperatedStatus = "operating"
	BoothStatusFinished   BoothOperatedStatus = "finished"
	BoothStatusPaused     BoothOperatedStatus = "paused"
)

func (s BoothOperatedStatus) IsValid() bool {
	switch s {
	case BoothStatusNotStarted, BoothStatusOperating, BoothStatusFinished, BoothStatusPaused:
		return true
	default:
		return false
	}
}

type Booth struct {
	Base
	Name           string              `db:"name"`
	Location       string              `db:"location"`
	OperatedStatus BoothOperatedStatus `db:"operated_status"`
	OpenTime       *time.Time          `db:"open_time"`
	CloseTime      *time.Time          `db:"close_time"`
}

// SetOperatedStatus changes the booth status, recording the first opening
// and the first close.
func (b *Booth) SetOperatedStatus(status BoothOperatedStatus, now time.Time) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid booth status %q", ErrInvalidArgument, status)
	}

	b.OperatedStatus = status
	b.UpdatedAt = now
	switch status {
	case BoothStatusOperating:
		stamp(&b.OpenTime, now)
	case BoothStatusFinished:
		stamp(&b.CloseTime, now)
	}
	return nil
}

// AcceptsWaitings is false once the booth has finished for the day.
func (b *Booth) AcceptsWaitings() bool {
	return b.OperatedStatus != BoothStatusFinished
}
