package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// OverdueFilter selects tickets that have sat in Status since before Before.
// A nil BoothID matches every booth.
type OverdueFilter struct {
	Status  entity.WaitingStatus
	Before  time.Time
	BoothID uuid.UUID
	Limit   int
}

type WaitingRepository interface {
	// Create stores a new ticket together with its creation event.
	Create(ctx context.Context, waiting *entity.Waiting, actor entity.Actor) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Waiting, error)
	FindByBooth(ctx context.Context, boothID uuid.UUID) ([]*entity.Waiting, error)
	FindByBoothAndStatuses(ctx context.Context, boothID uuid.UUID, statuses []entity.WaitingStatus) ([]*entity.Waiting, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Waiting, error)
	FindOverdue(ctx context.Context, filter OverdueFilter) ([]*entity.Waiting, error)
	CountByBoothGroupedByStatus(ctx context.Context, boothID uuid.UUID) (map[entity.WaitingStatus]int, error)

	// UpdateStatus persists waiting only if the stored status is still from.
	// It returns entity.ErrInvalidTransition when another writer got there
	// first and entity.ErrNotFound when the ticket does not exist.
	UpdateStatus(ctx context.Context, waiting *entity.Waiting, from entity.WaitingStatus, actor entity.Actor) error
	FindEvents(ctx context.Context, waitingID uuid.UUID) ([]*entity.WaitingStatusEvent, error)
}

type waitingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewWaitingRepository(db database.PgxIface, log *zap.Logger) WaitingRepository {
	return &waitingRepository{
		db:  db,
		log: log.With(zap.String("repository", "waiting")),
	}
}

const waitingColumns = `id, user_id, booth_id, party_size, status, registered_at,
		ready_to_confirm_at, confirmed_at, canceled_at, updated_at`

func scanWaiting(row pgx.Row) (*entity.Waiting, error) {
	var w entity.Waiting
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.BoothID,
		&w.PartySize,
		&w.Status,
		&w.RegisteredAt,
		&w.ReadyToConfirmAt,
		&w.ConfirmedAt,
		&w.CanceledAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *waitingRepository) collect(rows pgx.Rows) ([]*entity.Waiting, error) {
	defer rows.Close()

	waitings := make([]*entity.Waiting, 0)
	for rows.Next() {
		w, err := scanWaiting(rows)
		if err != nil {
			r.log.Error("Failed to scan waiting row", zap.Error(err))
			return nil, fmt.Errorf("scan waiting row: %w", err)
		}
		waitings = append(waitings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waiting rows: %w", err)
	}
	return waitings, nil
}

func (r *waitingRepository) Create(ctx context.Context, waiting *entity.Waiting, actor entity.Actor) error {
	query := `
		INSERT INTO waitings (` + waitingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			waiting.ID,
			waiting.UserID,
			waiting.BoothID,
			waiting.PartySize,
			waiting.Status,
			waiting.RegisteredAt,
			waiting.ReadyToConfirmAt,
			waiting.ConfirmedAt,
			waiting.CanceledAt,
			waiting.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create waiting",
				zap.Error(err),
				zap.String("waiting_id", waiting.ID.String()),
				zap.String("booth_id", waiting.BoothID.String()),
			)
			return fmt.Errorf("create waiting %s: %w", waiting.ID, err)
		}

		return insertEvent(ctx, tx, entity.NewWaitingStatusEvent(waiting, "", actor))
	})
}

func (r *waitingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Waiting, error) {
	query := `SELECT ` + waitingColumns + ` FROM waitings WHERE id = $1`

	w, err := scanWaiting(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("waiting %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		r.log.Error("Failed to find waiting by ID",
			zap.Error(err),
			zap.String("waiting_id", id.String()),
		)
		return nil, fmt.Errorf("find waiting by ID %s: %w", id, err)
	}

	return w, nil
}

func (r *waitingRepository) FindByBooth(ctx context.Context, boothID uuid.UUID) ([]*entity.Waiting, error) {
	query := `
		SELECT ` + waitingColumns + `
		FROM waitings
		WHERE booth_id = $1
		ORDER BY registered_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, boothID)
	if err != nil {
		r.log.Error("Failed to find waitings by booth",
			zap.Error(err),
			zap.String("booth_id", boothID.String()),
		)
		return nil, fmt.Errorf("find waitings by booth %s: %w", boothID, err)
	}

	return r.collect(rows)
}

func (r *waitingRepository) FindByBoothAndStatuses(ctx context.Context, boothID uuid.UUID, statuses []entity.WaitingStatus) ([]*entity.Waiting, error) {
	query := `
		SELECT ` + waitingColumns + `
		FROM waitings
		WHERE booth_id = $1 AND status = ANY($2)
		ORDER BY registered_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, boothID, statusStrings(statuses))
	if err != nil {
		r.log.Error("Failed to find waitings by booth and statuses",
			zap.Error(err),
			zap.String("booth_id", boothID.String()),
			zap.Strings("statuses", statusStrings(statuses)),
		)
		return nil, fmt.Errorf("find waitings by booth %s and statuses: %w", boothID, err)
	}

	return r.collect(rows)
}

func (r *waitingRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Waiting, error) {
	query := `
		SELECT ` + waitingColumns + `
		FROM waitings
		WHERE user_id = $1
		ORDER BY registered_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to find waitings by user",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find waitings by user %s: %w", userID, err)
	}

	return r.collect(rows)
}

func (r *waitingRepository) FindOverdue(ctx context.Context, filter OverdueFilter) ([]*entity.Waiting, error) {
	column, err := stampColumn(filter.Status)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + waitingColumns + `
		FROM waitings
		WHERE status = $1
		  AND ` + column + ` < $2
		  AND ($3::uuid IS NULL OR booth_id = $3)
		ORDER BY ` + column + ` ASC
		LIMIT $4
	`

	var booth *uuid.UUID
	if filter.BoothID != uuid.Nil {
		booth = &filter.BoothID
	}

	rows, err := r.db.Query(ctx, query, filter.Status, filter.Before, booth, limitOrDefault(filter.Limit))
	if err != nil {
		r.log.Error("Failed to find overdue waitings",
			zap.Error(err),
			zap.String("status", filter.Status.String()),
		)
		return nil, fmt.Errorf("find overdue %s waitings: %w", filter.Status, err)
	}

	return r.collect(rows)
}

func (r *waitingRepository) CountByBoothGroupedByStatus(ctx context.Context, boothID uuid.UUID) (map[entity.WaitingStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM waitings WHERE booth_id = $1 GROUP BY status`

	rows, err := r.db.Query(ctx, query, boothID)
	if err != nil {
		r.log.Error("Failed to count waitings by status",
			zap.Error(err),
			zap.String("booth_id", boothID.String()),
		)
		return nil, fmt.Errorf("count waitings for booth %s: %w", boothID, err)
	}
	defer rows.Close()

	counts := make(map[entity.WaitingStatus]int)
	for rows.Next() {
		var status entity.WaitingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan waiting count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waiting counts: %w", err)
	}

	return counts, nil
}

func (r *waitingRepository) UpdateStatus(ctx context.Context, waiting *entity.Waiting, from entity.WaitingStatus, actor entity.Actor) error {
	// lifecycle stamps are never overwritten once set
	query := `
		UPDATE waitings
		SET status = $3,
		    ready_to_confirm_at = COALESCE(ready_to_confirm_at, $4),
		    confirmed_at = COALESCE(confirmed_at, $5),
		    canceled_at = COALESCE(canceled_at, $6),
		    updated_at = $7
		WHERE id = $1 AND status = $2
	`

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query,
			waiting.ID,
			from,
			waiting.Status,
			waiting.ReadyToConfirmAt,
			waiting.ConfirmedAt,
			waiting.CanceledAt,
			waiting.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to update waiting status",
				zap.Error(err),
				zap.String("waiting_id", waiting.ID.String()),
				zap.String("from", from.String()),
				zap.String("to", waiting.Status.String()),
			)
			return fmt.Errorf("update waiting %s status: %w", waiting.ID, err)
		}

		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM waitings WHERE id = $1)`, waiting.ID).Scan(&exists); err != nil {
				return fmt.Errorf("check waiting %s exists: %w", waiting.ID, err)
			}
			if !exists {
				return fmt.Errorf("waiting %s: %w", waiting.ID, entity.ErrNotFound)
			}
			return fmt.Errorf("%w: waiting %s is no longer %s", entity.ErrInvalidTransition, waiting.ID, from)
		}

		return insertEvent(ctx, tx, entity.NewWaitingStatusEvent(waiting, from, actor))
	})
}

func (r *waitingRepository) FindEvents(ctx context.Context, waitingID uuid.UUID) ([]*entity.WaitingStatusEvent, error) {
	query := `
		SELECT id, waiting_id, from_status, to_status, actor, occurred_at
		FROM waiting_status_events
		WHERE waiting_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, waitingID)
	if err != nil {
		r.log.Error("Failed to find waiting events",
			zap.Error(err),
			zap.String("waiting_id", waitingID.String()),
		)
		return nil, fmt.Errorf("find events for waiting %s: %w", waitingID, err)
	}
	defer rows.Close()

	events := make([]*entity.WaitingStatusEvent, 0)
	for rows.Next() {
		var e entity.WaitingStatusEvent
		var from *string
		if err := rows.Scan(&e.ID, &e.WaitingID, &from, &e.ToStatus, &e.Actor, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan waiting event: %w", err)
		}
		if from != nil {
			e.FromStatus = entity.WaitingStatus(*from)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waiting events: %w", err)
	}

	return events, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, event *entity.WaitingStatusEvent) error {
	var from *string
	if event.FromStatus != "" {
		s := event.FromStatus.String()
		from = &s
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO waiting_status_events (id, waiting_id, from_status, to_status, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.WaitingID, from, event.ToStatus, event.Actor, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert event for waiting %s: %w", event.WaitingID, err)
	}
	return nil
}

func stampColumn(status entity.WaitingStatus) (string, error) {
	switch status {
	case entity.WaitingStatusReadyToConfirm:
		return "ready_to_confirm_at", nil
	case entity.WaitingStatusConfirmed:
		return "confirmed_at", nil
	default:
		return "", fmt.Errorf("%w: no expiry window for status %s", entity.ErrInvalidArgument, status)
	}
}

func statusStrings(statuses []entity.WaitingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.String()
	}
	return out
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
