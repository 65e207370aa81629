package repository

import (
	"context"
	"errors"
	"fmt"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BoothRepository interface {
	// Create stores the booth and its admins atomically.
	Create(ctx context.Context, booth *entity.Booth, admins ...*entity.Admin) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booth, error)
	UpdateOperatedStatus(ctx context.Context, booth *entity.Booth) error
}

type boothRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBoothRepository(db database.PgxIface, log *zap.Logger) BoothRepository {
	return &boothRepository{
		db:  db,
		log: log.With(zap.String("repository", "booth")),
	}
}

func (r *boothRepository) Create(ctx context.Context, booth *entity.Booth, admins ...*entity.Admin) error {
	if err := checkBoothAdmins(booth, admins); err != nil {
		return err
	}

	query := `
		INSERT INTO booths (id, name, location, operated_status, open_time, close_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			booth.ID,
			booth.Name,
			booth.Location,
			booth.OperatedStatus,
			booth.OpenTime,
			booth.CloseTime,
			booth.CreatedAt,
			booth.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create booth",
				zap.Error(err),
				zap.String("name", booth.Name),
			)
			return fmt.Errorf("create booth %s: %w", booth.Name, err)
		}

		for _, admin := range admins {
			if err := insertAdmin(ctx, tx, admin); err != nil {
				r.log.Error("Failed to create booth admin", zap.Error(err), zap.String("booth_id", booth.ID.String()))
				return err
			}
		}
		return nil
	})
}

func checkBoothAdmins(booth *entity.Booth, admins []*entity.Admin) error {
	for _, admin := range admins {
		if admin.BoothID != booth.ID {
			return fmt.Errorf("%w: admin %s belongs to booth %s, not %s",
				entity.ErrInvalidArgument, admin.ID, admin.BoothID, booth.ID)
		}
	}
	return nil
}

func (r *boothRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booth, error) {
	query := `
		SELECT id, name, location, operated_status, open_time, close_time, created_at, updated_at
		FROM booths
		WHERE id = $1
	`

	var booth entity.Booth
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booth.ID,
		&booth.Name,
		&booth.Location,
		&booth.OperatedStatus,
		&booth.OpenTime,
		&booth.CloseTime,
		&booth.CreatedAt,
		&booth.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booth %s: %w", id, entity.ErrNotFound)
	}
	if err != nil {
		r.log.Error("Failed to find booth by ID",
			zap.Error(err),
			zap.String("booth_id", id.String()),
		)
		return nil, fmt.Errorf("find booth by ID %s: %w", id, err)
	}

	return &booth, nil
}

func (r *boothRepository) UpdateOperatedStatus(ctx context.Context, booth *entity.Booth) error {
	query := `
		UPDATE booths
		SET operated_status = $2,
		    open_time = COALESCE(open_time, $3),
		    close_time = COALESCE(close_time, $4),
		    updated_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		booth.ID,
		booth.OperatedStatus,
		booth.OpenTime,
		booth.CloseTime,
		booth.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update booth status",
			zap.Error(err),
			zap.String("booth_id", booth.ID.String()),
		)
		return fmt.Errorf("update booth %s status: %w", booth.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booth %s: %w", booth.ID, entity.ErrNotFound)
	}

	return nil
}
