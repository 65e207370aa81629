package repository

import (
	"context"
	"fmt"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type AdminRepository interface {
	Create(ctx context.Context, admin *entity.Admin) error
	FindByBoothID(ctx context.Context, boothID uuid.UUID) ([]*entity.Admin, error)
}

type adminRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAdminRepository(db database.PgxIface, log *zap.Logger) AdminRepository {
	return &adminRepository{
		db:  db,
		log: log.With(zap.String("repository", "admin")),
	}
}

func (r *adminRepository) Create(ctx context.Context, admin *entity.Admin) error {
	if err := insertAdmin(ctx, r.db, admin); err != nil {
		r.log.Error("Failed to create admin",
			zap.Error(err),
			zap.String("booth_id", admin.BoothID.String()),
		)
		return err
	}
	return nil
}

// execer is satisfied by both the pool and a pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertAdmin(ctx context.Context, db execer, admin *entity.Admin) error {
	query := `
		INSERT INTO admins (id, booth_id, admin_code_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := db.Exec(ctx, query,
		admin.ID,
		admin.BoothID,
		admin.AdminCodeHash,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create admin for booth %s: %w", admin.BoothID, err)
	}
	return nil
}

func (r *adminRepository) FindByBoothID(ctx context.Context, boothID uuid.UUID) ([]*entity.Admin, error) {
	query := `
		SELECT id, booth_id, admin_code_hash, created_at, updated_at
		FROM admins
		WHERE booth_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, boothID)
	if err != nil {
		r.log.Error("Failed to find admins by booth",
			zap.Error(err),
			zap.String("booth_id", boothID.String()),
		)
		return nil, fmt.Errorf("find admins by booth %s: %w", boothID, err)
	}
	defer rows.Close()

	var admins []*entity.Admin
	for rows.Next() {
		var admin entity.Admin
		if err := rows.Scan(&admin.ID, &admin.BoothID, &admin.AdminCodeHash, &admin.CreatedAt, &admin.UpdatedAt); err != nil {
			r.log.Error("Failed to scan admin row", zap.Error(err))
			return nil, fmt.Errorf("scan admin row: %w", err)
		}
		admins = append(admins, &admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin rows: %w", err)
	}

	return admins, nil
}
