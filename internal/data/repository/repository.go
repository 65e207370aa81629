package repository

import (
	"booth-waitlist/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Waiting WaitingRepository
	Booth   BoothRepository
	Admin   AdminRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Waiting: NewWaitingRepository(db, log),
		Booth:   NewBoothRepository(db, log),
		Admin:   NewAdminRepository(db, log),
	}
}

// NewMemoryRepository keeps everything in process. Data is lost on restart.
func NewMemoryRepository(log *zap.Logger) *Repository {
	store := newMemoryStore()
	return &Repository{
		Waiting: newMemoryWaitingRepository(store, log),
		Booth:   &memoryBoothRepository{store: store},
		Admin:   &memoryAdminRepository{store: store},
	}
}
