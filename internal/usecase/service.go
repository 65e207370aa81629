package usecase

import (
	"booth-waitlist/internal/data/repository"
	"booth-waitlist/internal/scheduler"
	"booth-waitlist/pkg/clock"
	"booth-waitlist/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Waiting WaitingService
	Admin   AdminService
	Tokens  *utils.TokenManager
}

func NewService(repo *repository.Repository, sched scheduler.Scheduler, c clock.Clock, config *utils.Config, log *zap.Logger) *Service {
	tokens := utils.NewTokenManager(config.JWT.Secret, tokenTTL(config.JWT.ExpiryHours), c.Now)
	waiting := NewWaitingService(repo, sched, c, config.Waiting, log)

	return &Service{
		Waiting: waiting,
		Admin:   NewAdminService(repo, waiting, tokens, c, log),
		Tokens:  tokens,
	}
}
