package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booth-waitlist/internal/data/entity"
	"booth-waitlist/internal/data/repository"
	"booth-waitlist/internal/dto/request"
	"booth-waitlist/internal/dto/response"
	"booth-waitlist/pkg/clock"
	"booth-waitlist/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AdminService interface {
	Login(ctx context.Context, req *request.AdminLoginRequest) (*response.AdminLoginResponse, error)
	ListAll(ctx context.Context, admin entity.AdminContext) ([]response.WaitingResponse, error)
	ListGroup(ctx context.Context, admin entity.AdminContext, group string) ([]response.WaitingResponse, error)
	Summary(ctx context.Context, admin entity.AdminContext) (*response.WaitingSummaryResponse, error)
	Reconcile(ctx context.Context, admin entity.AdminContext) (*response.ReconcileResponse, error)
	UpdateBoothStatus(ctx context.Context, admin entity.AdminContext, req *request.UpdateBoothStatusRequest) (*response.BoothResponse, error)

	// RegisterBooth creates a booth with a single admin.
	RegisterBooth(ctx context.Context, req *request.RegisterBoothRequest) (*entity.Booth, *entity.Admin, error)
}

type adminService struct {
	repo    *repository.Repository
	waiting WaitingService
	tokens  *utils.TokenManager
	clock   clock.Clock
	log     *zap.Logger
}

func NewAdminService(repo *repository.Repository, waiting WaitingService, tokens *utils.TokenManager, c clock.Clock, log *zap.Logger) AdminService {
	return &adminService{
		repo:    repo,
		waiting: waiting,
		tokens:  tokens,
		clock:   c,
		log:     log.With(zap.String("service", "admin")),
	}
}

func (s *adminService) Login(ctx context.Context, req *request.AdminLoginRequest) (*response.AdminLoginResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidArgument, utils.FormatValidationErrors(errs))
	}

	boothID, err := uuid.Parse(req.BoothID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booth ID %s", entity.ErrInvalidArgument, req.BoothID)
	}

	booth, err := s.repo.Booth.FindByID(ctx, boothID)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid booth or admin code", entity.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("find booth for login: %w", err)
	}

	admins, err := s.repo.Admin.FindByBoothID(ctx, boothID)
	if err != nil {
		return nil, fmt.Errorf("find admins for login: %w", err)
	}

	for _, admin := range admins {
		if bcrypt.CompareHashAndPassword([]byte(admin.AdminCodeHash), []byte(req.AdminCode)) != nil {
			continue
		}

		token, expiresAt, err := s.tokens.Generate(admin.ID, utils.RoleAdmin, booth.ID)
		if err != nil {
			s.log.Error("Failed to issue admin token", zap.Error(err))
			return nil, fmt.Errorf("issue admin token: %w", err)
		}

		s.log.Info("Admin logged in",
			zap.String("admin_id", admin.ID.String()),
			zap.String("booth_id", booth.ID.String()),
		)
		return &response.AdminLoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			AdminID:   admin.ID.String(),
			BoothID:   booth.ID.String(),
			BoothName: booth.Name,
		}, nil
	}

	s.log.Warn("Admin login failed", zap.String("booth_id", boothID.String()))
	return nil, fmt.Errorf("%w: invalid booth or admin code", entity.ErrUnauthorized)
}

func (s *adminService) ListAll(ctx context.Context, admin entity.AdminContext) ([]response.WaitingResponse, error) {
	if !admin.Valid() {
		return nil, fmt.Errorf("%w: missing admin context", entity.ErrUnauthorized)
	}

	waitings, err := s.repo.Waiting.FindByBooth(ctx, admin.BoothID)
	if err != nil {
		return nil, fmt.Errorf("list waitings for booth %s: %w", admin.BoothID, err)
	}
	return s.toResponses(waitings), nil
}

func (s *adminService) ListGroup(ctx context.Context, admin entity.AdminContext, group string) ([]response.WaitingResponse, error) {
	if !admin.Valid() {
		return nil, fmt.Errorf("%w: missing admin context", entity.ErrUnauthorized)
	}

	g, err := entity.ParseWaitingGroup(group)
	if err != nil {
		return nil, err
	}

	waitings, err := s.repo.Waiting.FindByBoothAndStatuses(ctx, admin.BoothID, g.Statuses())
	if err != nil {
		return nil, fmt.Errorf("list %s waitings for booth %s: %w", g, admin.BoothID, err)
	}
	return s.toResponses(waitings), nil
}

func (s *adminService) Summary(ctx context.Context, admin entity.AdminContext) (*response.WaitingSummaryResponse, error) {
	if !admin.Valid() {
		return nil, fmt.Errorf("%w: missing admin context", entity.ErrUnauthorized)
	}

	counts, err := s.repo.Waiting.CountByBoothGroupedByStatus(ctx, admin.BoothID)
	if err != nil {
		return nil, fmt.Errorf("summarize booth %s: %w", admin.BoothID, err)
	}

	summary := &response.WaitingSummaryResponse{
		BoothID: admin.BoothID.String(),
		Groups:  make(map[entity.WaitingGroup]int, len(entity.AllWaitingGroups)),
	}
	for _, g := range entity.AllWaitingGroups {
		summary.Groups[g] = 0
	}
	for status, n := range counts {
		if g, ok := entity.GroupOf(status); ok {
			summary.Groups[g] += n
			summary.Total += n
		}
	}
	return summary, nil
}

func (s *adminService) Reconcile(ctx context.Context, admin entity.AdminContext) (*response.ReconcileResponse, error) {
	if !admin.Valid() {
		return nil, fmt.Errorf("%w: missing admin context", entity.ErrUnauthorized)
	}

	expired, err := s.waiting.ReconcileOverdue(ctx, admin.BoothID, 0)
	if err != nil {
		s.log.Error("Reconcile finished with errors", zap.Error(err), zap.Int("expired", expired))
		return nil, fmt.Errorf("reconcile booth %s: %w", admin.BoothID, err)
	}
	return &response.ReconcileResponse{Expired: expired}, nil
}

func (s *adminService) UpdateBoothStatus(ctx context.Context, admin entity.AdminContext, req *request.UpdateBoothStatusRequest) (*response.BoothResponse, error) {
	if !admin.Valid() {
		return nil, fmt.Errorf("%w: missing admin context", entity.ErrUnauthorized)
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidArgument, utils.FormatValidationErrors(errs))
	}

	booth, err := s.repo.Booth.FindByID(ctx, admin.BoothID)
	if err != nil {
		return nil, err
	}
	if err := booth.SetOperatedStatus(entity.BoothOperatedStatus(req.Status), s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Booth.UpdateOperatedStatus(ctx, booth); err != nil {
		return nil, fmt.Errorf("update booth status: %w", err)
	}

	s.log.Info("Booth status changed",
		zap.String("booth_id", booth.ID.String()),
		zap.String("status", string(booth.OperatedStatus)),
	)
	resp := response.BoothToResponse(booth)
	return &resp, nil
}

func (s *adminService) RegisterBooth(ctx context.Context, req *request.RegisterBoothRequest) (*entity.Booth, *entity.Admin, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", entity.ErrInvalidArgument, utils.FormatValidationErrors(errs))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.AdminCode), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash admin code: %w", err)
	}

	now := s.clock.Now()
	booth := &entity.Booth{
		Base:           entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:           req.Name,
		Location:       req.Location,
		OperatedStatus: entity.BoothStatusNotStarted,
	}
	admin := &entity.Admin{
		Base:          entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BoothID:       booth.ID,
		AdminCodeHash: string(hash),
	}

	if err := s.repo.Booth.Create(ctx, booth, admin); err != nil {
		return nil, nil, fmt.Errorf("register booth %s: %w", booth.Name, err)
	}

	s.log.Info("Booth registered", zap.String("booth_id", booth.ID.String()), zap.String("name", booth.Name))
	return booth, admin, nil
}

func (s *adminService) toResponses(waitings []*entity.Waiting) []response.WaitingResponse {
	out := make([]response.WaitingResponse, 0, len(waitings))
	for _, w := range waitings {
		out = append(out, response.WaitingToResponse(w, s.waiting.ExpiresAt(w)))
	}
	return out
}

// tokenTTL converts the configured expiry to a duration.
func tokenTTL(hours int) time.Duration {
	if hours <= 0 {
		hours = 12
	}
	return time.Duration(hours) * time.Hour
}
