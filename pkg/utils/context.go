package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	UserIDKey  contextKey = "user_id"
	RoleKey    contextKey = "role"
	BoothIDKey contextKey = "booth_id"
	TokenKey   contextKey = "token"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// GetBoothIDFromContext is only populated for admin tokens.
func GetBoothIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	boothID, ok := ctx.Value(BoothIDKey).(uuid.UUID)
	if !ok || boothID == uuid.Nil {
		return uuid.Nil, false
	}
	return boothID, true
}

func SetUserContext(ctx context.Context, userID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}

func SetAdminContext(ctx context.Context, adminID, boothID uuid.UUID) context.Context {
	ctx = SetUserContext(ctx, adminID, RoleAdmin)
	return context.WithValue(ctx, BoothIDKey, boothID)
}

func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

func SetTokenContext(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}
