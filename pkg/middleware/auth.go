package middleware

import (
	"net/http"
	"strings"

	"booth-waitlist/pkg/utils"

	"go.uber.org/zap"
)

// Auth validates the bearer token and stores the caller in the request
// context. Admin tokens also carry the booth the admin manages.
func Auth(tokens *utils.TokenManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				logger.Warn("Rejected bearer token", zap.Error(err), zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			subject, err := claims.SubjectID()
			if err != nil {
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			switch claims.Role {
			case utils.RoleAdmin:
				boothID, err := claims.BoothUUID()
				if err != nil {
					utils.ResponseUnauthorized(w, "Admin token without booth")
					return
				}
				ctx = utils.SetAdminContext(ctx, subject, boothID)
			case utils.RoleUser:
				ctx = utils.SetUserContext(ctx, subject, utils.RoleUser)
			default:
				utils.ResponseUnauthorized(w, "Unknown role")
				return
			}
			ctx = utils.SetTokenContext(ctx, token)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after Auth.
func RequireRole(role string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := utils.GetRoleFromContext(r.Context())
			if !ok {
				utils.ResponseUnauthorized(w, "Authentication required")
				return
			}

			if got != role {
				userID, _ := utils.GetUserIDFromContext(r.Context())
				logger.Warn("Role check failed",
					zap.String("user_id", userID.String()),
					zap.String("role", got),
					zap.String("required", role),
					zap.String("path", r.URL.Path))
				utils.ResponseForbidden(w, role+" access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
