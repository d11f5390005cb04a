package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"taskini/internal/common"
	"taskini/internal/common/security"
	"taskini/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	UserIDCtxKey   contextKey = "userID"
	UserRoleCtxKey contextKey = "userRole"
	TokenIDCtxKey  contextKey = "tokenID"
	TokenExpCtxKey contextKey = "tokenExp"
)

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator rejects requests without a valid, unrevoked bearer token and
// puts the caller's identity into the request context.
func Authenticator(revocations RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Not authorized, no valid token")
				return
			}

			userID, err := security.GetUserIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Not authorized, invalid token")
				return
			}
			userRole, err := security.GetUserRoleFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Not authorized, invalid token")
				return
			}
			tokenID, err := security.GetTokenIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Not authorized, invalid token")
				return
			}
			exp, err := security.GetExpiryFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Not authorized, invalid token")
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(r.Context(), tokenID)
				if err != nil {
					log.Printf("ERROR: checking token revocation: %v", err)
					common.RespondWithError(w, http.StatusInternalServerError, "Server error")
					return
				}
				if revoked {
					common.RespondWithError(w, http.StatusUnauthorized, "Not authorized, token revoked")
					return
				}
			}

			ctx := context.WithValue(r.Context(), UserIDCtxKey, userID)
			ctx = context.WithValue(ctx, UserRoleCtxKey, userRole)
			ctx = context.WithValue(ctx, TokenIDCtxKey, tokenID)
			ctx = context.WithValue(ctx, TokenExpCtxKey, exp)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(UserRoleCtxKey).(string)
		if !ok || role != model.RoleAdmin {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetCallerFromContext returns the authenticated identity set by Authenticator.
func GetCallerFromContext(ctx context.Context) (model.Caller, bool) {
	userID, ok := ctx.Value(UserIDCtxKey).(string)
	if !ok || userID == "" {
		return model.Caller{}, false
	}
	role, _ := ctx.Value(UserRoleCtxKey).(string)
	return model.Caller{ID: userID, Role: role}, true
}

// GetTokenFromContext returns the presented token's id and expiry.
func GetTokenFromContext(ctx context.Context) (string, time.Time, bool) {
	id, ok := ctx.Value(TokenIDCtxKey).(string)
	if !ok {
		return "", time.Time{}, false
	}
	exp, _ := ctx.Value(TokenExpCtxKey).(time.Time)
	return id, exp, true
}
