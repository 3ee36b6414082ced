package auth

import (
	"context"
	"net/http"

	"github.com/dealflowhq/autopilot/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator — интерфейс проверки токена; реализуется BaseValidator.
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

// Типизированные ключи контекста (избегаем коллизий со строковыми ключами)
type ctxKey string

const (
	ctxKeyUserID ctxKey = "user_id"
	ctxKeyOrgID  ctxKey = "org_id"
	ctxKeyClaims ctxKey = "claims"
)

func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(authHeader)
			if err != nil {
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Прокидываем данные в контекст
			ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
			ctx = context.WithValue(ctx, ctxKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxKeyOrgID, claims.OrgID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID безопасно достает ID пользователя из контекста.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return id
	}
	return ""
}

// OrgID безопасно достает организацию из контекста.
func OrgID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyOrgID).(string); ok {
		return id
	}
	return ""
}

// Claims возвращает полные claims (для проверки скоупов в хендлерах).
func Claims(ctx context.Context) *domain.CustomClaims {
	if c, ok := ctx.Value(ctxKeyClaims).(*domain.CustomClaims); ok {
		return c
	}
	return nil
}
