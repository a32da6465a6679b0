package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tissuewatch/internal/domain"
	"tissuewatch/internal/service"
)

type contextKey string

const callerKey contextKey = "caller"

// TokenVerifier JWT 校验面（service.AuthService 实现）
type TokenVerifier interface {
	VerifyToken(tokenString string) (*service.Claims, error)
}

// AuthMiddleware Bearer 令牌 → 请求上下文身份
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Require 未认证直接 401，不触达业务逻辑
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, Fail("missing bearer token"))
			return
		}
		claims, err := m.verifier.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Fail("invalid token"))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), callerKey, *claims)))
	}
}

// RequireAdmin 管理员专属操作（设备建档、删除等）
func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.Require(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFrom(r.Context())
		if caller.Role != domain.RoleAdmin {
			writeJSON(w, http.StatusForbidden, Fail("admin access required"))
			return
		}
		next(w, r)
	})
}

// CallerFrom 取出认证后的调用者身份
func CallerFrom(ctx context.Context) (service.Claims, bool) {
	c, ok := ctx.Value(callerKey).(service.Claims)
	return c, ok
}
