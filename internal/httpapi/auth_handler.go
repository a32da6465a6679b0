package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"tissuewatch/internal/service"
)

// AuthHandler 注册/登录/密码重置
type AuthHandler struct {
	auth   *service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Register 用户注册
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	u, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(u))
}

// Login 登录并签发 JWT
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	token, u, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"token": token,
		"user":  u,
	}))
}

// Me 返回调用者身份（中间件已验证令牌）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Fail("missing bearer token"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"user_id": caller.UserID,
		"role":    caller.Role,
	}))
}

// SendResetCode 发送密码重置验证码
func (h *AuthHandler) SendResetCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, Fail("email is required"))
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error("Failed to process reset request", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("reset code sent if the email is registered"))
}

// VerifyResetCode 预校验验证码（客户端在填新密码前调用）
func (h *AuthHandler) VerifyResetCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil || req.Email == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, Fail("email and code are required"))
		return
	}

	if err := h.auth.VerifyResetCode(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("code valid"))
}

// ResetPassword 使用验证码设置新密码
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil || req.Email == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, Fail("email, code and new_password are required"))
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok("password updated"))
}
