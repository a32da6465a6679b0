package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tissuewatch/internal/domain"
	"tissuewatch/internal/repository"
	"tissuewatch/internal/store"
)

const resetCodeTTL = 10 * time.Minute

// Mailer 发送密码重置验证码（SMTP 实现见 mailer.go）
type Mailer interface {
	SendResetCode(to, code string) error
}

// Claims 已验证令牌携带的身份
type Claims struct {
	UserID int64
	Role   string
}

// AuthService 注册/登录/JWT 校验与 OTP 密码重置。
// Also serves as the WebSocket credential resolver: the ws handshake carries
// the same bearer token in its query string.
type AuthService struct {
	users  repository.UsersRepository
	kv     store.KV
	mailer Mailer
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

func NewAuthService(users repository.UsersRepository, kv store.KV, mailer Mailer, secret string, ttl time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		kv:     kv,
		mailer: mailer,
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
	}
}

// Register 创建账号；密码 bcrypt 哈希后入库
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("username and email are required: %w", ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters: %w", ErrValidation)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", ErrConflict)
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("User registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Login 校验密码并签发 HS256 JWT
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// TokenFor 给已有账号直接签发令牌（管理工具与种子数据用）
func (s *AuthService) TokenFor(u *domain.User) (string, error) {
	return s.issueToken(u)
}

func (s *AuthService) issueToken(u *domain.User) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
		"jti":     uuid.NewString(),
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken 解析并校验 JWT，返回身份信息
func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid token: %w", ErrUnauthorized)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", ErrUnauthorized)
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", ErrUnauthorized)
	}
	role, _ := claims["role"].(string)

	return &Claims{UserID: int64(userID), Role: role}, nil
}

// ResolveRecipient ws.CredentialResolver 实现：握手令牌换用户 id
func (s *AuthService) ResolveRecipient(token string) (int64, error) {
	claims, err := s.VerifyToken(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

// RequestPasswordReset 发送 6 位验证码到注册邮箱。
// Unknown emails report success too, so the endpoint cannot be used to probe
// which addresses have accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	code, err := generateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}
	if err := s.kv.Set(ctx, resetKey(email), code, resetCodeTTL); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}
	if err := s.mailer.SendResetCode(u.Email, code); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	s.logger.Info("Password reset code sent", zap.Int64("user_id", u.ID))
	return nil
}

// VerifyResetCode 校验验证码是否有效（不消费）
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	stored, err := s.kv.Get(ctx, resetKey(email))
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return fmt.Errorf("reset code expired or not requested: %w", ErrUnauthorized)
		}
		return err
	}
	if stored != code {
		return fmt.Errorf("reset code mismatch: %w", ErrUnauthorized)
	}
	return nil
}

// ResetPassword 验证码正确则更新密码并作废验证码（单次有效）
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.VerifyResetCode(ctx, email, code); err != nil {
		return err
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", ErrValidation)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, resetKey(email)); err != nil {
		s.logger.Warn("Failed to invalidate reset code", zap.Error(err))
	}
	s.logger.Info("Password reset completed", zap.Int64("user_id", u.ID))
	return nil
}

func resetKey(email string) string {
	return "pwreset:" + strings.ToLower(strings.TrimSpace(email))
}

func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
