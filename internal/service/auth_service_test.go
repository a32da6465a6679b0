package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tissuewatch/internal/domain"
	"tissuewatch/internal/repository"
	"tissuewatch/internal/store"
)

type fakeMailer struct {
	to    []string
	codes []string
	err   error
}

func (m *fakeMailer) SendResetCode(to, code string) error {
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.codes = append(m.codes, code)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *repository.MemoryUsersRepo, *fakeMailer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	kv := store.NewRedisKV(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	users := repository.NewMemoryUsersRepo()
	mailer := &fakeMailer{}
	svc := NewAuthService(users, kv, mailer, "test-secret", time.Hour, zap.NewNop())
	return svc, users, mailer, mr
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.NotEqual(t, "hunter22", u.PasswordHash, "password must never be stored in the clear")

	token, logged, err := svc.Login(ctx, "alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	// Same token resolves the WebSocket recipient.
	recipient, err := svc.ResolveRecipient(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, recipient)
}

func TestAuth_RegisterDuplicate(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other@example.com", "hunter22")
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = svc.Register(ctx, "alice2", "alice@example.com", "hunter22")
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, _, err = svc.Login(ctx, "nobody", "hunter22")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestAuth_VerifyTokenRejectsGarbage(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	_, err := svc.VerifyToken("not-a-token")
	assert.True(t, errors.Is(err, ErrUnauthorized))

	other := NewAuthService(repository.NewMemoryUsersRepo(), nil, nil, "other-secret", time.Hour, zap.NewNop())
	token, err := other.issueToken(&domain.User{ID: 7, Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.True(t, errors.Is(err, ErrUnauthorized), "token signed with a different secret must be rejected")
}

func TestAuth_PasswordResetFlow(t *testing.T) {
	svc, users, mailer, _ := newAuthFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	require.Len(t, mailer.codes, 1)
	code := mailer.codes[0]
	assert.Len(t, code, 6)
	assert.Equal(t, "alice@example.com", mailer.to[0])

	// Wrong code is rejected without consuming the stored one.
	err = svc.ResetPassword(ctx, "alice@example.com", "000000", "newpass1")
	if code == "000000" {
		t.Skip("generated code collided with the wrong-code probe")
	}
	assert.True(t, errors.Is(err, ErrUnauthorized))

	require.NoError(t, svc.ResetPassword(ctx, "alice@example.com", code, "newpass1"))

	_, _, err = svc.Login(ctx, "alice", "hunter22")
	assert.True(t, errors.Is(err, ErrUnauthorized), "old password must stop working")
	_, logged, err := svc.Login(ctx, "alice", "newpass1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	// Code is single-use.
	err = svc.ResetPassword(ctx, "alice@example.com", code, "anotherpass")
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
}

func TestAuth_ResetCodeExpires(t *testing.T) {
	svc, _, mailer, mr := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(ctx, "alice@example.com"))
	require.Len(t, mailer.codes, 1)

	mr.FastForward(resetCodeTTL + time.Second)

	err = svc.VerifyResetCode(ctx, "alice@example.com", mailer.codes[0])
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestAuth_ResetUnknownEmailIsSilent(t *testing.T) {
	svc, _, mailer, _ := newAuthFixture(t)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.codes, "no mail for unknown addresses")
}
