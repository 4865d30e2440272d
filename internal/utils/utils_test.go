package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/taskhub/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func strptr(s string) *string { return &s }

func TestIssueAndVerify(t *testing.T) {
	svc := NewTokenService(testSecret, 24*time.Hour)
	tenant := strptr("6f1c2c1e-8f0e-4a4c-9d8b-1a2b3c4d5e6f")

	tok, err := svc.Issue("user-1", tenant, model.RoleTenantAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), tok.Exp, time.Minute)

	claims, err := svc.Verify(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, model.RoleTenantAdmin, claims.Role)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, *tenant, *claims.TenantID)
	assert.Equal(t, "user-1", claims.Subject)
	require.NotNil(t, claims.IssuedAt)
}

func TestVerifySuperAdminHasNoTenant(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	tok, err := svc.Issue("root", nil, model.RoleSuperAdmin)
	require.NoError(t, err)

	claims, err := svc.Verify(tok.Token)
	require.NoError(t, err)
	assert.Nil(t, claims.TenantID)
	assert.Equal(t, model.RoleSuperAdmin, claims.Role)
}

func TestVerifyExpired(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := svc.Issue("user-1", strptr("t1"), model.RoleUser)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyRejectsTampering(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	tok, err := svc.Issue("user-1", strptr("t1"), model.RoleUser)
	require.NoError(t, err)

	other := NewTokenService("another-secret-another-secret-00", time.Hour)
	_, err = other.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	parts := strings.Split(tok.Token, ".")
	require.Len(t, parts, 3)
	_, err = svc.Verify(parts[0] + "." + parts[1] + ".AAAA")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	claims := Claims{
		UserID: "user-1",
		Role:   model.RoleSuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsRoleTenantMismatch(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)

	tok, err := svc.Issue("user-1", nil, model.RoleTenantAdmin)
	require.NoError(t, err)
	_, err = svc.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	tok, err = svc.Issue("root", strptr("t1"), model.RoleSuperAdmin)
	require.NoError(t, err)
	_, err = svc.Verify(tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))
	assert.False(t, VerifyPassword("", "correct horse"))
}

func TestHashIsSalted(t *testing.T) {
	a, err := HashPassword("same-password", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("same-password", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestClampCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, ClampCost(0))
	assert.Equal(t, bcrypt.MaxCost, ClampCost(99))
	assert.Equal(t, 12, ClampCost(12))
}
