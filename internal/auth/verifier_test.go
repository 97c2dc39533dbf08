package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
)

const (
	testSecret = "test-secret"
	testIssuer = "shuangxiang-app"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":      "u1",
		"role":     "teacher",
		"class_id": "class-1",
		"iss":      testIssuer,
	}
}

func TestVerify_ValidToken(t *testing.T) {
	v := NewJWTVerifier(testSecret, testIssuer)

	tests := []struct {
		name string
		role string
		want domain.Role
	}{
		{"Teacher", "teacher", domain.RoleTeacher},
		{"Student", "student", domain.RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			claims["role"] = tt.role

			got, err := v.Verify(context.Background(), signToken(t, testSecret, claims))
			require.NoError(t, err)
			assert.Equal(t, "u1", got.Subject)
			assert.Equal(t, tt.want, got.Role)
			assert.Equal(t, "class-1", got.ClassID)
		})
	}
}

func TestVerify_InvalidCredential(t *testing.T) {
	v := NewJWTVerifier(testSecret, testIssuer)

	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	wrongIssuer := baseClaims()
	wrongIssuer["iss"] = "someone-else"

	tests := []struct {
		name  string
		token string
	}{
		{"Garbage", "not-a-token"},
		{"WrongSecret", signToken(t, "other-secret", baseClaims())},
		{"Expired", signToken(t, testSecret, expired)},
		{"WrongIssuer", signToken(t, testSecret, wrongIssuer)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidCredential)
		})
	}
}

func TestVerify_MissingClaim(t *testing.T) {
	v := NewJWTVerifier(testSecret, testIssuer)

	tests := []struct {
		name string
		drop string
	}{
		{"NoSubject", "sub"},
		{"NoClassID", "class_id"},
		{"NoRole", "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			delete(claims, tt.drop)

			_, err := v.Verify(context.Background(), signToken(t, testSecret, claims))
			assert.ErrorIs(t, err, ErrMissingClaim)
		})
	}
}

func TestVerify_InvalidRole(t *testing.T) {
	v := NewJWTVerifier(testSecret, testIssuer)

	claims := baseClaims()
	claims["role"] = "janitor"

	_, err := v.Verify(context.Background(), signToken(t, testSecret, claims))
	assert.ErrorIs(t, err, ErrInvalidRole)
}
