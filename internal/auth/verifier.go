package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
)

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrMissingClaim      = errors.New("required claim missing")
	ErrInvalidRole       = errors.New("role not recognized")
)

// Verifier validates an opaque credential and returns the structured identity.
// Implementations must be side-effect free.
type Verifier interface {
	Verify(ctx context.Context, token string) (*domain.Claims, error)
}

// tokenClaims mirrors the JWT payload issued by the app backend.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role    string `json:"role"`
	ClassID string `json:"class_id"`
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

// NewJWTVerifier creates a verifier for the given shared secret and issuer.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates the token, returning the connection claims.
func (v *JWTVerifier) Verify(ctx context.Context, tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidCredential
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil {
		return nil, ErrInvalidCredential
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredential
	}

	if claims.Subject == "" || claims.ClassID == "" {
		return nil, ErrMissingClaim
	}
	if claims.Role == "" {
		return nil, ErrMissingClaim
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	return &domain.Claims{
		Subject: claims.Subject,
		Role:    role,
		ClassID: claims.ClassID,
	}, nil
}

var _ Verifier = (*JWTVerifier)(nil)
