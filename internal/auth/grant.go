package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GrantTTL is the fixed lifetime of invite and join-request tokens.
const GrantTTL = 7 * 24 * time.Hour

// GrantClaims is the signed payload of an invite or join-request token.
type GrantClaims struct {
	UserID      uuid.UUID `json:"user"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	Role        string    `json:"role,omitempty"`
	Kind        string    `json:"kind"`
	jwt.RegisteredClaims
}

type GrantSigner struct {
	secret []byte
	now    func() time.Time
}

func NewGrantSigner(secret []byte, now func() time.Time) *GrantSigner {
	if now == nil {
		now = time.Now
	}
	return &GrantSigner{secret: secret, now: now}
}

// Sign mints a token for the given binding and returns it with its expiry.
// The jti keeps two tokens minted in the same second distinct.
func (s *GrantSigner) Sign(kind string, userID, workspaceID uuid.UUID, role string) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(GrantTTL)
	claims := GrantClaims{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
		Kind:        kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign grant: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature and expiry. Expiry is reported separately from
// other failures so callers can word the rejection.
func (s *GrantSigner) Verify(tokenStr string) (*GrantClaims, error) {
	claims := &GrantClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if claims.UserID == uuid.Nil || claims.WorkspaceID == uuid.Nil || claims.Kind == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}
