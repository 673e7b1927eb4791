package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mrarman0786/chat-app/domain"
	"github.com/mrarman0786/chat-app/errors"
)

const tokenIssuer = "chat-app"

// Claims embeds the full Identity in the session token, so resolving a
// token back to an Identity needs no server-side session state.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and validates session tokens. The secret comes from
// configuration, never from source.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) Issuer {
	return Issuer{secret: []byte(secret), ttl: ttl}
}

// Generate creates a signed session token for an identity, expiring after
// the configured duration.
func (i Issuer) Generate(identity domain.Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate checks signature and expiry and returns the embedded Identity.
// Any failure collapses to ErrUnauthenticated; callers never learn why.
func (i Issuer) Validate(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		return domain.Identity{}, errors.ErrUnauthenticated
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Identity{}, errors.ErrUnauthenticated
	}
	return domain.Identity{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}
