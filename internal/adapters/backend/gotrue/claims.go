package gotrue

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// peekClaims reads the access token payload without verifying the signature.
// The backend verifies it on every call; the client only needs the expiry and
// subject to decide whether a refresh is due.
func peekClaims(accessToken string) (accessClaims, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return accessClaims{}, fmt.Errorf("parse access token claims: %w", err)
	}

	return claims, nil
}

// expiryOf returns the access token's exp claim, or the zero time when the
// token is opaque or carries none.
func expiryOf(accessToken string) time.Time {
	claims, err := peekClaims(accessToken)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}

	return claims.ExpiresAt.UTC()
}
