package domain

import "time"

type AuthMode string

const (
	AuthModeSignIn   AuthMode = "sign-in"
	AuthModeRegister AuthMode = "register"
)

// Tokens is the bearer credential pair issued by the identity backend.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (t Tokens) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// SamePair reports whether both bearer strings match; expiry is ignored.
func (t Tokens) SamePair(other Tokens) bool {
	return t.AccessToken == other.AccessToken && t.RefreshToken == other.RefreshToken
}

// ExpiringSoon reports whether the access token expires within skew of now.
// An unknown expiry is never considered expiring.
func (t Tokens) ExpiringSoon(now time.Time, skew time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}

	return !t.ExpiresAt.After(now.Add(skew))
}

// AuthSession is what the identity backend hands back after any successful
// authentication call.
type AuthSession struct {
	User   User
	Tokens Tokens
}
