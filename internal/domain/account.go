package domain

import (
	"strings"
	"time"
)

type UserID string

type User struct {
	ID    UserID
	Email string
}

type Profile struct {
	DisplayName string
	AvatarURL   string
	HeightCM    float64
	WeightKG    float64
	Goal        string
}

// Account is a cached identity available for quick switching.
type Account struct {
	User       User
	Profile    *Profile
	Tokens     Tokens
	AddedAt    time.Time
	LastUsedAt time.Time
}

// Label returns the display name when the profile carries one, the email otherwise.
func (a Account) Label() string {
	return displayLabel(a.User, a.Profile)
}

func displayLabel(user User, profile *Profile) string {
	if profile != nil && strings.TrimSpace(profile.DisplayName) != "" {
		return strings.TrimSpace(profile.DisplayName)
	}
	if user.Email != "" {
		return user.Email
	}

	return string(user.ID)
}
