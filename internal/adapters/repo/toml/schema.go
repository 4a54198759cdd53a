package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Session *sessionSchema `toml:"session,omitempty"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported session schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

// sessionSchema holds what is safe to keep in plain text. The token pair is
// stored under SecretRef in the key-value store.
type sessionSchema struct {
	UserID    string `toml:"user_id"`
	Email     string `toml:"email"`
	ExpiresAt string `toml:"expires_at,omitempty"`
	SecretRef string `toml:"secret_ref"`
	SavedAt   string `toml:"saved_at,omitempty"`
}

type tokenPairSchema struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
