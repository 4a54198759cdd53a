package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
)

const currentBlobVersion = 1

type accountsBlob struct {
	Version  int             `json:"version"`
	Accounts []accountRecord `json:"accounts"`
}

type accountRecord struct {
	User         userRecord     `json:"user"`
	Profile      *profileRecord `json:"profile,omitempty"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    int64          `json:"expires_at,omitempty"`
	AddedAt      string         `json:"added_at,omitempty"`
	LastUsedAt   string         `json:"last_used_at,omitempty"`
}

type userRecord struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type profileRecord struct {
	DisplayName string  `json:"display_name,omitempty"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
	HeightCM    float64 `json:"height_cm,omitempty"`
	WeightKG    float64 `json:"weight_kg,omitempty"`
	Goal        string  `json:"goal,omitempty"`
}

func encodeAccounts(accounts []domain.Account) (string, error) {
	blob := accountsBlob{
		Version:  currentBlobVersion,
		Accounts: make([]accountRecord, 0, len(accounts)),
	}
	for _, account := range accounts {
		blob.Accounts = append(blob.Accounts, toRecord(account))
	}

	payload, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("encode accounts: %w", err)
	}

	return string(payload), nil
}

// decodeAccounts accepts the versioned envelope as well as a bare array, which
// is how the web client stored the list.
func decodeAccounts(raw string) ([]domain.Account, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []accountRecord
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode accounts: %w", err)
		}
	} else {
		var blob accountsBlob
		if err := json.Unmarshal(trimmed, &blob); err != nil {
			return nil, fmt.Errorf("decode accounts: %w", err)
		}
		if blob.Version > currentBlobVersion {
			return nil, fmt.Errorf("unsupported accounts blob version %d (current %d)", blob.Version, currentBlobVersion)
		}
		records = blob.Accounts
	}

	accounts := make([]domain.Account, 0, len(records))
	for _, record := range records {
		if record.User.ID == "" {
			return nil, fmt.Errorf("decode accounts: entry without user id")
		}
		accounts = append(accounts, fromRecord(record))
	}

	return accounts, nil
}

func toRecord(account domain.Account) accountRecord {
	record := accountRecord{
		User: userRecord{
			ID:    string(account.User.ID),
			Email: account.User.Email,
		},
		AccessToken:  account.Tokens.AccessToken,
		RefreshToken: account.Tokens.RefreshToken,
		AddedAt:      formatTime(account.AddedAt),
		LastUsedAt:   formatTime(account.LastUsedAt),
	}
	if !account.Tokens.ExpiresAt.IsZero() {
		record.ExpiresAt = account.Tokens.ExpiresAt.Unix()
	}
	if account.Profile != nil {
		record.Profile = &profileRecord{
			DisplayName: account.Profile.DisplayName,
			AvatarURL:   account.Profile.AvatarURL,
			HeightCM:    account.Profile.HeightCM,
			WeightKG:    account.Profile.WeightKG,
			Goal:        account.Profile.Goal,
		}
	}

	return record
}

func fromRecord(record accountRecord) domain.Account {
	account := domain.Account{
		User: domain.User{
			ID:    domain.UserID(record.User.ID),
			Email: record.User.Email,
		},
		Tokens: domain.Tokens{
			AccessToken:  record.AccessToken,
			RefreshToken: record.RefreshToken,
		},
		AddedAt:    parseTime(record.AddedAt),
		LastUsedAt: parseTime(record.LastUsedAt),
	}
	if record.ExpiresAt > 0 {
		account.Tokens.ExpiresAt = time.Unix(record.ExpiresAt, 0).UTC()
	}
	if record.Profile != nil {
		account.Profile = &domain.Profile{
			DisplayName: record.Profile.DisplayName,
			AvatarURL:   record.Profile.AvatarURL,
			HeightCM:    record.Profile.HeightCM,
			WeightKG:    record.Profile.WeightKG,
			Goal:        record.Profile.Goal,
		}
	}

	return account
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
