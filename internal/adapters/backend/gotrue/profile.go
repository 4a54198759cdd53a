package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
)

type profileRow struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   string  `json:"avatar_url"`
	HeightCM    float64 `json:"height_cm"`
	WeightKG    float64 `json:"weight_kg"`
	Goal        string  `json:"goal"`
}

// Profiles reads profile rows through PostgREST. Requests carry the current
// session's access token so row-level security applies.
type Profiles struct {
	client   *Client
	sessions ports.SessionRepository
}

var _ ports.ProfileRepository = (*Profiles)(nil)

func NewProfiles(client *Client, sessions ports.SessionRepository) *Profiles {
	return &Profiles{client: client, sessions: sessions}
}

func (p *Profiles) GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error) {
	bearer := ""
	if p.sessions != nil {
		session, err := p.sessions.Load(ctx)
		switch {
		case err == nil:
			bearer = session.Tokens.AccessToken
		case !errors.Is(err, domain.ErrNoSession):
			return nil, fmt.Errorf("get profile %s: %w", id, err)
		}
	}

	var rows []profileRow
	err := p.client.do(ctx, request{
		method: http.MethodGet,
		path:   restPathPrefix + url.PathEscape(p.client.profilesTable),
		query: url.Values{
			"id":     {"eq." + string(id)},
			"select": {"*"},
		},
		bearer: bearer,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	return &domain.Profile{
		DisplayName: row.DisplayName,
		AvatarURL:   row.AvatarURL,
		HeightCM:    row.HeightCM,
		WeightKG:    row.WeightKG,
		Goal:        row.Goal,
	}, nil
}
