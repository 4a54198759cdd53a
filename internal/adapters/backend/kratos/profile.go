package kratos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/bnema/ppl-accounts-cli/internal/ports"
)

// Profiles maps identity traits onto a profile. With an admin API any identity
// can be read; without one only the current session's identity is visible.
type Profiles struct {
	gateway  *Gateway
	sessions ports.SessionRepository
}

var _ ports.ProfileRepository = (*Profiles)(nil)

func NewProfiles(gateway *Gateway, sessions ports.SessionRepository) *Profiles {
	return &Profiles{gateway: gateway, sessions: sessions}
}

func (p *Profiles) GetProfile(ctx context.Context, id domain.UserID) (*domain.Profile, error) {
	if p.gateway.admin != nil {
		identity, resp, err := p.gateway.admin.IdentityAPI.GetIdentity(ctx, string(id)).Execute()
		if err != nil {
			if statusOf(resp) == http.StatusNotFound {
				return nil, nil
			}
			return nil, fmt.Errorf("get identity %s: %w", id, wrapStatus(err, resp))
		}
		return profileFromTraits(identity.Traits), nil
	}

	session, err := p.sessions.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile %s: %w", id, err)
	}
	if session.User.ID != id {
		return nil, nil
	}

	current, resp, err := p.gateway.public.FrontendAPI.ToSession(ctx).XSessionToken(session.Tokens.AccessToken).Execute()
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", id, mapSessionError(err, resp))
	}
	if current.Identity == nil {
		return nil, nil
	}

	return profileFromTraits(current.Identity.Traits), nil
}

func profileFromTraits(traits interface{}) *domain.Profile {
	values, ok := traits.(map[string]interface{})
	if !ok {
		return nil
	}

	profile := domain.Profile{
		DisplayName: traitString(values, "display_name"),
		AvatarURL:   firstNonEmpty(traitString(values, "avatar_url"), traitString(values, "picture")),
		HeightCM:    traitFloat(values, "height_cm"),
		WeightKG:    traitFloat(values, "weight_kg"),
		Goal:        traitString(values, "goal"),
	}
	if profile.DisplayName == "" {
		profile.DisplayName = nameTrait(values["name"])
	}
	if profile == (domain.Profile{}) {
		return nil
	}

	return &profile
}

// nameTrait accepts the plain string form and the {first, last} object used
// by the default identity schema.
func nameTrait(raw interface{}) string {
	switch name := raw.(type) {
	case string:
		return name
	case map[string]interface{}:
		first, _ := name["first"].(string)
		last, _ := name["last"].(string)
		return strings.TrimSpace(first + " " + last)
	}
	return ""
}

func traitString(traits interface{}, key string) string {
	values, ok := traits.(map[string]interface{})
	if !ok {
		return ""
	}
	value, _ := values[key].(string)
	return value
}

func traitFloat(values map[string]interface{}, key string) float64 {
	switch value := values[key].(type) {
	case float64:
		return value
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
