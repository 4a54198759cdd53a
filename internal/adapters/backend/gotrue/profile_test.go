package gotrue

import (
	"context"
	"testing"

	"github.com/bnema/ppl-accounts-cli/internal/adapters/backend/gotrue/gotruetest"
	"github.com/bnema/ppl-accounts-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProfileReturnsRow(t *testing.T) {
	t.Parallel()

	h := newAuthHarness(t)
	userID := h.server.AddUser("a@x.com", "pw")
	h.server.SetProfile(userID, gotruetest.Profile{DisplayName: "Alex", HeightCM: 181, WeightKG: 82.5, Goal: "strength"})
	_, err := h.auth.SignIn(context.Background(), "a@x.com", "pw")
	require.NoError(t, err)

	profile, err := h.profiles.GetProfile(context.Background(), domain.UserID(userID))
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, domain.Profile{DisplayName: "Alex", HeightCM: 181, WeightKG: 82.5, Goal: "strength"}, *profile)
}

func TestGetProfileWithoutRowIsNil(t *testing.T) {
	t.Parallel()

	h := newAuthHarness(t)

	profile, err := h.profiles.GetProfile(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestGetProfileSurfacesServerErrors(t *testing.T) {
	t.Parallel()

	h := newAuthHarness(t)
	h.server.FailNext("/rest/v1/profiles", 1)

	_, err := h.profiles.GetProfile(context.Background(), "user-a")
	require.Error(t, err)
	assert.ErrorContains(t, err, "get profile user-a")
}
