package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"iaros/itinerary_core/internal/models"
)

func TestGenerate_Length(t *testing.T) {
	token, err := generate()
	require.NoError(t, err)
	// 32 raw bytes, unpadded base64url -> 43 chars.
	require.Len(t, token, 43)
}

func TestGenerate_Unique(t *testing.T) {
	a, err := generate()
	require.NoError(t, err)
	b, err := generate()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestInviteIsRedeemable_FreshToken(t *testing.T) {
	now := time.Now().UTC()
	invite := models.InviteToken{MaxUses: 1, UsedCount: 0, ExpiresAt: now.Add(time.Hour)}
	require.True(t, inviteIsRedeemable(invite, now))
}

func TestInviteIsRedeemable_Revoked(t *testing.T) {
	now := time.Now().UTC()
	revokedAt := now.Add(-time.Minute)
	invite := models.InviteToken{MaxUses: 1, UsedCount: 0, ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}
	require.False(t, inviteIsRedeemable(invite, now))
}

func TestInviteIsRedeemable_Expired(t *testing.T) {
	now := time.Now().UTC()
	invite := models.InviteToken{MaxUses: 1, UsedCount: 0, ExpiresAt: now.Add(-time.Minute)}
	require.False(t, inviteIsRedeemable(invite, now))
}

func TestInviteIsRedeemable_Exhausted(t *testing.T) {
	now := time.Now().UTC()
	invite := models.InviteToken{MaxUses: 1, UsedCount: 1, ExpiresAt: now.Add(time.Hour)}
	require.False(t, inviteIsRedeemable(invite, now))
}

func TestShareLinkIsActive_Fresh(t *testing.T) {
	now := time.Now().UTC()
	shared := models.SharedTripToken{ExpiresAt: now.Add(time.Hour)}
	require.True(t, shareLinkIsActive(shared, now))
}

func TestShareLinkIsActive_Revoked(t *testing.T) {
	now := time.Now().UTC()
	revokedAt := now.Add(-time.Minute)
	shared := models.SharedTripToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revokedAt}
	require.False(t, shareLinkIsActive(shared, now))
}

func TestShareLinkIsActive_Expired(t *testing.T) {
	now := time.Now().UTC()
	shared := models.SharedTripToken{ExpiresAt: now.Add(-time.Minute)}
	require.False(t, shareLinkIsActive(shared, now))
}
