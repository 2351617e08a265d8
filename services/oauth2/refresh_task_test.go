package oauth2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therolffr/bichon/internal/models"
)

const minuteMs = int64(60 * 1000)

func TestSelectTokensForRefresh_IdleThreshold(t *testing.T) {
	now := int64(1_000_000_000)
	tokens := []models.OAuth2AccessToken{
		{AccountID: 1, OAuth2ID: 7, UpdatedAt: now - 46*minuteMs},
		{AccountID: 2, OAuth2ID: 7, UpdatedAt: now - 44*minuteMs},
		{AccountID: 3, OAuth2ID: 7, UpdatedAt: now - 45*minuteMs},
	}

	selected := SelectTokensForRefresh(tokens, now)

	require.Len(t, selected, 1)
	assert.Equal(t, uint64(1), selected[0].AccountID)
}

func TestSelectTokensForRefresh_SkipsExternalTokens(t *testing.T) {
	now := int64(1_000_000_000)
	tokens := []models.OAuth2AccessToken{
		{AccountID: 1, OAuth2ID: models.ExternalOAuthAppID, UpdatedAt: now - 120*minuteMs},
		{AccountID: 2, OAuth2ID: 7, UpdatedAt: now - 120*minuteMs},
	}

	selected := SelectTokensForRefresh(tokens, now)

	require.Len(t, selected, 1)
	assert.Equal(t, uint64(2), selected[0].AccountID)
}

func TestSelectTokensForRefresh_Empty(t *testing.T) {
	assert.Empty(t, SelectTokensForRefresh(nil, 0))
	assert.Empty(t, SelectTokensForRefresh([]models.OAuth2AccessToken{
		{AccountID: 1, OAuth2ID: 7, UpdatedAt: 0},
	}, 10*minuteMs))
}
