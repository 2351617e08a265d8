package oauth2

import (
	"context"
	"time"

	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/models"
	"github.com/therolffr/bichon/internal/periodic"
	"github.com/therolffr/bichon/internal/shutdown"
	"github.com/therolffr/bichon/internal/utils"
)

const (
	refreshTaskInterval = 60 * time.Second
	// refreshIdleThreshold selects tokens that have not been refreshed
	// recently enough to be trusted for IMAP login.
	refreshIdleThreshold = int64(45 * 60 * 1000)
)

// SelectTokensForRefresh filters the persisted tokens down to the ones
// the refresher must touch: idle past the threshold and not supplied
// externally.
func SelectTokensForRefresh(tokens []models.OAuth2AccessToken, nowMillis int64) []models.OAuth2AccessToken {
	var selected []models.OAuth2AccessToken
	for _, token := range tokens {
		if nowMillis-token.UpdatedAt > refreshIdleThreshold && token.OAuth2ID != models.ExternalOAuthAppID {
			selected = append(selected, token)
		}
	}
	return selected
}

// StartRefreshTask launches the singleton periodic refresher. Each
// selected token refreshes in its own goroutine so one provider outage
// never blocks the others.
func (s *OAuth2Service) StartRefreshTask(signal *shutdown.SignalManager, log logger.Logger) *periodic.TaskHandle {
	task := periodic.NewPeriodicTask("oauth2-token-refresh-task", log, signal)
	return task.Start(func(ctx context.Context, _ uint64) error {
		allTokens, err := s.tokens.ListAll(ctx)
		if err != nil {
			log.Errorf("Failed to fetch OAuth2 tokens: %v", err)
			return nil
		}

		needRefresh := SelectTokensForRefresh(allTokens, utils.NowMillis())
		if len(needRefresh) == 0 {
			log.Debug("No expired tokens need to be refreshed")
			return nil
		}

		log.Debugf("Found %d tokens that need to be refreshed", len(needRefresh))
		for _, token := range needRefresh {
			token := token
			go func() {
				if err := s.RefreshAccessToken(context.Background(), &token); err != nil {
					log.Errorf("Failed to refresh access token for account %d: %v", token.AccountID, err)
				} else {
					log.Infof("Successfully refreshed access token for account %d", token.AccountID)
				}
			}()
		}
		return nil
	}, 0, refreshTaskInterval, false, true)
}
