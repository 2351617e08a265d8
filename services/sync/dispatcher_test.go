package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therolffr/bichon/internal/logger"
	"github.com/therolffr/bichon/internal/models"
)

func dispatcherLogger(t *testing.T) logger.Logger {
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	return log
}

func waitFor(t *testing.T, condition func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestErrorDispatcher_AppendsToState(t *testing.T) {
	repo := newFakeStateRepository()
	require.NoError(t, repo.Add(context.Background(), 7))

	dispatcher := NewErrorDispatcher(repo, dispatcherLogger(t))
	dispatcher.AppendError(7, "fetch failed")

	waitFor(t, func() bool { return len(repo.errorsOf(7)) == 1 })
	assert.Equal(t, "fetch failed", repo.errorsOf(7)[0].Error)
}

func TestErrorDispatcher_OrderPreservedPerAccount(t *testing.T) {
	repo := newFakeStateRepository()
	require.NoError(t, repo.Add(context.Background(), 7))

	dispatcher := NewErrorDispatcher(repo, dispatcherLogger(t))
	for i := 1; i <= 10; i++ {
		dispatcher.AppendError(7, fmt.Sprintf("error %d", i))
	}

	waitFor(t, func() bool { return len(repo.errorsOf(7)) == 10 })
	for i, entry := range repo.errorsOf(7) {
		assert.Equal(t, fmt.Sprintf("error %d", i+1), entry.Error)
	}
}

func TestErrorDispatcher_UnknownAccountDoesNotCrashConsumer(t *testing.T) {
	repo := newFakeStateRepository()
	require.NoError(t, repo.Add(context.Background(), 7))

	dispatcher := NewErrorDispatcher(repo, dispatcherLogger(t))
	dispatcher.AppendError(999, "no such account")
	dispatcher.AppendError(7, "real error")

	waitFor(t, func() bool { return len(repo.errorsOf(7)) == 1 })
	assert.Equal(t, "real error", repo.errorsOf(7)[0].Error)
}

func TestErrorDispatcher_RingBoundHeld(t *testing.T) {
	repo := newFakeStateRepository()
	require.NoError(t, repo.Add(context.Background(), 7))

	dispatcher := NewErrorDispatcher(repo, dispatcherLogger(t))
	for i := 1; i <= 40; i++ {
		dispatcher.AppendError(7, fmt.Sprintf("error %d", i))
	}

	waitFor(t, func() bool {
		errors := repo.errorsOf(7)
		return len(errors) == models.ErrorCountPerAccount &&
			errors[models.ErrorCountPerAccount-1].Error == "error 40"
	})
	assert.Equal(t, "error 11", repo.errorsOf(7)[0].Error)
}
