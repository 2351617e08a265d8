package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendErrorLog_Single(t *testing.T) {
	state := NewAccountRunningState(1000)

	state.AppendErrorLog("Error 1")

	require.Len(t, state.Errors, 1)
	assert.Equal(t, "Error 1", state.Errors[0].Error)
	assert.NotZero(t, state.Errors[0].At)
}

func TestAppendErrorLog_Multiple(t *testing.T) {
	state := NewAccountRunningState(1000)

	for i := 1; i <= 5; i++ {
		state.AppendErrorLog(fmt.Sprintf("Error %d", i))
	}

	require.Len(t, state.Errors, 5)
	assert.Equal(t, "Error 5", state.Errors[4].Error)
}

func TestAppendErrorLog_LimitExceeded(t *testing.T) {
	state := NewAccountRunningState(1000)

	for i := 1; i <= 35; i++ {
		state.AppendErrorLog(fmt.Sprintf("error %d", i))
	}

	require.Len(t, state.Errors, ErrorCountPerAccount)
	assert.Equal(t, "error 6", state.Errors[0].Error)
	assert.Equal(t, "error 35", state.Errors[ErrorCountPerAccount-1].Error)
}

func TestAppendErrorLog_InsertAfterLimit(t *testing.T) {
	state := NewAccountRunningState(1000)

	for i := 1; i <= 30; i++ {
		state.AppendErrorLog(fmt.Sprintf("error %d", i))
	}
	require.Len(t, state.Errors, ErrorCountPerAccount)

	state.AppendErrorLog("error 31")

	require.Len(t, state.Errors, ErrorCountPerAccount)
	assert.Equal(t, "error 2", state.Errors[0].Error)
	assert.Equal(t, "error 31", state.Errors[ErrorCountPerAccount-1].Error)
}

func TestAppendErrorLog_PreservesInsertionOrder(t *testing.T) {
	state := NewAccountRunningState(1000)

	for i := 1; i <= 40; i++ {
		state.AppendErrorLog(fmt.Sprintf("error %d", i))
	}

	for i, entry := range state.Errors {
		assert.Equal(t, fmt.Sprintf("error %d", i+11), entry.Error)
	}
}

func TestFolderProgress_InitializeAndAdvance(t *testing.T) {
	state := NewAccountRunningState(1)

	state.SetFolderTotalBatches("INBOX", 10)
	require.Contains(t, state.Progress, "INBOX")
	assert.Equal(t, uint32(10), state.Progress["INBOX"].TotalBatches)
	assert.Equal(t, uint32(0), state.Progress["INBOX"].CurrentBatch)

	state.SetFolderCurrentBatch("INBOX", 3)
	assert.Equal(t, uint32(3), state.Progress["INBOX"].CurrentBatch)
	assert.Equal(t, uint32(10), state.Progress["INBOX"].TotalBatches)

	state.SetFolderCurrentBatch("INBOX", 7)
	assert.Equal(t, uint32(7), state.Progress["INBOX"].CurrentBatch)
}

func TestFolderProgress_CompletionForcesTotal(t *testing.T) {
	state := NewAccountRunningState(1)

	state.SetFolderTotalBatches("Sent", 4)
	state.SetFolderCurrentBatch("Sent", 2)
	state.SetFolderInitialSyncCompleted("Sent")

	assert.Equal(t, state.Progress["Sent"].TotalBatches, state.Progress["Sent"].CurrentBatch)
}

func TestFolderProgress_UnknownFolderCompletion(t *testing.T) {
	state := NewAccountRunningState(1)

	// Completing a folder never seen creates a zeroed entry rather than
	// panicking.
	state.SetFolderInitialSyncCompleted("Drafts")
	assert.Equal(t, uint32(0), state.Progress["Drafts"].CurrentBatch)
}

func TestFolderProgress_ReinitializeResetsCurrent(t *testing.T) {
	state := NewAccountRunningState(1)

	state.SetFolderTotalBatches("INBOX", 5)
	state.SetFolderCurrentBatch("INBOX", 5)
	state.SetFolderTotalBatches("INBOX", 8)

	assert.Equal(t, uint32(8), state.Progress["INBOX"].TotalBatches)
	assert.Equal(t, uint32(0), state.Progress["INBOX"].CurrentBatch)
}
