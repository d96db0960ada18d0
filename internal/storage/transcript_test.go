package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partschat/pkg"
)

func TestMemoryTranscripts(t *testing.T) {
	repo := NewMemoryTranscripts()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, "conv-1", pkg.TranscriptMessage{
		Role: "user", Content: "necesito balatas", Timestamp: time.Now(),
	}))
	require.NoError(t, repo.Append(ctx, "conv-1", pkg.TranscriptMessage{
		Role: "assistant", Content: "¿Para qué auto?", Timestamp: time.Now(),
	}))

	history, err := repo.History(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)

	// History hands out a copy.
	history[0].Content = "mutated"
	fresh, _ := repo.History(ctx, "conv-1")
	assert.Equal(t, "necesito balatas", fresh[0].Content)

	require.NoError(t, repo.Delete(ctx, "conv-1"))
	history, err = repo.History(ctx, "conv-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryTranscriptsUnknownConversation(t *testing.T) {
	repo := NewMemoryTranscripts()

	history, err := repo.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}
