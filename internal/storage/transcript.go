package storage

import (
	"context"
	"sync"

	"partschat/pkg"
)

// TranscriptRepository logs per-conversation messages for audit and
// advisor handover. Best-effort cache semantics, not durable storage.
type TranscriptRepository interface {
	Append(ctx context.Context, conversationID string, msg pkg.TranscriptMessage) error
	History(ctx context.Context, conversationID string) ([]pkg.TranscriptMessage, error)
	Delete(ctx context.Context, conversationID string) error
}

// MemoryTranscripts is the in-process TranscriptRepository.
type MemoryTranscripts struct {
	mu          sync.RWMutex
	transcripts map[string][]pkg.TranscriptMessage
}

// NewMemoryTranscripts creates an empty in-memory transcript repository.
func NewMemoryTranscripts() *MemoryTranscripts {
	return &MemoryTranscripts{
		transcripts: make(map[string][]pkg.TranscriptMessage),
	}
}

func (m *MemoryTranscripts) Append(ctx context.Context, conversationID string, msg pkg.TranscriptMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[conversationID] = append(m.transcripts[conversationID], msg)
	return nil
}

func (m *MemoryTranscripts) History(ctx context.Context, conversationID string) ([]pkg.TranscriptMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.transcripts[conversationID]
	return append([]pkg.TranscriptMessage{}, history...), nil
}

func (m *MemoryTranscripts) Delete(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transcripts, conversationID)
	return nil
}
