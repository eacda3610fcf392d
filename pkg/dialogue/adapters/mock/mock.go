package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/veilbrook/npcmem/pkg/dialogue"
)

// MockEngine is a deterministic dialogue.Engine for tests and offline
// demos. Replies and analyses can be queued; embeddings are derived from
// a hash of the text so equal texts always embed identically.
type MockEngine struct {
	// replies are returned in order; when exhausted, DefaultReply is used
	replies []dialogue.Reply

	// DefaultReply is returned once queued replies run out
	DefaultReply dialogue.Reply

	// Prompts records every prompt passed to Converse
	Prompts []string

	// Err, when set, is returned by every call
	Err error

	// EmbeddingDim is the dimensionality of fake embeddings
	EmbeddingDim int

	mutex sync.Mutex
}

// NewMockEngine creates a mock engine with a neutral default reply.
func NewMockEngine() *MockEngine {
	return &MockEngine{
		DefaultReply: dialogue.Reply{
			Text: "Hm. Go on.",
			Analysis: dialogue.Analysis{
				Tone:            "neutral",
				InteractionType: "casual_conversation",
			},
		},
		EmbeddingDim: 8,
	}
}

// QueueReply appends a reply to return from the next Converse call.
func (m *MockEngine) QueueReply(r dialogue.Reply) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.replies = append(m.replies, r)
}

// Converse implements the dialogue.Engine interface.
func (m *MockEngine) Converse(ctx context.Context, prompt string, opts ...dialogue.Option) (dialogue.Reply, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return dialogue.Reply{}, m.Err
	}

	m.Prompts = append(m.Prompts, prompt)

	if len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		return r, nil
	}
	return m.DefaultReply, nil
}

// GenerateEmbeddings implements the dialogue.Engine interface with
// hash-derived deterministic vectors.
func (m *MockEngine) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	dim := m.EmbeddingDim
	if dim <= 0 {
		dim = 8
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New64a()
		h.Write([]byte(text))
		seed := h.Sum64()

		vec := make([]float32, dim)
		for j := range vec {
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[j] = float32(seed%2000)/1000.0 - 1.0
		}
		out[i] = vec
	}
	return out, nil
}
