package dialogue

import (
	"context"

	"github.com/veilbrook/npcmem/pkg/record"
	"github.com/veilbrook/npcmem/pkg/relationship"
)

// Option is a function that configures a dialogue request.
type Option func(*Options)

// Options holds configuration for a dialogue request.
type Options struct {
	// Temperature controls randomness in generation (0.0-1.0)
	Temperature float64

	// MaxTokens limits the length of the generated response
	MaxTokens int

	// Model specifies which model variant to use
	Model string
}

// DefaultOptions returns default dialogue options.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		MaxTokens:   1024,
		Model:       "", // Empty means use the adapter's default
	}
}

// WithTemperature sets the temperature option.
func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// WithMaxTokens sets the max tokens option.
func WithMaxTokens(tokens int) Option {
	return func(o *Options) {
		o.MaxTokens = tokens
	}
}

// WithModel sets the model option.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Analysis is the structured payload the dialogue model returns next to
// its free-form reply. Every field is untrusted model output until it
// passes through Ingest.
type Analysis struct {
	// Tone is a free-form description of the NPC's delivery
	Tone string `json:"tone"`

	// InteractionType is the model's proposed event classification
	InteractionType string `json:"interaction_type"`

	// Deltas are proposed relationship dimension changes, keyed by
	// dimension name
	Deltas map[string]float64 `json:"relationship_deltas"`
}

// Reply is a generated dialogue turn.
type Reply struct {
	// Text is the NPC's spoken line(s)
	Text string

	// Analysis is the structured turn analysis
	Analysis Analysis
}

// Engine is the interface to the language model behind the NPC. The
// memory engine treats it as a black box that turns a composed context
// into a reply plus analysis, and as the embedding oracle for semantic
// queries.
type Engine interface {
	// Converse sends a composed context to the model and returns the
	// reply with its analysis payload.
	Converse(ctx context.Context, prompt string, opts ...Option) (Reply, error)

	// GenerateEmbeddings creates vector embeddings for the provided texts.
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Ingest is the validation boundary between model output and the typed
// engine. The proposed classification collapses to the closed event
// vocabulary (unknown values become casual conversation) and the deltas
// are clamped to the per-turn maxima. Free-form model strings never
// reach the record model.
func Ingest(a Analysis, clamp relationship.ClampConfig) (record.EventType, relationship.Delta) {
	et := record.Normalize(a.InteractionType)

	d := relationship.Delta{
		Trust:       a.Deltas["trust"],
		Affection:   a.Deltas["affection"],
		Fear:        a.Deltas["fear"],
		Respect:     a.Deltas["respect"],
		Familiarity: a.Deltas["familiarity"],
	}
	return et, d.Clamp(clamp)
}
