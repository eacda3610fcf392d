package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/veilbrook/npcmem/pkg/dialogue"
	"github.com/veilbrook/npcmem/pkg/log"
)

var (
	// ErrInvalidConfig is returned when the adapter configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEmptyAPIKey is returned when the API key is missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
)

// analysisMarker separates the spoken reply from the structured analysis
// block in the model output.
const analysisMarker = "---ANALYSIS---"

const systemInstruction = `You are roleplaying an NPC. Stay in character and in first person.
After your reply, output the line ` + analysisMarker + ` followed by a single JSON object:
{"tone": "...", "interaction_type": "...", "relationship_deltas": {"trust": 0, "affection": 0, "fear": 0, "respect": 0, "familiarity": 0}}`

// Config holds the configuration for the OpenAI adapter.
type Config struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// EmbeddingModel is the model to use for embeddings.
	EmbeddingModel string
	// ChatModel is the model to use for chat completions.
	ChatModel string
	// BaseURL is the base URL for the OpenAI API (for testing).
	BaseURL string
}

// OpenAIAdapter implements the dialogue.Engine interface using the
// OpenAI API.
type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(config Config) (*OpenAIAdapter, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	if config.EmbeddingModel == "" {
		config.EmbeddingModel = "text-embedding-3-small"
	}
	if config.ChatModel == "" {
		config.ChatModel = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientConfig),
		embeddingModel: config.EmbeddingModel,
		chatModel:      config.ChatModel,
	}, nil
}

// GenerateEmbeddings generates embeddings for the given texts using the
// OpenAI API.
func (a *OpenAIAdapter) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	log.Debug("Generating embeddings", "count", len(texts), "model", a.embeddingModel)

	response, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(a.embeddingModel),
	})
	if err != nil {
		log.Error("Failed to generate embeddings", "error", err)
		return nil, err
	}

	embeddings := make([][]float32, len(response.Data))
	for i, data := range response.Data {
		embeddings[i] = data.Embedding
	}

	return embeddings, nil
}

// Converse implements the dialogue.Engine interface.
func (a *OpenAIAdapter) Converse(ctx context.Context, prompt string, opts ...dialogue.Option) (dialogue.Reply, error) {
	options := dialogue.DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	model := a.chatModel
	if options.Model != "" {
		model = options.Model
	}

	log.Debug("Generating dialogue turn", "model", model, "prompt_length", len(prompt))

	response, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
	})
	if err != nil {
		log.Error("Failed to generate dialogue turn", "error", err)
		return dialogue.Reply{}, err
	}

	if len(response.Choices) == 0 {
		return dialogue.Reply{}, errors.New("no response choices returned")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)

	log.Debug("Generated dialogue turn",
		"tokens", response.Usage.TotalTokens,
		"model", model)

	return parseReply(content), nil
}

// parseReply splits the model output into the spoken text and the
// analysis payload. A missing or malformed analysis block yields an
// empty Analysis; the ingestion boundary downstream turns that into a
// casual interaction with zero deltas.
func parseReply(content string) dialogue.Reply {
	text, block, found := strings.Cut(content, analysisMarker)
	reply := dialogue.Reply{Text: strings.TrimSpace(text)}
	if !found {
		return reply
	}

	block = strings.TrimSpace(block)
	if start := strings.Index(block, "{"); start >= 0 {
		if end := strings.LastIndex(block, "}"); end > start {
			var analysis dialogue.Analysis
			if err := json.Unmarshal([]byte(block[start:end+1]), &analysis); err != nil {
				log.Warn("Failed to parse analysis block", "error", err)
				return reply
			}
			reply.Analysis = analysis
		}
	}
	return reply
}
