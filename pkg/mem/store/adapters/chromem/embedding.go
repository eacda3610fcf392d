package chromem

import (
	"context"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/veilbrook/npcmem/pkg/dialogue"
	"github.com/veilbrook/npcmem/pkg/errors"
)

// EmbeddingFuncFromEngine adapts a dialogue engine's embedding oracle to
// chromem's EmbeddingFunc, so documents and query texts embed through
// the same model the rest of the system uses.
func EmbeddingFuncFromEngine(e dialogue.Engine) chromemgo.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		embeddings, err := e.GenerateEmbeddings(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(embeddings) == 0 {
			return nil, errors.Wrap(errors.ErrInvalidInput, "engine returned no embedding")
		}
		return embeddings[0], nil
	}
}
