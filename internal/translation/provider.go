package translation

import (
	"context"

	"lingua-flow-go/internal/types"
)

// ChunkRequest is one bounded piece of a translation call.
type ChunkRequest struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Provider translates a single chunk. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Kind() types.ProviderKind
	TranslateChunk(ctx context.Context, req ChunkRequest) (string, error)
}
