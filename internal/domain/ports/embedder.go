// Package ports defines the interfaces the retain/recall pipelines consume
// from external collaborators (LLM transport, embedder, entity resolver,
// task backend, query analyzer, persistence). Implementations live under
// internal/infrastructure.
package ports

import "context"

// Embedder generates fixed-dimension vector embeddings for text, preserving
// input order. The embedding model itself is an external black box; this
// interface is the only contract the core depends on.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
