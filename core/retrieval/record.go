package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Kind identifies which catalog object a record was embedded from.
type Kind string

const (
	KindCourse   Kind = "course"
	KindChapter  Kind = "chapter"
	KindQuiz     Kind = "quiz"
	KindQuestion Kind = "question"
)

// Metadata describes the catalog object behind a record.
type Metadata struct {
	Kind      Kind     `json:"kind"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug"`
	ParentIDs []string `json:"parent_ids,omitempty"`
}

// Record is one embedded piece of catalog content. Records are immutable
// once embedded; updates are full replacements keyed by ID.
type Record struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	Vector   []float32 `json:"-"`
	Metadata Metadata  `json:"metadata"`
}

// SearchResult is one ranked hit from similarity search.
type SearchResult struct {
	Record *Record `json:"record"`
	Score  float64 `json:"score"`
}

// Embedder generates embeddings through the external embedding service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Repository is the durable backing for records, used only at
// initialization and during explicit backfill.
type Repository interface {
	List(ctx context.Context) ([]*Record, error)
	Upsert(ctx context.Context, records []*Record) error
}

// ContentID derives a deterministic record id from a kind and source id,
// so repeated backfills upsert rather than duplicate.
func ContentID(kind Kind, sourceID string) string {
	sum := sha256.Sum256([]byte(string(kind) + ":" + sourceID))
	return hex.EncodeToString(sum[:])[:32]
}
