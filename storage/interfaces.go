package storage

import (
	"context"

	"github.com/poiesic/kernelci/core"
)

// DocumentRepository persists imported documents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// Save upserts all documents in a single unit of work.
	// Each document is validated first; an invalid document fails the whole batch.
	// Returns the number of documents written.
	Save(ctx context.Context, docs ...core.Document) (int, error)

	// GetJob retrieves a Job by its ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id string) (*core.Job, error)

	// GetVariant retrieves one Variant of a job.
	// Returns ErrNotFound if the variant doesn't exist.
	GetVariant(ctx context.Context, jobID, id string) (*core.Variant, error)

	// GetVariants retrieves every Variant referencing jobID, ordered by variant ID.
	// Returns an empty slice when the job has no variants.
	GetVariants(ctx context.Context, jobID string) ([]*core.Variant, error)

	// Close releases resources held by the repository.
	Close() error
}
