package badger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/poiesic/kernelci/core"
	"github.com/poiesic/kernelci/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{
		backend: backend,
	}
}

// Close releases resources. DocumentRepository has no resources to release;
// the backend is owned by the caller.
func (r *DocumentRepository) Close() error {
	return nil
}

// Save upserts all documents within one write transaction.
func (r *DocumentRepository) Save(ctx context.Context, docs ...core.Document) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	// Validate and encode everything before opening the transaction
	keys := make([][]byte, len(docs))
	values := make([][]byte, len(docs))
	for i, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return 0, err
		}
		key, ok := makeDocumentKey(doc)
		if !ok {
			return 0, fmt.Errorf("%w: kind %q", storage.ErrUnsupportedDocument, doc.Kind())
		}
		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return 0, err
		}
		keys[i] = key
		values[i] = value
	}

	if err := r.backend.PutAll(ctx, keys, values); err != nil {
		return 0, err
	}

	r.backend.logger.Debug("saved documents", "count", len(docs))
	return len(docs), nil
}

// GetJob retrieves a single job by ID.
func (r *DocumentRepository) GetJob(ctx context.Context, id string) (*core.Job, error) {
	data, err := r.backend.Get(makeJobKey(id))
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalJob(data)
}

// GetVariant retrieves one variant of a job.
func (r *DocumentRepository) GetVariant(ctx context.Context, jobID, id string) (*core.Variant, error) {
	data, err := r.backend.Get(makeVariantKey(jobID, id))
	if err != nil {
		return nil, err
	}
	return storage.UnmarshalVariant(data)
}

// GetVariants retrieves all variants referencing jobID in key order.
func (r *DocumentRepository) GetVariants(ctx context.Context, jobID string) ([]*core.Variant, error) {
	prefix := makeVariantJobPrefix(jobID)
	results := []*core.Variant{}
	err := r.backend.ScanPrefix(ctx, prefix, func(key, value []byte) error {
		// Variant names never contain a separator, so deeper keys belong to another job
		if bytes.IndexByte(key[len(prefix):], '/') >= 0 {
			return nil
		}
		variant, err := storage.UnmarshalVariant(value)
		if err != nil {
			return err
		}
		results = append(results, variant)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
