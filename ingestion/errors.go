package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrBasePathRequired is returned when the artifact root is empty.
	ErrBasePathRequired = errors.New("base path required")

	// ErrFilesystemRequired is returned when a nil filesystem is configured.
	ErrFilesystemRequired = errors.New("filesystem required")
)
