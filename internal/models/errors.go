package models

import "errors"

// Sentinel errors for the retrieval engine. Callers match with errors.Is;
// packages wrap them with fmt.Errorf("...: %w", ...) to add detail.
var (
	// ErrInvalidConfiguration signals bad chunking, weight, or BM25 parameters.
	// A caller bug: fatal, never retried.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDocumentUnreadable signals a source file that is missing or cannot be
	// parsed into text. Fatal for that ingestion run.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrEmbeddingService signals a failure of the external embedding provider.
	// Retryable at the ingestion level; surfaced as-is at query time.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrIndexNotReady signals a query against an index that was never built
	// or loaded. A deployment/ordering bug, not a transient condition.
	ErrIndexNotReady = errors.New("index not ready")

	// ErrInvalidMethod signals an unrecognized retrieval method.
	ErrInvalidMethod = errors.New("invalid retrieval method")
)
