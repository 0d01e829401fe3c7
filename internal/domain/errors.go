package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals an embedding dimension mismatch between
	// index-time and query-time vectors. Silent mismatch would corrupt
	// distance semantics, so this always fails fast.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a text generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrMalformedExtraction signals generator output that matches none of
	// the known knowledge shapes.
	ErrMalformedExtraction = errors.New("malformed knowledge extraction")
)
