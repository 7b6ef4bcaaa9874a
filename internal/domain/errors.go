package domain

import "errors"

var (
	// ErrMissingCredentials signals that a required credential was not supplied.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidParameters signals plugin options that do not match their declared types.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrMissingCollection signals an enabled collection without a name.
	ErrMissingCollection = errors.New("missing collection name")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrSearchFailed signals a failed similarity search against one collection.
	ErrSearchFailed = errors.New("similarity search failed")
	// ErrMalformedRequest signals a request body that cannot be read or rewritten.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrUnsupportedRequest signals a request kind the pipeline does not handle.
	ErrUnsupportedRequest = errors.New("unsupported request kind")
)
