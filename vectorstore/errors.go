package vectorstore

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error types in vector store operations
type ErrorCode string

const (
	ErrCodeInitFailed        ErrorCode = "INIT_FAILED"
	ErrCodeAddFailed         ErrorCode = "ADD_FAILED"
	ErrCodeSearchFailed      ErrorCode = "SEARCH_FAILED"
	ErrCodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"
	ErrCodeDuplicateID       ErrorCode = "DUPLICATE_ID"
	ErrCodeModelMismatch     ErrorCode = "MODEL_MISMATCH"
	ErrCodeInvalidQuery      ErrorCode = "INVALID_QUERY"
	ErrCodeEmbeddingFailed   ErrorCode = "EMBEDDING_FAILED"
)

// VectorStoreError represents an error that occurred in vector store operations
type VectorStoreError struct {
	Code    ErrorCode
	Op      string
	Store   string
	Message string
	Err     error
}

func (e *VectorStoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (store: %s, operation: %s) - %v",
			e.Code, e.Message, e.Store, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s (store: %s, operation: %s)",
		e.Code, e.Message, e.Store, e.Op)
}

func (e *VectorStoreError) Unwrap() error {
	return e.Err
}

// CodeOf extracts the error code from err, or "" when err is not a
// VectorStoreError.
func CodeOf(err error) ErrorCode {
	var vsErr *VectorStoreError
	if errors.As(err, &vsErr) {
		return vsErr.Code
	}
	return ""
}

// Helper functions to create errors
func NewInitFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeInitFailed,
		Op:      "Init",
		Store:   store,
		Message: "failed to initialize store",
		Err:     err,
	}
}

func NewAddFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeAddFailed,
		Op:      "Put",
		Store:   store,
		Message: "failed to add documents",
		Err:     err,
	}
}

func NewSearchFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeSearchFailed,
		Op:      "QueryNearest",
		Store:   store,
		Message: "failed to perform similarity search",
		Err:     err,
	}
}

func NewDimensionMismatchError(store string, expected, got int) error {
	return &VectorStoreError{
		Code:    ErrCodeDimensionMismatch,
		Op:      "Put",
		Store:   store,
		Message: fmt.Sprintf("invalid vector dimensions: expected %d, got %d", expected, got),
	}
}

func NewDuplicateIDError(store string, id string) error {
	return &VectorStoreError{
		Code:    ErrCodeDuplicateID,
		Op:      "Put",
		Store:   store,
		Message: fmt.Sprintf("document id %q already exists", id),
	}
}

func NewModelMismatchError(store string, recorded, configured string) error {
	return &VectorStoreError{
		Code:  ErrCodeModelMismatch,
		Op:    "New",
		Store: store,
		Message: fmt.Sprintf("store was built with embedding model %q, embedder is configured for %q",
			recorded, configured),
	}
}

func NewInvalidQueryError(store string, details string) error {
	return &VectorStoreError{
		Code:    ErrCodeInvalidQuery,
		Op:      "QueryNearest",
		Store:   store,
		Message: fmt.Sprintf("invalid query: %s", details),
	}
}

func NewEmbeddingFailedError(store string, err error) error {
	return &VectorStoreError{
		Code:    ErrCodeEmbeddingFailed,
		Op:      "Embedding",
		Store:   store,
		Message: "failed to generate embeddings",
		Err:     err,
	}
}
