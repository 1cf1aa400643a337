package llm

import (
	"errors"
	"fmt"
)

// LLMError represents errors that can occur during generation
type LLMError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm.%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("llm.%s: %s", e.Op, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeInvalidInput      = "InvalidInput"
	ErrCodeRateLimitExceeded = "RateLimitExceeded"
	ErrCodeMissingCredential = "MissingCredential"
	ErrCodeAPIError          = "APIError"
	ErrCodeInternal          = "Internal"
)

// NewMissingCredentialError reports an absent API credential. Adapters fail
// with it at construction time, before any network call is attempted.
func NewMissingCredentialError(op, envVar string) error {
	return &LLMError{
		Op:      op,
		Code:    ErrCodeMissingCredential,
		Message: fmt.Sprintf("missing credential: set %s", envVar),
	}
}

// IsMissingCredential reports whether err is a missing-credential failure.
func IsMissingCredential(err error) bool {
	var llmErr *LLMError
	return errors.As(err, &llmErr) && llmErr.Code == ErrCodeMissingCredential
}
