package model

import (
	"errors"
	"strings"
)

// Error codes for HTTP responses beyond the generic ones in httputil.
const (
	CodeRateLimited        = "RATE_LIMITED"
	CodeAlreadyReported    = "ALREADY_REPORTED"
	CodeAlreadyUpvoted     = "ALREADY_UPVOTED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeInvalidMediaType   = "INVALID_MEDIA_TYPE"
)

// Domain errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMarkerNotFound     = errors.New("marker not found")
	ErrUnauthorized       = errors.New("magic code does not match")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrAlreadyReported    = errors.New("already reported")
	ErrAlreadyUpvoted     = errors.New("already upvoted")
	ErrMagicCodeRequired  = errors.New("magic code is required")
	ErrServiceUnavailable = errors.New("dependency unavailable")
	ErrConnection         = errors.New("websocket upgrade failed")
	ErrFileTooLarge       = errors.New("file too large")
	ErrInvalidMediaType   = errors.New("invalid media type")
	ErrBlobStoreDisabled  = errors.New("blob store not configured")
)

// ValidationError lists every problem found in a request.
// errors.Is(err, ErrInvalidInput) holds for any *ValidationError.
type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrInvalidInput.Error()
	}
	return strings.Join(e.Problems, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
