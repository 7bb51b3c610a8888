package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/property-portfolio/internal/query"
	"github.com/property-portfolio/internal/types"
	"github.com/property-portfolio/internal/validation"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryRateLimit represents rate limit errors
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategoryAuthorization represents host and origin rejections
	CategoryAuthorization ErrorCategory = "authorization"
	// CategorySystem represents system errors (5xx)
	CategorySystem ErrorCategory = "system"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
)

// PostgreSQL SQLSTATE codes the service reacts to.
const (
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewValidationError wraps per-field errors. The field map becomes the details.
func NewValidationError(fields validation.FieldErrors) *CategorizedError {
	details := make(map[string]interface{}, len(fields))
	for field, msgs := range fields {
		details[field] = msgs
	}
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    "invalid input",
		Details:    details,
		Cause:      fields,
	}
}

// NewMalformedBodyError reports a body that could not be parsed at all.
func NewMalformedBodyError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "PARSE_ERROR",
		Message:    "malformed request body",
		Cause:      cause,
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id int64) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found: %d", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       strconv.FormatInt(id, 10),
		},
	}
}

// NewInvalidPageError reports a page number outside the collection.
func NewInvalidPageError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "INVALID_PAGE",
		Message:    query.ErrInvalidPage.Error(),
		Cause:      query.ErrInvalidPage,
	}
}

// NewRouteNotFoundError is returned for unknown paths.
func NewRouteNotFoundError(path string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("no route for %s", path),
	}
}

// NewMethodNotAllowedError is returned when the path exists but the verb does not.
func NewMethodNotAllowedError(method string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusMethodNotAllowed,
		Code:       "METHOD_NOT_ALLOWED",
		Message:    fmt.Sprintf("method %q not allowed", method),
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "request was throttled",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
		},
	}
}

// NewDisallowedHostError rejects a request whose Host is not allow-listed.
func NewDisallowedHostError(host string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusBadRequest,
		Code:       "DISALLOWED_HOST",
		Message:    fmt.Sprintf("invalid HTTP_HOST header: %q", host),
		Details: map[string]interface{}{
			"host": host,
		},
	}
}

// System Errors (5xx)

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// NewInvariantViolationError marks a write the storage layer refused even
// though it passed request validation.
func NewInvariantViolationError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    "stored data would violate an integrity rule",
		Cause:      cause,
	}
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	// If already categorized, return as-is
	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var fieldErrs validation.FieldErrors
	if stderrors.As(err, &fieldErrs) {
		return NewValidationError(fieldErrs)
	}

	if stderrors.Is(err, query.ErrInvalidPage) {
		return NewInvalidPageError()
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return categorizePgError(pgErr)
	}

	// Default to internal error
	return NewInternalError("unexpected error", err)
}

// categorizePgError maps constraint failures that escaped request validation.
func categorizePgError(err *pgconn.PgError) *CategorizedError {
	switch err.Code {
	case pgForeignKeyViolation:
		// The portfolio was deleted between the existence check and the write.
		return NewValidationError(validation.FieldErrors{
			"portfolio": {"Referenced portfolio does not exist."},
		})
	case pgCheckViolation:
		return NewInvariantViolationError(err)
	default:
		return NewDatabaseError(err.Code, err)
	}
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSystemError determines if an error is a system error (5xx)
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 500
}
