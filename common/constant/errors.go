// Package constant declares the sentinel business-error values shared between
// the domain packages and the HTTP error envelope (common/net/http).
package constant

import "errors"

// Sentinel errors corresponding to the error taxonomy kinds. Domain code
// compares against these with errors.Is; common.ValidateBusinessError turns
// them into the typed, HTTP-shaped errors in the common package.
var (
	ErrProjectExists       = errors.New("PROJECT_EXISTS")
	ErrProjectNotFound     = errors.New("PROJECT_NOT_FOUND")
	ErrRepositoryExists    = errors.New("REPOSITORY_EXISTS")
	ErrRepositoryNotFound  = errors.New("REPOSITORY_NOT_FOUND")
	ErrEntryNotFound       = errors.New("ENTRY_NOT_FOUND")
	ErrRevisionNotFound    = errors.New("REVISION_NOT_FOUND")
	ErrChangeConflict      = errors.New("CHANGE_CONFLICT")
	ErrRedundantChange     = errors.New("REDUNDANT_CHANGE")
	ErrQueryExecution      = errors.New("QUERY_EXECUTION")
	ErrReadOnly            = errors.New("READ_ONLY")
	ErrQuotaExceeded       = errors.New("QUOTA_EXCEEDED")
	ErrPermissionDenied    = errors.New("PERMISSION_DENIED")
	ErrUnauthenticated     = errors.New("UNAUTHENTICATED")
	ErrStorage             = errors.New("STORAGE")
	ErrReplicationDown     = errors.New("REPLICATION_UNAVAILABLE")
	ErrInternal            = errors.New("INTERNAL_SERVER_ERROR")
	ErrBadRequest          = errors.New("BAD_REQUEST")
	ErrUnexpectedFields    = errors.New("UNEXPECTED_FIELDS_IN_REQUEST")
	ErrMetadataKeyTooLong  = errors.New("METADATA_KEY_LENGTH_EXCEEDED")
	ErrMetadataValTooLong  = errors.New("METADATA_VALUE_LENGTH_EXCEEDED")
	ErrInvalidMetadataNest = errors.New("INVALID_METADATA_NESTING")
	ErrInvalidPathParam    = errors.New("INVALID_PATH_PARAMETER")
	ErrInvalidPathPattern  = errors.New("INVALID_PATH_PATTERN")
)
