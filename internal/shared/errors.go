package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrInvalidToken     = fmt.Errorf("invalid access token")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// Catalog errors
	ErrModuleNotFound      = fmt.Errorf("module not found")
	ErrEmptyModule         = fmt.Errorf("module has no submodules")
	ErrInvalidSubmodule    = fmt.Errorf("submodule index out of range")
	ErrInvalidCatalog      = fmt.Errorf("invalid catalog")
	ErrSlugCollision       = fmt.Errorf("slug collision")
	ErrEmptySlug           = fmt.Errorf("title produces an empty slug")
	ErrDuplicateModuleID   = fmt.Errorf("duplicate module id")
	ErrIncompatibleCatalog = fmt.Errorf("incompatible catalog version")

	// Store errors
	ErrStoreUnavailable    = fmt.Errorf("progress store unavailable")
	ErrStoreTimeout        = fmt.Errorf("%w: operation timed out", ErrStoreUnavailable)
	ErrDocumentNotFound    = fmt.Errorf("document not found")
	ErrInconsistentPointer = fmt.Errorf("resume pointer references a missing module")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsRetryable reports whether err is a transient store failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
