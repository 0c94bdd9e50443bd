package model

import "errors"

// Error kinds shared across packages. Callers wrap them with context and
// classify with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrEventNotFound  = errors.New("event not found")
	ErrEventExists    = errors.New("event already exists")
	ErrObjectNotFound = errors.New("object not found")
	ErrForbidden      = errors.New("forbidden")
	ErrStorageWrite   = errors.New("storage write failed")
	ErrStorageRead    = errors.New("storage read failed")
	ErrMetadataCommit = errors.New("metadata commit failed")
)
