package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnauthenticated   = errors.New("caller is not authenticated")
	ErrUnauthorized      = errors.New("caller is not an admin")
	ErrDuplicateCode     = errors.New("activation code already exists")
	ErrInvalidOrUsedCode = errors.New("activation code is invalid or already used")
	ErrAlreadyRegistered = errors.New("email is already registered")
	ErrAccountDisabled   = errors.New("account is disabled")
	ErrAuthFailed        = errors.New("invalid email or password")

	// Infrastructure errors surfaced through the repository ports
	ErrStoreFailure       = errors.New("persistence operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context for database operation")
)
