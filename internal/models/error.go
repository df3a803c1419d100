package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidParam   = errors.New("invalid parameter")
	ErrInternalServer = errors.New("internal server error")

	// Credential failures
	ErrInvalidCredential = errors.New("invalid token")
	ErrInvalidAccess     = errors.New("invalid access")
	ErrExpired           = errors.New("credential expired")
	ErrReplayRejected    = errors.New("timestamp out of range")

	// Account state errors
	ErrAccountUnavailable = errors.New("account is unavailable")
	ErrAccountLocked      = errors.New("account is locked")
	ErrProfileIncomplete  = errors.New("incompletion of information")

	// App state errors
	ErrRestricted = errors.New("caller address restricted")

	// Request errors
	ErrEmptyOpens = errors.New("opens length error")
)
