package service

import "errors"

// Typed outcomes returned by services. Handlers map these onto
// response.ErrCode so every rejection carries a specific reason.
var (
	ErrTestNotFound      = errors.New("test not found")
	ErrTestClosed        = errors.New("test is not accepting answers")
	ErrTestExpired       = errors.New("test window has expired")
	ErrAlreadyActive     = errors.New("test is already active")
	ErrNotActive         = errors.New("test is not active")
	ErrNotOwner          = errors.New("operator does not own this test")
	ErrEmptyBank         = errors.New("question bank is empty")
	ErrInvalidDuration   = errors.New("duration must be positive")
	ErrInvalidSampleSize = errors.New("sample size must not be negative")
	ErrCodeExhausted     = errors.New("could not allocate a unique test code")

	ErrInvalidCredentials = errors.New("invalid credentials")
)
