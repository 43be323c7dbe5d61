// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them for
// programmatic error handling, messages are free to change. Handlers pick
// the most specific matching code and pass it to fail() with the
// corresponding status.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeInvalidOTP       = "invalid_otp"
	ErrCodeExpiredOTP       = "expired_otp"
	ErrCodeUserDisabled     = "user_disabled"
	ErrCodeUnknownChannel   = "unknown_channel"
	ErrCodeStageRegression  = "stage_regression"
	ErrCodeInvalidStage     = "invalid_stage"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
