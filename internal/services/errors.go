// Package services defines the business logic for auth, tenants, and the
// conversation pipeline. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Auth-related errors.
var (
	// ErrEmailTaken is returned when registration reuses an existing email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on a failed login. It deliberately
	// does not distinguish unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserDisabled is returned when a deactivated user authenticates.
	ErrUserDisabled = errors.New("user disabled")

	// ErrInvalidOTP is returned when no matching unused code exists or the
	// supplied code does not verify against the stored hash.
	ErrInvalidOTP = errors.New("invalid verification code")

	// ErrExpiredOTP is returned when the latest unused code has expired.
	ErrExpiredOTP = errors.New("verification code expired")
)

// Conversation-related errors.
var (
	// ErrUnknownChannel is returned for a channel outside the supported set.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrMissingChannelUser is returned when the external user id is blank.
	ErrMissingChannelUser = errors.New("channel user id is required")

	// ErrEmptyMessage is returned when the inbound text is blank.
	ErrEmptyMessage = errors.New("message text is empty")
)

// Deal-related errors.
var (
	// ErrDealNotFound indicates the deal does not exist within the tenant.
	ErrDealNotFound = errors.New("deal not found")

	// ErrContactNotFound indicates the contact does not exist within the tenant.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvalidStage is returned for a stage value outside the funnel.
	ErrInvalidStage = errors.New("invalid deal stage")

	// ErrStageRegression is returned when an explicit stage write would move
	// a deal backwards through the funnel.
	ErrStageRegression = errors.New("deal stage cannot move backwards")
)

// Tenant-related errors.
var (
	// ErrTenantNotFound indicates the tenant does not exist.
	ErrTenantNotFound = errors.New("tenant not found")
)
