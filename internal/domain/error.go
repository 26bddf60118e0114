package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidTransition    = errors.New("invalid transaction status transition")
	ErrGatewayNotConfigured = errors.New("payment gateway is not configured: provision a receiving wallet or set the processor secret key")
	ErrUpstream             = errors.New("upstream provider error")
	ErrUnsupported          = errors.New("operation not supported for this payment method")
	ErrInvalidSignature     = errors.New("webhook signature invalid or missing")

	// Persistence errors surfaced through repositories
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")
)
