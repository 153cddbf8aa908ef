// Package common defines shared sentinel errors and small helpers used across
// bottlemail components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Local precondition failures (blank letter body, oversized preferences).
	ErrValidation = errors.New("validation error")

	// Identity errors.
	ErrIdentityDegraded = errors.New("identity degraded")

	// Reconciliation: neither the local cache nor the server produced data.
	ErrNoData = errors.New("no data available")

	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
)
