// Package services implements the business logic of the relay: the license
// and activation state machine. This file centralizes service-level error
// values so they can be consistently returned by service methods and checked
// by callers.
//
// Translation into user-facing replies happens in the command layer; these
// values are the stable contract.
package services

import "errors"

var (
	// ErrInvalidKey is returned when an activation references a license key
	// that does not exist.
	ErrInvalidKey = errors.New("invalid license key")

	// ErrAlreadyRedeemed is returned when an activation references a license
	// key that has already been spent. Redemption is terminal; the key never
	// becomes usable again.
	ErrAlreadyRedeemed = errors.New("license key already redeemed")

	// ErrPermissionDenied is returned when the requester lacks the privilege
	// an operation requires (owner identity for issue/override).
	ErrPermissionDenied = errors.New("permission denied")
)
