// Package apperrors defines the sentinel errors shared across the engine.
// Callers match them with errors.Is after any number of fmt.Errorf %w wraps.
package apperrors

import "errors"

var (
	// ErrInvalidInput marks malformed probabilities, prices or payloads.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict marks an operation that clashes with current state, such
	// as a scan trigger while another scan is in flight.
	ErrConflict = errors.New("conflict")
	// ErrNoData marks a request for a market that has no snapshot yet.
	ErrNoData = errors.New("no market data")
	// ErrNotFound marks a missing record.
	ErrNotFound = errors.New("not found")
	// ErrPlatformUnavailable marks a transport failure of one market source.
	ErrPlatformUnavailable = errors.New("platform unavailable")
	// ErrEstimationFailed marks a failed probability estimation for one market.
	ErrEstimationFailed = errors.New("estimation failed")
	// ErrScanTimeout marks a scan that exceeded its overall deadline.
	ErrScanTimeout = errors.New("scan timed out")
	// ErrOrderRejected marks a trade rejected by the execution gateway.
	ErrOrderRejected = errors.New("order rejected")
	// ErrInsufficientFunds marks a trade exceeding the available bankroll.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrLockHeld marks a distributed lock already held by another party.
	ErrLockHeld = errors.New("lock already held")
)
