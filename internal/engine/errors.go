package engine

import "errors"

// Collaborator error contract. Remote adapters map wire business codes onto
// these sentinels so the state machine can branch without knowing transport
// detail.
var (
	// ErrUnauthenticated means the session is missing or rejected.
	// Transient: retriable after login.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrAlreadyAttempted is the distinguished duplicate-attempt signal:
	// the server reports the user already holds an order for the offer.
	// Converged to success-shaped local state, never shown as an error.
	ErrAlreadyAttempted = errors.New("purchase already attempted")

	// ErrNotLive means the sale window is not open (not started, ended,
	// or withdrawn) according to the backend.
	ErrNotLive = errors.New("sale not live")

	// ErrOutOfStock means the stock is exhausted. Terminal for the offer.
	ErrOutOfStock = errors.New("out of stock")

	// ErrRateLimited means the backend rejected the request as too
	// frequent. Transient.
	ErrRateLimited = errors.New("rate limited")

	// ErrOrderNotReady means the order has not materialized yet. Expected
	// during the confirmation window, not exceptional.
	ErrOrderNotReady = errors.New("order not visible yet")
)
