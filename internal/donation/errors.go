package donation

import "errors"

var (
	// ErrNotFound is returned when the donation does not exist.
	ErrNotFound = errors.New("donation not found")

	// ErrNotOwner is returned when a mutation is attempted by someone other
	// than the listing owner.
	ErrNotOwner = errors.New("not the listing owner")

	// ErrOwnListing is returned when an owner tries to express interest in
	// their own listing.
	ErrOwnListing = errors.New("cannot express interest in own listing")

	// ErrStockExhausted is returned when the remaining quantity is zero.
	ErrStockExhausted = errors.New("stock exhausted")

	// ErrInsufficientStock is returned when the remaining quantity is lower
	// than the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotPending is returned when a verify or reject targets a user who is
	// not currently in the pending set.
	ErrNotPending = errors.New("recipient is not pending")

	// ErrInvalidInput is returned for malformed listing data.
	ErrInvalidInput = errors.New("invalid input")
)
