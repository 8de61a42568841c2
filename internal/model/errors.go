package model

import "errors"

var (
	// ErrNotFound is returned when a lot id does not exist.
	ErrNotFound = errors.New("lot not found")

	// ErrInvalidTransition is returned when a status update does not match
	// the lot's current state. Lot legs move strictly forward:
	// NONE -> BUY_SUBMITTED -> BOUGHT -> SELL_SUBMITTED -> SOLD.
	ErrInvalidTransition = errors.New("invalid lot status transition")
)
