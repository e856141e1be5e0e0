package errors

import "errors"

var (
	ErrNotFound = errors.New("attendance record not found")

	ErrInvalidID = errors.New("invalid attendance record ID format")

	ErrCapacityExceeded = errors.New("room capacity exceeded")

	ErrDuplicateToken = errors.New("idempotency token already recorded")
)

// Rejection reason codes. These are part of the API contract: clients and
// event consumers branch on them, so the strings never change.
const (
	ReasonPersonIneligible        = "PersonIneligible"
	ReasonRoomUnavailable         = "RoomUnavailable"
	ReasonAlreadyPresentElsewhere = "AlreadyPresentElsewhere"
	ReasonCapacityExceeded        = "CapacityExceeded"
	ReasonNoActivePresence        = "NoActivePresence"
	ReasonNotEligibleForCheckout  = "NotEligibleForCheckout"
)
