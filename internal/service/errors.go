package service

import (
	"errors"
	"fmt"

	"verification-service/internal/models"
)

var (
	// ErrNotFound means the referenced transaction or order does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor fails the tenant verification gate or is
	// not the resource owner or a super-admin.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyProcessed is the race-safety signal: another concurrent actor
	// won the terminal transition. Callers should refresh their view rather
	// than treat this as a hard failure.
	ErrAlreadyProcessed = errors.New("transaction already processed by another actor")
)

// ValidationError reports malformed input, e.g. a rejection reason that is too
// short or a non-positive quantity.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Msg
}

// InvalidStateTransitionError reports a ledger transition that is not legal
// from the transaction's current state. The current state is carried so the
// caller can resynchronize its view.
type InvalidStateTransitionError struct {
	Current   models.TransactionStatus
	Attempted models.TransactionStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid transition to %s: transaction is %s", e.Attempted, e.Current)
}

// InvalidFulfillmentTransitionError reports an out-of-sequence fulfillment
// transition request.
type InvalidFulfillmentTransitionError struct {
	Current   models.FulfillmentStatus
	Attempted models.FulfillmentStatus
}

func (e *InvalidFulfillmentTransitionError) Error() string {
	return fmt.Sprintf("invalid fulfillment transition to %s: order is %s", e.Attempted, e.Current)
}
