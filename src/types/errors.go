package types

import "errors"

// Business-rule rejections. These are expected and frequent; components
// convert them into a Result with a user-facing message instead of letting
// them cross the boundary as failures.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrDuplicate            = errors.New("duplicate")
	ErrAlreadyParticipating = errors.New("already participating")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrPoolFull             = errors.New("pool full")
	ErrAlreadyVoted         = errors.New("already voted")

	// ErrExternalService marks channel/messaging/verification failures.
	ErrExternalService = errors.New("external service failure")
)

// Result is the envelope every produced operation returns. Business
// rejections land here with Success=false; only infrastructure failures
// surface as errors for the caller to log.
type Result struct {
	Success bool
	Message string
	// Action distinguishes jury toggle outcomes: joined, left, full, none.
	Action string
	// Count/Max carry pool occupancy for user-facing messages.
	Count int
	Max   int
	// IsFull is set by exactly one caller when a pool transitions to full.
	IsFull bool
	// ID of the entity the operation created or acted on, when relevant.
	ID string
}

// Fail builds a rejection result.
func Fail(msg string) Result { return Result{Success: false, Message: msg} }

// OK builds a success result.
func OK(msg string) Result { return Result{Success: true, Message: msg} }
