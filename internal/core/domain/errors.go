package domain

import "errors"

var (
	// ErrNoteNotFound ...
	ErrNoteNotFound = errors.New("note not found")
	// ErrNoteMissingCommitment ...
	ErrNoteMissingCommitment = errors.New("note commitment must not be empty")
	// ErrNoteInvalidAmount ...
	ErrNoteInvalidAmount = errors.New("note amount must be greater than zero")
	// ErrInvalidNoteTransition is returned when a status change breaks the
	// note lifecycle.
	ErrInvalidNoteTransition = errors.New("invalid note status transition")
	// ErrNoteOwnerMismatch is returned when a note is addressed with the wrong
	// wallet or chain.
	ErrNoteOwnerMismatch = errors.New("note does not belong to account")
)

var (
	// ErrOrderNotFound ...
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateOrder ...
	ErrDuplicateOrder = errors.New("order already exists")
	// ErrInvalidOrderTransition is returned when a status change breaks the
	// order state machine.
	ErrInvalidOrderTransition = errors.New("invalid order status transition")
	// ErrOrderNotCancellable ...
	ErrOrderNotCancellable = errors.New("order can not be cancelled")
)

var (
	// ErrAssetPairNotFound ...
	ErrAssetPairNotFound = errors.New("asset pair not found")
)
