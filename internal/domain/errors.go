package domain

import "errors"

// Count errors
var (
	// ErrCountNotFound is returned when a count id matches no record
	ErrCountNotFound = errors.New("count not found")

	// ErrCountAlreadyDecided is returned when a decision is attempted on a
	// count that is no longer pending
	ErrCountAlreadyDecided = errors.New("count already decided")

	// ErrInvalidQuantity is returned when a submitted quantity is negative
	ErrInvalidQuantity = errors.New("count quantity must be non-negative")

	// ErrMissingItemID is returned when a submission names no item
	ErrMissingItemID = errors.New("item id is required")

	// ErrMissingSubmitter is returned when a submission carries no identity
	ErrMissingSubmitter = errors.New("submitter id is required")

	// ErrEmptyBatch is returned when a batch submission has no entries
	ErrEmptyBatch = errors.New("batch must contain at least one submission")
)

// Item errors
var (
	// ErrItemNotFound is returned when an item id matches no record
	ErrItemNotFound = errors.New("item not found")

	// ErrItemInactive is returned when an operation requires an active item
	ErrItemInactive = errors.New("item is inactive")

	// ErrItemNameTaken is returned when an item name collides case-insensitively
	ErrItemNameTaken = errors.New("item name already exists")

	// ErrItemHasCounts blocks hard deletion of items with count history
	ErrItemHasCounts = errors.New("item has count history and cannot be deleted")

	// ErrMissingItemName is returned when an item name is empty
	ErrMissingItemName = errors.New("item name is required")

	// ErrInvalidBaseUnit is returned for units outside g, ml, pcs
	ErrInvalidBaseUnit = errors.New("invalid base unit")

	// ErrNegativeParLevel is returned when a par level is negative
	ErrNegativeParLevel = errors.New("par level must be non-negative")
)

// User errors
var (
	// ErrUserNotFound is returned when a user lookup misses
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned for bad email/password pairs and for
	// inactive users, without distinguishing which check failed
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAuthorized is returned when the acting role fails a gate
	ErrNotAuthorized = errors.New("role is not authorized for this operation")
)
