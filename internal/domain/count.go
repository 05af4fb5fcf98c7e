package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CountStatus is the review state of a submitted count.
type CountStatus string

const (
	StatusPending  CountStatus = "pending"
	StatusApproved CountStatus = "approved"
	StatusRejected CountStatus = "rejected"
)

// IsValid reports whether s is a known status.
func (s CountStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether s permits no further transitions.
func (s CountStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Count is the aggregate root for a single submitted stock count.
// The only legal transitions are pending->approved and pending->rejected;
// both are terminal. The quantity locked in at approval time is snapshotted
// into ApprovedCount so later edits to the raw count can never change what
// was approved.
type Count struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID string             `bson:"itemId" json:"itemId"`

	// Quantity reported by the submitter, in the item's base unit.
	Quantity int `bson:"count" json:"count"`

	Status CountStatus `bson:"status" json:"status"`

	SubmittedBy string    `bson:"submittedBy" json:"submittedBy"`
	SubmittedAt time.Time `bson:"submittedAt" json:"submittedAt"`
	Notes       string    `bson:"notes,omitempty" json:"notes,omitempty"`

	// Reviewer decision fields, nil until a decision is made. ApprovedBy and
	// ApprovedAt record who decided and when for rejections too.
	ApprovedBy    *string    `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	ApprovedCount *int       `bson:"approvedCount,omitempty" json:"approvedCount,omitempty"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewCount creates a pending count for an item.
func NewCount(itemID, submitterID string, quantity int, notes string) (*Count, error) {
	if itemID == "" {
		return nil, ErrMissingItemID
	}
	if submitterID == "" {
		return nil, ErrMissingSubmitter
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	now := time.Now().UTC()
	c := &Count{
		ItemID:       itemID,
		Quantity:     quantity,
		Status:       StatusPending,
		SubmittedBy:  submitterID,
		SubmittedAt:  now,
		Notes:        notes,
		DomainEvents: make([]DomainEvent, 0),
	}

	c.AddDomainEvent(&CountSubmittedEvent{
		ItemID:      itemID,
		Quantity:    quantity,
		SubmittedBy: submitterID,
		SubmittedAt: now,
	})

	return c, nil
}

// IsPending reports whether the count still awaits a decision.
func (c *Count) IsPending() bool {
	return c.Status == StatusPending
}

// Approve transitions the count to approved and snapshots the quantity.
func (c *Count) Approve(reviewerID string, at time.Time) error {
	if c.Status != StatusPending {
		return ErrCountAlreadyDecided
	}

	approved := c.Quantity
	c.Status = StatusApproved
	c.ApprovedBy = &reviewerID
	c.ApprovedAt = &at
	c.ApprovedCount = &approved

	c.AddDomainEvent(&CountApprovedEvent{
		CountID:       c.ID.Hex(),
		ItemID:        c.ItemID,
		ApprovedCount: approved,
		ApprovedBy:    reviewerID,
		ApprovedAt:    at,
	})

	return nil
}

// Reject transitions the count to rejected. The reviewer identity is still
// recorded; ApprovedCount stays nil.
func (c *Count) Reject(reviewerID string, at time.Time) error {
	if c.Status != StatusPending {
		return ErrCountAlreadyDecided
	}

	c.Status = StatusRejected
	c.ApprovedBy = &reviewerID
	c.ApprovedAt = &at

	c.AddDomainEvent(&CountRejectedEvent{
		CountID:    c.ID.Hex(),
		ItemID:     c.ItemID,
		Quantity:   c.Quantity,
		RejectedBy: reviewerID,
		RejectedAt: at,
	})

	return nil
}

// AddDomainEvent records an event to be published after persistence.
func (c *Count) AddDomainEvent(event DomainEvent) {
	c.DomainEvents = append(c.DomainEvents, event)
}

// GetDomainEvents returns the recorded events.
func (c *Count) GetDomainEvents() []DomainEvent {
	return c.DomainEvents
}

// ClearDomainEvents drops recorded events once they are persisted.
func (c *Count) ClearDomainEvents() {
	c.DomainEvents = make([]DomainEvent, 0)
}
