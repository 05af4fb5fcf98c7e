package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// CountSubmittedEvent is published when a new count enters the review queue
type CountSubmittedEvent struct {
	ItemID      string    `json:"itemId"`
	Quantity    int       `json:"quantity"`
	SubmittedBy string    `json:"submittedBy"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (e *CountSubmittedEvent) EventType() string     { return "pantrypal.count.submitted" }
func (e *CountSubmittedEvent) OccurredAt() time.Time { return e.SubmittedAt }

// CountApprovedEvent is published when a reviewer approves a pending count
type CountApprovedEvent struct {
	CountID       string    `json:"countId"`
	ItemID        string    `json:"itemId"`
	ApprovedCount int       `json:"approvedCount"`
	ApprovedBy    string    `json:"approvedBy"`
	ApprovedAt    time.Time `json:"approvedAt"`
}

func (e *CountApprovedEvent) EventType() string     { return "pantrypal.count.approved" }
func (e *CountApprovedEvent) OccurredAt() time.Time { return e.ApprovedAt }

// CountRejectedEvent is published when a reviewer rejects a pending count
type CountRejectedEvent struct {
	CountID    string    `json:"countId"`
	ItemID     string    `json:"itemId"`
	Quantity   int       `json:"quantity"`
	RejectedBy string    `json:"rejectedBy"`
	RejectedAt time.Time `json:"rejectedAt"`
}

func (e *CountRejectedEvent) EventType() string     { return "pantrypal.count.rejected" }
func (e *CountRejectedEvent) OccurredAt() time.Time { return e.RejectedAt }

// LowStockDetectedEvent is published when an approval lands an item below par
type LowStockDetectedEvent struct {
	ItemID     string    `json:"itemId"`
	Name       string    `json:"name"`
	CurrentQty int       `json:"currentQty"`
	ParLevel   int       `json:"parLevel"`
	DetectedAt time.Time `json:"detectedAt"`
}

func (e *LowStockDetectedEvent) EventType() string     { return "pantrypal.item.low-stock" }
func (e *LowStockDetectedEvent) OccurredAt() time.Time { return e.DetectedAt }
