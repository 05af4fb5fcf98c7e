package application

import "time"

// CountDTO represents a submitted count in responses. ItemName and
// SubmitterName are denormalized for display and may be empty if the
// referenced item or user no longer resolves.
type CountDTO struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"itemId"`
	ItemName      string     `json:"itemName,omitempty"`
	Quantity      int        `json:"count"`
	Status        string     `json:"status"`
	SubmittedBy   string     `json:"submittedBy"`
	SubmitterName string     `json:"submitterName,omitempty"`
	SubmittedAt   time.Time  `json:"submittedAt"`
	Notes         string     `json:"notes,omitempty"`
	ApprovedBy    *string    `json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
	ApprovedCount *int       `json:"approvedCount,omitempty"`
}

// ItemDTO represents a catalog item in responses
type ItemDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BaseUnit   string    `json:"baseUnit"`
	ParLevel   int       `json:"parLevel"`
	CurrentQty int       `json:"currentQty"`
	IsBelowPar bool      `json:"isBelowPar"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// UserDTO represents a login identity in responses
type UserDTO struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// LoginResultDTO carries the issued token and the authenticated user
type LoginResultDTO struct {
	AccessToken string  `json:"accessToken"`
	TokenType   string  `json:"tokenType"`
	User        UserDTO `json:"user"`
}
