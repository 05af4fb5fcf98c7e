package application

// SubmitCountCommand represents a single count submission
type SubmitCountCommand struct {
	ItemID   string
	Quantity int
	Notes    string
}

// SubmitBatchCommand represents an all-or-nothing batch submission
type SubmitBatchCommand struct {
	Counts []SubmitCountCommand
}

// DecideCountCommand identifies the count a reviewer is deciding on
type DecideCountCommand struct {
	CountID string
}

// ListCountsQuery represents the query to list counts with pagination
type ListCountsQuery struct {
	Status      string
	ItemID      string
	SubmittedBy string
	// Mine restricts results to the requesting user regardless of SubmittedBy
	Mine   bool
	Limit  int
	Offset int
}

// CreateItemCommand represents the command to create a catalog item
type CreateItemCommand struct {
	Name     string
	BaseUnit string
	ParLevel int
}

// UpdateItemCommand represents the command to update catalog fields
type UpdateItemCommand struct {
	ItemID   string
	Name     *string
	ParLevel *int
	IsActive *bool
}

// ListItemsQuery represents the query to list items with pagination
type ListItemsQuery struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// LoginCommand carries login credentials
type LoginCommand struct {
	Email    string
	Password string
}
