package domain

import "context"

// CountFilter narrows count listings. Zero values mean "no filter".
type CountFilter struct {
	Status      CountStatus
	ItemID      string
	SubmittedBy string
}

// CountRepository defines the persistence contract for counts.
type CountRepository interface {
	// Create persists a single pending count.
	Create(ctx context.Context, count *Count) error

	// CreateBatch persists all counts or none of them.
	CreateBatch(ctx context.Context, counts []*Count) error

	// FindByID returns the count or ErrCountNotFound.
	FindByID(ctx context.Context, id string) (*Count, error)

	// List returns a page ordered by submittedAt descending plus the total
	// matching the filter.
	List(ctx context.Context, filter CountFilter, limit, offset int) ([]*Count, int64, error)

	// HasCountsForItem reports whether any count references the item.
	HasCountsForItem(ctx context.Context, itemID string) (bool, error)

	// Decide commits a reviewer decision. The transition is applied only if
	// the stored status is still pending (atomic check-and-set); an approval
	// also writes the item's current quantity in the same transaction, so a
	// failed quantity sync leaves the count pending. Returns
	// ErrCountNotFound or ErrCountAlreadyDecided on a lost race.
	Decide(ctx context.Context, count *Count) error
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Search     string
	ActiveOnly bool
}

// ItemRepository defines the persistence contract for catalog items.
type ItemRepository interface {
	// Create persists a new item; ErrItemNameTaken on a case-insensitive
	// name collision.
	Create(ctx context.Context, item *Item) error

	// Update persists catalog field changes (never CurrentQty).
	Update(ctx context.Context, item *Item) error

	// FindByID returns the item or ErrItemNotFound.
	FindByID(ctx context.Context, id string) (*Item, error)

	// List returns a page ordered by name plus the total matching the filter.
	List(ctx context.Context, filter ItemFilter, limit, offset int) ([]*Item, int64, error)

	// FindBelowPar returns active items with currentQty < parLevel, by name.
	FindBelowPar(ctx context.Context) ([]*Item, error)

	// Delete removes the item row. Callers must guard against count history.
	Delete(ctx context.Context, id string) error
}

// UserRepository defines the persistence contract for login identities.
type UserRepository interface {
	// FindByEmail returns the user or ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns the user or ErrUserNotFound.
	FindByID(ctx context.Context, id string) (*User, error)

	// Upsert creates the user or refreshes an existing one by email.
	Upsert(ctx context.Context, user *User) error
}
