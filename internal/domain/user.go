package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the RBAC role carried by an authenticated identity.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCounter Role = "counter"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCounter:
		return true
	}
	return false
}

// CanDecide is the single authorization predicate for count decisions:
// only admins and managers may approve or reject.
func (r Role) CanDecide() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanManageItems reports whether the role may mutate the item catalog.
func (r Role) CanManageItems() bool {
	return r == RoleAdmin || r == RoleManager
}

// User is a login identity with a role.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name" json:"name"`
	Role         Role               `bson:"role" json:"role"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Actor is the verified identity a request acts as. It is produced by token
// verification, never loaded from storage on the request path.
type Actor struct {
	UserID string
	Name   string
	Role   Role
}
