package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BaseUnit is the unit counts are reported in.
type BaseUnit string

const (
	UnitGram       BaseUnit = "g"
	UnitMilliliter BaseUnit = "ml"
	UnitPiece      BaseUnit = "pcs"
)

// IsValid reports whether u is a supported base unit.
func (u BaseUnit) IsValid() bool {
	switch u {
	case UnitGram, UnitMilliliter, UnitPiece:
		return true
	}
	return false
}

// Item is a catalog entry counts are submitted against. CurrentQty is the
// authoritative on-hand quantity and is written only by count approval.
type Item struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	NameLower  string             `bson:"nameLower" json:"-"`
	BaseUnit   BaseUnit           `bson:"baseUnit" json:"baseUnit"`
	ParLevel   int                `bson:"parLevel" json:"parLevel"`
	CurrentQty int                `bson:"currentQty" json:"currentQty"`
	IsActive   bool               `bson:"isActive" json:"isActive"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewItem creates an active item with zero on-hand quantity.
func NewItem(name string, unit BaseUnit, parLevel int) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingItemName
	}
	if !unit.IsValid() {
		return nil, ErrInvalidBaseUnit
	}
	if parLevel < 0 {
		return nil, ErrNegativeParLevel
	}

	now := time.Now().UTC()
	return &Item{
		Name:       name,
		NameLower:  strings.ToLower(name),
		BaseUnit:   unit,
		ParLevel:   parLevel,
		CurrentQty: 0,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsBelowPar is derived, never stored.
func (i *Item) IsBelowPar() bool {
	return i.CurrentQty < i.ParLevel
}

// Rename changes the item name, keeping the case-insensitive lookup key in sync.
func (i *Item) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrMissingItemName
	}
	i.Name = name
	i.NameLower = strings.ToLower(name)
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// SetParLevel updates the minimum desired on-hand quantity.
func (i *Item) SetParLevel(level int) error {
	if level < 0 {
		return ErrNegativeParLevel
	}
	i.ParLevel = level
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Deactivate hides the item from new submissions while keeping history.
func (i *Item) Deactivate() {
	i.IsActive = false
	i.UpdatedAt = time.Now().UTC()
}

// Activate makes the item eligible for submissions again.
func (i *Item) Activate() {
	i.IsActive = true
	i.UpdatedAt = time.Now().UTC()
}
