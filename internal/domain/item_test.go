package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewItem(t *testing.T) {
	tests := []struct {
		name        string
		itemName    string
		unit        BaseUnit
		parLevel    int
		expectError error
	}{
		{
			name:     "Valid item",
			itemName: "Tomatoes",
			unit:     UnitPiece,
			parLevel: 8,
		},
		{
			name:     "Name is trimmed",
			itemName: "  Cooking Oil  ",
			unit:     UnitMilliliter,
			parLevel: 1200,
		},
		{
			name:        "Missing name",
			itemName:    "   ",
			unit:        UnitGram,
			parLevel:    10,
			expectError: ErrMissingItemName,
		},
		{
			name:        "Unknown unit",
			itemName:    "Flour",
			unit:        BaseUnit("kg"),
			parLevel:    10,
			expectError: ErrInvalidBaseUnit,
		},
		{
			name:        "Negative par level",
			itemName:    "Flour",
			unit:        UnitGram,
			parLevel:    -1,
			expectError: ErrNegativeParLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewItem(tt.itemName, tt.unit, tt.parLevel)

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, item)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, item)
			assert.True(t, item.IsActive)
			assert.Equal(t, 0, item.CurrentQty)
			assert.NotContains(t, item.Name, "  ")
			assert.NotZero(t, item.CreatedAt)
		})
	}
}

func TestItemIsBelowPar(t *testing.T) {
	item, err := NewItem("Onions", UnitPiece, 18)
	require.NoError(t, err)

	item.CurrentQty = 17
	assert.True(t, item.IsBelowPar())

	item.CurrentQty = 18
	assert.False(t, item.IsBelowPar())

	item.CurrentQty = 20
	assert.False(t, item.IsBelowPar())
}

func TestItemRename(t *testing.T) {
	item, err := NewItem("Tomatoes", UnitPiece, 8)
	require.NoError(t, err)

	require.NoError(t, item.Rename("Cherry Tomatoes"))
	assert.Equal(t, "Cherry Tomatoes", item.Name)
	assert.Equal(t, "cherry tomatoes", item.NameLower)

	assert.ErrorIs(t, item.Rename("   "), ErrMissingItemName)
	assert.Equal(t, "Cherry Tomatoes", item.Name)
}

func TestItemSetParLevel(t *testing.T) {
	item, err := NewItem("Tomatoes", UnitPiece, 8)
	require.NoError(t, err)

	require.NoError(t, item.SetParLevel(12))
	assert.Equal(t, 12, item.ParLevel)

	assert.ErrorIs(t, item.SetParLevel(-3), ErrNegativeParLevel)
	assert.Equal(t, 12, item.ParLevel)
}

func TestItemActivation(t *testing.T) {
	item, err := NewItem("Tomatoes", UnitPiece, 8)
	require.NoError(t, err)
	require.True(t, item.IsActive)

	item.Deactivate()
	assert.False(t, item.IsActive)

	item.Activate()
	assert.True(t, item.IsActive)
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RoleAdmin.CanDecide())
	assert.True(t, RoleManager.CanDecide())
	assert.False(t, RoleCounter.CanDecide())
	assert.False(t, Role("viewer").CanDecide())

	assert.True(t, RoleAdmin.CanManageItems())
	assert.True(t, RoleManager.CanManageItems())
	assert.False(t, RoleCounter.CanManageItems())

	assert.True(t, RoleCounter.IsValid())
	assert.False(t, Role("viewer").IsValid())
}
