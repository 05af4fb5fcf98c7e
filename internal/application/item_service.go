package application

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/errors"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
)

// ItemApplicationService handles catalog management. Every mutation is gated
// on the acting role; CurrentQty is never writable through this service.
type ItemApplicationService struct {
	items  domain.ItemRepository
	counts domain.CountRepository
	logger *logging.Logger
}

// NewItemApplicationService creates a new ItemApplicationService
func NewItemApplicationService(
	items domain.ItemRepository,
	counts domain.CountRepository,
	logger *logging.Logger,
) *ItemApplicationService {
	return &ItemApplicationService{
		items:  items,
		counts: counts,
		logger: logger,
	}
}

// Create adds a new catalog item.
func (s *ItemApplicationService) Create(ctx context.Context, actor domain.Actor, cmd CreateItemCommand) (*ItemDTO, error) {
	if !actor.Role.CanManageItems() {
		return nil, errors.ErrForbidden("only managers and admins may manage items").Wrap(domain.ErrNotAuthorized)
	}

	item, err := domain.NewItem(cmd.Name, domain.BaseUnit(cmd.BaseUnit), cmd.ParLevel)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	if err := s.items.Create(ctx, item); err != nil {
		if stderrors.Is(err, domain.ErrItemNameTaken) {
			return nil, errors.ErrConflict("an item with this name already exists").WithDetail("name", cmd.Name)
		}
		s.logger.WithError(err).Error("Failed to create item", "name", cmd.Name)
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.logger.Info("Item created", "itemId", item.ID.Hex(), "name", item.Name, "createdBy", actor.UserID)
	return ToItemDTO(item), nil
}

// Update changes catalog fields of an existing item.
func (s *ItemApplicationService) Update(ctx context.Context, actor domain.Actor, cmd UpdateItemCommand) (*ItemDTO, error) {
	if !actor.Role.CanManageItems() {
		return nil, errors.ErrForbidden("only managers and admins may manage items").Wrap(domain.ErrNotAuthorized)
	}

	item, err := s.items.FindByID(ctx, cmd.ItemID)
	if err != nil {
		if stderrors.Is(err, domain.ErrItemNotFound) {
			return nil, errors.ErrNotFoundWithID("item", cmd.ItemID)
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}

	if cmd.Name != nil {
		if err := item.Rename(*cmd.Name); err != nil {
			return nil, errors.ErrValidation(err.Error())
		}
	}
	if cmd.ParLevel != nil {
		if err := item.SetParLevel(*cmd.ParLevel); err != nil {
			return nil, errors.ErrValidation(err.Error())
		}
	}
	if cmd.IsActive != nil {
		if *cmd.IsActive {
			item.Activate()
		} else {
			item.Deactivate()
		}
	}

	if err := s.items.Update(ctx, item); err != nil {
		if stderrors.Is(err, domain.ErrItemNameTaken) {
			return nil, errors.ErrConflict("an item with this name already exists")
		}
		if stderrors.Is(err, domain.ErrItemNotFound) {
			return nil, errors.ErrNotFoundWithID("item", cmd.ItemID)
		}
		s.logger.WithError(err).Error("Failed to update item", "itemId", cmd.ItemID)
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	s.logger.Info("Item updated", "itemId", cmd.ItemID, "updatedBy", actor.UserID)
	return ToItemDTO(item), nil
}

// Get returns a single item.
func (s *ItemApplicationService) Get(ctx context.Context, id string) (*ItemDTO, error) {
	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, domain.ErrItemNotFound) {
			return nil, errors.ErrNotFoundWithID("item", id)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return ToItemDTO(item), nil
}

// List returns a page of items.
func (s *ItemApplicationService) List(ctx context.Context, query ListItemsQuery) ([]*ItemDTO, int64, error) {
	filter := domain.ItemFilter{
		Search:     query.Search,
		ActiveOnly: query.ActiveOnly,
	}

	items, total, err := s.items.List(ctx, filter, query.Limit, query.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list items: %w", err)
	}

	dtos := make([]*ItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, ToItemDTO(item))
	}
	return dtos, total, nil
}

// Delete removes an item. Items with count history cannot be hard-deleted;
// they are deactivated instead so history stays resolvable.
func (s *ItemApplicationService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.Role.CanManageItems() {
		return errors.ErrForbidden("only managers and admins may manage items").Wrap(domain.ErrNotAuthorized)
	}

	item, err := s.items.FindByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, domain.ErrItemNotFound) {
			return errors.ErrNotFoundWithID("item", id)
		}
		return fmt.Errorf("failed to load item: %w", err)
	}

	hasCounts, err := s.counts.HasCountsForItem(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check count history: %w", err)
	}
	if hasCounts {
		return errors.ErrConflict("item has count history and cannot be deleted; deactivate it instead").
			WithDetail("itemId", id)
	}

	if err := s.items.Delete(ctx, id); err != nil {
		if stderrors.Is(err, domain.ErrItemNotFound) {
			return errors.ErrNotFoundWithID("item", id)
		}
		s.logger.WithError(err).Error("Failed to delete item", "itemId", id)
		return fmt.Errorf("failed to delete item: %w", err)
	}

	s.logger.Info("Item deleted", "itemId", id, "name", item.Name, "deletedBy", actor.UserID)
	return nil
}
