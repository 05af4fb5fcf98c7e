package application

import (
	"context"
	"fmt"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/errors"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
)

// DashboardApplicationService serves the read-only dashboard views.
type DashboardApplicationService struct {
	counts *CountApplicationService
	items  domain.ItemRepository
	logger *logging.Logger
}

// NewDashboardApplicationService creates a new DashboardApplicationService
func NewDashboardApplicationService(
	counts *CountApplicationService,
	items domain.ItemRepository,
	logger *logging.Logger,
) *DashboardApplicationService {
	return &DashboardApplicationService{
		counts: counts,
		items:  items,
		logger: logger,
	}
}

// PendingApprovals returns the review queue for deciders.
func (s *DashboardApplicationService) PendingApprovals(ctx context.Context, actor domain.Actor, limit, offset int) ([]*CountDTO, int64, error) {
	return s.counts.ListPending(ctx, actor, limit, offset)
}

// LowStock returns active items currently below their par level.
func (s *DashboardApplicationService) LowStock(ctx context.Context, actor domain.Actor) ([]*ItemDTO, error) {
	if !actor.Role.IsValid() {
		return nil, errors.ErrUnauthorized("")
	}

	items, err := s.items.FindBelowPar(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find low-stock items: %w", err)
	}

	dtos := make([]*ItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, ToItemDTO(item))
	}
	return dtos, nil
}

// MySubmissions returns the requesting user's own counts, newest first,
// optionally narrowed to a single status.
func (s *DashboardApplicationService) MySubmissions(ctx context.Context, actor domain.Actor, status string, limit, offset int) ([]*CountDTO, int64, error) {
	return s.counts.List(ctx, actor, ListCountsQuery{
		Status: status,
		Mine:   true,
		Limit:  limit,
		Offset: offset,
	})
}
