package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/errors"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/metrics"
)

// CountApplicationService handles the count review workflow: submission,
// listing and reviewer decisions.
type CountApplicationService struct {
	counts  domain.CountRepository
	items   domain.ItemRepository
	users   domain.UserRepository
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewCountApplicationService creates a new CountApplicationService
func NewCountApplicationService(
	counts domain.CountRepository,
	items domain.ItemRepository,
	users domain.UserRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *CountApplicationService {
	return &CountApplicationService{
		counts:  counts,
		items:   items,
		users:   users,
		logger:  logger,
		metrics: m,
	}
}

// Submit records a single pending count for an active item.
func (s *CountApplicationService) Submit(ctx context.Context, actor domain.Actor, cmd SubmitCountCommand) (*CountDTO, error) {
	count, err := s.buildCount(ctx, actor, cmd)
	if err != nil {
		return nil, err
	}

	if err := s.counts.Create(ctx, count); err != nil {
		s.logger.WithError(err).Error("Failed to create count", "itemId", cmd.ItemID)
		return nil, fmt.Errorf("failed to create count: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordCountSubmitted()
	}

	s.logger.Info("Count submitted",
		"countId", count.ID.Hex(),
		"itemId", count.ItemID,
		"quantity", count.Quantity,
		"submittedBy", actor.UserID,
	)
	return ToCountDTO(count), nil
}

// SubmitBatch records several counts atomically: every entry is validated
// before anything is persisted, and a single bad entry fails the whole batch.
func (s *CountApplicationService) SubmitBatch(ctx context.Context, actor domain.Actor, cmd SubmitBatchCommand) ([]*CountDTO, error) {
	if len(cmd.Counts) == 0 {
		return nil, errors.ErrValidation("batch must contain at least one submission")
	}

	counts := make([]*domain.Count, 0, len(cmd.Counts))
	for i, entry := range cmd.Counts {
		count, err := s.buildCount(ctx, actor, entry)
		if err != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				return nil, appErr.WithDetail("index", fmt.Sprintf("%d", i))
			}
			return nil, err
		}
		counts = append(counts, count)
	}

	if err := s.counts.CreateBatch(ctx, counts); err != nil {
		s.logger.WithError(err).Error("Failed to create count batch", "size", len(counts))
		return nil, fmt.Errorf("failed to create counts: %w", err)
	}

	if s.metrics != nil {
		for range counts {
			s.metrics.RecordCountSubmitted()
		}
	}

	s.logger.Info("Count batch submitted", "size", len(counts), "submittedBy", actor.UserID)

	dtos := make([]*CountDTO, 0, len(counts))
	for _, count := range counts {
		dtos = append(dtos, ToCountDTO(count))
	}
	return dtos, nil
}

// buildCount validates a single submission against the catalog and produces
// a pending aggregate.
func (s *CountApplicationService) buildCount(ctx context.Context, actor domain.Actor, cmd SubmitCountCommand) (*domain.Count, error) {
	if cmd.ItemID == "" {
		return nil, errors.ErrValidation("itemId is required")
	}

	item, err := s.items.FindByID(ctx, cmd.ItemID)
	if err != nil {
		if stderrors.Is(err, domain.ErrItemNotFound) {
			return nil, errors.ErrNotFoundWithID("item", cmd.ItemID)
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if !item.IsActive {
		// Submitting against a deactivated item is a state conflict, not a
		// malformed request.
		return nil, errors.ErrConflict("item is inactive").Wrap(domain.ErrItemInactive).WithDetail("itemId", cmd.ItemID)
	}

	count, err := domain.NewCount(cmd.ItemID, actor.UserID, cmd.Quantity, cmd.Notes)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	return count, nil
}

// Get returns a single count by id.
func (s *CountApplicationService) Get(ctx context.Context, query string) (*CountDTO, error) {
	count, err := s.counts.FindByID(ctx, query)
	if err != nil {
		if stderrors.Is(err, domain.ErrCountNotFound) {
			return nil, errors.ErrNotFoundWithID("count", query)
		}
		return nil, fmt.Errorf("failed to get count: %w", err)
	}
	return s.enrich(ctx, ToCountDTO(count)), nil
}

// List returns a page of counts. Mine pins the submitter filter to the
// requesting user and overrides any explicit SubmittedBy value.
func (s *CountApplicationService) List(ctx context.Context, actor domain.Actor, query ListCountsQuery) ([]*CountDTO, int64, error) {
	filter := domain.CountFilter{
		Status:      domain.CountStatus(query.Status),
		ItemID:      query.ItemID,
		SubmittedBy: query.SubmittedBy,
	}
	if query.Mine {
		filter.SubmittedBy = actor.UserID
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, errors.ErrValidation("status must be one of: pending, approved, rejected")
	}

	counts, total, err := s.counts.List(ctx, filter, query.Limit, query.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list counts: %w", err)
	}

	dtos := make([]*CountDTO, 0, len(counts))
	for _, count := range counts {
		dtos = append(dtos, ToCountDTO(count))
	}
	s.enrichAll(ctx, dtos)
	return dtos, total, nil
}

// ListPending returns the review queue, oldest page ordering preserved
// (newest first). Only deciders may see it.
func (s *CountApplicationService) ListPending(ctx context.Context, actor domain.Actor, limit, offset int) ([]*CountDTO, int64, error) {
	if !actor.Role.CanDecide() {
		return nil, 0, errors.ErrForbidden("only managers and admins may review counts").Wrap(domain.ErrNotAuthorized)
	}

	return s.List(ctx, actor, ListCountsQuery{
		Status: string(domain.StatusPending),
		Limit:  limit,
		Offset: offset,
	})
}

// Approve transitions a pending count to approved and syncs the item's
// authoritative quantity. The role gate runs before any lookup so an
// unauthorized caller learns nothing about whether the count exists.
func (s *CountApplicationService) Approve(ctx context.Context, actor domain.Actor, cmd DecideCountCommand) (*CountDTO, error) {
	if !actor.Role.CanDecide() {
		return nil, errors.ErrForbidden("only managers and admins may approve counts").Wrap(domain.ErrNotAuthorized)
	}

	count, err := s.counts.FindByID(ctx, cmd.CountID)
	if err != nil {
		if stderrors.Is(err, domain.ErrCountNotFound) {
			return nil, errors.ErrNotFoundWithID("count", cmd.CountID)
		}
		return nil, fmt.Errorf("failed to get count: %w", err)
	}

	item, err := s.items.FindByID(ctx, count.ItemID)
	if err != nil {
		if stderrors.Is(err, domain.ErrItemNotFound) {
			return nil, errors.ErrNotFoundWithID("item", count.ItemID)
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if !item.IsActive {
		return nil, errors.ErrConflict("item for this count is inactive").Wrap(domain.ErrItemInactive)
	}

	if err := count.Approve(actor.UserID, time.Now().UTC()); err != nil {
		return nil, s.mapDecisionError(err, cmd.CountID)
	}

	// An approval that lands the item below par raises a stock alert in the
	// same transaction as the decision.
	if count.ApprovedCount != nil && *count.ApprovedCount < item.ParLevel {
		count.AddDomainEvent(&domain.LowStockDetectedEvent{
			ItemID:     item.ID.Hex(),
			Name:       item.Name,
			CurrentQty: *count.ApprovedCount,
			ParLevel:   item.ParLevel,
			DetectedAt: time.Now().UTC(),
		})
		if s.metrics != nil {
			s.metrics.RecordLowStockAlert()
		}
	}

	if err := s.counts.Decide(ctx, count); err != nil {
		return nil, s.mapDecisionError(err, cmd.CountID)
	}

	if s.metrics != nil {
		s.metrics.RecordCountDecided("approved")
	}

	s.logger.Info("Count approved",
		"countId", cmd.CountID,
		"itemId", count.ItemID,
		"approvedCount", *count.ApprovedCount,
		"approvedBy", actor.UserID,
	)
	return s.enrich(ctx, ToCountDTO(count)), nil
}

// Reject transitions a pending count to rejected. The item's quantity is
// never touched.
func (s *CountApplicationService) Reject(ctx context.Context, actor domain.Actor, cmd DecideCountCommand) (*CountDTO, error) {
	if !actor.Role.CanDecide() {
		return nil, errors.ErrForbidden("only managers and admins may reject counts").Wrap(domain.ErrNotAuthorized)
	}

	count, err := s.counts.FindByID(ctx, cmd.CountID)
	if err != nil {
		if stderrors.Is(err, domain.ErrCountNotFound) {
			return nil, errors.ErrNotFoundWithID("count", cmd.CountID)
		}
		return nil, fmt.Errorf("failed to get count: %w", err)
	}

	if err := count.Reject(actor.UserID, time.Now().UTC()); err != nil {
		return nil, s.mapDecisionError(err, cmd.CountID)
	}

	if err := s.counts.Decide(ctx, count); err != nil {
		return nil, s.mapDecisionError(err, cmd.CountID)
	}

	if s.metrics != nil {
		s.metrics.RecordCountDecided("rejected")
	}

	s.logger.Info("Count rejected",
		"countId", cmd.CountID,
		"itemId", count.ItemID,
		"rejectedBy", actor.UserID,
	)
	return s.enrich(ctx, ToCountDTO(count)), nil
}

func (s *CountApplicationService) mapDecisionError(err error, countID string) error {
	switch {
	case stderrors.Is(err, domain.ErrCountAlreadyDecided):
		return errors.ErrConflict("count has already been decided").WithDetail("countId", countID)
	case stderrors.Is(err, domain.ErrCountNotFound):
		return errors.ErrNotFoundWithID("count", countID)
	case stderrors.Is(err, domain.ErrItemNotFound):
		return errors.ErrNotFound("item for this count").WithDetail("countId", countID)
	default:
		return fmt.Errorf("failed to decide count: %w", err)
	}
}

// enrich resolves display names for a single DTO.
func (s *CountApplicationService) enrich(ctx context.Context, dto *CountDTO) *CountDTO {
	if dto == nil {
		return nil
	}
	if item, err := s.items.FindByID(ctx, dto.ItemID); err == nil {
		dto.ItemName = item.Name
	}
	if user, err := s.users.FindByID(ctx, dto.SubmittedBy); err == nil {
		dto.SubmitterName = user.Name
	}
	return dto
}

// enrichAll resolves display names for a page, caching lookups per id.
func (s *CountApplicationService) enrichAll(ctx context.Context, dtos []*CountDTO) {
	itemNames := make(map[string]string)
	userNames := make(map[string]string)

	for _, dto := range dtos {
		if name, ok := itemNames[dto.ItemID]; ok {
			dto.ItemName = name
		} else if item, err := s.items.FindByID(ctx, dto.ItemID); err == nil {
			itemNames[dto.ItemID] = item.Name
			dto.ItemName = item.Name
		}

		if name, ok := userNames[dto.SubmittedBy]; ok {
			dto.SubmitterName = name
		} else if user, err := s.users.FindByID(ctx, dto.SubmittedBy); err == nil {
			userNames[dto.SubmittedBy] = user.Name
			dto.SubmitterName = user.Name
		}
	}
}
