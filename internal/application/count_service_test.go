package application

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/errors"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
)

type fakeCountRepo struct {
	counts    map[string]*domain.Count
	items     *fakeItemRepo
	createErr error
	batchErr  error
	findErr   error
	listErr   error
	decideErr error
}

func (f *fakeCountRepo) store(count *domain.Count) {
	if f.counts == nil {
		f.counts = make(map[string]*domain.Count)
	}
	if count.ID.IsZero() {
		count.ID = primitive.NewObjectID()
	}
	f.counts[count.ID.Hex()] = count
}

func (f *fakeCountRepo) Create(ctx context.Context, count *domain.Count) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.store(count)
	count.ClearDomainEvents()
	return nil
}

func (f *fakeCountRepo) CreateBatch(ctx context.Context, counts []*domain.Count) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	if len(counts) == 0 {
		return domain.ErrEmptyBatch
	}
	for _, count := range counts {
		f.store(count)
		count.ClearDomainEvents()
	}
	return nil
}

func (f *fakeCountRepo) FindByID(ctx context.Context, id string) (*domain.Count, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	count, ok := f.counts[id]
	if !ok {
		return nil, domain.ErrCountNotFound
	}
	// Decision races are simulated against the stored copy, so hand the
	// caller a clone the way a real repository would.
	clone := *count
	return &clone, nil
}

func (f *fakeCountRepo) List(ctx context.Context, filter domain.CountFilter, limit, offset int) ([]*domain.Count, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	matched := make([]*domain.Count, 0)
	for _, count := range f.counts {
		if filter.Status != "" && count.Status != filter.Status {
			continue
		}
		if filter.ItemID != "" && count.ItemID != filter.ItemID {
			continue
		}
		if filter.SubmittedBy != "" && count.SubmittedBy != filter.SubmittedBy {
			continue
		}
		matched = append(matched, count)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []*domain.Count{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeCountRepo) HasCountsForItem(ctx context.Context, itemID string) (bool, error) {
	for _, count := range f.counts {
		if count.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCountRepo) Decide(ctx context.Context, count *domain.Count) error {
	if f.decideErr != nil {
		return f.decideErr
	}
	stored, ok := f.counts[count.ID.Hex()]
	if !ok {
		return domain.ErrCountNotFound
	}
	if stored.Status != domain.StatusPending {
		return domain.ErrCountAlreadyDecided
	}
	if count.Status == domain.StatusApproved {
		if f.items == nil || f.items.items[count.ItemID] == nil {
			return domain.ErrItemNotFound
		}
		f.items.items[count.ItemID].CurrentQty = *count.ApprovedCount
	}
	clone := *count
	f.counts[count.ID.Hex()] = &clone
	count.ClearDomainEvents()
	return nil
}

type fakeItemRepo struct {
	items     map[string]*domain.Item
	createErr error
	updateErr error
	findErr   error
	listErr   error
	deleteErr error
}

func (f *fakeItemRepo) store(item *domain.Item) string {
	if f.items == nil {
		f.items = make(map[string]*domain.Item)
	}
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	f.items[item.ID.Hex()] = item
	return item.ID.Hex()
}

func (f *fakeItemRepo) Create(ctx context.Context, item *domain.Item) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.items {
		if existing.NameLower == item.NameLower {
			return domain.ErrItemNameTaken
		}
	}
	f.store(item)
	return nil
}

func (f *fakeItemRepo) Update(ctx context.Context, item *domain.Item) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.items[item.ID.Hex()]; !ok {
		return domain.ErrItemNotFound
	}
	for id, existing := range f.items {
		if id != item.ID.Hex() && existing.NameLower == item.NameLower {
			return domain.ErrItemNameTaken
		}
	}
	f.items[item.ID.Hex()] = item
	return nil
}

func (f *fakeItemRepo) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

func (f *fakeItemRepo) List(ctx context.Context, filter domain.ItemFilter, limit, offset int) ([]*domain.Item, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	matched := make([]*domain.Item, 0)
	for _, item := range f.items {
		if filter.ActiveOnly && !item.IsActive {
			continue
		}
		matched = append(matched, item)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []*domain.Item{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (f *fakeItemRepo) FindBelowPar(ctx context.Context) ([]*domain.Item, error) {
	matched := make([]*domain.Item, 0)
	for _, item := range f.items {
		if item.IsActive && item.IsBelowPar() {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (f *fakeItemRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeUserRepo struct {
	users   map[string]*domain.User
	byEmail map[string]*domain.User
}

func (f *fakeUserRepo) add(user *domain.User) {
	if f.users == nil {
		f.users = make(map[string]*domain.User)
		f.byEmail = make(map[string]*domain.User)
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.users[user.ID.Hex()] = user
	f.byEmail[user.Email] = user
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *domain.User) error {
	f.add(user)
	return nil
}

var (
	counterActor = domain.Actor{UserID: "counter-1", Name: "Carl Counter", Role: domain.RoleCounter}
	managerActor = domain.Actor{UserID: "manager-1", Name: "Mara Manager", Role: domain.RoleManager}
	adminActor   = domain.Actor{UserID: "admin-1", Name: "Alice Admin", Role: domain.RoleAdmin}
)

func newTestCountService(t *testing.T) (*CountApplicationService, *fakeCountRepo, *fakeItemRepo) {
	t.Helper()
	itemRepo := &fakeItemRepo{}
	countRepo := &fakeCountRepo{items: itemRepo}
	logger := logging.New(logging.DefaultConfig("test"))
	service := NewCountApplicationService(countRepo, itemRepo, &fakeUserRepo{}, logger, nil)
	return service, countRepo, itemRepo
}

func seedTestItem(t *testing.T, repo *fakeItemRepo, name string, parLevel int) *domain.Item {
	t.Helper()
	item, err := domain.NewItem(name, domain.UnitPiece, parLevel)
	require.NoError(t, err)
	repo.store(item)
	return item
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	assert.Equal(t, status, appErr.HTTPStatus)
}

func TestSubmitCount(t *testing.T) {
	service, repo, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 12,
		Notes:    "morning count",
	})

	require.NoError(t, err)
	require.NotNil(t, dto)
	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, 12, dto.Quantity)
	assert.Equal(t, counterActor.UserID, dto.SubmittedBy)
	assert.Len(t, repo.counts, 1)
}

func TestSubmitCountValidation(t *testing.T) {
	service, _, itemRepo := newTestCountService(t)
	active := seedTestItem(t, itemRepo, "Tomatoes", 8)
	inactive := seedTestItem(t, itemRepo, "Old Spice Mix", 2)
	inactive.Deactivate()

	tests := []struct {
		name   string
		cmd    SubmitCountCommand
		status int
	}{
		{
			name:   "Missing item id",
			cmd:    SubmitCountCommand{ItemID: "", Quantity: 5},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "Unknown item",
			cmd:    SubmitCountCommand{ItemID: primitive.NewObjectID().Hex(), Quantity: 5},
			status: http.StatusNotFound,
		},
		{
			name:   "Inactive item",
			cmd:    SubmitCountCommand{ItemID: inactive.ID.Hex(), Quantity: 5},
			status: http.StatusConflict,
		},
		{
			name:   "Negative quantity",
			cmd:    SubmitCountCommand{ItemID: active.ID.Hex(), Quantity: -1},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Submit(context.Background(), counterActor, tt.cmd)
			assertStatus(t, err, tt.status)
		})
	}
}

func TestSubmitCountInactiveItemIsConflict(t *testing.T) {
	service, repo, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Old Spice Mix", 2)
	item.Deactivate()

	_, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 5,
	})

	// Deactivation is a state conflict, not a validation failure, and the
	// sentinel survives the HTTP mapping.
	assertStatus(t, err, http.StatusConflict)
	assert.True(t, stderrors.Is(err, domain.ErrItemInactive))
	assert.Empty(t, repo.counts)
}

func TestSubmitBatch(t *testing.T) {
	service, repo, itemRepo := newTestCountService(t)
	tomatoes := seedTestItem(t, itemRepo, "Tomatoes", 8)
	onions := seedTestItem(t, itemRepo, "Onions", 18)

	dtos, err := service.SubmitBatch(context.Background(), counterActor, SubmitBatchCommand{
		Counts: []SubmitCountCommand{
			{ItemID: tomatoes.ID.Hex(), Quantity: 12},
			{ItemID: onions.ID.Hex(), Quantity: 20},
		},
	})

	require.NoError(t, err)
	assert.Len(t, dtos, 2)
	assert.Len(t, repo.counts, 2)
}

func TestSubmitBatchAllOrNothing(t *testing.T) {
	service, repo, itemRepo := newTestCountService(t)
	tomatoes := seedTestItem(t, itemRepo, "Tomatoes", 8)

	_, err := service.SubmitBatch(context.Background(), counterActor, SubmitBatchCommand{
		Counts: []SubmitCountCommand{
			{ItemID: tomatoes.ID.Hex(), Quantity: 12},
			{ItemID: primitive.NewObjectID().Hex(), Quantity: 3},
		},
	})

	assertStatus(t, err, http.StatusNotFound)
	appErr, _ := errors.AsAppError(err)
	assert.Equal(t, "1", appErr.Details["index"])
	assert.Empty(t, repo.counts, "a failed batch must persist nothing")
}

func TestSubmitBatchEmpty(t *testing.T) {
	service, _, _ := newTestCountService(t)

	_, err := service.SubmitBatch(context.Background(), counterActor, SubmitBatchCommand{})
	assertStatus(t, err, http.StatusUnprocessableEntity)
}

func TestApproveCount(t *testing.T) {
	service, repo, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 15,
	})
	require.NoError(t, err)

	approved, err := service.Approve(context.Background(), managerActor, DecideCountCommand{CountID: dto.ID})
	require.NoError(t, err)

	assert.Equal(t, "approved", approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, managerActor.UserID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedCount)
	assert.Equal(t, 15, *approved.ApprovedCount)

	// Approval syncs the item's authoritative quantity.
	assert.Equal(t, 15, itemRepo.items[item.ID.Hex()].CurrentQty)
	assert.Equal(t, domain.StatusApproved, repo.counts[dto.ID].Status)
}

func TestApproveCountRoleGate(t *testing.T) {
	service, _, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 15,
	})
	require.NoError(t, err)

	// Counters are rejected with 403 whether the count exists or not: the
	// role gate runs before any lookup.
	_, err = service.Approve(context.Background(), counterActor, DecideCountCommand{CountID: dto.ID})
	assertStatus(t, err, http.StatusForbidden)

	_, err = service.Approve(context.Background(), counterActor, DecideCountCommand{CountID: primitive.NewObjectID().Hex()})
	assertStatus(t, err, http.StatusForbidden)

	_, err = service.Reject(context.Background(), counterActor, DecideCountCommand{CountID: dto.ID})
	assertStatus(t, err, http.StatusForbidden)
}

func TestApproveCountNotFound(t *testing.T) {
	service, _, _ := newTestCountService(t)

	_, err := service.Approve(context.Background(), managerActor, DecideCountCommand{
		CountID: primitive.NewObjectID().Hex(),
	})
	assertStatus(t, err, http.StatusNotFound)
}

func TestApproveCountInactiveItem(t *testing.T) {
	service, _, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 15,
	})
	require.NoError(t, err)

	item.Deactivate()

	_, err = service.Approve(context.Background(), managerActor, DecideCountCommand{CountID: dto.ID})
	assertStatus(t, err, http.StatusConflict)
	assert.True(t, stderrors.Is(err, domain.ErrItemInactive))
}

func TestApproveCountItemGone(t *testing.T) {
	service, _, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 15,
	})
	require.NoError(t, err)

	// The item was deleted after the count was submitted. The missing
	// resource is a 404; only a deactivated item is a conflict.
	delete(itemRepo.items, item.ID.Hex())

	_, err = service.Approve(context.Background(), managerActor, DecideCountCommand{CountID: dto.ID})
	assertStatus(t, err, http.StatusNotFound)
}

func TestApproveCountLostRace(t *testing.T) {
	service, _, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 15,
	})
	require.NoError(t, err)

	_, err = service.Approve(context.Background(), managerActor, DecideCountCommand{CountID: dto.ID})
	require.NoError(t, err)

	// Second decider loses the race and gets a conflict, not a silent no-op.
	_, err = service.Approve(context.Background(), adminActor, DecideCountCommand{CountID: dto.ID})
	assertStatus(t, err, http.StatusConflict)

	_, err = service.Reject(context.Background(), adminActor, DecideCountCommand{CountID: dto.ID})
	assertStatus(t, err, http.StatusConflict)
}

func TestApproveCountRaisesLowStockEvent(t *testing.T) {
	service, repo, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Onions", 18)

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 5,
	})
	require.NoError(t, err)

	approved, err := service.Approve(context.Background(), managerActor, DecideCountCommand{CountID: dto.ID})
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedCount)
	assert.Equal(t, 5, *approved.ApprovedCount)
	assert.Equal(t, 5, itemRepo.items[item.ID.Hex()].CurrentQty)

	// The approval landed below par (5 < 18), so a stock alert rode the
	// same decision into the stored events.
	stored := repo.counts[dto.ID]
	eventTypes := make([]string, 0, len(stored.GetDomainEvents()))
	for _, event := range stored.GetDomainEvents() {
		eventTypes = append(eventTypes, event.EventType())
	}
	assert.Contains(t, eventTypes, "pantrypal.item.low-stock")
}

func TestRejectCount(t *testing.T) {
	service, repo, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)
	item.CurrentQty = 10

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{
		ItemID:   item.ID.Hex(),
		Quantity: 2,
	})
	require.NoError(t, err)

	rejected, err := service.Reject(context.Background(), managerActor, DecideCountCommand{CountID: dto.ID})
	require.NoError(t, err)

	assert.Equal(t, "rejected", rejected.Status)
	require.NotNil(t, rejected.ApprovedBy)
	assert.Equal(t, managerActor.UserID, *rejected.ApprovedBy)
	assert.Nil(t, rejected.ApprovedCount)

	// Rejection never touches the item quantity.
	assert.Equal(t, 10, itemRepo.items[item.ID.Hex()].CurrentQty)
	assert.Equal(t, domain.StatusRejected, repo.counts[dto.ID].Status)
}

func TestListCounts(t *testing.T) {
	service, _, itemRepo := newTestCountService(t)
	tomatoes := seedTestItem(t, itemRepo, "Tomatoes", 8)
	onions := seedTestItem(t, itemRepo, "Onions", 18)

	_, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{ItemID: tomatoes.ID.Hex(), Quantity: 12})
	require.NoError(t, err)
	_, err = service.Submit(context.Background(), counterActor, SubmitCountCommand{ItemID: onions.ID.Hex(), Quantity: 20})
	require.NoError(t, err)

	other := domain.Actor{UserID: "counter-2", Name: "Other", Role: domain.RoleCounter}
	_, err = service.Submit(context.Background(), other, SubmitCountCommand{ItemID: tomatoes.ID.Hex(), Quantity: 11})
	require.NoError(t, err)

	all, total, err := service.List(context.Background(), counterActor, ListCountsQuery{Limit: 20})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), total)

	byItem, total, err := service.List(context.Background(), counterActor, ListCountsQuery{ItemID: tomatoes.ID.Hex(), Limit: 20})
	require.NoError(t, err)
	assert.Len(t, byItem, 2)
	assert.Equal(t, int64(2), total)

	mine, total, err := service.List(context.Background(), counterActor, ListCountsQuery{Mine: true, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, int64(2), total)
	for _, dto := range mine {
		assert.Equal(t, counterActor.UserID, dto.SubmittedBy)
	}
}

func TestListCountsInvalidStatus(t *testing.T) {
	service, _, _ := newTestCountService(t)

	_, _, err := service.List(context.Background(), counterActor, ListCountsQuery{Status: "archived", Limit: 20})
	assertStatus(t, err, http.StatusUnprocessableEntity)
}

func TestListPendingRoleGate(t *testing.T) {
	service, _, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)

	_, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{ItemID: item.ID.Hex(), Quantity: 12})
	require.NoError(t, err)

	_, _, err = service.ListPending(context.Background(), counterActor, 20, 0)
	assertStatus(t, err, http.StatusForbidden)

	pending, total, err := service.ListPending(context.Background(), managerActor, 20, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, int64(1), total)
}

func TestGetCount(t *testing.T) {
	service, _, itemRepo := newTestCountService(t)
	item := seedTestItem(t, itemRepo, "Tomatoes", 8)

	dto, err := service.Submit(context.Background(), counterActor, SubmitCountCommand{ItemID: item.ID.Hex(), Quantity: 12})
	require.NoError(t, err)

	found, err := service.Get(context.Background(), dto.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ID, found.ID)

	_, err = service.Get(context.Background(), primitive.NewObjectID().Hex())
	assertStatus(t, err, http.StatusNotFound)
}
