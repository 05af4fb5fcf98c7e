package mongodb

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/metrics"
	sharedMongo "github.com/akshayrajeevnambiar/Pantrypal/pkg/mongodb"
)

type CountRepositoryIntegrationTestSuite struct {
	suite.Suite
	mongoContainer *mongodb.MongoDBContainer
	client         *sharedMongo.Client
	metrics        *metrics.Metrics
	countRepo      *CountRepository
	itemRepo       *ItemRepository
	userRepo       *UserRepository
	ctx            context.Context
}

func (s *CountRepositoryIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	// transactions need a replica set, even a single-node one
	container, err := mongodb.Run(s.ctx, "mongo:6",
		mongodb.WithReplicaSet("rs"),
	)
	s.Require().NoError(err)
	s.mongoContainer = container

	connStr, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)
	if !strings.Contains(connStr, "directConnection") {
		if strings.Contains(connStr, "?") {
			connStr += "&directConnection=true"
		} else {
			connStr += "/?directConnection=true"
		}
	}

	client, err := sharedMongo.NewClient(s.ctx, &sharedMongo.Config{
		URI:              connStr,
		Database:         "pantrypal_test",
		ConnectTimeout:   10 * time.Second,
		OperationTimeout: 5 * time.Second,
		MaxPoolSize:      10,
		MinPoolSize:      1,
	})
	s.Require().NoError(err)
	s.client = client

	s.metrics = metrics.New(metrics.DefaultConfig("pantrypal-test"))
	instrumented := sharedMongo.NewInstrumentedClient(client, s.metrics, logging.New(logging.DefaultConfig("pantrypal-test")))

	s.countRepo = NewCountRepository(instrumented)
	s.itemRepo = NewItemRepository(instrumented)
	s.userRepo = NewUserRepository(instrumented)
}

func (s *CountRepositoryIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close(s.ctx)
	}
	if s.mongoContainer != nil {
		s.Require().NoError(s.mongoContainer.Terminate(s.ctx))
	}
}

func (s *CountRepositoryIntegrationTestSuite) TearDownTest() {
	db := s.client.Database()
	db.Collection("counts").Drop(s.ctx)
	db.Collection("items").Drop(s.ctx)
	db.Collection("users").Drop(s.ctx)
	db.Collection("outbox_events").Drop(s.ctx)
}

func TestCountRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	suite.Run(t, new(CountRepositoryIntegrationTestSuite))
}

func (s *CountRepositoryIntegrationTestSuite) seedItem(name string, parLevel, currentQty int) *domain.Item {
	item, err := domain.NewItem(name, domain.UnitPiece, parLevel)
	s.Require().NoError(err)
	item.CurrentQty = currentQty
	s.Require().NoError(s.itemRepo.Create(s.ctx, item))
	return item
}

func (s *CountRepositoryIntegrationTestSuite) TestCreateAndFindByID() {
	item := s.seedItem("Tomatoes", 8, 10)

	count, err := domain.NewCount(item.ID.Hex(), "counter-1", 12, "morning count")
	s.Require().NoError(err)
	s.Require().NoError(s.countRepo.Create(s.ctx, count))
	s.Require().False(count.ID.IsZero())

	found, err := s.countRepo.FindByID(s.ctx, count.ID.Hex())
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, found.Status)
	s.Equal(12, found.Quantity)
	s.Equal("counter-1", found.SubmittedBy)

	// The submission event landed in the outbox in the same transaction.
	events, err := s.countRepo.OutboxRepository().FindUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("pantrypal.count.submitted", events[0].EventType)
	s.Equal("pantrypal.counts.events", events[0].Topic)
}

func (s *CountRepositoryIntegrationTestSuite) TestFindByIDNotFound() {
	_, err := s.countRepo.FindByID(s.ctx, "65f000000000000000000000")
	s.ErrorIs(err, domain.ErrCountNotFound)

	_, err = s.countRepo.FindByID(s.ctx, "not-an-object-id")
	s.ErrorIs(err, domain.ErrCountNotFound)
}

func (s *CountRepositoryIntegrationTestSuite) TestCreateBatchIsAtomic() {
	s.Require().ErrorIs(s.countRepo.CreateBatch(s.ctx, nil), domain.ErrEmptyBatch)

	item := s.seedItem("Onions", 18, 20)
	first, err := domain.NewCount(item.ID.Hex(), "counter-1", 20, "")
	s.Require().NoError(err)
	second, err := domain.NewCount(item.ID.Hex(), "counter-1", 19, "")
	s.Require().NoError(err)

	s.Require().NoError(s.countRepo.CreateBatch(s.ctx, []*domain.Count{first, second}))

	_, total, err := s.countRepo.List(s.ctx, domain.CountFilter{}, 10, 0)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
}

func (s *CountRepositoryIntegrationTestSuite) TestDecideApproveSyncsItemQuantity() {
	item := s.seedItem("Tomatoes", 8, 10)

	count, err := domain.NewCount(item.ID.Hex(), "counter-1", 15, "")
	s.Require().NoError(err)
	s.Require().NoError(s.countRepo.Create(s.ctx, count))

	s.Require().NoError(count.Approve("manager-1", time.Now().UTC()))
	s.Require().NoError(s.countRepo.Decide(s.ctx, count))

	decided, err := s.countRepo.FindByID(s.ctx, count.ID.Hex())
	s.Require().NoError(err)
	s.Equal(domain.StatusApproved, decided.Status)
	s.Require().NotNil(decided.ApprovedCount)
	s.Equal(15, *decided.ApprovedCount)

	synced, err := s.itemRepo.FindByID(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.Equal(15, synced.CurrentQty)
}

func (s *CountRepositoryIntegrationTestSuite) TestDecideRejectLeavesItemQuantity() {
	item := s.seedItem("Tomatoes", 8, 10)

	count, err := domain.NewCount(item.ID.Hex(), "counter-1", 2, "")
	s.Require().NoError(err)
	s.Require().NoError(s.countRepo.Create(s.ctx, count))

	s.Require().NoError(count.Reject("manager-1", time.Now().UTC()))
	s.Require().NoError(s.countRepo.Decide(s.ctx, count))

	decided, err := s.countRepo.FindByID(s.ctx, count.ID.Hex())
	s.Require().NoError(err)
	s.Equal(domain.StatusRejected, decided.Status)
	s.Nil(decided.ApprovedCount)

	untouched, err := s.itemRepo.FindByID(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.Equal(10, untouched.CurrentQty)
}

func (s *CountRepositoryIntegrationTestSuite) TestDecideLostRace() {
	item := s.seedItem("Tomatoes", 8, 10)

	count, err := domain.NewCount(item.ID.Hex(), "counter-1", 15, "")
	s.Require().NoError(err)
	s.Require().NoError(s.countRepo.Create(s.ctx, count))

	winner, err := s.countRepo.FindByID(s.ctx, count.ID.Hex())
	s.Require().NoError(err)
	loser, err := s.countRepo.FindByID(s.ctx, count.ID.Hex())
	s.Require().NoError(err)

	s.Require().NoError(winner.Approve("manager-1", time.Now().UTC()))
	s.Require().NoError(s.countRepo.Decide(s.ctx, winner))

	s.Require().NoError(loser.Reject("manager-2", time.Now().UTC()))
	s.ErrorIs(s.countRepo.Decide(s.ctx, loser), domain.ErrCountAlreadyDecided)

	// The winner's decision stands.
	final, err := s.countRepo.FindByID(s.ctx, count.ID.Hex())
	s.Require().NoError(err)
	s.Equal(domain.StatusApproved, final.Status)
}

func (s *CountRepositoryIntegrationTestSuite) TestListFiltersAndOrder() {
	item := s.seedItem("Tomatoes", 8, 10)
	other := s.seedItem("Onions", 18, 20)

	first, err := domain.NewCount(item.ID.Hex(), "counter-1", 10, "")
	s.Require().NoError(err)
	s.Require().NoError(s.countRepo.Create(s.ctx, first))

	second, err := domain.NewCount(other.ID.Hex(), "counter-2", 19, "")
	s.Require().NoError(err)
	second.SubmittedAt = second.SubmittedAt.Add(time.Second)
	s.Require().NoError(s.countRepo.Create(s.ctx, second))

	all, total, err := s.countRepo.List(s.ctx, domain.CountFilter{}, 10, 0)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(all, 2)
	// newest first
	s.Equal(second.ID.Hex(), all[0].ID.Hex())

	byItem, total, err := s.countRepo.List(s.ctx, domain.CountFilter{ItemID: item.ID.Hex()}, 10, 0)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(byItem, 1)
	s.Equal(first.ID.Hex(), byItem[0].ID.Hex())

	bySubmitter, _, err := s.countRepo.List(s.ctx, domain.CountFilter{SubmittedBy: "counter-2"}, 10, 0)
	s.Require().NoError(err)
	s.Len(bySubmitter, 1)
}

func (s *CountRepositoryIntegrationTestSuite) TestHasCountsForItem() {
	item := s.seedItem("Tomatoes", 8, 10)

	has, err := s.countRepo.HasCountsForItem(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.False(has)

	count, err := domain.NewCount(item.ID.Hex(), "counter-1", 10, "")
	s.Require().NoError(err)
	s.Require().NoError(s.countRepo.Create(s.ctx, count))

	has, err = s.countRepo.HasCountsForItem(s.ctx, item.ID.Hex())
	s.Require().NoError(err)
	s.True(has)
}

func (s *CountRepositoryIntegrationTestSuite) TestItemNameUniqueness() {
	s.seedItem("Tomatoes", 8, 10)

	dup, err := domain.NewItem("tomatoes", domain.UnitPiece, 4)
	s.Require().NoError(err)
	s.ErrorIs(s.itemRepo.Create(s.ctx, dup), domain.ErrItemNameTaken)
}

func (s *CountRepositoryIntegrationTestSuite) TestStorageOperationsAreMetered() {
	item := s.seedItem("Tomatoes", 8, 10)

	findOneCounter := s.metrics.MongoDBOperations.WithLabelValues("pantrypal-test", "counts", "findOne", "success")
	txnCounter := s.metrics.MongoDBOperations.WithLabelValues("pantrypal-test", "", "transaction", "success")
	findOneBefore := testutil.ToFloat64(findOneCounter)
	txnBefore := testutil.ToFloat64(txnCounter)

	count, err := domain.NewCount(item.ID.Hex(), "counter-1", 12, "")
	s.Require().NoError(err)
	s.Require().NoError(s.countRepo.Create(s.ctx, count))

	_, err = s.countRepo.FindByID(s.ctx, count.ID.Hex())
	s.Require().NoError(err)

	s.Greater(testutil.ToFloat64(findOneCounter), findOneBefore)
	s.Greater(testutil.ToFloat64(txnCounter), txnBefore)
}

func (s *CountRepositoryIntegrationTestSuite) TestUserUpsertByEmail() {
	user := &domain.User{
		Email:        "manager@pantrypal.dev",
		Name:         "Mara Manager",
		Role:         domain.RoleManager,
		PasswordHash: "hash-1",
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	s.Require().NoError(s.userRepo.Upsert(s.ctx, user))

	found, err := s.userRepo.FindByEmail(s.ctx, "manager@pantrypal.dev")
	s.Require().NoError(err)
	s.Equal("Mara Manager", found.Name)

	user.Name = "Mara M."
	s.Require().NoError(s.userRepo.Upsert(s.ctx, user))

	updated, err := s.userRepo.FindByEmail(s.ctx, "manager@pantrypal.dev")
	s.Require().NoError(err)
	s.Equal("Mara M.", updated.Name)
	s.Equal(found.ID.Hex(), updated.ID.Hex(), "upsert must not duplicate the identity")
}
