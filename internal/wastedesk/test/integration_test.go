package test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gartstein/wastedesk/internal/wastedesk/controller"
	"github.com/gartstein/wastedesk/internal/wastedesk/db"
	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/events"
	"github.com/gartstein/wastedesk/internal/wastedesk/metrics"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

type IntegrationTestSuite struct {
	suite.Suite
	openStore   func(t *testing.T) (db.DocumentStore, error)
	store       db.DocumentStore
	service     *controller.Service
	logger      *zap.Logger
	testTimeout time.Duration
}

func TestIntegrationSQLite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, &IntegrationTestSuite{openStore: func(t *testing.T) (db.DocumentStore, error) {
		return db.NewRepository(&db.Config{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "wastedesk.db"),
		})
	}})
}

func TestIntegrationRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, &IntegrationTestSuite{openStore: func(t *testing.T) (db.DocumentStore, error) {
		mr := miniredis.RunT(t)
		return db.NewRedisStore(context.Background(), "redis://"+mr.Addr())
	}})
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.logger = zap.NewNop()
	s.testTimeout = 5 * time.Second
}

func (s *IntegrationTestSuite) SetupTest() {
	var store db.DocumentStore
	err := backoff.Retry(func() error {
		var err error
		store, err = s.openStore(s.T())
		return err
	}, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3))
	s.Require().NoError(err, "storage initialization failed")
	s.store = store

	fixtures, err := db.LoadFixtures()
	s.Require().NoError(err)
	_, err = db.NewSeeder(store, fixtures, s.logger).InitializeIfAbsent(context.Background())
	s.Require().NoError(err)

	s.service = controller.NewService(db.NewCollections(store), events.NopProducer{}, metrics.New(), s.logger)
	s.service.SetProducer(events.NewDirectProducer(s.service.AuditHandler(), s.logger))
}

func (s *IntegrationTestSuite) TearDownTest() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
}

func (s *IntegrationTestSuite) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.testTimeout)
}

func (s *IntegrationTestSuite) TestSeedIsAppliedOnce() {
	ctx, cancel := s.ctx()
	defer cancel()

	fixtures, err := db.LoadFixtures()
	s.Require().NoError(err)
	report, err := db.NewSeeder(s.store, fixtures, s.logger).InitializeIfAbsent(ctx)
	s.Require().NoError(err)
	s.Empty(report.Written)

	summary, err := s.service.Summary(ctx)
	s.Require().NoError(err)
	s.Positive(summary.Entities)
	s.Positive(summary.Agreements)
}

func (s *IntegrationTestSuite) TestOrderFlow() {
	ctx, cancel := s.ctx()
	defer cancel()

	order, err := s.service.CreateOrder(ctx, &controller.OrderRequest{
		EntityID:        "erasmus_mc",
		ServicePointID:  "erasmus_waste_dock",
		OrderTypeID:     "aftransport",
		FulfillmentDate: "2025-03-05",
		WasteTypeIDs:    []string{"wt-seed-0"},
	})
	s.Require().NoError(err)
	s.Equal(models.OrderSubmitted, order.Status)
	s.Require().Len(order.WasteLines, 1)
	s.NotEmpty(order.WasteLines[0].ReceiverID)

	draft, err := s.service.UpdateOrderStatus(ctx, order.ID, models.OrderDraft)
	s.Require().NoError(err)
	s.Equal(models.OrderDraft, draft.Status)

	stored, err := s.service.GetOrder(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(order.WasteLines, stored.WasteLines)

	letter, err := s.service.TransportLetter(ctx, order.ID)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(letter, []byte("%PDF-")))

	export, err := s.service.ExportOrders(ctx, models.OrderFilter{Status: models.OrderDraft})
	s.Require().NoError(err)
	f, err := excelize.OpenReader(bytes.NewReader(export))
	s.Require().NoError(err)
	defer f.Close()
	rows, err := f.GetRows("Orders")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(order.ID, rows[1][0])

	s.Eventually(func() bool {
		records, err := s.service.ListAudit(ctx, order.ID, 0)
		return err == nil && len(records) == 2
	}, s.testTimeout, 20*time.Millisecond, "order created and updated events are audited")

	s.Require().NoError(s.service.DeleteOrder(ctx, order.ID))
	_, err = s.service.GetOrder(ctx, order.ID)
	s.ErrorIs(err, e.ErrNotFound)
}

func (s *IntegrationTestSuite) TestReferencedEntityIsKept() {
	ctx, cancel := s.ctx()
	defer cancel()

	err := s.service.DeleteEntity(ctx, "attero")
	s.ErrorIs(err, e.ErrReferenced)

	entity, err := s.service.GetEntity(ctx, "attero")
	s.Require().NoError(err)
	s.Equal("attero", entity.ID)
}

func (s *IntegrationTestSuite) TestWasteTypeSoftDelete() {
	ctx, cancel := s.ctx()
	defer cancel()

	created, err := s.service.CreateWasteType(ctx, &models.WasteType{
		Name:    "Integratietest afval",
		EWCCode: "20 01 01",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteWasteType(ctx, created.ID))

	active, err := s.service.ListWasteTypes(ctx, false)
	s.Require().NoError(err)
	for _, wt := range active {
		s.NotEqual(created.ID, wt.ID)
	}

	stored, err := s.service.GetWasteType(ctx, created.ID)
	s.Require().NoError(err)
	s.True(stored.Inactive)
}
