package service_test

import (
	"context"
	"testing"
	"time"

	"gig-market/internal/common/catalogprotocol"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/data/memrepository"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	serviceID     = "logo-design"
	freeServiceID = "free-sample"
	basicPrice    = int64(1_000_000)
)

type fixture struct {
	repo       *memrepository.MemRepository
	orders     *service.Orders
	wallet     *service.Wallet
	client     service.Actor
	freelancer service.Actor
	outsider   service.Actor
	admin      service.Actor
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:       memrepository.New(),
		client:     service.Actor{ID: uuid.New(), Role: data.ClientRole},
		freelancer: service.Actor{ID: uuid.New(), Role: data.FreelancerRole},
		outsider:   service.Actor{ID: uuid.New(), Role: data.FreelancerRole},
		admin:      service.Actor{ID: uuid.New(), Role: data.AdminRole},
		now:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.repo.AddUser(data.User{ID: f.client.ID, Name: "Carol", Role: data.ClientRole})
	f.repo.AddUser(data.User{ID: f.freelancer.ID, Name: "Frank", Role: data.FreelancerRole})
	f.repo.AddUser(data.User{ID: f.outsider.ID, Name: "Olga", Role: data.FreelancerRole})
	f.repo.AddUser(data.User{ID: f.admin.ID, Name: "Ada", Role: data.AdminRole})
	f.repo.AddService(catalogprotocol.Service{
		ID:           serviceID,
		FreelancerID: f.freelancer.ID.String(),
		Title:        "Logo design",
		Packages: map[string]catalogprotocol.Package{
			"basic": {
				Price:        basicPrice,
				Description:  "One concept",
				DeliveryTime: 3,
				Features:     []string{"png"},
				Revisions:    1,
			},
			"standard": {Price: 2_000_000, Revisions: 3},
		},
	})
	f.repo.AddService(catalogprotocol.Service{
		ID:           freeServiceID,
		FreelancerID: f.freelancer.ID.String(),
		Packages:     map[string]catalogprotocol.Package{"basic": {Price: 0}},
	})

	clock := func() time.Time { return f.now }
	logger := logging.NewNop()
	f.orders = service.NewOrders(
		service.OrdersConfig{PlatformFeeRate: decimal.RequireFromString("0.10")},
		f.repo, f.repo, f.repo, f.repo, logger,
	).WithClock(clock)
	f.wallet = service.NewWallet(
		service.WalletConfig{MinWithdrawal: service.DefaultMinWithdrawal},
		f.repo, f.repo, f.repo, logger,
	).WithClock(clock)
	return f
}

func (f *fixture) createOrder(t *testing.T) uuid.UUID {
	t.Helper()
	order, err := f.orders.Create(context.Background(), f.client, service.CreateOrderInput{
		ServiceID:   serviceID,
		PackageTier: data.BasicTier,
	})
	require.NoError(t, err)
	return order.ID
}

func (f *fixture) submittedOrder(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	orderID := f.createOrder(t)
	_, err := f.orders.Accept(ctx, f.freelancer, orderID)
	require.NoError(t, err)
	_, err = f.orders.SubmitWork(ctx, f.freelancer, orderID, nil)
	require.NoError(t, err)
	return orderID
}

func (f *fixture) user(t *testing.T, userID uuid.UUID) data.User {
	t.Helper()
	user, err := f.repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return user
}

func (f *fixture) setBalance(t *testing.T, actor service.Actor, balance int64) {
	t.Helper()
	user := f.user(t, actor.ID)
	user.WalletBalance = balance
	f.repo.AddUser(user)
}
