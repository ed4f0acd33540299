package service

import (
	"context"
	"errors"
	"testing"

	"gig-market/internal/common/catalogprotocol"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/data/memrepository"
	"gig-market/pkg/logging"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commitFailer runs the work and then fails the commit, rolling it back.
type commitFailer struct {
	*memrepository.MemRepository
	err error
}

func (c *commitFailer) DoWithTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return c.MemRepository.DoWithTransaction(ctx, func(ctx context.Context) error {
		if err := f(ctx); err != nil {
			return err
		}
		return c.err
	})
}

func TestTransitionCountedAfterCommit(t *testing.T) {
	ctx := context.Background()
	repo := memrepository.New()
	client := Actor{ID: uuid.New(), Role: data.ClientRole}
	freelancer := Actor{ID: uuid.New(), Role: data.FreelancerRole}
	repo.AddUser(data.User{ID: client.ID, Role: data.ClientRole})
	repo.AddUser(data.User{ID: freelancer.ID, Role: data.FreelancerRole})
	repo.AddService(catalogprotocol.Service{
		ID:           "copywriting",
		FreelancerID: freelancer.ID.String(),
		Packages:     map[string]catalogprotocol.Package{"basic": {Price: 500_000}},
	})

	commitErr := errors.New("commit failed")
	tm := &commitFailer{MemRepository: repo, err: commitErr}
	orders := NewOrders(
		OrdersConfig{PlatformFeeRate: decimal.RequireFromString("0.10")},
		tm, repo, repo, repo, logging.NewNop(),
	)
	order, err := orders.Create(ctx, client, CreateOrderInput{ServiceID: "copywriting", PackageTier: data.BasicTier})
	require.NoError(t, err)

	accepted := orders.metrics.orderTransitions.WithLabelValues(
		string(data.PendingOrderStatus), string(data.InProgressOrderStatus))
	before := testutil.ToFloat64(accepted)

	_, err = orders.Accept(ctx, freelancer, order.ID)
	require.ErrorIs(t, err, commitErr)
	assert.Equal(t, before, testutil.ToFloat64(accepted))

	tm.err = nil
	_, err = orders.Accept(ctx, freelancer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(accepted))
}
