package service_test

import (
	"context"
	"sync"
	"testing"

	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEscrow(t *testing.T) {
	tests := []struct {
		name         string
		amount       int64
		rate         string
		wantFee      int64
		wantEarnings int64
	}{
		{name: "ten percent", amount: 1_000_000, rate: "0.10", wantFee: 100_000, wantEarnings: 900_000},
		{name: "fee rounds down", amount: 999, rate: "0.10", wantFee: 99, wantEarnings: 900},
		{name: "tiny amount", amount: 1, rate: "0.10", wantFee: 0, wantEarnings: 1},
		{name: "fractional rate", amount: 1005, rate: "0.15", wantFee: 150, wantEarnings: 855},
		{name: "zero rate", amount: 500, rate: "0", wantFee: 0, wantEarnings: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, earnings := service.SplitEscrow(tt.amount, decimal.RequireFromString(tt.rate))
			assert.Equal(t, tt.wantFee, fee)
			assert.Equal(t, tt.wantEarnings, earnings)
			assert.Equal(t, tt.amount, fee+earnings)
		})
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.orders.Create(context.Background(), f.client, service.CreateOrderInput{
		ServiceID:    serviceID,
		PackageTier:  "Basic",
		Requirements: "vector logo",
	})
	require.NoError(t, err)

	assert.Equal(t, data.PendingOrderStatus, order.Status)
	assert.Equal(t, data.PaidPayment, order.PaymentStatus)
	assert.Equal(t, data.BasicTier, order.PackageTier)
	assert.Equal(t, basicPrice, order.EscrowAmount)
	assert.Equal(t, int64(100_000), order.PlatformFee)
	assert.Equal(t, int64(900_000), order.FreelancerEarnings)
	assert.False(t, order.EscrowReleased)
	assert.Equal(t, "One concept", order.PackageDetails.Description)
	assert.Equal(t, 1, order.PackageDetails.Revisions)
	assert.Equal(t, "vector logo", order.Requirements)
	assert.Equal(t, f.now, order.CreatedAt)
	assert.Equal(t, service.Party{ID: f.client.ID, Name: "Carol"}, order.Client)
	assert.Equal(t, service.Party{ID: f.freelancer.ID, Name: "Frank"}, order.Freelancer)
	assert.Equal(t, 1, f.repo.ServiceOrders(serviceID))
}

func TestCreateOrderRejected(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		actor   service.Actor
		input   service.CreateOrderInput
		wantErr error
	}{
		{
			name:    "freelancer cannot order",
			actor:   f.freelancer,
			input:   service.CreateOrderInput{ServiceID: serviceID, PackageTier: data.BasicTier},
			wantErr: service.ErrForbidden,
		},
		{
			name:    "missing service id",
			actor:   f.client,
			input:   service.CreateOrderInput{PackageTier: data.BasicTier},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "unknown tier",
			actor:   f.client,
			input:   service.CreateOrderInput{ServiceID: serviceID, PackageTier: "gold"},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "unknown service",
			actor:   f.client,
			input:   service.CreateOrderInput{ServiceID: "nope", PackageTier: data.BasicTier},
			wantErr: service.ErrNotFound,
		},
		{
			name:    "tier not offered",
			actor:   f.client,
			input:   service.CreateOrderInput{ServiceID: serviceID, PackageTier: data.PremiumTier},
			wantErr: service.ErrNotFound,
		},
		{
			name:    "package without price",
			actor:   f.client,
			input:   service.CreateOrderInput{ServiceID: freeServiceID, PackageTier: data.BasicTier},
			wantErr: service.ErrInvalidInput,
		},
		{
			name:    "own service",
			actor:   service.Actor{ID: f.freelancer.ID, Role: data.ClientRole},
			input:   service.CreateOrderInput{ServiceID: serviceID, PackageTier: data.BasicTier},
			wantErr: service.ErrForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.Create(context.Background(), tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, f.repo.ServiceOrders(serviceID))
}

func TestOrderLifecycleReleasesEscrowOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.createOrder(t)

	accepted, err := f.orders.Accept(ctx, f.freelancer, orderID)
	require.NoError(t, err)
	assert.Equal(t, data.InProgressOrderStatus, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	submitted, err := f.orders.SubmitWork(ctx, f.freelancer, orderID, []service.FileInput{
		{Filename: "logo.svg", URL: "https://files.example/logo.svg"},
	})
	require.NoError(t, err)
	assert.Equal(t, data.SubmittedOrderStatus, submitted.Status)
	require.Len(t, submitted.FreelancerFiles, 1)
	assert.Equal(t, f.now, submitted.FreelancerFiles[0].UploadedAt)

	approved, err := f.orders.Approve(ctx, f.client, orderID)
	require.NoError(t, err)
	assert.Equal(t, data.CompletedOrderStatus, approved.Status)
	assert.Equal(t, data.ReleasedPayment, approved.PaymentStatus)
	assert.True(t, approved.EscrowReleased)
	require.NotNil(t, approved.CompletedAt)

	freelancer := f.user(t, f.freelancer.ID)
	assert.Equal(t, int64(900_000), freelancer.WalletBalance)
	assert.Equal(t, int64(900_000), freelancer.TotalEarnings)

	_, err = f.orders.Approve(ctx, f.client, orderID)
	assert.ErrorIs(t, err, service.ErrAlreadyProcessed)
	assert.Equal(t, int64(900_000), f.user(t, f.freelancer.ID).WalletBalance)

	stored, err := f.orders.GetOrder(ctx, f.client, orderID)
	require.NoError(t, err)
	assert.Equal(t, data.CompletedOrderStatus, stored.Status)
	assert.True(t, stored.EscrowReleased)
}

func TestConcurrentApproveCreditsOnce(t *testing.T) {
	f := newFixture(t)
	orderID := f.submittedOrder(t)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Approve(context.Background(), f.client, orderID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, service.ErrAlreadyProcessed)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(900_000), f.user(t, f.freelancer.ID).WalletBalance)
}

func TestTransitionGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.createOrder(t)

	_, err := f.orders.Accept(ctx, f.client, orderID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.orders.Accept(ctx, f.outsider, orderID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.orders.SubmitWork(ctx, f.freelancer, orderID, nil)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = f.orders.Approve(ctx, f.client, orderID)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = f.orders.Accept(ctx, f.freelancer, orderID)
	require.NoError(t, err)

	_, err = f.orders.Accept(ctx, f.freelancer, orderID)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = f.orders.Approve(ctx, f.freelancer, orderID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.orders.Accept(ctx, f.freelancer, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.orders.SubmitWork(ctx, f.freelancer, orderID, []service.FileInput{{Filename: "a.txt"}})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	assert.Zero(t, f.user(t, f.freelancer.ID).WalletBalance)
}

func TestRequestRevision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.submittedOrder(t)

	_, err := f.orders.RequestRevision(ctx, f.client, orderID, "  ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.orders.RequestRevision(ctx, f.freelancer, orderID, "bigger font")
	assert.ErrorIs(t, err, service.ErrForbidden)

	revised, err := f.orders.RequestRevision(ctx, f.client, orderID, "bigger font")
	require.NoError(t, err)
	assert.Equal(t, data.RevisionRequestedOrderStatus, revised.Status)
	assert.Equal(t, 1, revised.RevisionCount)
	require.Len(t, revised.Revisions, 1)
	assert.Equal(t, "bigger font", revised.Revisions[0].Message)
	assert.Equal(t, f.now, revised.Revisions[0].RequestedAt)

	_, err = f.orders.RequestRevision(ctx, f.client, orderID, "again")
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = f.orders.SubmitWork(ctx, f.freelancer, orderID, nil)
	require.NoError(t, err)

	_, err = f.orders.RequestRevision(ctx, f.client, orderID, "one more")
	assert.ErrorIs(t, err, service.ErrLimitExceeded)

	stored, err := f.orders.GetOrder(ctx, f.client, orderID)
	require.NoError(t, err)
	assert.Equal(t, data.SubmittedOrderStatus, stored.Status)
	assert.Equal(t, 1, stored.RevisionCount)
	assert.Len(t, stored.Revisions, 1)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("pending order", func(t *testing.T) {
		orderID := f.createOrder(t)

		_, err := f.orders.Cancel(ctx, f.outsider, orderID, "")
		assert.ErrorIs(t, err, service.ErrForbidden)

		cancelled, err := f.orders.Cancel(ctx, f.client, orderID, " changed my mind ")
		require.NoError(t, err)
		assert.Equal(t, data.CancelledOrderStatus, cancelled.Status)
		assert.Equal(t, data.RefundedPayment, cancelled.PaymentStatus)
		assert.Equal(t, "changed my mind", cancelled.CancellationReason)
		require.NotNil(t, cancelled.CancelledAt)

		_, err = f.orders.Accept(ctx, f.freelancer, orderID)
		assert.ErrorIs(t, err, service.ErrInvalidState)
		_, err = f.orders.Cancel(ctx, f.admin, orderID, "")
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("submitted order by admin", func(t *testing.T) {
		orderID := f.submittedOrder(t)
		cancelled, err := f.orders.Cancel(ctx, f.admin, orderID, "dispute")
		require.NoError(t, err)
		assert.Equal(t, data.CancelledOrderStatus, cancelled.Status)
	})

	t.Run("completed order", func(t *testing.T) {
		orderID := f.submittedOrder(t)
		_, err := f.orders.Approve(ctx, f.client, orderID)
		require.NoError(t, err)

		_, err = f.orders.Cancel(ctx, f.client, orderID, "")
		assert.ErrorIs(t, err, service.ErrAlreadyProcessed)
	})

	assert.Equal(t, int64(900_000), f.user(t, f.freelancer.ID).WalletBalance)
	assert.Zero(t, f.user(t, f.client.ID).WalletBalance)
}

func TestUploadFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orderID := f.createOrder(t)
	files := []service.FileInput{{Filename: "brief.pdf", URL: "https://files.example/brief.pdf"}}

	order, err := f.orders.UploadFiles(ctx, f.client, orderID, files)
	require.NoError(t, err)
	assert.Len(t, order.ClientFiles, 1)
	assert.Empty(t, order.FreelancerFiles)

	order, err = f.orders.UploadFiles(ctx, f.freelancer, orderID, files)
	require.NoError(t, err)
	assert.Len(t, order.ClientFiles, 1)
	assert.Len(t, order.FreelancerFiles, 1)
	assert.Equal(t, data.PendingOrderStatus, order.Status)

	_, err = f.orders.UploadFiles(ctx, f.outsider, orderID, files)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.orders.UploadFiles(ctx, f.admin, orderID, files)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.orders.UploadFiles(ctx, f.client, orderID, nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.orders.Cancel(ctx, f.client, orderID, "")
	require.NoError(t, err)
	_, err = f.orders.UploadFiles(ctx, f.client, orderID, files)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestGetAndListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createOrder(t)
	second := f.createOrder(t)
	_, err := f.orders.Accept(ctx, f.freelancer, second)
	require.NoError(t, err)

	_, err = f.orders.GetOrder(ctx, f.outsider, first)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.orders.GetOrder(ctx, f.admin, first)
	assert.NoError(t, err)

	_, err = f.orders.GetOrder(ctx, f.client, uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)

	all, err := f.orders.ListOrders(ctx, f.freelancer, data.NullOrderStatus)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inProgress, err := f.orders.ListOrders(ctx, f.client, data.InProgressOrderStatus)
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, second, inProgress[0].ID)

	none, err := f.orders.ListOrders(ctx, f.outsider, data.NullOrderStatus)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.orders.ListOrders(ctx, f.client, "lost")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
