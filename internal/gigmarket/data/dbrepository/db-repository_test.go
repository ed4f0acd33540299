package dbrepository

import (
	"context"
	"os"
	"testing"
	"time"

	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/data/database"
	"gig-market/pkg/logging"
	"gig-market/pkg/pgxstorage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDatabaseEnv = "TEST_DATABASE_URI"

func newTestRepository(t *testing.T) (*DBRepository, *pgxstorage.DBStorage) {
	t.Helper()
	dsn, ok := os.LookupEnv(testDatabaseEnv)
	if !ok || dsn == "" {
		t.Skipf("%s is not set", testDatabaseEnv)
	}
	storage, err := pgxstorage.New(database.NewPgxDatabaseFactory(database.Config{
		ConnectionString:   dsn,
		RetryAttemptDelays: []time.Duration{time.Second},
	}))
	require.NoError(t, err)
	t.Cleanup(storage.Close)
	return New(storage, logging.NewNop()), storage
}

func insertUser(t *testing.T, storage *pgxstorage.DBStorage, role data.Role, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := storage.Exec(context.Background(),
		`INSERT INTO users (id, name, role, wallet_balance) VALUES ($1, $2, $3, $4)`,
		id, "user-"+id.String()[:8], role, balance,
	)
	require.NoError(t, err)
	return id
}

func TestWalletDeltas(t *testing.T) {
	repo, storage := newTestRepository(t)
	ctx := context.Background()
	userID := insertUser(t, storage, data.FreelancerRole, 0)

	require.NoError(t, repo.CreditWallet(ctx, userID, 900_000))
	require.NoError(t, repo.DebitWallet(ctx, userID, 400_000))
	assert.ErrorIs(t, repo.DebitWallet(ctx, userID, 600_000), data.ErrInsufficientFunds)
	assert.ErrorIs(t, repo.CreditWallet(ctx, uuid.New(), 1), data.ErrNotFound)

	user, err := repo.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), user.WalletBalance)
	assert.Equal(t, int64(900_000), user.TotalEarnings)
}

func TestOrderRoundTripAndConditionalUpdates(t *testing.T) {
	repo, storage := newTestRepository(t)
	ctx := context.Background()
	clientID := insertUser(t, storage, data.ClientRole, 0)
	freelancerID := insertUser(t, storage, data.FreelancerRole, 0)
	now := time.Now().UTC().Truncate(time.Millisecond)

	order := &data.Order{
		ID:           uuid.New(),
		ClientID:     clientID,
		FreelancerID: freelancerID,
		ServiceID:    "svc",
		PackageTier:  data.BasicTier,
		PackageDetails: data.PackageDetails{
			Price:     1_000_000,
			Features:  []string{"svg"},
			Revisions: 2,
		},
		Status:             data.PendingOrderStatus,
		PaymentStatus:      data.PaidPayment,
		EscrowAmount:       1_000_000,
		PlatformFee:        100_000,
		FreelancerEarnings: 900_000,
		CreatedAt:          now,
	}
	require.NoError(t, repo.InsertOrder(ctx, order))
	assert.ErrorIs(t, repo.InsertOrder(ctx, order), data.ErrUniqueConstraintViolation)

	stored, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PackageDetails, stored.PackageDetails)
	assert.Equal(t, data.PendingOrderStatus, stored.Status)

	stored.Status = data.InProgressOrderStatus
	stored.AcceptedAt = &now
	require.NoError(t, repo.UpdateOrder(ctx, &stored, data.PendingOrderStatus))
	assert.ErrorIs(t, repo.UpdateOrder(ctx, &stored, data.PendingOrderStatus), data.ErrStaleState)

	assert.ErrorIs(t, repo.ReleaseEscrow(ctx, order.ID, now), data.ErrStaleState)

	stored.Status = data.SubmittedOrderStatus
	stored.FreelancerFiles = []data.File{{Filename: "a.svg", URL: "https://f/a.svg", UploadedAt: now}}
	require.NoError(t, repo.UpdateOrder(ctx, &stored, data.InProgressOrderStatus))

	require.NoError(t, repo.ReleaseEscrow(ctx, order.ID, now))
	assert.ErrorIs(t, repo.ReleaseEscrow(ctx, order.ID, now), data.ErrStaleState)

	final, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, data.CompletedOrderStatus, final.Status)
	assert.True(t, final.EscrowReleased)
	assert.Len(t, final.FreelancerFiles, 1)

	orders, err := repo.GetUserOrders(ctx, freelancerID, data.OrderFilter{Status: data.CompletedOrderStatus})
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = repo.GetOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestWithdrawals(t *testing.T) {
	repo, storage := newTestRepository(t)
	ctx := context.Background()
	userID := insertUser(t, storage, data.FreelancerRole, 1_000_000)
	old := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Millisecond)

	insert := func(amount int64, createdAt time.Time) data.Withdrawal {
		w := data.Withdrawal{
			ID:        uuid.New(),
			UserID:    userID,
			Amount:    amount,
			Bank:      data.BankDetails{BankName: "B", AccountNumber: "1", AccountName: "N"},
			Status:    data.PendingWithdrawalStatus,
			CreatedAt: createdAt,
		}
		require.NoError(t, repo.InsertWithdrawal(ctx, &w))
		return w
	}
	matured := insert(200_000, old)
	fresh := insert(300_000, time.Now().UTC())

	sum, err := repo.SumInFlightWithdrawals(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), sum)

	due, err := repo.GetWithdrawals(ctx, data.WithdrawalFilter{
		Statuses:      []data.WithdrawalStatus{data.PendingWithdrawalStatus},
		CreatedBefore: time.Now().UTC().Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(due))
	for _, w := range due {
		ids = append(ids, w.ID)
	}
	assert.Contains(t, ids, matured.ID)
	assert.NotContains(t, ids, fresh.ID)

	processedAt := time.Now().UTC()
	matured.Status = data.CompletedWithdrawalStatus
	matured.ProcessedAt = &processedAt
	matured.Notes = "settled"
	require.NoError(t, repo.UpdateWithdrawal(ctx, &matured, data.PendingWithdrawalStatus))
	assert.ErrorIs(t, repo.UpdateWithdrawal(ctx, &matured, data.PendingWithdrawalStatus), data.ErrStaleState)

	sum, err = repo.SumInFlightWithdrawals(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), sum)

	mine, err := repo.GetUserWithdrawals(ctx, userID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, fresh.ID, mine[0].ID)
}

func TestLockUserInsideTransaction(t *testing.T) {
	repo, storage := newTestRepository(t)
	userID := insertUser(t, storage, data.FreelancerRole, 100)
	tm := pgxstorage.NewTransactionsManager(storage)

	err := tm.DoWithTransaction(context.Background(), func(ctx context.Context) error {
		user, err := repo.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(100), user.WalletBalance)
		return repo.DebitWallet(ctx, userID, 100)
	})
	require.NoError(t, err)

	user, err := repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, user.WalletBalance)
}
