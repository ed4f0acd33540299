package memrepository

import (
	"context"
	"sort"
	"sync"
	"time"

	"gig-market/internal/common/catalogprotocol"
	"gig-market/internal/gigmarket/catalog"
	"gig-market/internal/gigmarket/data"

	"github.com/google/uuid"
)

type contextKey struct{}

// MemRepository keeps the ledger in process memory. It implements the same
// repository contracts as the PostgreSQL repository plus the service catalog,
// and is used for tests and for running without a database.
//
// Transactions are serialized by a single mutex and rolled back by restoring
// a snapshot taken on entry.
type MemRepository struct {
	mu          sync.Mutex
	users       map[uuid.UUID]data.User
	orders      map[uuid.UUID]data.Order
	withdrawals map[uuid.UUID]data.Withdrawal
	services    map[string]catalogprotocol.Service
	failures    map[uuid.UUID]error
}

func New() *MemRepository {
	return &MemRepository{
		users:       make(map[uuid.UUID]data.User),
		orders:      make(map[uuid.UUID]data.Order),
		withdrawals: make(map[uuid.UUID]data.Withdrawal),
		services:    make(map[string]catalogprotocol.Service),
		failures:    make(map[uuid.UUID]error),
	}
}

func (r *MemRepository) DoWithTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	if r.inTransaction(ctx) {
		return f(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users, orders, withdrawals := r.snapshot()
	err := f(context.WithValue(ctx, contextKey{}, r))
	if err != nil {
		r.users, r.orders, r.withdrawals = users, orders, withdrawals
		return err
	}
	return nil
}

func (r *MemRepository) inTransaction(ctx context.Context) bool {
	owner, ok := ctx.Value(contextKey{}).(*MemRepository)
	return ok && owner == r
}

// lock acquires the mutex unless ctx already runs inside one of our
// transactions.
func (r *MemRepository) lock(ctx context.Context) func() {
	if r.inTransaction(ctx) {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

func (r *MemRepository) snapshot() (map[uuid.UUID]data.User, map[uuid.UUID]data.Order, map[uuid.UUID]data.Withdrawal) {
	users := make(map[uuid.UUID]data.User, len(r.users))
	for id, u := range r.users {
		users[id] = u
	}
	orders := make(map[uuid.UUID]data.Order, len(r.orders))
	for id, o := range r.orders {
		orders[id] = cloneOrder(o)
	}
	withdrawals := make(map[uuid.UUID]data.Withdrawal, len(r.withdrawals))
	for id, w := range r.withdrawals {
		withdrawals[id] = w
	}
	return users, orders, withdrawals
}

// AddUser registers a user as the profile collaborator would.
func (r *MemRepository) AddUser(user data.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

// AddService publishes a listing as the catalog collaborator would.
func (r *MemRepository) AddService(service catalogprotocol.Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[service.ID] = service
}

// FailWithdrawalUpdates makes every update of the given withdrawal fail with
// err. A nil err clears the failure.
func (r *MemRepository) FailWithdrawalUpdates(withdrawalID uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, withdrawalID)
		return
	}
	r.failures[withdrawalID] = err
}

// ServiceOrders reports the order counter of a listing.
func (r *MemRepository) ServiceOrders(serviceID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.services[serviceID].Orders
}

func (r *MemRepository) GetService(ctx context.Context, serviceID string) (catalogprotocol.Service, error) {
	defer r.lock(ctx)()
	service, ok := r.services[serviceID]
	if !ok {
		return catalogprotocol.Service{}, catalog.ErrServiceNotFound
	}
	return service, nil
}

func (r *MemRepository) IncrementOrderCount(ctx context.Context, serviceID string) error {
	defer r.lock(ctx)()
	service, ok := r.services[serviceID]
	if !ok {
		return catalog.ErrServiceNotFound
	}
	service.Orders++
	r.services[serviceID] = service
	return nil
}

func (r *MemRepository) GetUser(ctx context.Context, userID uuid.UUID) (data.User, error) {
	defer r.lock(ctx)()
	user, ok := r.users[userID]
	if !ok {
		return data.User{}, data.ErrNotFound
	}
	return user, nil
}

func (r *MemRepository) LockUser(ctx context.Context, userID uuid.UUID) (data.User, error) {
	return r.GetUser(ctx, userID)
}

func (r *MemRepository) CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) error {
	defer r.lock(ctx)()
	user, ok := r.users[userID]
	if !ok {
		return data.ErrNotFound
	}
	user.WalletBalance += amount
	user.TotalEarnings += amount
	r.users[userID] = user
	return nil
}

func (r *MemRepository) DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) error {
	defer r.lock(ctx)()
	user, ok := r.users[userID]
	if !ok {
		return data.ErrNotFound
	}
	if user.WalletBalance < amount {
		return data.ErrInsufficientFunds
	}
	user.WalletBalance -= amount
	r.users[userID] = user
	return nil
}

func (r *MemRepository) InsertOrder(ctx context.Context, order *data.Order) error {
	defer r.lock(ctx)()
	if _, ok := r.orders[order.ID]; ok {
		return data.ErrUniqueConstraintViolation
	}
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *MemRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (data.Order, error) {
	defer r.lock(ctx)()
	order, ok := r.orders[orderID]
	if !ok {
		return data.Order{}, data.ErrNotFound
	}
	return cloneOrder(order), nil
}

func (r *MemRepository) LockOrder(ctx context.Context, orderID uuid.UUID) (data.Order, error) {
	return r.GetOrder(ctx, orderID)
}

func (r *MemRepository) UpdateOrder(ctx context.Context, order *data.Order, expected data.OrderStatus) error {
	defer r.lock(ctx)()
	stored, ok := r.orders[order.ID]
	if !ok {
		return data.ErrNotFound
	}
	if stored.Status != expected {
		return data.ErrStaleState
	}
	updated := cloneOrder(*order)
	// creation-time fields are immutable
	updated.PackageDetails = stored.PackageDetails
	updated.EscrowAmount = stored.EscrowAmount
	updated.PlatformFee = stored.PlatformFee
	updated.FreelancerEarnings = stored.FreelancerEarnings
	updated.EscrowReleased = stored.EscrowReleased
	r.orders[order.ID] = updated
	return nil
}

func (r *MemRepository) ReleaseEscrow(ctx context.Context, orderID uuid.UUID, completedAt time.Time) error {
	defer r.lock(ctx)()
	order, ok := r.orders[orderID]
	if !ok {
		return data.ErrNotFound
	}
	if order.Status != data.SubmittedOrderStatus || order.EscrowReleased {
		return data.ErrStaleState
	}
	order.Status = data.CompletedOrderStatus
	order.PaymentStatus = data.ReleasedPayment
	order.EscrowReleased = true
	order.CompletedAt = &completedAt
	r.orders[orderID] = order
	return nil
}

func (r *MemRepository) GetUserOrders(ctx context.Context, userID uuid.UUID, filter data.OrderFilter) ([]data.Order, error) {
	defer r.lock(ctx)()
	result := make([]data.Order, 0)
	for _, order := range r.orders {
		if order.ClientID != userID && order.FreelancerID != userID {
			continue
		}
		if filter.Status != data.NullOrderStatus && order.Status != filter.Status {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *MemRepository) InsertWithdrawal(ctx context.Context, withdrawal *data.Withdrawal) error {
	defer r.lock(ctx)()
	if _, ok := r.withdrawals[withdrawal.ID]; ok {
		return data.ErrUniqueConstraintViolation
	}
	r.withdrawals[withdrawal.ID] = *withdrawal
	return nil
}

func (r *MemRepository) GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (data.Withdrawal, error) {
	defer r.lock(ctx)()
	withdrawal, ok := r.withdrawals[withdrawalID]
	if !ok {
		return data.Withdrawal{}, data.ErrNotFound
	}
	return withdrawal, nil
}

func (r *MemRepository) SumInFlightWithdrawals(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.lock(ctx)()
	var sum int64
	for _, withdrawal := range r.withdrawals {
		if withdrawal.UserID != userID {
			continue
		}
		switch withdrawal.Status {
		case data.PendingWithdrawalStatus, data.ProcessingWithdrawalStatus:
			sum += withdrawal.Amount
		}
	}
	return sum, nil
}

func (r *MemRepository) UpdateWithdrawal(
	ctx context.Context,
	withdrawal *data.Withdrawal,
	expected ...data.WithdrawalStatus,
) error {
	defer r.lock(ctx)()
	if err, ok := r.failures[withdrawal.ID]; ok {
		return err
	}
	stored, ok := r.withdrawals[withdrawal.ID]
	if !ok {
		return data.ErrNotFound
	}
	matches := false
	for _, status := range expected {
		if stored.Status == status {
			matches = true
			break
		}
	}
	if !matches {
		return data.ErrStaleState
	}
	stored.Status = withdrawal.Status
	stored.Notes = withdrawal.Notes
	stored.ProcessedAt = withdrawal.ProcessedAt
	stored.ProcessedBy = withdrawal.ProcessedBy
	r.withdrawals[withdrawal.ID] = stored
	return nil
}

func (r *MemRepository) GetUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]data.Withdrawal, error) {
	defer r.lock(ctx)()
	result := make([]data.Withdrawal, 0)
	for _, withdrawal := range r.withdrawals {
		if withdrawal.UserID == userID {
			result = append(result, withdrawal)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemRepository) GetWithdrawals(ctx context.Context, filter data.WithdrawalFilter) ([]data.Withdrawal, error) {
	defer r.lock(ctx)()
	result := make([]data.Withdrawal, 0)
	for _, withdrawal := range r.withdrawals {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, withdrawal.Status) {
			continue
		}
		if !filter.CreatedBefore.IsZero() && withdrawal.CreatedAt.After(filter.CreatedBefore) {
			continue
		}
		result = append(result, withdrawal)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func containsStatus(statuses []data.WithdrawalStatus, status data.WithdrawalStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func cloneOrder(order data.Order) data.Order {
	order.PackageDetails.Features = cloneSlice(order.PackageDetails.Features)
	order.Revisions = cloneSlice(order.Revisions)
	order.ClientFiles = cloneSlice(order.ClientFiles)
	order.FreelancerFiles = cloneSlice(order.FreelancerFiles)
	return order
}

func cloneSlice[T any](items []T) []T {
	if items == nil {
		return nil
	}
	res := make([]T, len(items))
	copy(res, items)
	return res
}
