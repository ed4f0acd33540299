package service

import (
	"context"
	"time"

	"gig-market/internal/common/catalogprotocol"
	"gig-market/internal/gigmarket/data"

	"github.com/google/uuid"
)

type TransactionManager interface {
	DoWithTransaction(ctx context.Context, f func(ctx context.Context) error) error
}

type UserRepository interface {
	GetUser(ctx context.Context, userID uuid.UUID) (data.User, error)
	// LockUser reads the user and holds a row lock until the surrounding
	// transaction ends.
	LockUser(ctx context.Context, userID uuid.UUID) (data.User, error)
	CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) error
	DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) error
}

type OrderRepository interface {
	InsertOrder(ctx context.Context, order *data.Order) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (data.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (data.Order, error)
	UpdateOrder(ctx context.Context, order *data.Order, expected data.OrderStatus) error
	ReleaseEscrow(ctx context.Context, orderID uuid.UUID, completedAt time.Time) error
	GetUserOrders(ctx context.Context, userID uuid.UUID, filter data.OrderFilter) ([]data.Order, error)
}

type WithdrawalRepository interface {
	InsertWithdrawal(ctx context.Context, withdrawal *data.Withdrawal) error
	GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (data.Withdrawal, error)
	SumInFlightWithdrawals(ctx context.Context, userID uuid.UUID) (int64, error)
	UpdateWithdrawal(ctx context.Context, withdrawal *data.Withdrawal, expected ...data.WithdrawalStatus) error
	GetUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]data.Withdrawal, error)
	GetWithdrawals(ctx context.Context, filter data.WithdrawalFilter) ([]data.Withdrawal, error)
}

type Catalog interface {
	GetService(ctx context.Context, serviceID string) (catalogprotocol.Service, error)
	IncrementOrderCount(ctx context.Context, serviceID string) error
}

// Actor is the authenticated caller supplied by the auth collaborator.
type Actor struct {
	ID   uuid.UUID
	Role data.Role
}

type Party struct {
	ID   uuid.UUID
	Name string
}
