package dbrepository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"gig-market/internal/gigmarket/data"
	"gig-market/pkg/logging"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100

	uniqueViolationCode      = "23505"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

type DBStorage interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) (pgx.Row, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryValue(ctx context.Context, query string, args []any, dest []any) error
}

type scanner interface {
	Scan(dest ...any) error
}

type DBRepository struct {
	storage DBStorage
	logger  *logging.ZapLogger
}

func New(storage DBStorage, logger *logging.ZapLogger) *DBRepository {
	return &DBRepository{
		storage: storage,
		logger:  logger,
	}
}

//go:embed sql/select_user.sql
var selectUserQuery string

func (db *DBRepository) GetUser(ctx context.Context, userID uuid.UUID) (data.User, error) {
	return db.queryUser(ctx, selectUserQuery, userID)
}

//go:embed sql/lock_user.sql
var lockUserQuery string

func (db *DBRepository) LockUser(ctx context.Context, userID uuid.UUID) (data.User, error) {
	return db.queryUser(ctx, lockUserQuery, userID)
}

func (db *DBRepository) queryUser(ctx context.Context, query string, userID uuid.UUID) (data.User, error) {
	var user data.User
	err := db.storage.QueryValue(
		ctx,
		query,
		[]any{userID},
		[]any{&user.ID, &user.Name, &user.Role, &user.WalletBalance, &user.TotalEarnings},
	)
	if err != nil {
		return data.User{}, handleSQLError(err)
	}
	return user, nil
}

//go:embed sql/credit_wallet.sql
var creditWalletQuery string

func (db *DBRepository) CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) error {
	tag, err := db.storage.Exec(ctx, creditWalletQuery, userID, amount)
	if err != nil {
		return handleSQLError(err)
	}
	if tag.RowsAffected() == 0 {
		return data.ErrNotFound
	}
	return nil
}

//go:embed sql/debit_wallet.sql
var debitWalletQuery string

func (db *DBRepository) DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) error {
	tag, err := db.storage.Exec(ctx, debitWalletQuery, userID, amount)
	if err != nil {
		return handleSQLError(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := db.GetUser(ctx, userID); err != nil {
		return err
	}
	return data.ErrInsufficientFunds
}

//go:embed sql/insert_order.sql
var insertOrderQuery string

func (db *DBRepository) InsertOrder(ctx context.Context, order *data.Order) error {
	_, err := db.storage.Exec(
		ctx,
		insertOrderQuery,
		order.ID,
		order.ClientID,
		order.FreelancerID,
		order.ServiceID,
		string(order.PackageTier),
		order.PackageDetails,
		order.Requirements,
		string(order.Status),
		string(order.PaymentStatus),
		order.EscrowAmount,
		order.PlatformFee,
		order.FreelancerEarnings,
		order.EscrowReleased,
		order.RevisionCount,
		nonNil(order.Revisions),
		nonNil(order.ClientFiles),
		nonNil(order.FreelancerFiles),
		order.CreatedAt,
	)
	if err != nil {
		return handleSQLError(err)
	}
	return nil
}

//go:embed sql/select_order.sql
var selectOrderQuery string

func (db *DBRepository) GetOrder(ctx context.Context, orderID uuid.UUID) (data.Order, error) {
	return db.queryOrder(ctx, selectOrderQuery, orderID)
}

//go:embed sql/lock_order.sql
var lockOrderQuery string

func (db *DBRepository) LockOrder(ctx context.Context, orderID uuid.UUID) (data.Order, error) {
	return db.queryOrder(ctx, lockOrderQuery, orderID)
}

func (db *DBRepository) queryOrder(ctx context.Context, query string, orderID uuid.UUID) (data.Order, error) {
	db.logger.DebugCtx(ctx, "getting order", zap.Stringer("orderID", orderID))
	row, err := db.storage.QueryRow(ctx, query, orderID)
	if err != nil {
		return data.Order{}, handleSQLError(err)
	}
	order, err := scanOrder(row)
	if err != nil {
		return data.Order{}, handleSQLError(err)
	}
	return order, nil
}

//go:embed sql/update_order.sql
var updateOrderQuery string

func (db *DBRepository) UpdateOrder(ctx context.Context, order *data.Order, expected data.OrderStatus) error {
	tag, err := db.storage.Exec(
		ctx,
		updateOrderQuery,
		order.ID,
		string(order.Status),
		string(order.PaymentStatus),
		order.RevisionCount,
		nonNil(order.Revisions),
		nonNil(order.ClientFiles),
		nonNil(order.FreelancerFiles),
		order.CancellationReason,
		order.AcceptedAt,
		order.SubmittedAt,
		order.CompletedAt,
		order.CancelledAt,
		string(expected),
	)
	if err != nil {
		return handleSQLError(err)
	}
	if tag.RowsAffected() == 0 {
		return data.ErrStaleState
	}
	return nil
}

//go:embed sql/release_escrow.sql
var releaseEscrowQuery string

func (db *DBRepository) ReleaseEscrow(ctx context.Context, orderID uuid.UUID, completedAt time.Time) error {
	tag, err := db.storage.Exec(ctx, releaseEscrowQuery, orderID, completedAt)
	if err != nil {
		return handleSQLError(err)
	}
	if tag.RowsAffected() == 0 {
		return data.ErrStaleState
	}
	return nil
}

//go:embed sql/select_user_orders.sql
var selectUserOrdersQuery string

func (db *DBRepository) GetUserOrders(ctx context.Context, userID uuid.UUID, filter data.OrderFilter) ([]data.Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := db.storage.Query(ctx, selectUserOrdersQuery, userID, string(filter.Status), limit)
	if err != nil {
		return nil, handleSQLError(err)
	}
	defer rows.Close()

	result := make([]data.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, handleSQLError(err)
		}
		result = append(result, order)
	}
	if err = rows.Err(); err != nil {
		return nil, handleSQLError(err)
	}
	return result, nil
}

func scanOrder(row scanner) (data.Order, error) {
	var order data.Order
	err := row.Scan(
		&order.ID,
		&order.ClientID,
		&order.FreelancerID,
		&order.ServiceID,
		&order.PackageTier,
		&order.PackageDetails,
		&order.Requirements,
		&order.Status,
		&order.PaymentStatus,
		&order.EscrowAmount,
		&order.PlatformFee,
		&order.FreelancerEarnings,
		&order.EscrowReleased,
		&order.RevisionCount,
		&order.Revisions,
		&order.ClientFiles,
		&order.FreelancerFiles,
		&order.CancellationReason,
		&order.CreatedAt,
		&order.AcceptedAt,
		&order.SubmittedAt,
		&order.CompletedAt,
		&order.CancelledAt,
	)
	return order, err //nolint:wrapcheck // handled by caller
}

//go:embed sql/insert_withdrawal.sql
var insertWithdrawalQuery string

func (db *DBRepository) InsertWithdrawal(ctx context.Context, withdrawal *data.Withdrawal) error {
	_, err := db.storage.Exec(
		ctx,
		insertWithdrawalQuery,
		withdrawal.ID,
		withdrawal.UserID,
		withdrawal.Amount,
		withdrawal.Bank.BankName,
		withdrawal.Bank.AccountNumber,
		withdrawal.Bank.AccountName,
		string(withdrawal.Status),
		withdrawal.Notes,
		withdrawal.CreatedAt,
	)
	if err != nil {
		return handleSQLError(err)
	}
	return nil
}

//go:embed sql/select_withdrawal.sql
var selectWithdrawalQuery string

func (db *DBRepository) GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (data.Withdrawal, error) {
	row, err := db.storage.QueryRow(ctx, selectWithdrawalQuery, withdrawalID)
	if err != nil {
		return data.Withdrawal{}, handleSQLError(err)
	}
	withdrawal, err := scanWithdrawal(row)
	if err != nil {
		return data.Withdrawal{}, handleSQLError(err)
	}
	return withdrawal, nil
}

//go:embed sql/select_inflight_withdrawals_sum.sql
var selectInFlightWithdrawalsSumQuery string

func (db *DBRepository) SumInFlightWithdrawals(ctx context.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	err := db.storage.QueryValue(ctx, selectInFlightWithdrawalsSumQuery, []any{userID}, []any{&sum})
	if err != nil {
		return 0, handleSQLError(err)
	}
	return sum, nil
}

//go:embed sql/update_withdrawal.sql
var updateWithdrawalQuery string

func (db *DBRepository) UpdateWithdrawal(
	ctx context.Context,
	withdrawal *data.Withdrawal,
	expected ...data.WithdrawalStatus,
) error {
	tag, err := db.storage.Exec(
		ctx,
		updateWithdrawalQuery,
		withdrawal.ID,
		string(withdrawal.Status),
		withdrawal.Notes,
		withdrawal.ProcessedAt,
		withdrawal.ProcessedBy,
		statusStrings(expected),
	)
	if err != nil {
		return handleSQLError(err)
	}
	if tag.RowsAffected() == 0 {
		return data.ErrStaleState
	}
	return nil
}

//go:embed sql/select_user_withdrawals.sql
var selectUserWithdrawalsQuery string

func (db *DBRepository) GetUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]data.Withdrawal, error) {
	rows, err := db.storage.Query(ctx, selectUserWithdrawalsQuery, userID)
	if err != nil {
		return nil, handleSQLError(err)
	}
	return collectWithdrawals(rows)
}

func (db *DBRepository) GetWithdrawals(ctx context.Context, filter data.WithdrawalFilter) ([]data.Withdrawal, error) {
	query := "SELECT id, user_id, amount, bank_name, account_number, account_name, status, notes, " +
		"processed_at, processed_by, created_at FROM withdrawals"
	args := make([]any, 0, len(filter.Statuses)+2)
	conditions := make([]string, 0, 2)
	if len(filter.Statuses) > 0 {
		conditions = append(conditions,
			fmt.Sprintf("status IN (%s)", formatParams(len(args)+1, len(filter.Statuses))))
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if !filter.CreatedBefore.IsZero() {
		args = append(args, filter.CreatedBefore)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, handleSQLError(err)
	}
	return collectWithdrawals(rows)
}

func collectWithdrawals(rows pgx.Rows) ([]data.Withdrawal, error) {
	defer rows.Close()

	result := make([]data.Withdrawal, 0)
	for rows.Next() {
		withdrawal, err := scanWithdrawal(rows)
		if err != nil {
			return nil, handleSQLError(err)
		}
		result = append(result, withdrawal)
	}
	if err := rows.Err(); err != nil {
		return nil, handleSQLError(err)
	}
	return result, nil
}

func scanWithdrawal(row scanner) (data.Withdrawal, error) {
	var withdrawal data.Withdrawal
	err := row.Scan(
		&withdrawal.ID,
		&withdrawal.UserID,
		&withdrawal.Amount,
		&withdrawal.Bank.BankName,
		&withdrawal.Bank.AccountNumber,
		&withdrawal.Bank.AccountName,
		&withdrawal.Status,
		&withdrawal.Notes,
		&withdrawal.ProcessedAt,
		&withdrawal.ProcessedBy,
		&withdrawal.CreatedAt,
	)
	return withdrawal, err //nolint:wrapcheck // handled by caller
}

func handleSQLError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return data.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return data.ErrUniqueConstraintViolation
		case serializationFailureCode, deadlockDetectedCode:
			return fmt.Errorf("%w: %s", data.ErrStaleState, pgErr.Message)
		}
	}
	return err
}

func formatParams(firstNumber, valuesCount int) string {
	currentNum := firstNumber
	values := make([]string, valuesCount)
	for i := range valuesCount {
		values[i] = fmt.Sprintf("$%v", currentNum)
		currentNum++
	}
	return strings.Join(values, ",")
}

func statusStrings(statuses []data.WithdrawalStatus) []string {
	res := make([]string, len(statuses))
	for i, status := range statuses {
		res[i] = string(status)
	}
	return res
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return make([]T, 0)
	}
	return items
}
