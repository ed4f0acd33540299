package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gig-market/internal/gigmarket/data"
	"gig-market/pkg/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMinWithdrawal = int64(100_000)

	defaultWithdrawalsLimit = 100

	cancelledByUserNote = "Cancelled by user"
)

type WalletConfig struct {
	MinWithdrawal int64
}

type BalanceInfo struct {
	WalletBalance      int64
	TotalEarnings      int64
	PendingWithdrawals int64
	AvailableBalance   int64
}

type WithdrawalRequest struct {
	Amount        int64
	BankName      string
	AccountNumber string
	AccountName   string
}

type ProcessWithdrawalInput struct {
	Status data.WithdrawalStatus
	Notes  string
}

type Wallet struct {
	transactionManager   TransactionManager
	userRepository       UserRepository
	withdrawalRepository WithdrawalRepository
	metrics              *Metrics
	logger               *logging.ZapLogger
	now                  func() time.Time
	cfg                  WalletConfig
}

func NewWallet(
	cfg WalletConfig,
	transactionManager TransactionManager,
	userRepository UserRepository,
	withdrawalRepository WithdrawalRepository,
	logger *logging.ZapLogger,
) *Wallet {
	if cfg.MinWithdrawal <= 0 {
		cfg.MinWithdrawal = DefaultMinWithdrawal
	}
	return &Wallet{
		cfg:                  cfg,
		transactionManager:   transactionManager,
		userRepository:       userRepository,
		withdrawalRepository: withdrawalRepository,
		metrics:              NewMetrics(),
		logger:               logger,
		now:                  time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (w *Wallet) WithClock(now func() time.Time) *Wallet {
	w.now = now
	return w
}

func (w *Wallet) GetUserBalanceInfo(ctx context.Context, actor Actor) (BalanceInfo, error) {
	res := BalanceInfo{}
	err := w.transactionManager.DoWithTransaction(ctx, func(ctx context.Context) error {
		user, err := w.userRepository.GetUser(ctx, actor.ID)
		if err != nil {
			return translateUserError(err, actor.ID)
		}
		inFlight, err := w.withdrawalRepository.SumInFlightWithdrawals(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("getting in-flight withdrawals failed: %w", err)
		}
		res = BalanceInfo{
			WalletBalance:      user.WalletBalance,
			TotalEarnings:      user.TotalEarnings,
			PendingWithdrawals: inFlight,
			AvailableBalance:   user.WalletBalance - inFlight,
		}
		return nil
	})
	if err != nil {
		return BalanceInfo{}, err //nolint:wrapcheck // already wrapped
	}
	return res, nil
}

// RequestWithdrawal records a pending withdrawal. The user row stays locked
// between the available-balance check and the insert, so concurrent requests
// from one user are serialized and cannot jointly overdraw.
func (w *Wallet) RequestWithdrawal(ctx context.Context, actor Actor, request WithdrawalRequest) (data.Withdrawal, error) {
	if actor.Role != data.FreelancerRole {
		return data.Withdrawal{}, fmt.Errorf("%w: only freelancers can withdraw", ErrForbidden)
	}
	if err := w.validateRequest(request); err != nil {
		return data.Withdrawal{}, err
	}
	w.logger.DebugCtx(ctx, "withdraw",
		zap.Stringer("userID", actor.ID),
		zap.Int64("amount", request.Amount),
	)

	withdrawal := data.Withdrawal{
		ID:     uuid.New(),
		UserID: actor.ID,
		Amount: request.Amount,
		Bank: data.BankDetails{
			BankName:      strings.TrimSpace(request.BankName),
			AccountNumber: strings.TrimSpace(request.AccountNumber),
			AccountName:   strings.TrimSpace(request.AccountName),
		},
		Status:    data.PendingWithdrawalStatus,
		CreatedAt: w.now(),
	}
	err := w.transactionManager.DoWithTransaction(ctx, func(ctx context.Context) error {
		user, err := w.userRepository.LockUser(ctx, actor.ID)
		if err != nil {
			return translateUserError(err, actor.ID)
		}
		inFlight, err := w.withdrawalRepository.SumInFlightWithdrawals(ctx, actor.ID)
		if err != nil {
			return fmt.Errorf("getting in-flight withdrawals failed: %w", err)
		}
		available := user.WalletBalance - inFlight
		if request.Amount > available {
			return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientBalance, request.Amount, available)
		}
		return w.withdrawalRepository.InsertWithdrawal(ctx, &withdrawal)
	})
	if err != nil {
		return data.Withdrawal{}, err //nolint:wrapcheck // already wrapped
	}
	w.metrics.withdrawal(data.PendingWithdrawalStatus)
	return withdrawal, nil
}

func (w *Wallet) validateRequest(request WithdrawalRequest) error {
	switch {
	case strings.TrimSpace(request.BankName) == "":
		return invalidInput("bank name is required")
	case strings.TrimSpace(request.AccountNumber) == "":
		return invalidInput("account number is required")
	case strings.TrimSpace(request.AccountName) == "":
		return invalidInput("account name is required")
	case request.Amount < w.cfg.MinWithdrawal:
		return invalidInput("minimum withdrawal is %d", w.cfg.MinWithdrawal)
	}
	return nil
}

func (w *Wallet) CancelWithdrawal(ctx context.Context, actor Actor, withdrawalID uuid.UUID) (data.Withdrawal, error) {
	return w.update(ctx, withdrawalID, func(ctx context.Context, withdrawal *data.Withdrawal, now time.Time) error {
		if withdrawal.UserID != actor.ID {
			return fmt.Errorf("%w: not your withdrawal", ErrForbidden)
		}
		if withdrawal.Status != data.PendingWithdrawalStatus {
			return invalidState("cancel withdrawal", withdrawal.Status)
		}
		withdrawal.Status = data.RejectedWithdrawalStatus
		withdrawal.ProcessedAt = &now
		withdrawal.Notes = appendNote(withdrawal.Notes, cancelledByUserNote)
		return w.save(ctx, withdrawal, invalidState("cancel withdrawal", "status changed concurrently"),
			data.PendingWithdrawalStatus)
	})
}

// ProcessWithdrawal applies an administrative decision. Completing debits the
// wallet by the withdrawal amount; processing and rejecting never touch it.
func (w *Wallet) ProcessWithdrawal(
	ctx context.Context,
	actor Actor,
	withdrawalID uuid.UUID,
	input ProcessWithdrawalInput,
) (data.Withdrawal, error) {
	if actor.Role != data.AdminRole {
		return data.Withdrawal{}, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	switch input.Status {
	case data.ProcessingWithdrawalStatus, data.CompletedWithdrawalStatus, data.RejectedWithdrawalStatus:
	default:
		return data.Withdrawal{}, invalidInput("unsupported target status %q", input.Status)
	}
	processedBy := actor.ID
	return w.update(ctx, withdrawalID, func(ctx context.Context, withdrawal *data.Withdrawal, now time.Time) error {
		var expected []data.WithdrawalStatus
		switch input.Status {
		case data.ProcessingWithdrawalStatus:
			expected = []data.WithdrawalStatus{data.PendingWithdrawalStatus}
		default:
			expected = []data.WithdrawalStatus{data.PendingWithdrawalStatus, data.ProcessingWithdrawalStatus}
		}
		if !hasStatus(withdrawal.Status, expected) {
			return invalidState("move withdrawal to "+string(input.Status), withdrawal.Status)
		}
		withdrawal.Status = input.Status
		withdrawal.ProcessedBy = &processedBy
		withdrawal.ProcessedAt = &now
		withdrawal.Notes = appendNote(withdrawal.Notes, input.Notes)
		stale := invalidState("move withdrawal to "+string(input.Status), "status changed concurrently")
		if err := w.save(ctx, withdrawal, stale, expected...); err != nil {
			return err
		}
		if input.Status == data.CompletedWithdrawalStatus {
			return w.debit(ctx, withdrawal)
		}
		return nil
	})
}

// SettleWithdrawal completes a still-pending withdrawal on behalf of the
// settlement process and debits the wallet.
func (w *Wallet) SettleWithdrawal(ctx context.Context, withdrawalID uuid.UUID, note string) error {
	_, err := w.update(ctx, withdrawalID, func(ctx context.Context, withdrawal *data.Withdrawal, now time.Time) error {
		if withdrawal.Status != data.PendingWithdrawalStatus {
			return fmt.Errorf("%w: withdrawal %s is %s", ErrAlreadyProcessed, withdrawal.ID, withdrawal.Status)
		}
		withdrawal.Status = data.CompletedWithdrawalStatus
		withdrawal.ProcessedAt = &now
		withdrawal.Notes = appendNote(withdrawal.Notes, note)
		stale := fmt.Errorf("%w: withdrawal %s settled concurrently", ErrAlreadyProcessed, withdrawal.ID)
		if err := w.save(ctx, withdrawal, stale, data.PendingWithdrawalStatus); err != nil {
			return err
		}
		return w.debit(ctx, withdrawal)
	})
	return err
}

func (w *Wallet) ListWithdrawals(ctx context.Context, actor Actor) ([]data.Withdrawal, error) {
	withdrawals, err := w.withdrawalRepository.GetUserWithdrawals(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("getting user withdrawals failed: %w", err)
	}
	return withdrawals, nil
}

// ListAllWithdrawals is the administrative view, optionally narrowed to one
// status.
func (w *Wallet) ListAllWithdrawals(ctx context.Context, actor Actor, status data.WithdrawalStatus, limit int) ([]data.Withdrawal, error) {
	if actor.Role != data.AdminRole {
		return nil, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	if limit <= 0 {
		limit = defaultWithdrawalsLimit
	}
	filter := data.WithdrawalFilter{Limit: limit}
	if status != data.NullWithdrawalStatus {
		filter.Statuses = []data.WithdrawalStatus{status}
	}
	withdrawals, err := w.withdrawalRepository.GetWithdrawals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("getting withdrawals failed: %w", err)
	}
	return withdrawals, nil
}

func (w *Wallet) update(
	ctx context.Context,
	withdrawalID uuid.UUID,
	mutate func(ctx context.Context, withdrawal *data.Withdrawal, now time.Time) error,
) (data.Withdrawal, error) {
	var result data.Withdrawal
	err := w.transactionManager.DoWithTransaction(ctx, func(ctx context.Context) error {
		withdrawal, err := w.withdrawalRepository.GetWithdrawal(ctx, withdrawalID)
		if err != nil {
			if errors.Is(err, data.ErrNotFound) {
				return fmt.Errorf("%w: withdrawal %s", ErrNotFound, withdrawalID)
			}
			return fmt.Errorf("getting withdrawal failed: %w", err)
		}
		if err := mutate(ctx, &withdrawal, w.now()); err != nil {
			return err
		}
		result = withdrawal
		return nil
	})
	if err != nil {
		return data.Withdrawal{}, err //nolint:wrapcheck // already wrapped
	}
	w.metrics.withdrawal(result.Status)
	w.logger.InfoCtx(ctx, "withdrawal updated",
		zap.Stringer("withdrawalID", result.ID),
		zap.String("status", string(result.Status)),
		zap.Int64("amount", result.Amount),
	)
	return result, nil
}

// save persists withdrawal if its stored status is still one of expected,
// returning stale otherwise.
func (w *Wallet) save(
	ctx context.Context,
	withdrawal *data.Withdrawal,
	stale error,
	expected ...data.WithdrawalStatus,
) error {
	err := w.withdrawalRepository.UpdateWithdrawal(ctx, withdrawal, expected...)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrStaleState):
			return stale
		default:
			return fmt.Errorf("updating withdrawal failed: %w", err)
		}
	}
	return nil
}

func (w *Wallet) debit(ctx context.Context, withdrawal *data.Withdrawal) error {
	err := w.userRepository.DebitWallet(ctx, withdrawal.UserID, withdrawal.Amount)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrInsufficientFunds):
			return fmt.Errorf("%w: wallet cannot cover %d", ErrInsufficientBalance, withdrawal.Amount)
		default:
			return fmt.Errorf("debiting wallet failed: %w", err)
		}
	}
	return nil
}

func appendNote(notes, note string) string {
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return notes
	case notes == "":
		return note
	}
	return notes + "\n" + note
}

func hasStatus(status data.WithdrawalStatus, allowed []data.WithdrawalStatus) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

func translateUserError(err error, userID uuid.UUID) error {
	if errors.Is(err, data.ErrNotFound) {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return fmt.Errorf("getting user failed: %w", err)
}
