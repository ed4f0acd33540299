package settlement

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gig-market/internal/gigmarket/data"
	"gig-market/pkg/logging"
	"gig-market/pkg/threadsafe"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	AutomaticTrigger = "automatic"
	ManualTrigger    = "manual"

	automaticNote = "Automatically settled after maturity window"
	manualNote    = "Settled by manual sweep"

	manualSweepKey = "manual"
)

type WithdrawalsSource interface {
	GetWithdrawals(ctx context.Context, filter data.WithdrawalFilter) ([]data.Withdrawal, error)
}

// Settler completes one pending withdrawal and debits the owner's wallet in
// a single transaction.
type Settler interface {
	SettleWithdrawal(ctx context.Context, withdrawalID uuid.UUID, note string) error
}

type Config struct {
	TickPeriod     time.Duration
	MaturityWindow time.Duration
	WorkersCount   int
	BatchSize      int
}

type Option func(*Scheduler)

// WithClock sets the function used to derive the sweep cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics overrides the default metrics registry.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

type Scheduler struct {
	source     WithdrawalsSource
	settler    Settler
	inFlight   *threadsafe.HashSet[string]
	lastSweep  *threadsafe.Time
	sweepGroup singleflight.Group
	metrics    *Metrics
	logger     *logging.ZapLogger
	now        func() time.Time
	done       chan struct{}
	config     Config
}

func New(
	config Config,
	source WithdrawalsSource,
	settler Settler,
	logger *logging.ZapLogger,
	opts ...Option,
) *Scheduler {
	if config.WorkersCount <= 0 {
		config.WorkersCount = 1
	}
	s := &Scheduler{
		source:    source,
		settler:   settler,
		config:    config,
		inFlight:  threadsafe.NewHashSet[string](),
		lastSweep: threadsafe.NewTime(time.Time{}),
		logger:    logger,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	return s
}

// Run sweeps matured withdrawals every TickPeriod until Stop is called.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(s.config.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if _, err := s.SweepMatured(context.Background()); err != nil {
				s.logger.ErrorCtx(context.Background(), "error while settling withdrawals", zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.done)
}

// LastSweep reports when the last automatic sweep started. Zero if none ran.
func (s *Scheduler) LastSweep() time.Time {
	return s.lastSweep.Get()
}

// SweepMatured settles pending withdrawals older than the maturity window.
func (s *Scheduler) SweepMatured(ctx context.Context) (int, error) {
	now := s.now()
	s.lastSweep.SetIf(now, func(current time.Time) bool { return now.After(current) })
	return s.sweep(ctx, AutomaticTrigger, automaticNote, data.WithdrawalFilter{
		Statuses:      []data.WithdrawalStatus{data.PendingWithdrawalStatus},
		CreatedBefore: now.Add(-s.config.MaturityWindow),
		Limit:         s.config.BatchSize,
	})
}

// SweepAll settles every pending withdrawal regardless of age. Callers that
// arrive while a sweep is running share its result. The sweep runs to
// completion even if the caller's context is cancelled.
func (s *Scheduler) SweepAll(ctx context.Context) (int, error) {
	ctx = context.WithoutCancel(ctx)
	res, err, _ := s.sweepGroup.Do(manualSweepKey, func() (any, error) {
		return s.sweep(ctx, ManualTrigger, manualNote, data.WithdrawalFilter{
			Statuses: []data.WithdrawalStatus{data.PendingWithdrawalStatus},
		})
	})
	if err != nil {
		return 0, err //nolint:wrapcheck // already wrapped
	}
	return res.(int), nil //nolint:forcetypeassert // sweep returns int
}

// sweep settles every withdrawal matched by filter. A failure on one
// withdrawal is logged and leaves it pending; the rest are still processed.
func (s *Scheduler) sweep(ctx context.Context, trigger, note string, filter data.WithdrawalFilter) (int, error) {
	started := time.Now()
	withdrawals, err := s.source.GetWithdrawals(ctx, filter)
	if err != nil {
		s.metrics.failed(trigger)
		return 0, fmt.Errorf("failed to get pending withdrawals: %w", err)
	}

	var settled atomic.Int64
	g := errgroup.Group{}
	g.SetLimit(s.config.WorkersCount)
	for _, withdrawal := range withdrawals {
		id := withdrawal.ID.String()
		if !s.inFlight.Add(id) {
			continue
		}
		g.Go(func() error {
			defer s.inFlight.Remove(id)
			if err := s.settle(ctx, withdrawal, note); err != nil {
				s.metrics.failed(trigger)
				s.logger.ErrorCtx(ctx, "failed to settle withdrawal",
					zap.String("trigger", trigger),
					zap.String("withdrawalID", id),
					zap.Error(err),
				)
				return nil
			}
			s.metrics.settled(trigger, withdrawal.Amount)
			settled.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.observeSweep(trigger, time.Since(started))
	s.logger.InfoCtx(ctx, "withdrawal sweep finished",
		zap.String("trigger", trigger),
		zap.Int("eligible", len(withdrawals)),
		zap.Int64("settled", settled.Load()),
	)
	return int(settled.Load()), nil
}

func (s *Scheduler) settle(ctx context.Context, withdrawal data.Withdrawal, note string) error {
	s.logger.DebugCtx(ctx, "settling withdrawal",
		zap.Stringer("withdrawalID", withdrawal.ID),
		zap.Int64("amount", withdrawal.Amount),
	)
	err := s.settler.SettleWithdrawal(ctx, withdrawal.ID, note)
	if err != nil {
		return fmt.Errorf("settling withdrawal %s: %w", withdrawal.ID, err)
	}
	return nil
}
