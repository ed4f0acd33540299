package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gig-market/internal/gigmarket/catalog"
	"gig-market/internal/gigmarket/data"
	"gig-market/pkg/logging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultOrdersLimit = 100
)

// orderTransitions lists every legal status change. completed and cancelled
// are terminal.
var orderTransitions = map[data.OrderStatus][]data.OrderStatus{
	data.PendingOrderStatus:           {data.InProgressOrderStatus, data.CancelledOrderStatus},
	data.InProgressOrderStatus:        {data.SubmittedOrderStatus, data.CancelledOrderStatus},
	data.SubmittedOrderStatus:         {data.CompletedOrderStatus, data.RevisionRequestedOrderStatus, data.CancelledOrderStatus},
	data.RevisionRequestedOrderStatus: {data.SubmittedOrderStatus, data.CancelledOrderStatus},
}

func canTransition(from, to data.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func isTerminal(status data.OrderStatus) bool {
	return len(orderTransitions[status]) == 0
}

type OrdersConfig struct {
	PlatformFeeRate decimal.Decimal
}

type OrderDetails struct {
	Client     Party
	Freelancer Party
	data.Order
}

type CreateOrderInput struct {
	ServiceID    string
	PackageTier  data.PackageTier
	Requirements string
}

type FileInput struct {
	Filename string
	URL      string
}

type Orders struct {
	transactionManager TransactionManager
	orderRepository    OrderRepository
	userRepository     UserRepository
	catalog            Catalog
	metrics            *Metrics
	logger             *logging.ZapLogger
	now                func() time.Time
	cfg                OrdersConfig
}

func NewOrders(
	cfg OrdersConfig,
	transactionManager TransactionManager,
	orderRepository OrderRepository,
	userRepository UserRepository,
	serviceCatalog Catalog,
	logger *logging.ZapLogger,
) *Orders {
	return &Orders{
		cfg:                cfg,
		transactionManager: transactionManager,
		orderRepository:    orderRepository,
		userRepository:     userRepository,
		catalog:            serviceCatalog,
		metrics:            NewMetrics(),
		logger:             logger,
		now:                time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (o *Orders) WithClock(now func() time.Time) *Orders {
	o.now = now
	return o
}

// SplitEscrow returns the platform fee and the freelancer share of amount.
// The fee is rounded down so the two parts always add up to amount.
func SplitEscrow(amount int64, feeRate decimal.Decimal) (platformFee, freelancerEarnings int64) {
	platformFee = decimal.NewFromInt(amount).Mul(feeRate).Floor().IntPart()
	return platformFee, amount - platformFee
}

func parseTier(tier data.PackageTier) (data.PackageTier, error) {
	switch data.PackageTier(strings.ToLower(string(tier))) {
	case data.BasicTier:
		return data.BasicTier, nil
	case data.StandardTier:
		return data.StandardTier, nil
	case data.PremiumTier:
		return data.PremiumTier, nil
	}
	return "", invalidInput("unknown package tier %q", tier)
}

func (o *Orders) Create(ctx context.Context, actor Actor, input CreateOrderInput) (OrderDetails, error) {
	if actor.Role != data.ClientRole {
		return OrderDetails{}, fmt.Errorf("%w: only clients can place orders", ErrForbidden)
	}
	if strings.TrimSpace(input.ServiceID) == "" {
		return OrderDetails{}, invalidInput("service id is required")
	}
	tier, err := parseTier(input.PackageTier)
	if err != nil {
		return OrderDetails{}, err
	}

	listing, err := o.catalog.GetService(ctx, input.ServiceID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrServiceNotFound):
			return OrderDetails{}, fmt.Errorf("%w: service %s", ErrNotFound, input.ServiceID)
		default:
			return OrderDetails{}, fmt.Errorf("error getting service: %w", err)
		}
	}
	pkg, ok := listing.Packages[string(tier)]
	if !ok {
		return OrderDetails{}, fmt.Errorf("%w: service %s has no %s package", ErrNotFound, input.ServiceID, tier)
	}
	if pkg.Price <= 0 {
		return OrderDetails{}, invalidInput("package %s has no price", tier)
	}
	freelancerID, err := uuid.Parse(listing.FreelancerID)
	if err != nil {
		return OrderDetails{}, fmt.Errorf("service %s has malformed freelancer id: %w", listing.ID, err)
	}
	if freelancerID == actor.ID {
		return OrderDetails{}, fmt.Errorf("%w: cannot order own service", ErrForbidden)
	}
	if _, err := o.userRepository.GetUser(ctx, freelancerID); err != nil {
		switch {
		case errors.Is(err, data.ErrNotFound):
			return OrderDetails{}, fmt.Errorf("%w: freelancer %s", ErrNotFound, freelancerID)
		default:
			return OrderDetails{}, fmt.Errorf("error getting freelancer: %w", err)
		}
	}

	platformFee, earnings := SplitEscrow(pkg.Price, o.cfg.PlatformFeeRate)
	features := make([]string, len(pkg.Features))
	copy(features, pkg.Features)
	order := &data.Order{
		ID:           uuid.New(),
		ClientID:     actor.ID,
		FreelancerID: freelancerID,
		ServiceID:    listing.ID,
		PackageTier:  tier,
		PackageDetails: data.PackageDetails{
			Price:        pkg.Price,
			Description:  pkg.Description,
			DeliveryTime: pkg.DeliveryTime,
			Features:     features,
			Revisions:    pkg.Revisions,
		},
		Requirements:       input.Requirements,
		Status:             data.PendingOrderStatus,
		PaymentStatus:      data.PaidPayment,
		EscrowAmount:       pkg.Price,
		PlatformFee:        platformFee,
		FreelancerEarnings: earnings,
		CreatedAt:          o.now(),
	}
	if err := o.orderRepository.InsertOrder(ctx, order); err != nil {
		return OrderDetails{}, fmt.Errorf("error inserting order: %w", err)
	}
	o.metrics.transition(data.NullOrderStatus, data.PendingOrderStatus)

	if err := o.catalog.IncrementOrderCount(ctx, listing.ID); err != nil {
		o.logger.WarnCtx(ctx, "failed to bump service order counter",
			zap.String("serviceID", listing.ID),
			zap.Error(err),
		)
	}
	o.logger.InfoCtx(ctx, "order created",
		zap.Stringer("orderID", order.ID),
		zap.Int64("escrow", order.EscrowAmount),
	)
	return o.details(ctx, *order), nil
}

func (o *Orders) Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (OrderDetails, error) {
	return o.transition(ctx, orderID, "accept", func(order *data.Order, now time.Time) error {
		if !isAssignedFreelancer(actor, order) {
			return fmt.Errorf("%w: only the assigned freelancer can accept", ErrForbidden)
		}
		if order.Status != data.PendingOrderStatus {
			return invalidState("accept", order.Status)
		}
		order.Status = data.InProgressOrderStatus
		order.AcceptedAt = &now
		return nil
	})
}

func (o *Orders) SubmitWork(ctx context.Context, actor Actor, orderID uuid.UUID, files []FileInput) (OrderDetails, error) {
	deliverables, err := buildFiles(files, o.now())
	if err != nil {
		return OrderDetails{}, err
	}
	return o.transition(ctx, orderID, "submit work", func(order *data.Order, now time.Time) error {
		if !isAssignedFreelancer(actor, order) {
			return fmt.Errorf("%w: only the assigned freelancer can submit work", ErrForbidden)
		}
		if !canTransition(order.Status, data.SubmittedOrderStatus) {
			return invalidState("submit work", order.Status)
		}
		order.Status = data.SubmittedOrderStatus
		order.SubmittedAt = &now
		order.FreelancerFiles = append(order.FreelancerFiles, deliverables...)
		return nil
	})
}

func (o *Orders) RequestRevision(ctx context.Context, actor Actor, orderID uuid.UUID, message string) (OrderDetails, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return OrderDetails{}, invalidInput("revision message is required")
	}
	return o.transition(ctx, orderID, "request revision", func(order *data.Order, now time.Time) error {
		if !isAssignedClient(actor, order) {
			return fmt.Errorf("%w: only the ordering client can request revisions", ErrForbidden)
		}
		if order.Status != data.SubmittedOrderStatus {
			return invalidState("request revision", order.Status)
		}
		if order.RevisionCount >= order.PackageDetails.Revisions {
			return fmt.Errorf("%w: %d of %d revisions used",
				ErrLimitExceeded, order.RevisionCount, order.PackageDetails.Revisions)
		}
		order.Revisions = append(order.Revisions, data.Revision{Message: message, RequestedAt: now})
		order.RevisionCount++
		order.Status = data.RevisionRequestedOrderStatus
		return nil
	})
}

// Cancel refunds the escrow (simulated) and closes the order. Nothing is
// credited to any wallet.
func (o *Orders) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (OrderDetails, error) {
	return o.transition(ctx, orderID, "cancel", func(order *data.Order, now time.Time) error {
		if actor.Role != data.AdminRole && !isAssignedClient(actor, order) && !isAssignedFreelancer(actor, order) {
			return fmt.Errorf("%w: not a party of this order", ErrForbidden)
		}
		if order.EscrowReleased {
			return fmt.Errorf("%w: escrow already released", ErrAlreadyProcessed)
		}
		if !canTransition(order.Status, data.CancelledOrderStatus) {
			return invalidState("cancel", order.Status)
		}
		order.Status = data.CancelledOrderStatus
		order.PaymentStatus = data.RefundedPayment
		order.CancelledAt = &now
		order.CancellationReason = strings.TrimSpace(reason)
		return nil
	})
}

// UploadFiles appends to the caller's own attachment list; the list is picked
// by matching the caller against the order parties.
func (o *Orders) UploadFiles(ctx context.Context, actor Actor, orderID uuid.UUID, files []FileInput) (OrderDetails, error) {
	if len(files) == 0 {
		return OrderDetails{}, invalidInput("no files supplied")
	}
	uploaded, err := buildFiles(files, o.now())
	if err != nil {
		return OrderDetails{}, err
	}
	return o.transition(ctx, orderID, "upload files", func(order *data.Order, _ time.Time) error {
		if isTerminal(order.Status) {
			return invalidState("upload files", order.Status)
		}
		switch actor.ID {
		case order.ClientID:
			order.ClientFiles = append(order.ClientFiles, uploaded...)
		case order.FreelancerID:
			order.FreelancerFiles = append(order.FreelancerFiles, uploaded...)
		default:
			return fmt.Errorf("%w: not a party of this order", ErrForbidden)
		}
		return nil
	})
}

func (o *Orders) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (OrderDetails, error) {
	order, err := o.orderRepository.GetOrder(ctx, orderID)
	if err != nil {
		return OrderDetails{}, translateOrderError(err, orderID)
	}
	if actor.Role != data.AdminRole && actor.ID != order.ClientID && actor.ID != order.FreelancerID {
		return OrderDetails{}, fmt.Errorf("%w: not a party of this order", ErrForbidden)
	}
	return o.details(ctx, order), nil
}

func (o *Orders) ListOrders(ctx context.Context, actor Actor, status data.OrderStatus) ([]OrderDetails, error) {
	if status != data.NullOrderStatus {
		if _, known := orderTransitions[status]; !known && !isKnownTerminal(status) {
			return nil, invalidInput("unknown order status %q", status)
		}
	}
	orders, err := o.orderRepository.GetUserOrders(ctx, actor.ID, data.OrderFilter{
		Status: status,
		Limit:  defaultOrdersLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("error getting user orders: %w", err)
	}
	res := make([]OrderDetails, len(orders))
	for i, order := range orders {
		res[i] = o.details(ctx, order)
	}
	return res, nil
}

// transition runs mutate against a locked copy of the order and persists it
// only if the stored status still equals the one mutate saw.
func (o *Orders) transition(
	ctx context.Context,
	orderID uuid.UUID,
	operation string,
	mutate func(order *data.Order, now time.Time) error,
) (OrderDetails, error) {
	var (
		result   data.Order
		previous data.OrderStatus
	)
	err := o.transactionManager.DoWithTransaction(ctx, func(ctx context.Context) error {
		order, err := o.orderRepository.LockOrder(ctx, orderID)
		if err != nil {
			return translateOrderError(err, orderID)
		}
		previous = order.Status
		if err := mutate(&order, o.now()); err != nil {
			return err
		}
		if err := o.orderRepository.UpdateOrder(ctx, &order, previous); err != nil {
			switch {
			case errors.Is(err, data.ErrStaleState):
				return invalidState(operation, "status changed concurrently")
			default:
				return fmt.Errorf("error updating order: %w", err)
			}
		}
		result = order
		return nil
	})
	if err != nil {
		return OrderDetails{}, err //nolint:wrapcheck // already wrapped
	}
	o.metrics.transition(previous, result.Status)
	o.logger.DebugCtx(ctx, "order updated",
		zap.String("operation", operation),
		zap.Stringer("orderID", orderID),
		zap.String("status", string(result.Status)),
	)
	return o.details(ctx, result), nil
}

func (o *Orders) details(ctx context.Context, order data.Order) OrderDetails {
	return OrderDetails{
		Order:      order,
		Client:     o.party(ctx, order.ClientID),
		Freelancer: o.party(ctx, order.FreelancerID),
	}
}

func (o *Orders) party(ctx context.Context, userID uuid.UUID) Party {
	user, err := o.userRepository.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, data.ErrNotFound) {
			o.logger.WarnCtx(ctx, "failed to resolve order party", zap.Stringer("userID", userID), zap.Error(err))
		}
		return Party{ID: userID}
	}
	return Party{ID: user.ID, Name: user.Name}
}

func buildFiles(files []FileInput, now time.Time) ([]data.File, error) {
	res := make([]data.File, 0, len(files))
	for i, f := range files {
		if strings.TrimSpace(f.Filename) == "" || strings.TrimSpace(f.URL) == "" {
			return nil, invalidInput("file %d needs filename and url", i)
		}
		res = append(res, data.File{Filename: f.Filename, URL: f.URL, UploadedAt: now})
	}
	return res, nil
}

func isAssignedFreelancer(actor Actor, order *data.Order) bool {
	return actor.Role == data.FreelancerRole && actor.ID == order.FreelancerID
}

func isAssignedClient(actor Actor, order *data.Order) bool {
	return actor.Role == data.ClientRole && actor.ID == order.ClientID
}

func isKnownTerminal(status data.OrderStatus) bool {
	return status == data.CompletedOrderStatus || status == data.CancelledOrderStatus
}

func translateOrderError(err error, orderID uuid.UUID) error {
	switch {
	case errors.Is(err, data.ErrNotFound):
		return fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	case errors.Is(err, data.ErrStaleState):
		return invalidState("read order", "concurrent update")
	}
	return fmt.Errorf("error getting order: %w", err)
}
