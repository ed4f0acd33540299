package service

import (
	"context"
	"errors"
	"fmt"

	"gig-market/internal/gigmarket/data"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Approve completes a submitted order and releases its escrow into the
// freelancer's wallet. The status flip and the wallet credit commit together
// or not at all.
func (o *Orders) Approve(ctx context.Context, actor Actor, orderID uuid.UUID) (OrderDetails, error) {
	var result data.Order
	err := o.transactionManager.DoWithTransaction(ctx, func(ctx context.Context) error {
		order, err := o.orderRepository.LockOrder(ctx, orderID)
		if err != nil {
			return translateOrderError(err, orderID)
		}
		if !isAssignedClient(actor, &order) {
			return fmt.Errorf("%w: only the ordering client can approve", ErrForbidden)
		}
		if order.EscrowReleased {
			return fmt.Errorf("%w: escrow for order %s already released", ErrAlreadyProcessed, orderID)
		}
		if order.Status != data.SubmittedOrderStatus {
			return invalidState("approve", order.Status)
		}

		completedAt := o.now()
		err = o.orderRepository.ReleaseEscrow(ctx, orderID, completedAt)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrStaleState):
				return fmt.Errorf("%w: escrow for order %s already released", ErrAlreadyProcessed, orderID)
			default:
				return fmt.Errorf("error releasing escrow: %w", err)
			}
		}
		err = o.userRepository.CreditWallet(ctx, order.FreelancerID, order.FreelancerEarnings)
		if err != nil {
			return fmt.Errorf("error crediting freelancer wallet: %w", err)
		}

		order.Status = data.CompletedOrderStatus
		order.CompletedAt = &completedAt
		order.EscrowReleased = true
		order.PaymentStatus = data.ReleasedPayment
		result = order
		return nil
	})
	if err != nil {
		return OrderDetails{}, err //nolint:wrapcheck // already wrapped
	}
	o.metrics.transition(data.SubmittedOrderStatus, data.CompletedOrderStatus)
	o.metrics.release(result.FreelancerEarnings, result.PlatformFee)
	o.logger.InfoCtx(ctx, "escrow released",
		zap.Stringer("orderID", orderID),
		zap.Stringer("freelancerID", result.FreelancerID),
		zap.Int64("earnings", result.FreelancerEarnings),
		zap.Int64("platformFee", result.PlatformFee),
	)
	return o.details(ctx, result), nil
}
