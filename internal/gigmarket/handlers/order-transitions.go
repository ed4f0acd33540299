package handlers

import (
	"context"
	"net/http"

	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"

	"github.com/google/uuid"
)

type OrderTransitionService interface {
	Accept(ctx context.Context, actor service.Actor, orderID uuid.UUID) (service.OrderDetails, error)
	SubmitWork(ctx context.Context, actor service.Actor, orderID uuid.UUID, files []service.FileInput) (service.OrderDetails, error)
	RequestRevision(ctx context.Context, actor service.Actor, orderID uuid.UUID, message string) (service.OrderDetails, error)
	Approve(ctx context.Context, actor service.Actor, orderID uuid.UUID) (service.OrderDetails, error)
	Cancel(ctx context.Context, actor service.Actor, orderID uuid.UUID, reason string) (service.OrderDetails, error)
	UploadFiles(ctx context.Context, actor service.Actor, orderID uuid.UUID, files []service.FileInput) (service.OrderDetails, error)
}

// orderAction performs one order operation. It owns decoding of the request
// body when the operation takes one.
type orderAction func(ctx context.Context, actor service.Actor, orderID uuid.UUID, r *http.Request) (service.OrderDetails, error)

type OrderTransitionHandler struct {
	action orderAction
	logger *logging.ZapLogger
}

func NewAcceptHandler(svc OrderTransitionService, logger *logging.ZapLogger) *OrderTransitionHandler {
	return &OrderTransitionHandler{
		action: func(ctx context.Context, actor service.Actor, orderID uuid.UUID, _ *http.Request) (service.OrderDetails, error) {
			return svc.Accept(ctx, actor, orderID)
		},
		logger: logger,
	}
}

func NewSubmitWorkHandler(svc OrderTransitionService, logger *logging.ZapLogger) *OrderTransitionHandler {
	return &OrderTransitionHandler{
		action: func(ctx context.Context, actor service.Actor, orderID uuid.UUID, r *http.Request) (service.OrderDetails, error) {
			request, err := decodeOptionalJSON[clientprotocol.FilesRequest](r.Body)
			if err != nil {
				return service.OrderDetails{}, err
			}
			return svc.SubmitWork(ctx, actor, orderID, fromClientFiles(request.Files))
		},
		logger: logger,
	}
}

func NewRevisionRequestHandler(svc OrderTransitionService, logger *logging.ZapLogger) *OrderTransitionHandler {
	return &OrderTransitionHandler{
		action: func(ctx context.Context, actor service.Actor, orderID uuid.UUID, r *http.Request) (service.OrderDetails, error) {
			request, err := decodeJSON[clientprotocol.RevisionRequest](r.Body)
			if err != nil {
				return service.OrderDetails{}, err
			}
			return svc.RequestRevision(ctx, actor, orderID, request.Message)
		},
		logger: logger,
	}
}

func NewApproveHandler(svc OrderTransitionService, logger *logging.ZapLogger) *OrderTransitionHandler {
	return &OrderTransitionHandler{
		action: func(ctx context.Context, actor service.Actor, orderID uuid.UUID, _ *http.Request) (service.OrderDetails, error) {
			return svc.Approve(ctx, actor, orderID)
		},
		logger: logger,
	}
}

func NewOrderCancelHandler(svc OrderTransitionService, logger *logging.ZapLogger) *OrderTransitionHandler {
	return &OrderTransitionHandler{
		action: func(ctx context.Context, actor service.Actor, orderID uuid.UUID, r *http.Request) (service.OrderDetails, error) {
			request, err := decodeOptionalJSON[clientprotocol.CancelOrderRequest](r.Body)
			if err != nil {
				return service.OrderDetails{}, err
			}
			return svc.Cancel(ctx, actor, orderID, request.Reason)
		},
		logger: logger,
	}
}

func NewFilesUploadHandler(svc OrderTransitionService, logger *logging.ZapLogger) *OrderTransitionHandler {
	return &OrderTransitionHandler{
		action: func(ctx context.Context, actor service.Actor, orderID uuid.UUID, r *http.Request) (service.OrderDetails, error) {
			request, err := decodeJSON[clientprotocol.FilesRequest](r.Body)
			if err != nil {
				return service.OrderDetails{}, err
			}
			return svc.UploadFiles(ctx, actor, orderID, fromClientFiles(request.Files))
		},
		logger: logger,
	}
}

func (h *OrderTransitionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	order, err := h.action(r.Context(), actor, orderID, r)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toClientOrder(order), h.logger)
}
