package handlers

import (
	"context"
	"net/http"

	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"
)

type OrderCreationHandler struct {
	service OrderCreationService
	logger  *logging.ZapLogger
}

type OrderCreationService interface {
	Create(ctx context.Context, actor service.Actor, input service.CreateOrderInput) (service.OrderDetails, error)
}

func NewOrderCreationHandler(service OrderCreationService, logger *logging.ZapLogger) *OrderCreationHandler {
	return &OrderCreationHandler{
		service: service,
		logger:  logger,
	}
}

func (h *OrderCreationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	request, err := decodeJSON[clientprotocol.CreateOrderRequest](r.Body)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	order, err := h.service.Create(r.Context(), actor, service.CreateOrderInput{
		ServiceID:    request.ServiceID,
		PackageTier:  data.PackageTier(request.PackageTier),
		Requirements: request.Requirements,
	})
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, toClientOrder(order), h.logger)
}
