package handlers

import (
	"context"
	"net/http"

	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"

	"github.com/google/uuid"
)

type OrdersGettingService interface {
	GetOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID) (service.OrderDetails, error)
	ListOrders(ctx context.Context, actor service.Actor, status data.OrderStatus) ([]service.OrderDetails, error)
}

type OrdersGettingHandler struct {
	service OrdersGettingService
	logger  *logging.ZapLogger
}

func NewOrdersGettingHandler(service OrdersGettingService, logger *logging.ZapLogger) *OrdersGettingHandler {
	return &OrdersGettingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *OrdersGettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	status := data.OrderStatus(r.URL.Query().Get("status"))
	orders, err := h.service.ListOrders(r.Context(), actor, status)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	res := make([]clientprotocol.Order, 0, len(orders))
	for _, order := range orders {
		res = append(res, toClientOrder(order))
	}
	writeJSON(r.Context(), w, http.StatusOK, res, h.logger)
}

type OrderGettingHandler struct {
	service OrdersGettingService
	logger  *logging.ZapLogger
}

func NewOrderGettingHandler(service OrdersGettingService, logger *logging.ZapLogger) *OrderGettingHandler {
	return &OrderGettingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *OrderGettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	order, err := h.service.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toClientOrder(order), h.logger)
}
