package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"
)

type WithdrawalsGettingHandler struct {
	service WithdrawalsGettingService
	logger  *logging.ZapLogger
}

type WithdrawalsGettingService interface {
	ListWithdrawals(ctx context.Context, actor service.Actor) ([]data.Withdrawal, error)
	ListAllWithdrawals(ctx context.Context, actor service.Actor, status data.WithdrawalStatus, limit int) ([]data.Withdrawal, error)
}

func NewWithdrawalsGettingHandler(service WithdrawalsGettingService, logger *logging.ZapLogger) *WithdrawalsGettingHandler {
	return &WithdrawalsGettingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WithdrawalsGettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	withdrawals, err := h.service.ListWithdrawals(r.Context(), actor)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toClientWithdrawals(withdrawals), h.logger)
}

// AdminWithdrawalsGettingHandler lists withdrawals of all users,
// filtered by ?status= and capped by ?limit=.
type AdminWithdrawalsGettingHandler struct {
	service WithdrawalsGettingService
	logger  *logging.ZapLogger
}

func NewAdminWithdrawalsGettingHandler(service WithdrawalsGettingService, logger *logging.ZapLogger) *AdminWithdrawalsGettingHandler {
	return &AdminWithdrawalsGettingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AdminWithdrawalsGettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(r.Context(), w, fmt.Errorf("%w: malformed limit %q", service.ErrInvalidInput, raw), h.logger)
			return
		}
		limit = parsed
	}
	status := data.WithdrawalStatus(r.URL.Query().Get("status"))
	withdrawals, err := h.service.ListAllWithdrawals(r.Context(), actor, status, limit)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toClientWithdrawals(withdrawals), h.logger)
}
