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

type WithdrawalProcessingService interface {
	CancelWithdrawal(ctx context.Context, actor service.Actor, withdrawalID uuid.UUID) (data.Withdrawal, error)
	ProcessWithdrawal(ctx context.Context, actor service.Actor, withdrawalID uuid.UUID, input service.ProcessWithdrawalInput) (data.Withdrawal, error)
}

type WithdrawalCancelHandler struct {
	service WithdrawalProcessingService
	logger  *logging.ZapLogger
}

func NewWithdrawalCancelHandler(service WithdrawalProcessingService, logger *logging.ZapLogger) *WithdrawalCancelHandler {
	return &WithdrawalCancelHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WithdrawalCancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	withdrawalID, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	withdrawal, err := h.service.CancelWithdrawal(r.Context(), actor, withdrawalID)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toClientWithdrawal(withdrawal), h.logger)
}

type WithdrawalProcessHandler struct {
	service WithdrawalProcessingService
	logger  *logging.ZapLogger
}

func NewWithdrawalProcessHandler(service WithdrawalProcessingService, logger *logging.ZapLogger) *WithdrawalProcessHandler {
	return &WithdrawalProcessHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WithdrawalProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	withdrawalID, err := pathID(r)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	request, err := decodeJSON[clientprotocol.ProcessWithdrawalRequest](r.Body)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	withdrawal, err := h.service.ProcessWithdrawal(r.Context(), actor, withdrawalID, service.ProcessWithdrawalInput{
		Status: data.WithdrawalStatus(request.Status),
		Notes:  request.Notes,
	})
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toClientWithdrawal(withdrawal), h.logger)
}
