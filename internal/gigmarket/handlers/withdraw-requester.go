package handlers

import (
	"context"
	"net/http"

	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"
)

type WithdrawRequesterHandler struct {
	service WithdrawRequesterService
	logger  *logging.ZapLogger
}

type WithdrawRequesterService interface {
	RequestWithdrawal(ctx context.Context, actor service.Actor, request service.WithdrawalRequest) (data.Withdrawal, error)
}

func NewWithdrawRequesterHandler(
	service WithdrawRequesterService,
	logger *logging.ZapLogger,
) *WithdrawRequesterHandler {
	return &WithdrawRequesterHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WithdrawRequesterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}

	request, err := decodeJSON[clientprotocol.WithdrawalRequest](r.Body)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}

	withdrawal, err := h.service.RequestWithdrawal(r.Context(), actor, service.WithdrawalRequest{
		Amount:        request.Amount,
		BankName:      request.BankDetails.BankName,
		AccountNumber: request.BankDetails.AccountNumber,
		AccountName:   request.BankDetails.AccountName,
	})
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, toClientWithdrawal(withdrawal), h.logger)
}
