package handlers

import (
	"context"
	"net/http"

	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"
)

type BalanceGettingHandler struct {
	service BalanceGettingService
	logger  *logging.ZapLogger
}

type BalanceGettingService interface {
	GetUserBalanceInfo(ctx context.Context, actor service.Actor) (service.BalanceInfo, error)
}

func NewBalanceGettingHandler(service BalanceGettingService, logger *logging.ZapLogger) *BalanceGettingHandler {
	return &BalanceGettingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *BalanceGettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, h.logger)
	if !ok {
		return
	}
	balanceInfo, err := h.service.GetUserBalanceInfo(r.Context(), actor)
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, clientprotocol.Wallet{
		WalletBalance:      balanceInfo.WalletBalance,
		TotalEarnings:      balanceInfo.TotalEarnings,
		PendingWithdrawals: balanceInfo.PendingWithdrawals,
		AvailableBalance:   balanceInfo.AvailableBalance,
	}, h.logger)
}
