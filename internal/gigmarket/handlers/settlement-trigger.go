package handlers

import (
	"context"
	"net/http"

	"gig-market/internal/common/clientprotocol"
	"gig-market/pkg/logging"

	"go.uber.org/zap"
)

type SettlementTriggerHandler struct {
	sweeper Sweeper
	logger  *logging.ZapLogger
}

type Sweeper interface {
	SweepAll(ctx context.Context) (int, error)
}

func NewSettlementTriggerHandler(sweeper Sweeper, logger *logging.ZapLogger) *SettlementTriggerHandler {
	return &SettlementTriggerHandler{
		sweeper: sweeper,
		logger:  logger,
	}
}

func (h *SettlementTriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	processed, err := h.sweeper.SweepAll(r.Context())
	if err != nil {
		writeError(r.Context(), w, err, h.logger)
		return
	}
	h.logger.InfoCtx(r.Context(), "manual settlement sweep finished", zap.Int("processed", processed))
	writeJSON(r.Context(), w, http.StatusOK, clientprotocol.SettlementResult{Processed: processed}, h.logger)
}
