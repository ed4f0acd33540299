package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/middleware"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	failedToRecoverActorErrorMessage = "failed to recover actor from context"
	idParam                          = "id"
)

var (
	ErrMalformedBody = errors.New("malformed request body")
)

func closeBody(ctx context.Context, body io.ReadCloser, logger *logging.ZapLogger) {
	err := body.Close()
	if err != nil {
		logger.ErrorCtx(ctx, "failed to close body", zap.Error(err))
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return out, nil
}

// decodeOptionalJSON treats an empty body as the zero value.
func decodeOptionalJSON[T any](r io.Reader) (T, error) {
	out, err := decodeJSON[T](r)
	if errors.Is(err, io.EOF) {
		var zero T
		return zero, nil
	}
	return out, err
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, idParam))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed id %q", service.ErrInvalidInput, chi.URLParam(r, idParam))
	}
	return id, nil
}

func actorFromRequest(w http.ResponseWriter, r *http.Request, logger *logging.ZapLogger) (service.Actor, bool) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		logger.ErrorCtx(r.Context(), failedToRecoverActorErrorMessage, zap.Error(err))
		w.WriteHeader(http.StatusUnauthorized)
		return service.Actor{}, false
	}
	return actor, true
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, responseItem any, logger *logging.ZapLogger) {
	res, err := json.Marshal(responseItem)
	if err != nil {
		logger.ErrorCtx(ctx, "Error marshalling response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(res); err != nil {
		logger.ErrorCtx(ctx, "Error writing response", zap.Error(err))
	}
}

var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{ErrMalformedBody, "InvalidInput", http.StatusBadRequest},
	{service.ErrInvalidInput, "InvalidInput", http.StatusBadRequest},
	{service.ErrForbidden, "Forbidden", http.StatusForbidden},
	{service.ErrNotFound, "NotFound", http.StatusNotFound},
	{service.ErrInvalidState, "InvalidState", http.StatusConflict},
	{service.ErrAlreadyProcessed, "AlreadyProcessed", http.StatusConflict},
	{service.ErrLimitExceeded, "LimitExceeded", http.StatusUnprocessableEntity},
	{service.ErrInsufficientBalance, "InsufficientBalance", http.StatusPaymentRequired},
}

// writeError maps a service error kind onto a status code. Unknown errors
// are logged and reported without detail.
func writeError(ctx context.Context, w http.ResponseWriter, err error, logger *logging.ZapLogger) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			logger.DebugCtx(ctx, "request rejected", zap.String("kind", k.kind), zap.Error(err))
			writeJSON(ctx, w, k.status, clientprotocol.Error{Error: k.kind, Message: err.Error()}, logger)
			return
		}
	}
	logger.ErrorCtx(ctx, "request failed", zap.Error(err))
	writeJSON(ctx, w, http.StatusInternalServerError, clientprotocol.Error{Error: "Internal", Message: "internal error"}, logger)
}
