package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/jwtfactory"
	"gig-market/pkg/logging"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey int

const (
	actorKey contextKey = iota
)

const (
	unauthorizedKind = "Unauthorized"
	forbiddenKind    = "Forbidden"
)

var (
	ErrNoActor = errors.New("no actor in context")
)

// ActorContext turns verified JWT claims into a service.Actor. It must run
// after jwtauth.Verifier and jwtauth.Authenticator.
type ActorContext struct {
	logger *logging.ZapLogger
}

func NewActorContext(logger *logging.ZapLogger) *ActorContext {
	return &ActorContext{
		logger: logger,
	}
}

func (ac *ActorContext) CreateHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			ac.logger.DebugCtx(r.Context(), "no token claims", zap.Error(err))
			writeError(w, http.StatusUnauthorized, unauthorizedKind, "missing token claims")
			return
		}
		actor, err := actorFromClaims(claims)
		if err != nil {
			ac.logger.DebugCtx(r.Context(), "malformed token claims", zap.Error(err))
			writeError(w, http.StatusUnauthorized, unauthorizedKind, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = logging.WithContextFields(ctx,
			zap.Stringer("actorID", actor.ID),
			zap.String("role", string(actor.Role)),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects actors whose role is not role.
func RequireRole(role data.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := ActorFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, unauthorizedKind, err.Error())
				return
			}
			if actor.Role != role {
				writeError(w, http.StatusForbidden, forbiddenKind, fmt.Sprintf("%s role required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ActorFromContext(ctx context.Context) (service.Actor, error) {
	actor, ok := ctx.Value(actorKey).(service.Actor)
	if !ok {
		return service.Actor{}, ErrNoActor
	}
	return actor, nil
}

// WithActor stores actor in ctx. Used by tests that bypass token parsing.
func WithActor(ctx context.Context, actor service.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(clientprotocol.Error{Error: kind, Message: message})
}

func actorFromClaims(claims map[string]any) (service.Actor, error) {
	rawID, ok := claims[jwtfactory.UserIDClaimName].(string)
	if !ok {
		return service.Actor{}, fmt.Errorf("claim %s missing", jwtfactory.UserIDClaimName)
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return service.Actor{}, fmt.Errorf("claim %s: %w", jwtfactory.UserIDClaimName, err)
	}
	rawRole, ok := claims[jwtfactory.RoleClaimName].(string)
	if !ok {
		return service.Actor{}, fmt.Errorf("claim %s missing", jwtfactory.RoleClaimName)
	}
	role := data.Role(rawRole)
	switch role {
	case data.ClientRole, data.FreelancerRole, data.AdminRole:
	default:
		return service.Actor{}, fmt.Errorf("unknown role %q", rawRole)
	}
	return service.Actor{ID: userID, Role: role}, nil
}
