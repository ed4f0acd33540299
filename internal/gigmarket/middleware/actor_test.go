package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gig-market/internal/common/clientprotocol"
	"gig-market/internal/gigmarket/data"
	"gig-market/internal/gigmarket/service"
	"gig-market/pkg/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorFromClaims(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name    string
		claims  map[string]any
		wantErr bool
	}{
		{name: "valid", claims: map[string]any{"user_id": id.String(), "role": "admin"}},
		{name: "missing id", claims: map[string]any{"role": "admin"}, wantErr: true},
		{name: "malformed id", claims: map[string]any{"user_id": "7", "role": "admin"}, wantErr: true},
		{name: "missing role", claims: map[string]any{"user_id": id.String()}, wantErr: true},
		{name: "unknown role", claims: map[string]any{"user_id": id.String(), "role": "root"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, err := actorFromClaims(tt.claims)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, service.Actor{ID: id, Role: data.AdminRole}, actor)
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(data.AdminRole)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		ctx        context.Context
		wantStatus int
		wantKind   string
	}{
		{name: "no actor", ctx: context.Background(), wantStatus: http.StatusUnauthorized, wantKind: "Unauthorized"},
		{
			name:       "wrong role",
			ctx:        WithActor(context.Background(), service.Actor{ID: uuid.New(), Role: data.ClientRole}),
			wantStatus: http.StatusForbidden,
			wantKind:   "Forbidden",
		},
		{
			name:       "admin",
			ctx:        WithActor(context.Background(), service.Actor{ID: uuid.New(), Role: data.AdminRole}),
			wantStatus: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tt.ctx)
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantKind == "" {
				return
			}
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body clientprotocol.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestPanicRecover(t *testing.T) {
	handler := NewPanicRecover(logging.NewNop()).CreateHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
