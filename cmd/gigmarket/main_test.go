package main

import (
	"context"
	"testing"
	"time"

	"gig-market/cmd/gigmarket/config"
	"gig-market/internal/gigmarket/data/memrepository"
	"gig-market/pkg/jwtfactory"
	"gig-market/pkg/logging"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSeedTokens(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := logging.FromZap(zap.New(core))
	tokenAuth := jwtauth.New("HS256", []byte("secret"), nil)
	seed := config.Seed{Users: []config.SeedUser{
		{ID: uuid.NewString(), Role: "freelancer"},
		{ID: uuid.NewString(), Role: "admin"},
	}}

	logSeedTokens(context.Background(), jwtfactory.New(tokenAuth, time.Hour), seed, logger)

	entries := logs.FilterMessage("development token issued").All()
	require.Len(t, entries, 2)
	for i, entry := range entries {
		fields := entry.ContextMap()
		assert.Equal(t, seed.Users[i].ID, fields["userID"])
		token, err := jwtauth.VerifyToken(tokenAuth, fields["token"].(string))
		require.NoError(t, err)
		role, ok := token.Get(jwtfactory.RoleClaimName)
		require.True(t, ok)
		assert.Equal(t, seed.Users[i].Role, role)
	}
}

func TestNewStoreWithoutDatabase(t *testing.T) {
	memStore := memrepository.New()
	st, err := newStore(context.Background(), &config.Config{}, memStore, logging.NewNop())
	require.NoError(t, err)
	defer st.close()
	assert.Same(t, memStore, st.repository)
	assert.Same(t, memStore, st.transactionManager)
}
