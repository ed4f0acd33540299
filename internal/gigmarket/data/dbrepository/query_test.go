package dbrepository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gig-market/internal/gigmarket/data"
	"gig-market/pkg/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errQueryCaptured = errors.New("query captured")

// capturingStorage records the last query and fails it.
type capturingStorage struct {
	query string
	args  []any
}

func (s *capturingStorage) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errQueryCaptured
}

func (s *capturingStorage) QueryRow(context.Context, string, ...any) (pgx.Row, error) {
	return nil, errQueryCaptured
}

func (s *capturingStorage) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	s.query = query
	s.args = args
	return nil, errQueryCaptured
}

func (s *capturingStorage) QueryValue(context.Context, string, []any, []any) error {
	return errQueryCaptured
}

func TestGetWithdrawalsQuery(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pending := []data.WithdrawalStatus{data.PendingWithdrawalStatus}

	tests := []struct {
		name      string
		filter    data.WithdrawalFilter
		wantWhere string
		wantTail  string
		wantArgs  []any
	}{
		{
			name:      "no limit scans every match",
			filter:    data.WithdrawalFilter{Statuses: pending},
			wantWhere: " WHERE status IN ($1)",
			wantTail:  " ORDER BY created_at",
			wantArgs:  []any{"pending"},
		},
		{
			name:      "limit and cutoff",
			filter:    data.WithdrawalFilter{Statuses: pending, CreatedBefore: cutoff, Limit: 500},
			wantWhere: " WHERE status IN ($1) AND created_at <= $2",
			wantTail:  " ORDER BY created_at LIMIT $3",
			wantArgs:  []any{"pending", cutoff, 500},
		},
		{
			name:     "unfiltered",
			filter:   data.WithdrawalFilter{Limit: 10},
			wantTail: " FROM withdrawals ORDER BY created_at LIMIT $1",
			wantArgs: []any{10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &capturingStorage{}
			repo := New(storage, logging.NewNop())

			_, err := repo.GetWithdrawals(context.Background(), tt.filter)
			require.ErrorIs(t, err, errQueryCaptured)

			assert.Contains(t, storage.query, tt.wantWhere)
			assert.True(t, strings.HasSuffix(storage.query, tt.wantTail),
				"query %q should end with %q", storage.query, tt.wantTail)
			assert.Equal(t, tt.wantArgs, storage.args)
		})
	}
}
