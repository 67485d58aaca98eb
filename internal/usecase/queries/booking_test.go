//go:build unit

package queries_test

import (
	"context"
	"testing"

	"stayhub/internal/infra"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubViewRepo struct {
	view      *queries.BookingView
	lastLimit int32
}

func (r *stubViewRepo) FindByID(_ context.Context, id uuid.UUID) (*queries.BookingView, error) {
	if r.view == nil || r.view.ID != id {
		return nil, infra.WrapRepoErr("not found", nil, infra.KindNotFound)
	}
	return r.view, nil
}

func (r *stubViewRepo) FindByGuestID(_ context.Context, _ uuid.UUID, limit, _ int32) ([]*queries.BookingListItem, error) {
	r.lastLimit = limit
	return nil, nil
}

func TestGetByIDVisibility(t *testing.T) {
	guest, host := uuid.New(), uuid.New()
	view := &queries.BookingView{ID: uuid.New(), GuestID: guest, HostID: host}
	q := queries.NewBookingQueries(&stubViewRepo{view: view})

	t.Run("guest sees own booking", func(t *testing.T) {
		got, err := q.GetByID(context.Background(), guest, view.ID)
		require.NoError(t, err)
		assert.Equal(t, view.ID, got.ID)
	})

	t.Run("host sees booking on their listing", func(t *testing.T) {
		_, err := q.GetByID(context.Background(), host, view.ID)
		assert.NoError(t, err)
	})

	t.Run("stranger gets not found, not forbidden", func(t *testing.T) {
		_, err := q.GetByID(context.Background(), uuid.New(), view.ID)
		assert.ErrorIs(t, err, errs.ErrBookingNotFound)
	})

	t.Run("missing booking", func(t *testing.T) {
		_, err := q.GetByID(context.Background(), guest, uuid.New())
		assert.ErrorIs(t, err, errs.ErrBookingNotFound)
	})
}

func TestListByGuestLimits(t *testing.T) {
	repo := &stubViewRepo{}
	q := queries.NewBookingQueries(repo)

	tests := []struct {
		name  string
		limit int
		want  int32
	}{
		{"default when unset", 0, 50},
		{"explicit limit kept", 25, 25},
		{"oversized limit reset to default", 500, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := q.ListByGuest(context.Background(), uuid.New(), tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, repo.lastLimit)
		})
	}
}
