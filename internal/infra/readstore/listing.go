package readstore

import (
	"context"

	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/pkg/pgconv"
	"stayhub/internal/usecase/queries"

	"github.com/google/uuid"
)

type ListingReadStore struct {
	db db.DBTX
}

func NewListingReadStore(dbtx db.DBTX) *ListingReadStore {
	return &ListingReadStore{db: dbtx}
}

const listingViewSQL = `
SELECT id, host_id, title, price_per_night_cents, currency, created_at
FROM listings
WHERE id = $1`

func (s *ListingReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ListingView, error) {
	v := &queries.ListingView{}
	err := s.db.QueryRow(ctx, listingViewSQL, id).Scan(
		&v.ID, &v.HostID, &v.Title, &v.PricePerNightCents, &v.Currency, &v.CreatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("listing not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to load listing", err)
	}
	return v, nil
}
