package merchant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/feastly/backend-feastly/internal/delivery"
)

// ErrNotFound indicates the merchant does not exist or is inactive.
var ErrNotFound = errors.New("merchant not found")

// Merchant carries the fields pricing needs: where the food comes from and
// how it is taxed.
type Merchant struct {
	ID         string
	Name       string
	Location   delivery.Point
	GSTEnabled bool
	GSTBps     int32
}

// TaxBps returns the tax rate the aggregator should apply, zero when GST is
// disabled for the merchant.
func (m Merchant) TaxBps() int32 {
	if !m.GSTEnabled {
		return 0
	}
	return m.GSTBps
}

// PGStore loads merchants from Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// GetByID returns an active merchant by id.
func (s *PGStore) GetByID(ctx context.Context, id string) (Merchant, error) {
	var m Merchant
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, lat, lng, gst_enabled, gst_bps
		 FROM merchants WHERE id = $1 AND is_active`, id).
		Scan(&m.ID, &m.Name, &m.Location.Lat, &m.Location.Lng, &m.GSTEnabled, &m.GSTBps)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Merchant{}, ErrNotFound
		}
		return Merchant{}, fmt.Errorf("get merchant: %w", err)
	}
	return m, nil
}
