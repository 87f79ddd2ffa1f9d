// Package catalog is the read-only client of the source-product
// index. Ingestion owns writes; the core only resolves which stored
// product backs a requested layer and time.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound means no product matches the selector within the
// retention window.
var ErrNotFound = errors.New("catalog: no matching product")

// SourceProduct is one catalog row. The identity tuple uniquely
// determines the storage path; rows are append-only.
type SourceProduct struct {
	ModelID       string
	Parameter     string
	Level         string
	ReferenceTime time.Time
	ValidTime     time.Time
	StoragePath   string
	DataFormat    string // "grib2" or "netcdf"
}

// TimeSelector picks a product along the time axis: zero value means
// "latest".
type TimeSelector struct {
	ValidTime     *time.Time
	ReferenceTime *time.Time
	ForecastHour  *int
}

// Catalog resolves products; the pgx implementation below is the
// production one, tests substitute fakes.
type Catalog interface {
	Find(ctx context.Context, model, parameter, level string, sel TimeSelector) (*SourceProduct, error)
}

// DB queries the source_products table through a pgx pool.
type DB struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

const findColumns = `model_id, parameter, level, reference_time, valid_time, storage_path, data_format`

// Find returns the product matching the selector, preferring the most
// recently valid product when several qualify.
func (db *DB) Find(ctx context.Context, model, parameter, level string, sel TimeSelector) (*SourceProduct, error) {
	var (
		query string
		args  []any
	)
	switch {
	case sel.ReferenceTime != nil && sel.ForecastHour != nil:
		query = fmt.Sprintf(`SELECT %s FROM source_products
			WHERE model_id=$1 AND parameter=$2 AND level=$3
			  AND reference_time=$4
			  AND valid_time = reference_time + ($5 * interval '1 hour')
			ORDER BY valid_time DESC LIMIT 1`, findColumns)
		args = []any{model, parameter, level, *sel.ReferenceTime, *sel.ForecastHour}
	case sel.ValidTime != nil:
		query = fmt.Sprintf(`SELECT %s FROM source_products
			WHERE model_id=$1 AND parameter=$2 AND level=$3 AND valid_time=$4
			ORDER BY reference_time DESC LIMIT 1`, findColumns)
		args = []any{model, parameter, level, *sel.ValidTime}
	default:
		query = fmt.Sprintf(`SELECT %s FROM source_products
			WHERE model_id=$1 AND parameter=$2 AND level=$3
			ORDER BY valid_time DESC, reference_time DESC LIMIT 1`, findColumns)
		args = []any{model, parameter, level}
	}

	var p SourceProduct
	err := db.pool.QueryRow(ctx, query, args...).Scan(
		&p.ModelID, &p.Parameter, &p.Level,
		&p.ReferenceTime, &p.ValidTime, &p.StoragePath, &p.DataFormat,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	return &p, nil
}
