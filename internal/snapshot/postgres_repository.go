package snapshot

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save inserts a snapshot row.
func (r *PostgresRepository) Save(ctx context.Context, s *Snapshot) error {
	query := `
		INSERT INTO market_snapshots (
			id, crop, commodity, region, state, district,
			price_latest, price_med30, price_trend7, price_z30,
			temperature, humidity, rainfall, rain_days,
			explanation, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Crop, s.Commodity, s.Region, s.State, s.District,
		s.Market.PriceLatest, s.Market.PriceMed30, s.Market.PriceTrend7, s.Market.PriceZ30,
		s.Weather.Temperature, s.Weather.Humidity, s.Weather.Rainfall, s.Weather.RainDays,
		s.Explanation, s.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot per crop and region.
func (r *PostgresRepository) Latest(ctx context.Context, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `
		SELECT * FROM (
			SELECT DISTINCT ON (crop, region)
				id, crop, commodity, region,
				COALESCE(state, ''), COALESCE(district, ''),
				price_latest, price_med30, price_trend7, price_z30,
				temperature, humidity, rainfall, rain_days,
				explanation, fetched_at
			FROM market_snapshots
			ORDER BY crop, region, fetched_at DESC
		) latest
		ORDER BY fetched_at DESC, region, crop
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(
			&s.ID, &s.Crop, &s.Commodity, &s.Region,
			&s.State, &s.District,
			&s.Market.PriceLatest, &s.Market.PriceMed30, &s.Market.PriceTrend7, &s.Market.PriceZ30,
			&s.Weather.Temperature, &s.Weather.Humidity, &s.Weather.Rainfall, &s.Weather.RainDays,
			&s.Explanation, &s.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}
