package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boat_radar/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			price TEXT NOT NULL,
			price_numeric INTEGER,
			strikethrough_price TEXT,
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			delivery_types TEXT,
			is_sold BOOLEAN,
			is_pending BOOLEAN,
			category_id TEXT,
			subtitle TEXT,
			description TEXT,
			has_parking BOOLEAN,
			llm_rating INTEGER,
			llm_reason TEXT,
			search_query TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price_numeric);
		CREATE INDEX IF NOT EXISTS idx_listings_created ON listings(created_at DESC);`)
	return err
}

// =============================================================================
// Listings
// =============================================================================

func (s *PostgresStore) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT id FROM listings WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// UpsertListing inserts the full row. On conflict only the mutable fields move,
// and a NULL incoming value never overwrites a stored one.
func (s *PostgresStore) UpsertListing(ctx context.Context, l models.Listing, searchQuery string) error {
	query := `
		INSERT INTO listings (
			id, title, price, price_numeric, strikethrough_price, city, state, url,
			delivery_types, is_sold, is_pending, category_id, subtitle, description,
			has_parking, llm_rating, llm_reason, search_query, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW(), NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			is_sold = COALESCE(EXCLUDED.is_sold, listings.is_sold),
			is_pending = COALESCE(EXCLUDED.is_pending, listings.is_pending),
			description = COALESCE(EXCLUDED.description, listings.description),
			has_parking = COALESCE(EXCLUDED.has_parking, listings.has_parking),
			llm_rating = COALESCE(EXCLUDED.llm_rating, listings.llm_rating),
			llm_reason = COALESCE(EXCLUDED.llm_reason, listings.llm_reason),
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, listingArgs(l, searchQuery)...); err != nil {
		return fmt.Errorf("upsert listing %s: %w", l.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*models.StoredListing, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *PostgresStore) ListListings(ctx context.Context) ([]models.StoredListing, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

func (s *PostgresStore) ListingsByPriceRange(ctx context.Context, min, max int) ([]models.StoredListing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE price_numeric BETWEEN $1 AND $2
		ORDER BY created_at DESC`, min, max)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

func collectListings(rows pgx.Rows) ([]models.StoredListing, error) {
	defer rows.Close()

	listings := []models.StoredListing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}
