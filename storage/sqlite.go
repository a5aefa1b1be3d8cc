package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"boat_radar/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) migrate() error {
	schema := `
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
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		run_uuid TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		listings_found INTEGER,
		listings_new INTEGER,
		notified INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		query TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price_numeric);
	CREATE INDEX IF NOT EXISTS idx_listings_created ON listings(created_at);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Listings
// =============================================================================

// ExistingIDs binds the whole batch as one JSON array so any batch size
// stays a single query.
func (s *SQLiteStore) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(ids) == 0 {
		return existing, nil
	}

	batch, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode ids: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM listings WHERE id IN (SELECT value FROM json_each(?))`, string(batch))
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

func (s *SQLiteStore) UpsertListing(ctx context.Context, l models.Listing, searchQuery string) error {
	now := nowUTC()
	args := append(listingArgs(l, searchQuery), now, now)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO listings (`+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_sold = COALESCE(excluded.is_sold, listings.is_sold),
			is_pending = COALESCE(excluded.is_pending, listings.is_pending),
			description = COALESCE(excluded.description, listings.description),
			has_parking = COALESCE(excluded.has_parking, listings.has_parking),
			llm_rating = COALESCE(excluded.llm_rating, listings.llm_rating),
			llm_reason = COALESCE(excluded.llm_reason, listings.llm_reason),
			updated_at = excluded.updated_at`,
		args...)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", l.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*models.StoredListing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *SQLiteStore) ListListings(ctx context.Context) ([]models.StoredListing, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return collectSQLListings(rows)
}

func (s *SQLiteStore) ListingsByPriceRange(ctx context.Context, min, max int) ([]models.StoredListing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+listingColumns+` FROM listings
		WHERE price_numeric BETWEEN ? AND ?
		ORDER BY created_at DESC, id`, min, max)
	if err != nil {
		return nil, err
	}
	return collectSQLListings(rows)
}

func collectSQLListings(rows *sql.Rows) ([]models.StoredListing, error) {
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

// =============================================================================
// Runs and logs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (run_uuid, started_at, status, listings_found, listings_new,
			notified, errors_count)
		VALUES (?, ?, ?, 0, 0, 0, 0)`,
		run.RunUUID, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, listings_found = ?,
			listings_new = ?, notified = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ListingsFound, run.ListingsNew,
		run.Notified, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) RecentRuns(limit int) ([]models.ScrapeRun, error) {
	rows, err := s.db.Query(`
		SELECT id, run_uuid, started_at, finished_at, status, listings_found,
			listings_new, notified, errors_count
		FROM scrape_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []models.ScrapeRun{}
	for rows.Next() {
		var r models.ScrapeRun
		if err := rows.Scan(&r.ID, &r.RunUUID, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.ListingsFound, &r.ListingsNew, &r.Notified, &r.ErrorsCount); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, query string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, query)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, query)
	return err
}

func (s *SQLiteStore) LogsForRun(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, query
		FROM scrape_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	return scanLogs(rows)
}

// RecentLogs returns the newest log lines first. An empty level matches all.
func (s *SQLiteStore) RecentLogs(limit int, level models.LogLevel) ([]models.ScrapeLog, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if level != "" {
		rows, err = s.db.Query(`
			SELECT id, run_id, timestamp, level, message, query
			FROM scrape_logs WHERE level = ?
			ORDER BY timestamp DESC, id DESC LIMIT ?`, level, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT id, run_id, timestamp, level, message, query
			FROM scrape_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, err
	}
	return scanLogs(rows)
}

func scanLogs(rows *sql.Rows) ([]models.ScrapeLog, error) {
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		var query sql.NullString
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &query); err != nil {
			return nil, err
		}
		l.Query = query.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params any) error {
	var raw []byte
	if params != nil {
		var err error
		if raw, err = json.Marshal(params); err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, nullableJSON(raw), time.Now())
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func nullableJSON(raw []byte) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
