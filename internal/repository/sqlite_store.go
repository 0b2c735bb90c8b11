package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists price histories in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database file.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; readers share the WAL
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Init runs migrations.
func (s *SQLiteStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_points (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id  TEXT    NOT NULL,
			ts_ms       INTEGER NOT NULL,
			price       REAL    NOT NULL,
			source      TEXT    NOT NULL DEFAULT 'api',
			ingested_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_points_product_ts ON price_points(product_id, ts_ms)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Append writes all points in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, productID string, points []models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO price_points (product_id, ts_ms, price, source, ingested_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, productID, p.Date.UnixMilli(), p.Price, p.Source, now); err != nil {
			return fmt.Errorf("insert price point: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// History returns the newest limit points in ascending order (limit<=0 means all).
func (s *SQLiteStore) History(ctx context.Context, productID string, limit int) ([]models.PricePoint, error) {
	q := `SELECT ts_ms, price, source FROM price_points WHERE product_id = ? ORDER BY ts_ms ASC, id ASC`
	args := []interface{}{productID}
	if limit > 0 {
		q = `SELECT ts_ms, price, source FROM (
				SELECT id, ts_ms, price, source FROM price_points
				WHERE product_id = ? ORDER BY ts_ms DESC, id DESC LIMIT ?
			) ORDER BY ts_ms ASC, id ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		var (
			ts int64
			p  models.PricePoint
		)
		if err := rows.Scan(&ts, &p.Price, &p.Source); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.Date = time.UnixMilli(ts).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Products(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT product_id FROM price_points ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ domrepo.PriceStore = (*SQLiteStore)(nil)
