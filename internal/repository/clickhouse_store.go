package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PriceCast/internal/domain/models"
	domrepo "PriceCast/internal/domain/repository"
	pkgch "PriceCast/pkg/clickhouse"
	applogger "PriceCast/pkg/logger"
)

// ClickHouseStore keeps price histories in a MergeTree table ordered by
// (product_id, ts).
type ClickHouseStore struct {
	ch    *pkgch.Client
	table string // database-qualified
	l     *applogger.Logger
}

func NewClickHouseStore(ch *pkgch.Client, table string, l *applogger.Logger) *ClickHouseStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseStore{
		ch:    ch,
		table: fmt.Sprintf("%s.%s", ch.Database(), table),
		l:     l,
	}
}

// Init creates the database and table when missing.
func (s *ClickHouseStore) Init(ctx context.Context) error {
	db := strings.SplitN(s.table, ".", 2)[0]
	return s.ch.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			product_id  String,
			ts          DateTime64(3, 'UTC'),
			price       Float64,
			source      LowCardinality(String),
			ingested_at DateTime DEFAULT now()
		) ENGINE = MergeTree ORDER BY (product_id, ts)`, s.table),
	})
}

const chInsertChunk = 1000

// Append inserts points using multi-row VALUES in chunks.
func (s *ClickHouseStore) Append(ctx context.Context, productID string, points []models.PricePoint) error {
	start := time.Now()
	for lo := 0; lo < len(points); lo += chInsertChunk {
		hi := lo + chInsertChunk
		if hi > len(points) {
			hi = len(points)
		}
		chunk := points[lo:hi]

		args := make([]interface{}, 0, len(chunk)*4)
		for _, p := range chunk {
			args = append(args, productID, p.Date.UTC(), p.Price, p.Source)
		}
		if _, err := s.ch.DB().ExecContext(ctx, insertQuery(s.table, len(chunk)), args...); err != nil {
			s.l.Error("clickhouse append failed",
				applogger.String("table", s.table),
				applogger.String("product_id", productID),
				applogger.Error(err),
			)
			return fmt.Errorf("insert price points: %w", err)
		}
	}
	s.l.Debug("clickhouse append ok",
		applogger.String("product_id", productID),
		applogger.Int("rows", len(points)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func insertQuery(table string, rows int) string {
	values := make([]string, rows)
	for i := range values {
		values[i] = "(?, ?, ?, ?)"
	}
	return fmt.Sprintf("INSERT INTO %s (product_id, ts, price, source) VALUES %s", table, strings.Join(values, ","))
}

func (s *ClickHouseStore) History(ctx context.Context, productID string, limit int) ([]models.PricePoint, error) {
	q := fmt.Sprintf(`SELECT ts, price, source FROM %s WHERE product_id = ? ORDER BY ts ASC`, s.table)
	args := []interface{}{productID}
	if limit > 0 {
		q = fmt.Sprintf(`SELECT ts, price, source FROM (
				SELECT ts, price, source FROM %s WHERE product_id = ? ORDER BY ts DESC LIMIT ?
			) ORDER BY ts ASC`, s.table)
		args = append(args, limit)
	}

	rows, err := s.ch.DB().QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse history query failed", applogger.String("product_id", productID), applogger.Error(err))
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.PricePoint
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.Price, &p.Source); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.Date = p.Date.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) Products(ctx context.Context) ([]string, error) {
	rows, err := s.ch.DB().QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT product_id FROM %s ORDER BY product_id`, s.table))
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

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *ClickHouseStore) Close() error { return nil }

var _ domrepo.PriceStore = (*ClickHouseStore)(nil)
