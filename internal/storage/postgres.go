package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/yourusername/cardinality-auditor/internal/config"
)

func NewPostgresDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Sources a Report can come from.
const (
	SourceScan   = "scan"
	SourceWindow = "window"
)

// Report is one persisted distinct-count audit result.
type Report struct {
	Table      string
	Column     string
	Source     string // scan or window
	StreamLen  int
	Estimate   int
	Threshold  int
	SampleSize int
	FinalP     float64
	Halvings   int
	Degenerate bool
	Elapsed    time.Duration
	AuditedAt  time.Time
}

const reportsSchema = `
CREATE TABLE IF NOT EXISTS cardinality_reports (
	id          BIGSERIAL PRIMARY KEY,
	audited_at  TIMESTAMPTZ NOT NULL,
	table_name  TEXT NOT NULL,
	column_name TEXT NOT NULL,
	source      TEXT NOT NULL,
	stream_len  BIGINT NOT NULL,
	estimate    BIGINT NOT NULL,
	threshold   BIGINT NOT NULL,
	sample_size BIGINT NOT NULL,
	final_p     DOUBLE PRECISION NOT NULL,
	halvings    INT NOT NULL,
	degenerate  BOOLEAN NOT NULL,
	elapsed_ms  BIGINT NOT NULL
)`

// EnsureSchema creates the reports table if it is missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, reportsSchema); err != nil {
		return fmt.Errorf("creating reports table: %w", err)
	}
	return nil
}

// SaveReport appends one audit result to the reports table.
func SaveReport(ctx context.Context, db *sql.DB, r Report) error {
	const q = `
	INSERT INTO cardinality_reports
		(audited_at, table_name, column_name, source, stream_len, estimate,
		 threshold, sample_size, final_p, halvings, degenerate, elapsed_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := db.ExecContext(ctx, q,
		r.AuditedAt, r.Table, r.Column, r.Source, r.StreamLen, r.Estimate,
		r.Threshold, r.SampleSize, r.FinalP, r.Halvings, r.Degenerate,
		r.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting report for %s.%s: %w", r.Table, r.Column, err)
	}
	return nil
}

// RowVisitor consumes one non-null column value.
type RowVisitor func(value string)

// StreamColumn counts the non-null values of one column, hands the count to
// begin, and then feeds every value once to the returned visitor. Count and
// scan share a repeatable-read transaction so both see the same snapshot.
// Values are cast to text; rows stream through the driver without being
// collected. An error from begin aborts the scan before any row is read.
func StreamColumn(ctx context.Context, db *sql.DB, table, column string, begin func(rowCount int) (RowVisitor, error)) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("beginning snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	qTable, qColumn := quoteQualified(table), pq.QuoteIdentifier(column)

	var count int
	countQuery := fmt.Sprintf("SELECT count(%s) FROM %s", qColumn, qTable)
	if err := tx.QueryRowContext(ctx, countQuery).Scan(&count); err != nil {
		return fmt.Errorf("counting rows in %s: %w", table, err)
	}

	visit, err := begin(count)
	if err != nil {
		return err
	}

	if count == 0 {
		return nil
	}

	scanQuery := fmt.Sprintf("SELECT (%s)::text FROM %s WHERE %s IS NOT NULL", qColumn, qTable, qColumn)
	rows, err := tx.QueryContext(ctx, scanQuery)
	if err != nil {
		return fmt.Errorf("scanning %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("reading value from %s.%s: %w", table, column, err)
		}
		visit(v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s.%s: %w", table, column, err)
	}

	return nil
}

// quoteQualified quotes a possibly schema-qualified table name part by part.
func quoteQualified(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
