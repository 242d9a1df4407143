package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prudhivi99/designify-catalog/internal/client"
	"github.com/prudhivi99/designify-catalog/internal/models"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
	recordTimeout      = 2 * time.Second
)

// AuditRepository stores the outcome of every upstream request so empty
// catalog pages can be told apart from an unreachable backend.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewAuditRepository(conn *sql.DB, logger *zap.Logger) *AuditRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRepository{db: conn, logger: logger}
}

// EnsureSchema creates the audit table if it doesn't exist
func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS upstream_requests (
			id          BIGSERIAL PRIMARY KEY,
			endpoint    TEXT        NOT NULL,
			status      INTEGER     NOT NULL,
			success     BOOLEAN     NOT NULL,
			error_kind  TEXT        NOT NULL DEFAULT '',
			message     TEXT        NOT NULL DEFAULT '',
			duration_ms BIGINT      NOT NULL,
			cache_hit   BOOLEAN     NOT NULL DEFAULT FALSE,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create upstream_requests: %w", err)
	}
	return nil
}

// Record inserts one request outcome
func (r *AuditRepository) Record(ctx context.Context, rec client.RequestRecord) error {
	query := `
		INSERT INTO upstream_requests (endpoint, status, success, error_kind, message, duration_ms, cache_hit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.Endpoint,
		rec.Status,
		rec.Success,
		rec.ErrorKind,
		rec.Message,
		rec.Duration.Milliseconds(),
		rec.CacheHit,
		rec.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert request record: %w", err)
	}
	return nil
}

// ObserveRequest records rec, outliving the caller's cancellation.
func (r *AuditRepository) ObserveRequest(ctx context.Context, rec client.RequestRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := r.Record(ctx, rec); err != nil {
		r.logger.Warn("⚠️ Failed to audit upstream request", zap.String("endpoint", rec.Endpoint), zap.Error(err))
	}
}

// Recent returns the latest request outcomes, newest first
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]models.RequestAudit, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	query := `
		SELECT id, endpoint, status, success, error_kind, message, duration_ms, cache_hit, created_at
		FROM upstream_requests
		ORDER BY id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query request records: %w", err)
	}
	defer rows.Close()

	records := []models.RequestAudit{}
	for rows.Next() {
		var a models.RequestAudit
		err := rows.Scan(&a.ID, &a.Endpoint, &a.Status, &a.Success, &a.ErrorKind, &a.Message, &a.DurationMS, &a.CacheHit, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request record: %w", err)
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read request records: %w", err)
	}

	return records, nil
}
