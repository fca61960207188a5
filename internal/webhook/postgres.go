package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore stores webhook logs and deliveries in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a store backed by PostgreSQL.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateLog inserts a pending log row with the payload snapshot.
func (s *PostgresStore) CreateLog(ctx context.Context, log Log) error {
	id, err := uuid.Parse(log.ID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO webhook_logs (id, event_type, payload, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		id, log.EventType, log.Payload, log.Status, log.CreatedAt.UTC())
	return err
}

// GetLog fetches a log by identifier.
func (s *PostgresStore) GetLog(ctx context.Context, id string) (Log, error) {
	logID, err := uuid.Parse(id)
	if err != nil {
		return Log{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT id, event_type, payload, status, processed_at, error_message, created_at
        FROM webhook_logs WHERE id = $1`, logID)
	return scanLog(row)
}

// ListLogs returns logs newest first.
func (s *PostgresStore) ListLogs(ctx context.Context, limit, offset int) ([]Log, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `SELECT id, event_type, payload, status, processed_at, error_message, created_at
        FROM webhook_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// FinishLog records the aggregate outcome.
func (s *PostgresStore) FinishLog(ctx context.Context, id, status, errorMessage string, processedAt time.Time) error {
	logID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	tag, err := s.db.Exec(ctx, `UPDATE webhook_logs SET status = $2, error_message = NULLIF($3, ''), processed_at = $4
        WHERE id = $1`, logID, status, errorMessage, processedAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDelivery inserts one per-destination attempt row.
func (s *PostgresStore) RecordDelivery(ctx context.Context, d Delivery) error {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return err
	}
	logID, err := uuid.Parse(d.LogID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO webhook_deliveries (id, log_id, url, status_code, error_message, created_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		id, logID, d.URL, d.StatusCode, d.ErrorMessage, d.CreatedAt.UTC())
	return err
}

// Deliveries lists the attempts recorded for a log, oldest first.
func (s *PostgresStore) Deliveries(ctx context.Context, logID string) ([]Delivery, error) {
	id, err := uuid.Parse(logID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT id, log_id, url, status_code, error_message, created_at
        FROM webhook_deliveries WHERE log_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		var dID, lID uuid.UUID
		var errMsg *string
		var createdAt time.Time
		if err := rows.Scan(&dID, &lID, &d.URL, &d.StatusCode, &errMsg, &createdAt); err != nil {
			return nil, err
		}
		d.ID = dID.String()
		d.LogID = lID.String()
		if errMsg != nil {
			d.ErrorMessage = *errMsg
		}
		d.CreatedAt = createdAt.UTC()
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func scanLog(row pgx.Row) (Log, error) {
	var log Log
	var id uuid.UUID
	var processedAt *time.Time
	var errMsg *string
	var createdAt time.Time
	if err := row.Scan(&id, &log.EventType, &log.Payload, &log.Status, &processedAt, &errMsg, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Log{}, ErrNotFound
		}
		return Log{}, err
	}
	log.ID = id.String()
	if processedAt != nil {
		t := processedAt.UTC()
		log.ProcessedAt = &t
	}
	if errMsg != nil {
		log.ErrorMessage = *errMsg
	}
	log.CreatedAt = createdAt.UTC()
	return log, nil
}
