package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"VolSignals/internal/domain/models"
	drepo "VolSignals/internal/domain/repository"
	pkgch "VolSignals/pkg/clickhouse"
	applogger "VolSignals/pkg/logger"
)

const auditTable = "audit_events"

func AuditSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + auditTable + ` (
            id         UUID,
            kind       LowCardinality(String),
            instrument LowCardinality(String),
            at         DateTime64(3, 'UTC'),
            payload    String
        ) ENGINE = MergeTree
        ORDER BY (instrument, at)`,
	}
}

// CHAuditStore persists audit events, one row per event with a JSON payload.
type CHAuditStore struct {
	db      *sql.DB
	l       *applogger.Logger
	timeout time.Duration
}

func NewCHAuditStore(ch *pkgch.Client, l *applogger.Logger) *CHAuditStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHAuditStore{db: ch.DB(), l: l, timeout: 5 * time.Second}
}

func (s *CHAuditStore) Store(ctx context.Context, ev models.AuditEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	const q = "INSERT INTO " + auditTable + " (id, kind, instrument, at, payload) VALUES (?, ?, ?, ?, ?)"
	if _, err := s.db.ExecContext(ctx, q, ev.ID, string(ev.Kind), ev.Instrument, ev.At.UTC(), string(payload)); err != nil {
		return fmt.Errorf("store audit event: %w", err)
	}
	return nil
}

// Emit stores the event and logs a failure.
func (s *CHAuditStore) Emit(ctx context.Context, ev models.AuditEvent) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.Store(ctx, ev); err != nil {
		s.l.Error("clickhouse audit emit failed", applogger.String("kind", string(ev.Kind)), applogger.Error(err))
	}
}

// StoredEvent is an audit row read back with its raw JSON payload.
type StoredEvent struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Instrument string          `json:"instrument"`
	At         time.Time       `json:"at"`
	Payload    json.RawMessage `json:"payload"`
}

// Query returns the newest events of instrument, optionally of one kind.
func (s *CHAuditStore) Query(ctx context.Context, instrument, kind string, limit int) ([]StoredEvent, error) {
	q := "SELECT id, kind, instrument, at, payload FROM " + auditTable + " WHERE instrument = ?"
	args := []interface{}{instrument}
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, kind)
	}
	q += " ORDER BY at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var (
			ev      StoredEvent
			payload string
		)
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Instrument, &ev.At, &payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		out = append(out, ev)
	}
	return out, rows.Err()
}

var _ drepo.AuditSink = (*CHAuditStore)(nil)
