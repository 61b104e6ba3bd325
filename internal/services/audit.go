package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ClientInfo identifies the caller of a request for audit purposes.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type clientInfoKey struct{}

func ContextWithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func ClientInfoFromContext(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

// RecordEvent writes an auth event for userID, logging instead of failing.
func RecordEvent(ctx context.Context, audit AuditLog, log *zap.Logger, userID string, kind models.AuthEventKind) {
	info := ClientInfoFromContext(ctx)
	err := audit.Record(ctx, models.AuthEvent{
		UserID:    userID,
		Kind:      kind,
		IPAddress: info.IP,
		UserAgent: info.UserAgent,
	})
	if err != nil {
		log.Warn("failed to record auth event",
			zap.String("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

// AuditLog records auth events. Writes are best effort: callers log a failed
// write and carry on.
type AuditLog interface {
	Record(ctx context.Context, ev models.AuthEvent) error
}

// NopAuditLog discards events. Used when POSTGRES_URI is unset.
type NopAuditLog struct{}

func (NopAuditLog) Record(context.Context, models.AuthEvent) error { return nil }

// PostgresAuditLog appends events to the auth_events table.
type PostgresAuditLog struct {
	db *sql.DB
}

func NewPostgresAuditLog(db *sql.DB) *PostgresAuditLog {
	return &PostgresAuditLog{db: db}
}

func (l *PostgresAuditLog) Record(ctx context.Context, ev models.AuthEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO auth_events (id, user_id, kind, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ev.ID, ev.UserID, string(ev.Kind), ev.IPAddress, ev.UserAgent, ev.CreatedAt)
	return errors.Wrap(err, "insert auth event")
}

// RecentEvents returns the newest events of a user, newest first.
func (l *PostgresAuditLog) RecentEvents(ctx context.Context, userID string, limit int) ([]models.AuthEvent, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, kind, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM auth_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query auth events")
	}
	defer rows.Close()

	var events []models.AuthEvent
	for rows.Next() {
		var ev models.AuthEvent
		var kind string
		if err := rows.Scan(&ev.ID, &ev.UserID, &kind, &ev.IPAddress, &ev.UserAgent, &ev.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan auth event")
		}
		ev.Kind = models.AuthEventKind(kind)
		events = append(events, ev)
	}
	return events, errors.Wrap(rows.Err(), "iterate auth events")
}
