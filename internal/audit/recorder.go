// Package audit writes the append-only operation log. Entries record
// security-relevant actions for forensic review; they are never read back by
// this service, only written. Recording is fire-and-forget: a failed insert
// is reported to diagnostics and must never change the outcome of the
// operation that triggered it.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"upload-portal/internal/observability"
)

const (
	ActionLoginSuccess = "login_success"
	ActionLoginFailed  = "login_failed"
	ActionLogout       = "logout"
	ActionGetUserInfo  = "get_user_info"
)

type Recorder struct {
	db     *sql.DB
	logger *observability.Logger
}

func NewRecorder(db *sql.DB, logger *observability.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record appends an operation log entry. userID is nil when the action could
// not be tied to an account (e.g. a failed login for an unknown email).
// Errors are swallowed after logging.
func (r *Recorder) Record(ctx context.Context, userID *int64, action, ip, userAgent string) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO operation_logs (user_id, action, timestamp, ip_address, user_agent)
		VALUES ($1, $2, NOW(), $3, $4)
	`, userID, action, ip, userAgent)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("record operation log: %w", err))
		r.logger.Error("operation_log_write_failed", map[string]any{
			"action": action,
			"error":  err.Error(),
		})
	}
}

// DeleteOlderThan prunes operation log entries older than cutoff, at most
// batchSize per call. Used by the maintenance cleanup endpoint.
func (r *Recorder) DeleteOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM operation_logs
			WHERE timestamp < $1
			ORDER BY timestamp ASC
			LIMIT $2
		)
		DELETE FROM operation_logs t
		USING stale
		WHERE t.id = stale.id
	`, cutoff.UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete stale operation logs: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale operation logs rows affected: %w", err)
	}

	return affected, nil
}
