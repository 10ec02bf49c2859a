// ABOUTME: Account activity log: sign-ups, sign-ins, sign-outs and password resets
// ABOUTME: Entries are per user, append-only and listed newest first

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents an auditable account action.
type AuditAction string

const (
	AuditSignUp         AuditAction = "sign_up"
	AuditSignIn         AuditAction = "sign_in"
	AuditSignOut        AuditAction = "sign_out"
	AuditResetRequested AuditAction = "password_reset_requested"
	AuditPasswordReset  AuditAction = "password_reset"
)

// ValidAuditActions lists all valid audit actions.
var ValidAuditActions = []AuditAction{
	AuditSignUp,
	AuditSignIn,
	AuditSignOut,
	AuditResetRequested,
	AuditPasswordReset,
}

// AuditEntry is one line of a user's account activity.
type AuditEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"uid"`
	Action    AuditAction    `json:"action"`
	SessionID string         `json:"sessionId,omitempty"`
	Timestamp time.Time      `json:"at"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// AuditFilter selects entries of one user.
type AuditFilter struct {
	UserID string       // required
	Since  *time.Time   // entries at or after this time
	Until  *time.Time   // entries at or before this time
	Action *AuditAction // filter by action
	Limit  int          // max results (default 100, max 1000)
}

// AuditStore persists account activity.
type AuditStore interface {
	// AppendAuditLog generates ID and Timestamp when unset.
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// prepareAuditEntry fills generated fields.
func prepareAuditEntry(e *AuditEntry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// AppendAuditLog appends a new entry to the activity log.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	prepareAuditEntry(e)

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	var sessionID *string
	if e.SessionID != "" {
		sessionID = &e.SessionID
	}

	query := `
		INSERT INTO audit_log (audit_id, user_id, action, session_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.Action,
		sessionID,
		e.Timestamp.UTC().Format(time.RFC3339),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit log", "id", e.ID, "uid", e.UserID, "action", e.Action)
	return nil
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (AuditEntry, error) {
	var e AuditEntry
	var actionStr, tsStr string
	var sessionID, detailJSON *string

	if err := scanner.Scan(&e.ID, &e.UserID, &actionStr, &sessionID, &tsStr, &detailJSON); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}

	e.Action = AuditAction(actionStr)
	if sessionID != nil {
		e.SessionID = *sessionID
	}
	var err error
	e.Timestamp, err = time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}
	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}

// Timestamps have second precision, so insertion order breaks ties.
const auditLogQuery = `
	SELECT audit_id, user_id, action, session_id, ts, detail_json
	FROM audit_log
	WHERE user_id = ?
	  AND (? IS NULL OR ts >= ?)
	  AND (? IS NULL OR ts <= ?)
	  AND (? IS NULL OR action = ?)
	ORDER BY ts DESC, rowid DESC
	LIMIT ?
`

// ListAuditLog returns the user's entries matching the filter, newest first.
func (s *SQLiteStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	since := formatOptionalTime(f.Since)
	until := formatOptionalTime(f.Until)
	var action *string
	if f.Action != nil {
		a := string(*f.Action)
		action = &a
	}

	rows, err := s.db.QueryContext(ctx, auditLogQuery,
		f.UserID,
		since, since,
		until, until,
		action, action,
		normalizeAuditLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []AuditEntry{}
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return entries, nil
}
