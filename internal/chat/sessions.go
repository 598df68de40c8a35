package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/openlegis/billchat/internal/bills"
	"github.com/openlegis/billchat/internal/db"
	"github.com/openlegis/billchat/internal/llm"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("chat session not found")

// historyLimit caps how many prior messages feed back into the prompt.
const historyLimit = 20

// SessionStore persists chat sessions and their message history so a
// conversation can continue across requests.
type SessionStore struct {
	db *db.DB
}

// NewSessionStore creates a session store over the given database.
func NewSessionStore(database *db.DB) *SessionStore {
	return &SessionStore{db: database}
}

// Create starts a new session, optionally scoped to one bill, and
// returns its ID.
func (s *SessionStore) Create(ctx context.Context, key *bills.Key) (string, error) {
	id := uuid.NewString()

	var congress any
	var billType, billNumber any
	if key != nil {
		congress, billType, billNumber = key.Congress, key.Type, key.Number
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO chat_sessions (id, congress, bill_type, bill_number) VALUES (?, ?, ?, ?)`,
		id, congress, billType, billNumber)
	if err != nil {
		return "", fmt.Errorf("creating chat session: %w", err)
	}
	return id, nil
}

// Bill returns the bill key a session is scoped to, or nil for
// cross-bill sessions.
func (s *SessionStore) Bill(ctx context.Context, sessionID string) (*bills.Key, error) {
	var congress sql.NullInt64
	var billType, billNumber sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT congress, bill_type, bill_number FROM chat_sessions WHERE id = ?`, sessionID).
		Scan(&congress, &billType, &billNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading chat session %s: %w", sessionID, err)
	}
	if !congress.Valid {
		return nil, nil
	}
	key := bills.NewKey(int(congress.Int64), billType.String, billNumber.String)
	return &key, nil
}

// Append records one message in a session.
func (s *SessionStore) Append(ctx context.Context, sessionID string, role llm.Role, content string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO chat_messages (id, session_id, role, content) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), sessionID, string(role), content)
	if err != nil {
		return fmt.Errorf("appending chat message: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = datetime('now') WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("touching chat session: %w", err)
	}
	return nil
}

// History returns the most recent messages of a session in
// chronological order.
func (s *SessionStore) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT role, content FROM (
    SELECT role, content, created_at, rowid FROM chat_messages
    WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?
) ORDER BY created_at ASC, rowid ASC`, sessionID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	defer rows.Close()

	var history []llm.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		history = append(history, llm.Message{Role: llm.Role(role), Content: content})
	}
	return history, rows.Err()
}
