package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lifelog-ai/internal/rag"
)

// ConversationStore persists multi-turn conversations so the HTTP layer can
// replay history into the query engine.
type ConversationStore interface {
	// Ensure creates the conversation row if it does not exist and verifies
	// ownership when it does.
	Ensure(ctx context.Context, conversationID, userID string) error

	// AppendMessage appends one turn to a conversation.
	AppendMessage(ctx context.Context, conversationID string, msg rag.Message) error

	// ListMessages returns a conversation's turns, oldest first. Insertion
	// order is authoritative even when timestamps collide.
	ListMessages(ctx context.Context, conversationID string) ([]rag.Message, error)
}

// conversationRepo implements ConversationStore on SQLite.
type conversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a ConversationStore backed by the given database.
func NewConversationRepo(db *sql.DB) ConversationStore {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) Ensure(ctx context.Context, conversationID, userID string) error {
	var owner string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM conversations WHERE id = ?`, conversationID,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO conversations (id, user_id) VALUES (?, ?)`,
			conversationID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up conversation: %w", err)
	}
	if owner != userID {
		return fmt.Errorf("conversation %s does not belong to user", conversationID)
	}
	return nil
}

func (r *conversationRepo) AppendMessage(ctx context.Context, conversationID string, msg rag.Message) error {
	createdAt := msg.Timestamp
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), conversationID, msg.Role, msg.Content, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func (r *conversationRepo) ListMessages(ctx context.Context, conversationID string) ([]rag.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var messages []rag.Message
	for rows.Next() {
		var msg rag.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
