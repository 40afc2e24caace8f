package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
)

// Conversation represents a row in conversations.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Persona   string    `json:"persona"`
	Tone      string    `json:"tone"`
	CEFRLevel string    `json:"cefr_level"`
	Language  string    `json:"language"`
	Scenario  string    `json:"scenario,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a row in conversation_messages.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationRepository defines the interface for conversation data access.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation) error
	Get(ctx context.Context, userID, id uuid.UUID) (*Conversation, error)
	AppendMessages(ctx context.Context, convID uuid.UUID, msgs ...Message) error
	RecentMessages(ctx context.Context, convID uuid.UUID, limit int) ([]Message, error)
}

// PostgresConversationRepository implements ConversationRepository with PostgreSQL.
type PostgresConversationRepository struct {
	db *client.PostgresClient
}

// NewPostgresConversationRepository creates a new PostgresConversationRepository.
func NewPostgresConversationRepository(db *client.PostgresClient) *PostgresConversationRepository {
	return &PostgresConversationRepository{db: db}
}

// Create inserts a conversation and fills in its id and timestamps.
func (r *PostgresConversationRepository) Create(ctx context.Context, c *Conversation) error {
	if err := ready(r.db); err != nil {
		return err
	}

	query := `
		INSERT INTO conversations (user_id, persona, tone, cefr_level, language, scenario)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		c.UserID,
		c.Persona,
		c.Tone,
		c.CEFRLevel,
		c.Language,
		c.Scenario,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return errors.Database("failed to create conversation", err)
	}
	return nil
}

// Get retrieves a conversation owned by userID.
func (r *PostgresConversationRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Conversation, error) {
	if err := ready(r.db); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, persona, tone, cefr_level, language, COALESCE(scenario, ''), created_at, updated_at
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`

	var c Conversation
	err := r.db.Pool.QueryRow(ctx, query, id, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.Persona,
		&c.Tone,
		&c.CEFRLevel,
		&c.Language,
		&c.Scenario,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, errors.NotFound("conversation")
		}
		return nil, errors.Database("failed to get conversation", err)
	}
	return &c, nil
}

// AppendMessages stores msgs in order inside one transaction and bumps the
// conversation's updated_at.
func (r *PostgresConversationRepository) AppendMessages(ctx context.Context, convID uuid.UUID, msgs ...Message) error {
	if err := ready(r.db); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return errors.Database("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	insert := `INSERT INTO conversation_messages (conversation_id, role, content) VALUES ($1, $2, $3)`
	for _, m := range msgs {
		if _, err := tx.Exec(ctx, insert, convID, m.Role, m.Content); err != nil {
			return errors.Database("failed to insert message", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, convID); err != nil {
		return errors.Database("failed to touch conversation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Database("failed to commit messages", err)
	}
	return nil
}

// RecentMessages returns the last limit messages, oldest first.
func (r *PostgresConversationRepository) RecentMessages(ctx context.Context, convID uuid.UUID, limit int) ([]Message, error) {
	if err := ready(r.db); err != nil {
		return nil, err
	}

	query := `
		SELECT id, conversation_id, role, content, created_at FROM (
			SELECT id, conversation_id, role, content, created_at
			FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id
	`
	rows, err := r.db.Pool.Query(ctx, query, convID, clampLimit(limit))
	if err != nil {
		return nil, errors.Database("failed to query messages", err)
	}

	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Message])
	if err != nil {
		return nil, errors.Database("failed to read messages", err)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}
