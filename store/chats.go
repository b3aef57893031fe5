package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	errs "chaters/tools/errs"
)

type Chat struct {
	ID         int64     `json:"id"`
	ChatID     string    `json:"chat_id"` // human-chosen unique key, e.g. "#team"
	Name       string    `json:"name"`
	CreatedBy  int64     `json:"created_by"`
	MessageTTL int       `json:"message_ttl"` // days, 0 = keep forever
	CreatedAt  time.Time `json:"created_at"`
}

// ChatSummary is one row of a user's chat list: the chat plus its last
// message and the member's unread count.
type ChatSummary struct {
	Chat
	LastMessage json.RawMessage `json:"last_message"`
	UnreadCount int64           `json:"unread_count"`
}

type Member struct {
	ID       int64     `json:"id"`
	Nickname string    `json:"nickname"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// CreateChat inserts the chat and the creator's membership in one
// transaction; a half-created chat with no members must not exist.
func (s *Store) CreateChat(ctx context.Context, chatKey, name string, createdBy int64, messageTTL int) (*Chat, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c := &Chat{}
	err = tx.QueryRow(ctx,
		`INSERT INTO chats (chat_id, name, created_by, message_ttl)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, chat_id, name, created_by, message_ttl, created_at`,
		chatKey, name, createdBy, messageTTL,
	).Scan(&c.ID, &c.ChatID, &c.Name, &c.CreatedBy, &c.MessageTTL, &c.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert chat")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`,
		c.ID, createdBy,
	); err != nil {
		return nil, errors.Wrap(err, "insert creator membership")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return c, nil
}

func (s *Store) ChatByKey(ctx context.Context, chatKey string) (*Chat, error) {
	c := &Chat{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, chat_id, name, created_by, message_ttl, created_at
		 FROM chats WHERE chat_id = $1`,
		chatKey,
	).Scan(&c.ID, &c.ChatID, &c.Name, &c.CreatedBy, &c.MessageTTL, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrChatNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select chat")
	}
	return c, nil
}

// ChatsForUser lists the user's chats with the latest message and the
// unread count, newest activity first.
func (s *Store) ChatsForUser(ctx context.Context, userID int64) ([]ChatSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			c.id, c.chat_id, c.name, c.created_by, c.message_ttl, c.created_at,
			CASE WHEN m.id IS NULL THEN 'null' ELSE json_build_object(
				'id', m.id,
				'content', m.content,
				'user_nickname', m.user_nickname,
				'sent_at', m.sent_at,
				'file_url', m.file_url,
				'file_type', m.file_type
			)::text END,
			(
				SELECT COUNT(*) FROM messages
				WHERE chat_id = c.id AND sent_at > COALESCE(
					(SELECT last_read_at FROM chat_members cm2
					 WHERE cm2.chat_id = c.id AND cm2.user_id = $1),
					'1970-01-01'
				)
			) AS unread_count
		FROM chats c
		JOIN chat_members cm ON c.id = cm.chat_id
		LEFT JOIN LATERAL (
			SELECT * FROM messages
			WHERE chat_id = c.id
			ORDER BY sent_at DESC
			LIMIT 1
		) m ON true
		WHERE cm.user_id = $1
		ORDER BY COALESCE(m.sent_at, c.created_at) DESC`,
		userID)
	if err != nil {
		return nil, errors.Wrap(err, "select chats for user")
	}
	defer rows.Close()

	var out []ChatSummary
	for rows.Next() {
		var cs ChatSummary
		var lastMessage string
		if err := rows.Scan(
			&cs.ID, &cs.ChatID, &cs.Name, &cs.CreatedBy, &cs.MessageTTL, &cs.CreatedAt,
			&lastMessage, &cs.UnreadCount,
		); err != nil {
			return nil, errors.Wrap(err, "scan chat summary")
		}
		cs.LastMessage = json.RawMessage(lastMessage)
		out = append(out, cs)
	}
	return out, rows.Err()
}

// IsMember reports whether the user has a persisted membership.
func (s *Store) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "select membership")
	}
	return true, nil
}

func (s *Store) AddMember(ctx context.Context, chatID, userID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_members (chat_id, user_id) VALUES ($1, $2)`,
		chatID, userID)
	return errors.Wrap(err, "insert membership")
}

// RemoveMember deletes the membership; when the last member leaves the
// chat itself is deleted (messages cascade).
func (s *Store) RemoveMember(ctx context.Context, chatID, userID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM chat_members WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID,
	); err != nil {
		return errors.Wrap(err, "delete membership")
	}

	var left int64
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_members WHERE chat_id = $1`, chatID,
	).Scan(&left); err != nil {
		return errors.Wrap(err, "count members")
	}
	if left == 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM chats WHERE id = $1`, chatID); err != nil {
			return errors.Wrap(err, "delete empty chat")
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit tx")
}

func (s *Store) Members(ctx context.Context, chatID int64) ([]Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.nickname, u.email, cm.joined_at
		FROM chat_members cm
		JOIN users u ON cm.user_id = u.id
		WHERE cm.chat_id = $1
		ORDER BY cm.joined_at ASC`,
		chatID)
	if err != nil {
		return nil, errors.Wrap(err, "select members")
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Nickname, &m.Email, &m.JoinedAt); err != nil {
			return nil, errors.Wrap(err, "scan member")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UpdateChatTTL(ctx context.Context, chatID int64, messageTTL int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE chats SET message_ttl = $1 WHERE id = $2`, messageTTL, chatID)
	return errors.Wrap(err, "update chat ttl")
}

// TouchLastRead stamps the member's last-read time, keyed by the
// human-chosen chat key. One atomic statement, no read-modify-write;
// this is the only store write reachable from the gateway.
func (s *Store) TouchLastRead(ctx context.Context, chatKey string, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE chat_members
		SET last_read_at = NOW()
		WHERE chat_id = (SELECT id FROM chats WHERE chat_id = $1)
		AND user_id = $2`,
		chatKey, userID)
	return errors.Wrap(err, "touch last_read")
}
