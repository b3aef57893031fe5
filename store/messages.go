package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	errs "chaters/tools/errs"
)

// Message carries the sender's nickname by value so renamed or deleted
// users do not corrupt history.
type Message struct {
	ID           int64     `json:"id"`
	ChatID       int64     `json:"chat_id"`
	UserID       int64     `json:"user_id"`
	UserNickname string    `json:"user_nickname"`
	Content      *string   `json:"content"`
	FileURL      *string   `json:"file_url"`
	FileType     *string   `json:"file_type"`
	FileName     *string   `json:"file_name"`
	FileSize     *int64    `json:"file_size"`
	SentAt       time.Time `json:"sent_at"`
}

// FileRef describes an attached file stored in the blob store.
type FileRef struct {
	URL  string
	Type string
	Name string
	Size int64
}

// InsertMessage stores a message with optional content and/or file
// reference; the REST handler guarantees at least one is present.
func (s *Store) InsertMessage(ctx context.Context, chatID, userID int64, nickname string, content *string, file *FileRef) (*Message, error) {
	var fileURL, fileType, fileName *string
	var fileSize *int64
	if file != nil {
		fileURL, fileType, fileName, fileSize = &file.URL, &file.Type, &file.Name, &file.Size
	}

	m := &Message{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages
		(chat_id, user_id, user_nickname, content, file_url, file_type, file_name, file_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, chat_id, user_id, user_nickname, content, file_url, file_type, file_name, file_size, sent_at`,
		chatID, userID, nickname, content, fileURL, fileType, fileName, fileSize,
	).Scan(&m.ID, &m.ChatID, &m.UserID, &m.UserNickname, &m.Content,
		&m.FileURL, &m.FileType, &m.FileName, &m.FileSize, &m.SentAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}
	return m, nil
}

// MessagesForChat pages through a chat's history newest-first; beforeID
// > 0 restricts to messages older than that id.
func (s *Store) MessagesForChat(ctx context.Context, chatID int64, limit int, beforeID int64) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, chat_id, user_id, user_nickname, content, file_url, file_type, file_name, file_size, sent_at
		FROM messages WHERE chat_id = $1`
	args := []any{chatID}
	if beforeID > 0 {
		query += ` AND id < $2 ORDER BY sent_at DESC LIMIT $3`
		args = append(args, beforeID, limit)
	} else {
		query += ` ORDER BY sent_at DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select messages")
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.UserID, &m.UserNickname, &m.Content,
			&m.FileURL, &m.FileType, &m.FileName, &m.FileSize, &m.SentAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MessageByID(ctx context.Context, messageID int64) (*Message, error) {
	m := &Message{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, chat_id, user_id, user_nickname, content, file_url, file_type, file_name, file_size, sent_at
		FROM messages WHERE id = $1`,
		messageID,
	).Scan(&m.ID, &m.ChatID, &m.UserID, &m.UserNickname, &m.Content,
		&m.FileURL, &m.FileType, &m.FileName, &m.FileSize, &m.SentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrMessageNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select message")
	}
	return m, nil
}

func (s *Store) DeleteMessage(ctx context.Context, messageID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, messageID)
	return errors.Wrap(err, "delete message")
}

// RetentionChat is a chat with a finite message TTL, as seen by the
// cleanup job.
type RetentionChat struct {
	ID         int64
	ChatKey    string
	MessageTTL int
}

func (s *Store) ChatsWithRetention(ctx context.Context) ([]RetentionChat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, chat_id, message_ttl FROM chats WHERE message_ttl > 0`)
	if err != nil {
		return nil, errors.Wrap(err, "select retention chats")
	}
	defer rows.Close()

	var out []RetentionChat
	for rows.Next() {
		var c RetentionChat
		if err := rows.Scan(&c.ID, &c.ChatKey, &c.MessageTTL); err != nil {
			return nil, errors.Wrap(err, "scan retention chat")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteExpiredMessages removes messages older than the chat's TTL and
// returns the file urls of the deleted rows so the caller can remove
// the blobs.
func (s *Store) DeleteExpiredMessages(ctx context.Context, chatID int64, ttlDays int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM messages
		WHERE chat_id = $1
		AND sent_at < NOW() - ($2 || ' days')::INTERVAL
		RETURNING file_url`,
		chatID, ttlDays)
	if err != nil {
		return nil, errors.Wrap(err, "delete expired messages")
	}
	defer rows.Close()

	var fileURLs []string
	for rows.Next() {
		var url *string
		if err := rows.Scan(&url); err != nil {
			return nil, errors.Wrap(err, "scan file url")
		}
		if url != nil && *url != "" {
			fileURLs = append(fileURLs, *url)
		}
	}
	return fileURLs, rows.Err()
}

// FileURLInUse reports whether any message still references the url;
// used by the orphaned-file sweep.
func (s *Store) FileURLInUse(ctx context.Context, fileURL string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM messages WHERE file_url = $1 LIMIT 1`, fileURL,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "select file url")
	}
	return true, nil
}
