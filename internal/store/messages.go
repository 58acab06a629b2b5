package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// PersistSend stores a new message and returns the canonical record with
// its server-assigned ID and timestamp.
func (s *Store) PersistSend(ctx context.Context, thread types.ThreadKey, sender types.Identity, text, attachment string) (*types.Message, error) {
	msg := &types.Message{
		ID:         uuid.New().String(),
		Thread:     thread,
		Sender:     sender,
		Text:       text,
		Attachment: attachment,
		CreatedAt:  time.Now(),
	}

	err := s.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO messages (id, thread, sender_account, sender_email, sender_nickname, sender_avatar, body, attachment, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, thread.String(), sender.AccountID, sender.Email, sender.Nickname, sender.Avatar,
			text, attachment, msg.CreatedAt.UnixNano())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}
	return msg, nil
}

// PersistEdit rewrites the text of a message owned by the requester and
// returns the updated record. Ownership is checked before any mutation.
func (s *Store) PersistEdit(ctx context.Context, messageID string, requester types.Identity, text string) (*types.Message, error) {
	var msg *types.Message
	err := s.executeWrite(func(db *sql.DB) error {
		owner, err := s.ownerOf(ctx, db, messageID)
		if err != nil {
			return err
		}
		if owner != requester.AccountID {
			return types.ErrOwnershipDenied
		}

		editedAt := time.Now()
		if _, err := db.ExecContext(ctx,
			`UPDATE messages SET body = ?, edited_at = ? WHERE id = ?`,
			text, editedAt.UnixNano(), messageID); err != nil {
			return err
		}

		msg, err = s.loadMessage(ctx, messageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// PersistDelete removes a message owned by the requester and returns the
// thread it belonged to.
func (s *Store) PersistDelete(ctx context.Context, messageID string, requester types.Identity) (types.ThreadKey, error) {
	var thread types.ThreadKey
	err := s.executeWrite(func(db *sql.DB) error {
		var threadStr, owner string
		row := db.QueryRowContext(ctx, `SELECT thread, sender_account FROM messages WHERE id = ?`, messageID)
		if err := row.Scan(&threadStr, &owner); err != nil {
			if err == sql.ErrNoRows {
				return types.ErrTargetNotFound
			}
			return err
		}
		if owner != requester.AccountID {
			return types.ErrOwnershipDenied
		}

		parsed, err := types.ParseThreadKey(threadStr)
		if err != nil {
			return err
		}
		thread = parsed

		if _, err := db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, messageID); err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, `DELETE FROM reactions WHERE message_id = ?`, messageID)
		return err
	})
	if err != nil {
		return types.ThreadKey{}, err
	}
	return thread, nil
}

// FetchRecent returns up to limit most recent messages of a thread in
// ascending timestamp order, reactions included.
func (s *Store) FetchRecent(ctx context.Context, thread types.ThreadKey, limit int) ([]*types.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, thread, sender_account, sender_email, sender_nickname, sender_avatar, body, attachment, created_at, edited_at
		 FROM messages WHERE thread = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		thread.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer rows.Close()

	var messages []*types.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; history replays oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	for _, msg := range messages {
		reactions, err := s.reactionsOf(ctx, msg.ID)
		if err != nil {
			return nil, err
		}
		msg.Reactions = reactions
	}
	return messages, nil
}

// DirectThreads lists the direct threads that already hold messages
// involving email.
func (s *Store) DirectThreads(ctx context.Context, email string) ([]types.ThreadKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT thread FROM messages WHERE thread LIKE 'direct:%'`)
	if err != nil {
		return nil, fmt.Errorf("failed to list direct threads: %w", err)
	}
	defer rows.Close()

	var threads []types.ThreadKey
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		key, err := types.ParseThreadKey(raw)
		if err != nil {
			continue
		}
		if key.Has(email) {
			threads = append(threads, key)
		}
	}
	return threads, rows.Err()
}

func (s *Store) ownerOf(ctx context.Context, db *sql.DB, messageID string) (string, error) {
	var owner string
	row := db.QueryRowContext(ctx, `SELECT sender_account FROM messages WHERE id = ?`, messageID)
	if err := row.Scan(&owner); err != nil {
		if err == sql.ErrNoRows {
			return "", types.ErrTargetNotFound
		}
		return "", err
	}
	return owner, nil
}

func (s *Store) loadMessage(ctx context.Context, messageID string) (*types.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, thread, sender_account, sender_email, sender_nickname, sender_avatar, body, attachment, created_at, edited_at
		 FROM messages WHERE id = ?`, messageID)
	msg, err := scanMessage(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrTargetNotFound
		}
		return nil, err
	}
	msg.Reactions, err = s.reactionsOf(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*types.Message, error) {
	var (
		msg       types.Message
		threadStr string
		createdNs int64
		editedNs  sql.NullInt64
	)
	if err := row.Scan(&msg.ID, &threadStr, &msg.Sender.AccountID, &msg.Sender.Email,
		&msg.Sender.Nickname, &msg.Sender.Avatar, &msg.Text, &msg.Attachment,
		&createdNs, &editedNs); err != nil {
		return nil, err
	}

	thread, err := types.ParseThreadKey(threadStr)
	if err != nil {
		return nil, err
	}
	msg.Thread = thread
	msg.CreatedAt = time.Unix(0, createdNs)
	msg.EditedAt = nullableTime(editedNs)
	return &msg, nil
}
