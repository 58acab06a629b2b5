package store

import (
	"context"
	"database/sql"
	"sort"

	"github.com/DevaOnL/Chat-app-sub000/pkg/types"
)

// ToggleReaction flips (messageID, emoji, accountID) and returns the
// confirmed post-mutation reaction map together with the message's thread.
func (s *Store) ToggleReaction(ctx context.Context, messageID, emoji, accountID string) (types.ReactionMap, types.ThreadKey, error) {
	var (
		reactions types.ReactionMap
		thread    types.ThreadKey
	)
	err := s.executeWrite(func(db *sql.DB) error {
		var threadStr string
		row := db.QueryRowContext(ctx, `SELECT thread FROM messages WHERE id = ?`, messageID)
		if err := row.Scan(&threadStr); err != nil {
			if err == sql.ErrNoRows {
				return types.ErrTargetNotFound
			}
			return err
		}
		parsed, err := types.ParseThreadKey(threadStr)
		if err != nil {
			return err
		}
		thread = parsed

		var present int
		row = db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reactions WHERE message_id = ? AND emoji = ? AND account_id = ?`,
			messageID, emoji, accountID)
		if err := row.Scan(&present); err != nil {
			return err
		}

		if present > 0 {
			_, err = db.ExecContext(ctx,
				`DELETE FROM reactions WHERE message_id = ? AND emoji = ? AND account_id = ?`,
				messageID, emoji, accountID)
		} else {
			_, err = db.ExecContext(ctx,
				`INSERT INTO reactions (message_id, emoji, account_id) VALUES (?, ?, ?)`,
				messageID, emoji, accountID)
		}
		if err != nil {
			return err
		}

		reactions, err = s.reactionsOf(ctx, messageID)
		return err
	})
	if err != nil {
		return nil, types.ThreadKey{}, err
	}
	return reactions, thread, nil
}

func (s *Store) reactionsOf(ctx context.Context, messageID string) (types.ReactionMap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT emoji, account_id FROM reactions WHERE message_id = ?`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reactions := make(types.ReactionMap)
	for rows.Next() {
		var emoji, account string
		if err := rows.Scan(&emoji, &account); err != nil {
			return nil, err
		}
		reactions[emoji] = append(reactions[emoji], account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for emoji := range reactions {
		sort.Strings(reactions[emoji])
	}
	return reactions, nil
}
