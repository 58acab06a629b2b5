package store

import (
	"context"
	"database/sql"
	"fmt"
)

// MembersOf returns the member emails of a group.
func (s *Store) MembersOf(ctx context.Context, groupID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM group_members WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	members := make(map[string]struct{})
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		members[email] = struct{}{}
	}
	return members, rows.Err()
}

// GroupsOf returns the IDs of the groups email belongs to.
func (s *Store) GroupsOf(ctx context.Context, email string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id FROM group_members WHERE email = ?`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		groups = append(groups, id)
	}
	return groups, rows.Err()
}

// AddGroupMember records group membership; used by provisioning and tests.
func (s *Store) AddGroupMember(ctx context.Context, groupID, email string) error {
	return s.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO group_members (group_id, email) VALUES (?, ?)`,
			groupID, email)
		return err
	})
}

// Lookup returns the stored nickname and avatar for an email. Unknown
// accounts yield empty values, not an error.
func (s *Store) Lookup(ctx context.Context, email string) (string, string, error) {
	var nickname, avatar string
	row := s.db.QueryRowContext(ctx,
		`SELECT nickname, avatar FROM accounts WHERE email = ?`, email)
	if err := row.Scan(&nickname, &avatar); err != nil {
		if err == sql.ErrNoRows {
			return "", "", nil
		}
		return "", "", err
	}
	return nickname, avatar, nil
}

// UpsertProfile persists refreshed profile fields for an account.
func (s *Store) UpsertProfile(ctx context.Context, email, nickname, avatar string) error {
	return s.executeWrite(func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO accounts (email, nickname, avatar) VALUES (?, ?, ?)
			 ON CONFLICT(email) DO UPDATE SET nickname = excluded.nickname, avatar = excluded.avatar`,
			email, nickname, avatar)
		return err
	})
}
