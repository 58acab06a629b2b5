// Package store backs the message, group-membership and account-directory
// collaborators with SQLite. All writes funnel through a single writer
// goroutine; reads go through the pooled connection directly.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	thread          TEXT NOT NULL,
	sender_account  TEXT NOT NULL,
	sender_email    TEXT NOT NULL,
	sender_nickname TEXT NOT NULL,
	sender_avatar   TEXT NOT NULL DEFAULT '',
	body            TEXT NOT NULL,
	attachment      TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL,
	edited_at       INTEGER
);
CREATE INDEX IF NOT EXISTS idx_messages_thread_created ON messages(thread, created_at);

CREATE TABLE IF NOT EXISTS reactions (
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	emoji      TEXT NOT NULL,
	account_id TEXT NOT NULL,
	PRIMARY KEY (message_id, emoji, account_id)
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id TEXT NOT NULL,
	email    TEXT NOT NULL,
	PRIMARY KEY (group_id, email)
);

CREATE TABLE IF NOT EXISTS accounts (
	email    TEXT PRIMARY KEY,
	nickname TEXT NOT NULL,
	avatar   TEXT NOT NULL DEFAULT ''
);
`

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// Store is the SQLite-backed persistence layer.
type Store struct {
	db           *sql.DB
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

// NewStore opens (or creates) the database at path and starts the single
// writer goroutine.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &Store{
		db:           db,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s, nil
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			op.result <- op.operation(s.db)
		case <-s.shutdown:
			log.Println("store write loop shutting down")
			return
		}
	}
}

func (s *Store) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-s.shutdown:
		return fmt.Errorf("store is shutting down")
	}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops the writer and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()
	return s.db.Close()
}

func nullableTime(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(0, ns.Int64)
	return &t
}
