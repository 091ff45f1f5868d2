package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	// Supported database drivers.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStorage implements the Storage interface on top of a SQL database
// (sqlite3 or postgres). Each user record is stored as one JSON document in
// its row, so the load-mutate-save contract is identical to FileStorage;
// only the durability story changes.
type SQLStorage struct {
	db     *sqlx.DB
	driver string
}

const sqlSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// NewSQLStorage connects to the database identified by driver ("sqlite3" or
// "postgres") and dsn, and ensures the schema exists.
func NewSQLStorage(driver, dsn string) (*SQLStorage, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	if _, err := db.Exec(sqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}
	return &SQLStorage{db: db, driver: driver}, nil
}

// Close closes the underlying database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// CreateUser creates a new user record with a generated id.
func (s *SQLStorage) CreateUser(name string) (UserRecord, error) {
	now := time.Now()
	record := UserRecord{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
	}
	normalizeRecord(&record)

	if err := s.upsert(record, now); err != nil {
		return UserRecord{}, err
	}
	return record, nil
}

// GetUser retrieves a user record by id.
func (s *SQLStorage) GetUser(id string) (UserRecord, error) {
	var raw string
	query := s.db.Rebind("SELECT record FROM users WHERE id = ?")
	if err := s.db.Get(&raw, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("failed to query user %s: %w", id, err)
	}
	return decodeRecord(raw)
}

// PutUser replaces an existing user record.
func (s *SQLStorage) PutUser(record UserRecord) error {
	if _, err := s.GetUser(record.ID); err != nil {
		return err
	}
	normalizeRecord(&record)
	return s.upsert(record, time.Now())
}

// ListUsers returns all user records.
func (s *SQLStorage) ListUsers() ([]UserRecord, error) {
	var rows []string
	if err := s.db.Select(&rows, "SELECT record FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	result := make([]UserRecord, 0, len(rows))
	for _, raw := range rows {
		record, err := decodeRecord(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, nil
}

// Load verifies the database connection. The schema is created at
// construction time, so there is nothing else to do.
func (s *SQLStorage) Load() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", s.driver, err)
	}
	return nil
}

// Save is a no-op: every PutUser is durable on its own.
func (s *SQLStorage) Save() error { return nil }

func (s *SQLStorage) upsert(record UserRecord, now time.Time) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal user record: %w", err)
	}
	query := s.db.Rebind(`
		INSERT INTO users (id, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`)
	if _, err := s.db.Exec(query, record.ID, string(data), now); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", record.ID, err)
	}
	return nil
}

func decodeRecord(raw string) (UserRecord, error) {
	var record UserRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return UserRecord{}, fmt.Errorf("failed to unmarshal user record: %w", err)
	}
	normalizeRecord(&record)
	return record, nil
}
