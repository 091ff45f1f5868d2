package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStorage implements the Storage interface using a single JSON document
// for the whole user database. All access goes through one RWMutex; saves
// write a temporary file and rename it into place so a crash mid-write never
// leaves a truncated database behind.
type FileStorage struct {
	filePath string
	store    UserStore
	mu       sync.RWMutex
}

// NewFileStorage creates a new FileStorage instance backed by filePath.
func NewFileStorage(filePath string) *FileStorage {
	return &FileStorage{
		filePath: filePath,
		store: UserStore{
			Users: make(map[string]UserRecord),
		},
	}
}

// CreateUser creates a new user record with a generated id.
func (fs *FileStorage) CreateUser(name string) (UserRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := time.Now()
	record := UserRecord{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
	}
	normalizeRecord(&record)

	fs.store.Users[record.ID] = record
	fs.store.LastUpdated = now

	return cloneRecord(record), nil
}

// GetUser retrieves a deep copy of a user record by id.
func (fs *FileStorage) GetUser(id string) (UserRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	record, exists := fs.store.Users[id]
	if !exists {
		return UserRecord{}, ErrUserNotFound
	}
	return cloneRecord(record), nil
}

// PutUser replaces an existing user record.
func (fs *FileStorage) PutUser(record UserRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.store.Users[record.ID]; !exists {
		return ErrUserNotFound
	}

	normalizeRecord(&record)
	fs.store.Users[record.ID] = cloneRecord(record)
	fs.store.LastUpdated = time.Now()
	return nil
}

// ListUsers returns copies of all user records.
func (fs *FileStorage) ListUsers() ([]UserRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	result := make([]UserRecord, 0, len(fs.store.Users))
	for _, record := range fs.store.Users {
		result = append(result, cloneRecord(record))
	}
	return result, nil
}

// Load loads the user database from the file. A missing or empty file is the
// normal first-run state and initializes an empty store; only unreadable
// files and invalid JSON are errors.
func (fs *FileStorage) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := os.Stat(fs.filePath); os.IsNotExist(err) {
		log.Printf("[Storage:Load] %s not found, initializing empty user store", fs.filePath)
		fs.store = UserStore{Users: make(map[string]UserRecord)}
		if saveErr := fs.save(); saveErr != nil {
			return fmt.Errorf("failed to save initial empty store: %w", saveErr)
		}
		return nil
	}

	data, err := os.ReadFile(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to read storage file: %w", err)
	}

	if len(data) == 0 {
		fs.store = UserStore{Users: make(map[string]UserRecord)}
		return nil
	}

	var store UserStore
	if err := json.Unmarshal(data, &store); err != nil {
		return fmt.Errorf("failed to unmarshal storage data: %w", err)
	}

	if store.Users == nil {
		store.Users = make(map[string]UserRecord)
	}
	for id, record := range store.Users {
		normalizeRecord(&record)
		store.Users[id] = record
	}

	fs.store = store
	log.Printf("[Storage:Load] loaded %d users from %s", len(fs.store.Users), fs.filePath)
	return nil
}

// Save saves the user database to the file atomically.
func (fs *FileStorage) Save() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.save()
}

// save is the internal helper for saving without acquiring the lock again.
// Assumes the write lock is already held.
func (fs *FileStorage) save() error {
	if fs.store.Users == nil {
		fs.store.Users = make(map[string]UserRecord)
	}
	fs.store.LastUpdated = time.Now()

	dataBytes, err := json.MarshalIndent(fs.store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage data: %w", err)
	}

	dir := filepath.Dir(fs.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temporary file, then rename over the target (atomic on most
	// systems).
	tempFile := fs.filePath + ".tmp"
	if err := os.WriteFile(tempFile, dataBytes, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempFile, fs.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
