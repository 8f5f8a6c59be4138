package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/models"
)

type fileEntry struct {
	RefreshToken string    `json:"refreshToken"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UnmarshalJSON leaves UpdatedAt zero when the timestamp is missing or not RFC 3339.
func (e *fileEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		RefreshToken string          `json:"refreshToken"`
		UpdatedAt    json.RawMessage `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.RefreshToken = raw.RefreshToken
	e.UpdatedAt = time.Time{}

	var ts string
	if json.Unmarshal(raw.UpdatedAt, &ts) == nil {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.UpdatedAt = t
		}
	}
	return nil
}

// FileTokenStore implements [models.TokenStore] on top of one JSON file.
type FileTokenStore struct {
	path   string
	logger *log.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewFileTokenStore creates a store at path. The file and its directory are created lazily.
func NewFileTokenStore(path string, logger *log.Logger) *FileTokenStore {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &FileTokenStore{path: path, logger: logger, now: time.Now}
}

// Path returns the backing file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Save writes or overwrites the refresh token for userID.
func (s *FileTokenStore) Save(ctx context.Context, userID, refreshToken string) error {
	if err := validateSave(userID, refreshToken); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}

	entries[userID] = fileEntry{RefreshToken: refreshToken, UpdatedAt: s.now().UTC()}
	return s.write(entries)
}

// Get returns the refresh token stored for userID.
func (s *FileTokenStore) Get(ctx context.Context, userID string) (string, error) {
	if err := validateGet(userID); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return "", err
	}

	entry, ok := entries[userID]
	if !ok || entry.RefreshToken == "" {
		return "", missing(userID)
	}
	return entry.RefreshToken, nil
}

// Remove deletes the record for userID if present.
func (s *FileTokenStore) Remove(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}

	if _, ok := entries[userID]; !ok {
		return nil
	}

	delete(entries, userID)
	return s.write(entries)
}

// List returns all records sorted by user id.
func (s *FileTokenStore) List(ctx context.Context) ([]models.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}

	records := make([]models.TokenRecord, 0, len(entries))
	for id, e := range entries {
		records = append(records, models.TokenRecord{UserID: id, RefreshToken: e.RefreshToken, UpdatedAt: e.UpdatedAt})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })

	return records, nil
}

// read loads the document, creating it when missing and resetting it when malformed. Callers hold mu.
func (s *FileTokenStore) read() (map[string]fileEntry, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}

	entries := map[string]fileEntry{}
	if strings.TrimSpace(string(data)) == "" {
		return entries, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		if err == nil {
			err = fmt.Errorf("document is not a JSON object")
		}
		return s.reset(err)
	}

	for id, raw := range doc {
		var e fileEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			s.logger.Warn("skipping unreadable token store record", "path", s.path, "user", id, "error", err)
			continue
		}
		entries[id] = e
	}

	return entries, nil
}

// reset rewrites a malformed document as an empty object. Callers hold mu.
func (s *FileTokenStore) reset(cause error) (map[string]fileEntry, error) {
	s.logger.Warn("failed to parse token store, re-initializing file", "path", s.path, "error", cause)
	if err := os.WriteFile(s.path, []byte("{}"), 0600); err != nil {
		return nil, fmt.Errorf("failed to reset token store: %w", err)
	}
	return map[string]fileEntry{}, nil
}

func (s *FileTokenStore) ensure() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create token store directory: %w", err)
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := os.WriteFile(s.path, []byte("{}"), 0600); err != nil {
			return fmt.Errorf("failed to create token store: %w", err)
		}
	}

	return nil
}

// write replaces the document via a temp file in the same directory. Callers hold mu.
func (s *FileTokenStore) write(entries map[string]fileEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace token store: %w", err)
	}

	return nil
}
