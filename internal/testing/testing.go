// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/cliqspot/internal/models"
	"github.com/desertthunder/cliqspot/internal/shared"
)

// MemoryTokenStore is an in-memory [models.TokenStore] double.
type MemoryTokenStore struct {
	mu      sync.Mutex
	records map[string]models.TokenRecord
	Err     error // returned by every call when set
}

// NewMemoryTokenStore creates a store seeded with userID -> refresh token pairs.
func NewMemoryTokenStore(seed map[string]string) *MemoryTokenStore {
	s := &MemoryTokenStore{records: map[string]models.TokenRecord{}}
	for id, rt := range seed {
		s.records[id] = models.TokenRecord{UserID: id, RefreshToken: rt, UpdatedAt: time.Now()}
	}
	return s
}

func (s *MemoryTokenStore) Save(ctx context.Context, userID, refreshToken string) error {
	if s.Err != nil {
		return s.Err
	}
	if userID == "" || refreshToken == "" {
		return shared.Invalid("userId and refreshToken are required to save tokens.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = models.TokenRecord{UserID: userID, RefreshToken: refreshToken, UpdatedAt: time.Now()}
	return nil
}

func (s *MemoryTokenStore) Get(ctx context.Context, userID string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if userID == "" {
		return "", shared.Invalid("userId is required to fetch a refresh token.")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID]
	if !ok {
		return "", fmt.Errorf("%w for user %s: ask them to authenticate via /login", shared.ErrMissingCredential, userID)
	}
	return r.RefreshToken, nil
}

func (s *MemoryTokenStore) Remove(ctx context.Context, userID string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

func (s *MemoryTokenStore) List(ctx context.Context) ([]models.TokenRecord, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TokenRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
