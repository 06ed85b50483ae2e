package storage

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fruitstand/backend/internal/domain/shared"
)

// StubObjectStorage stands in for S3 in development when no bucket is
// configured. URLs point at BaseURL and nothing is stored; keys passed to
// MarkUploaded report as existing.
type StubObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]struct{}
}

var _ shared.ObjectStorageService = (*StubObjectStorage)(nil)

// NewStubObjectStorage creates a new StubObjectStorage
func NewStubObjectStorage(baseURL string) *StubObjectStorage {
	if baseURL == "" {
		baseURL = "http://localhost:9000/fruitstand"
	}
	return &StubObjectStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]struct{}),
	}
}

func (s *StubObjectStorage) GenerateUploadURL(_ context.Context, storageKey, contentType string, size int64, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	q := url.Values{"expires": {expiresAt.UTC().Format(time.RFC3339)}, "content_type": {contentType}}
	if size > 0 {
		q.Set("content_length", strconv.FormatInt(size, 10))
	}
	return s.BaseURL + "/upload/" + escapeKey(storageKey) + "?" + q.Encode(), expiresAt, nil
}

func (s *StubObjectStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	expiresAt := time.Now().Add(expiresIn)
	q := url.Values{"expires": {expiresAt.UTC().Format(time.RFC3339)}}
	return s.BaseURL + "/download/" + escapeKey(storageKey) + "?" + q.Encode(), expiresAt, nil
}

func (s *StubObjectStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	delete(s.objects, storageKey)
	s.mu.Unlock()
	return nil
}

func (s *StubObjectStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

func (s *StubObjectStorage) PublicURL(storageKey string) string {
	if storageKey == "" {
		return ""
	}
	return s.BaseURL + "/" + escapeKey(storageKey)
}

// MarkUploaded records keys as present, standing in for a browser upload
func (s *StubObjectStorage) MarkUploaded(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.objects[k] = struct{}{}
	}
}
