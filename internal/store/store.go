// Package store persists application profiles for the development host.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/standardbeagle/webview/internal/userdata"
)

const (
	DefaultDirMode  = 0755
	DefaultFileMode = 0644

	lockFileName = ".profiles.lock"
	fileSuffix   = ".json"
)

// ErrInvalidUserID is returned for ids that cannot be used as a file name.
var ErrInvalidUserID = errors.New("invalid user id")

var validUserID = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// Store reads and writes app profiles by user id.
type Store interface {
	Get(userID string) (*userdata.AppProfile, bool, error)
	Put(userID string, profile userdata.AppProfile) error
}

// FileStore keeps one JSON file per user in a directory. Writes go through a
// temp file and rename while holding an exclusive file lock, so several
// hosts can share a directory.
type FileStore struct {
	dir         string
	lockTimeout time.Duration
	logger      *slog.Logger

	mu    sync.RWMutex
	cache map[string]userdata.AppProfile
}

type Option func(*FileStore)

func WithLockTimeout(d time.Duration) Option {
	return func(s *FileStore) { s.lockTimeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) { s.logger = logger }
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		dir:         dir,
		lockTimeout: 5 * time.Second,
		logger:      slog.New(slog.DiscardHandler),
		cache:       make(map[string]userdata.AppProfile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the directory holding the profile files.
func (s *FileStore) Dir() string {
	return s.dir
}

// Get returns the stored profile for userID. The boolean is false when the
// user has never saved one.
func (s *FileStore) Get(userID string) (*userdata.AppProfile, bool, error) {
	if !validUserID.MatchString(userID) {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}

	s.mu.RLock()
	cached, ok := s.cache[userID]
	s.mu.RUnlock()
	if ok {
		profile := cached.Clone()
		return &profile, true, nil
	}

	var profile *userdata.AppProfile
	err := s.withLock(func() error {
		var readErr error
		profile, readErr = s.readLocked(userID)
		return readErr
	})
	if err != nil {
		return nil, false, err
	}
	if profile == nil {
		return nil, false, nil
	}

	s.mu.Lock()
	s.cache[userID] = profile.Clone()
	s.mu.Unlock()

	return profile, true, nil
}

// Put stores profile for userID, replacing any previous value.
func (s *FileStore) Put(userID string, profile userdata.AppProfile) error {
	if !validUserID.MatchString(userID) {
		return fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	err = s.withLock(func() error {
		return s.atomicWriteFile(s.path(userID), data)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[userID] = profile.Clone()
	s.mu.Unlock()

	s.logger.Debug("profile stored", "user", userID)
	return nil
}

// Watch drops cached profiles whose files change on disk until ctx is done.
// onChange, if set, is called with the affected user id.
func (s *FileStore) Watch(ctx context.Context, onChange func(userID string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch data directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				userID, ok := s.userIDFromPath(event.Name)
				if !ok {
					continue
				}
				s.invalidate(userID)
				if onChange != nil {
					onChange(userID)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("data directory watch error", "error", err)
			}
		}
	}()
	return nil
}

func (s *FileStore) invalidate(userID string) {
	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, userID+fileSuffix)
}

func (s *FileStore) userIDFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, fileSuffix) || strings.HasPrefix(name, ".") {
		return "", false
	}
	userID := strings.TrimSuffix(name, fileSuffix)
	return userID, validUserID.MatchString(userID)
}

// readLocked must be called within withLock. A missing file yields nil.
func (s *FileStore) readLocked(userID string) (*userdata.AppProfile, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var profile userdata.AppProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile for %s: %w", userID, err)
	}
	return &profile, nil
}

// withLock executes fn while holding the exclusive directory lock
func (s *FileStore) withLock(fn func() error) error {
	fileLock := flock.New(filepath.Join(s.dir, lockFileName))

	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock within timeout (%v)", s.lockTimeout)
	}
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			s.logger.Warn("failed to release lock", "error", unlockErr)
		}
	}()

	return fn()
}

func (s *FileStore) atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".profile-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, DefaultFileMode); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]userdata.AppProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]userdata.AppProfile)}
}

func (m *MemoryStore) Get(userID string) (*userdata.AppProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, false, nil
	}
	p = p.Clone()
	return &p, true, nil
}

func (m *MemoryStore) Put(userID string, profile userdata.AppProfile) error {
	if userID == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = profile.Clone()
	return nil
}
