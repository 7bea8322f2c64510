// Package credential stores the assistant API key: a single string, kept
// in a file under the XDG state directory. There is no encryption, no
// expiry and no support for more than one key.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileName is the fixed name the key is stored under.
const FileName = "gemini_api_key"

// EnvVar overrides the stored key when set.
const EnvVar = "ARCHTRACE_GEMINI_API_KEY"

// Provider loads and saves the credential. Callers receive a Provider
// instead of reaching for global storage.
type Provider interface {
	Get() (string, bool)
	Set(key string) error
	Remove() error
	Has() bool
}

// Inline validation messages shown at the point of entry.
var (
	ErrEmpty    = errors.New("please enter an API key")
	ErrFormat   = errors.New("the API key looks malformed (it should start with AIza)")
	ErrTooShort = errors.New("the API key is too short, check that it was copied completely")
)

// KeyPrefix is the prefix of Gemini API keys.
const KeyPrefix = "AIza"

// MinKeyLength is the shortest key accepted at entry.
const MinKeyLength = 30

// Validate checks the format of a key typed by the user. It trims
// whitespace first and returns one of ErrEmpty, ErrFormat or ErrTooShort.
func Validate(key string) error {
	k := strings.TrimSpace(key)
	switch {
	case k == "":
		return ErrEmpty
	case !strings.HasPrefix(k, KeyPrefix):
		return ErrFormat
	case len(k) < MinKeyLength:
		return ErrTooShort
	}
	return nil
}

// Mask renders a key for display, keeping only its first and last four
// characters.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// DefaultDir returns $XDG_STATE_HOME/archtrace or ~/.local/state/archtrace.
func DefaultDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "archtrace")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "archtrace")
}

// FileStore keeps the key in a single 0600 file.
type FileStore struct {
	path string
}

// NewFileStore stores the key as dir/FileName.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, FileName)}
}

// Path returns the file the key lives in.
func (s *FileStore) Path() string { return s.path }

// Get returns the stored key; a missing or blank file reports false.
func (s *FileStore) Get() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	key := strings.TrimSpace(string(data))
	return key, key != ""
}

// Set trims and writes the key.
func (s *FileStore) Set(key string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(strings.TrimSpace(key)), 0o600); err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}
	return nil
}

// Remove deletes the key. Removing a missing key is not an error.
func (s *FileStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credential: %w", err)
	}
	return nil
}

// Has reports whether a non-empty key is stored.
func (s *FileStore) Has() bool {
	_, ok := s.Get()
	return ok
}

// MemoryStore keeps the key in memory.
type MemoryStore struct {
	mu  sync.RWMutex
	key string
}

// NewMemoryStore returns a store seeded with key (may be empty).
func NewMemoryStore(key string) *MemoryStore {
	return &MemoryStore{key: strings.TrimSpace(key)}
}

func (s *MemoryStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, s.key != ""
}

func (s *MemoryStore) Set(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = strings.TrimSpace(key)
	return nil
}

func (s *MemoryStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	return nil
}

func (s *MemoryStore) Has() bool {
	_, ok := s.Get()
	return ok
}

// EnvProvider reads the key from an environment variable first and falls
// back to the wrapped store. Writes always go to the store.
type EnvProvider struct {
	Var   string
	Store Provider
}

// WithEnv layers EnvVar in front of store.
func WithEnv(store Provider) *EnvProvider {
	return &EnvProvider{Var: EnvVar, Store: store}
}

func (p *EnvProvider) Get() (string, bool) {
	if v := strings.TrimSpace(os.Getenv(p.Var)); v != "" {
		return v, true
	}
	if p.Store == nil {
		return "", false
	}
	return p.Store.Get()
}

func (p *EnvProvider) Set(key string) error {
	if p.Store == nil {
		return errors.New("no credential store configured")
	}
	return p.Store.Set(key)
}

func (p *EnvProvider) Remove() error {
	if p.Store == nil {
		return nil
	}
	return p.Store.Remove()
}

func (p *EnvProvider) Has() bool {
	_, ok := p.Get()
	return ok
}
