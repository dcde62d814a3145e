package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"

	"github.com/mkrupp/taskmanager/internal/domain"
)

// ErrNoSession is returned when no session has been persisted.
var ErrNoSession = errors.New("not logged in")

// SessionFile is the session location relative to the XDG config home.
const SessionFile = "taskctl/session.json"

// Session is the state kept between client invocations.
type Session struct {
	Token string            `json:"token"`
	User  domain.UserPublic `json:"user"`
}

// SessionStore loads, persists and clears the client session.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Persist(ctx context.Context, session Session) error
	Clear(ctx context.Context) error
}

// FileSessionStore keeps the session as JSON in a file readable only by its owner.
type FileSessionStore struct {
	Path string
}

var _ SessionStore = (*FileSessionStore)(nil)

// NewFileSessionStore returns a store at the XDG config path of SessionFile.
func NewFileSessionStore() (*FileSessionStore, error) {
	path, err := xdg.ConfigFile(SessionFile)
	if err != nil {
		return nil, fmt.Errorf("session path: %w", err)
	}

	return &FileSessionStore{Path: path}, nil
}

// Load implements SessionStore.
func (s *FileSessionStore) Load(_ context.Context) (*Session, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSession
	}

	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if session.Token == "" {
		return nil, ErrNoSession
	}

	return &session, nil
}

// Persist implements SessionStore.
func (s *FileSessionStore) Persist(_ context.Context, session Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// atomic replace
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}

	return nil
}

// Clear implements SessionStore. Clearing a missing session is not an error.
func (s *FileSessionStore) Clear(_ context.Context) error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}

	return nil
}

// MemorySessionStore keeps the session in memory.
type MemorySessionStore struct {
	session *Session
	m       sync.Mutex
}

var _ SessionStore = (*MemorySessionStore)(nil)

// Load implements SessionStore.
func (s *MemorySessionStore) Load(_ context.Context) (*Session, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.session == nil {
		return nil, ErrNoSession
	}

	session := *s.session

	return &session, nil
}

// Persist implements SessionStore.
func (s *MemorySessionStore) Persist(_ context.Context, session Session) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.session = &session

	return nil
}

// Clear implements SessionStore.
func (s *MemorySessionStore) Clear(_ context.Context) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.session = nil

	return nil
}
