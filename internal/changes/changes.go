// Package changes persists proposed file changes awaiting approval.
//
// Each change is stored as <dir>/<id>.json where id is a random UUID. The
// change a chat session is currently reviewing is recorded in
// <dir>/current_<chat>.txt.
package changes

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/codemcp/internal/errors"
	"github.com/thoreinstein/codemcp/internal/paths"
	"github.com/thoreinstein/codemcp/pkg/fileutil"
)

// DefaultChat names the session used when no chat ID is given.
const DefaultChat = "default"

// ErrChangeNotFound indicates no pending change has the requested ID.
var ErrChangeNotFound = errors.Mark(errors.New("pending change not found"), errors.ErrNotFound)

// ErrInvalidID indicates an ID that is not a UUID.
var ErrInvalidID = errors.New("invalid change id")

// Kind identifies what applying a change does.
type Kind string

const (
	KindWrite Kind = "write"
	KindChmod Kind = "chmod"
)

// Change is a proposed modification of one file.
type Change struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Path        string    `json:"path"`
	Content     string    `json:"content,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	Description string    `json:"description,omitempty"`
	ChatID      string    `json:"chat_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store keeps pending changes in memory and on disk. A change written by
// one Store is visible to any later Store opened on the same directory.
type Store struct {
	dir string

	mu      sync.Mutex
	pending map[string]*Change
	now     func() time.Time
}

// Open returns a Store rooted at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := paths.EnsureDir(dir, paths.DefaultDirPerm); err != nil {
		return nil, errors.Wrapf(err, "creating pending directory %s", dir)
	}
	return &Store{
		dir:     dir,
		pending: make(map[string]*Change),
		now:     time.Now,
	}, nil
}

// Dir returns the directory holding the store's files.
func (s *Store) Dir() string {
	return s.dir
}

// Put stores c, assigning a new ID and creation time when unset, and
// returns the ID.
func (s *Store) Put(c *Change) (string, error) {
	if c == nil {
		return "", errors.New("nil change")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else if err := validateID(c.ID); err != nil {
		return "", err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fileutil.AtomicWriteJSON(s.changePath(c.ID), c, 0o600); err != nil {
		return "", errors.Wrapf(err, "saving change %s", c.ID)
	}
	s.pending[c.ID] = c
	return c.ID, nil
}

// Get returns the change with the given ID, checking memory before disk.
func (s *Store) Get(id string) (*Change, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.pending[id]; ok {
		return c, nil
	}

	c, err := s.read(s.changePath(id))
	if err != nil {
		return nil, err
	}
	s.pending[id] = c
	return c, nil
}

// Remove deletes the change. Removing an unknown ID is not an error.
func (s *Store) Remove(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
	if err := os.Remove(s.changePath(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing change %s", id)
	}
	return nil
}

// List returns every pending change on disk, oldest first.
func (s *Store) List() ([]*Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading pending directory")
	}

	var out []*Change
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		if validateID(strings.TrimSuffix(name, ".json")) != nil {
			continue
		}
		c, err := s.read(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	slices.SortFunc(out, func(a, b *Change) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Current returns the change ID the chat is reviewing, or "" when none.
func (s *Store) Current(chat string) (string, error) {
	data, err := os.ReadFile(s.currentPath(chat))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "reading current change")
	}
	return strings.TrimSpace(string(data)), nil
}

// SetCurrent records id as the chat's current change.
func (s *Store) SetCurrent(chat, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := fileutil.AtomicWriteFile(s.currentPath(chat), []byte(id), 0o600); err != nil {
		return errors.Wrap(err, "saving current change")
	}
	return nil
}

// ClearCurrent forgets the chat's current change.
func (s *Store) ClearCurrent(chat string) error {
	if err := os.Remove(s.currentPath(chat)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clearing current change")
	}
	return nil
}

func (s *Store) read(path string) (*Change, error) {
	data, err := fileutil.ReadFileWithLimit(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrChangeNotFound, "%s", strings.TrimSuffix(filepath.Base(path), ".json"))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return &c, nil
}

func (s *Store) changePath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *Store) currentPath(chat string) string {
	return filepath.Join(s.dir, "current_"+sanitizeChat(chat)+".txt")
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.Wrapf(ErrInvalidID, "%q", id)
	}
	return nil
}

// sanitizeChat maps a chat ID onto a safe file name fragment.
func sanitizeChat(chat string) string {
	if chat == "" {
		return DefaultChat
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, chat)
}
