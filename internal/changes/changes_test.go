package changes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/codemcp/internal/errors"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "pending"))
	require.NoError(t, err)
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := openStore(t)

	c := &Change{Kind: KindWrite, Path: "/repo/a.py", Content: "x = 1\n", Description: "set x"}
	id, err := s.Put(c)
	require.NoError(t, err)

	_, err = uuid.Parse(id)
	require.NoError(t, err, "IDs are UUIDs")
	assert.False(t, c.CreatedAt.IsZero())
	assert.FileExists(t, filepath.Join(s.Dir(), id+".json"))

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pending")
	first, err := Open(dir)
	require.NoError(t, err)

	id, err := first.Put(&Change{Kind: KindChmod, Path: "/repo/run.sh", Mode: "a+x", ChatID: "chat-1"})
	require.NoError(t, err)

	second, err := Open(dir)
	require.NoError(t, err)
	got, err := second.Get(id)
	require.NoError(t, err)

	assert.Equal(t, KindChmod, got.Kind)
	assert.Equal(t, "a+x", got.Mode)
	assert.Equal(t, "chat-1", got.ChatID)
}

func TestStore_GetErrors(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(uuid.NewString())
	assert.True(t, errors.Is(err, ErrChangeNotFound))
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = s.Get("../../etc/passwd")
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestStore_Remove(t *testing.T) {
	s := openStore(t)

	id, err := s.Put(&Change{Kind: KindWrite, Path: "/repo/a.py"})
	require.NoError(t, err)

	require.NoError(t, s.Remove(id))
	assert.NoFileExists(t, filepath.Join(s.Dir(), id+".json"))

	_, err = s.Get(id)
	assert.True(t, errors.Is(err, ErrChangeNotFound))

	assert.NoError(t, s.Remove(id), "removing twice is fine")
}

func TestStore_ListOldestFirst(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var ids []string
	for i, path := range []string{"/repo/c.py", "/repo/a.py", "/repo/b.py"} {
		c := &Change{Kind: KindWrite, Path: path, CreatedAt: base.Add(time.Duration(2-i) * time.Minute)}
		id, err := s.Put(c)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	// Unrelated files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.json"), []byte("{}"), 0o600))
	require.NoError(t, s.SetCurrent("", ids[0]))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"/repo/b.py", "/repo/a.py", "/repo/c.py"},
		[]string{list[0].Path, list[1].Path, list[2].Path})
}

func TestStore_Current(t *testing.T) {
	s := openStore(t)

	got, err := s.Current("chat-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	id := uuid.NewString()
	require.NoError(t, s.SetCurrent("chat-1", id))
	assert.FileExists(t, filepath.Join(s.Dir(), "current_chat-1.txt"))

	got, err = s.Current("chat-1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	other, err := s.Current("chat-2")
	require.NoError(t, err)
	assert.Empty(t, other, "current changes are per chat")

	require.NoError(t, s.ClearCurrent("chat-1"))
	got, err = s.Current("chat-1")
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, s.ClearCurrent("chat-1"))

	assert.True(t, errors.Is(s.SetCurrent("chat-1", "nope"), ErrInvalidID))
}

func TestSanitizeChat(t *testing.T) {
	tests := map[string]string{
		"":          "default",
		"chat-1_a":  "chat-1_a",
		"../escape": "___escape",
		"a b/c":     "a_b_c",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeChat(in), "sanitizeChat(%q)", in)
	}
}
