package upload

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docupull/pdf2excel/internal/common"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Options{Dir: t.TempDir(), MaxSizeMB: 1}, nil)
	require.NoError(t, err)
	return s
}

func TestSaveAndResolve(t *testing.T) {
	s := newTestStore(t)

	content := "%PDF-1.4 fake"
	stored, err := s.Save("invoice.pdf", int64(len(content)), strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", stored.Name)
	assert.Equal(t, int64(len(content)), stored.SizeBytes)
	assert.FileExists(t, stored.Path)

	resolved, err := s.Resolve(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Path, resolved.Path)
	assert.Equal(t, "invoice.pdf", resolved.Name)

	data, err := os.ReadFile(resolved.Path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestSaveRejectsNonPDF(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save("notes.txt", 4, strings.NewReader("text"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestSaveRejectsOversize(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save("big.pdf", 2<<20, strings.NewReader("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	// A lying Content-Length does not bypass the limit.
	big := strings.Repeat("a", (1<<20)+10)
	_, err = s.Save("sneaky.pdf", 100, strings.NewReader(big))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestSaveStripsPathComponents(t *testing.T) {
	s := newTestStore(t)

	stored, err := s.Save("../../etc/passwd.pdf", 4, strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "passwd.pdf", stored.Name)
	assert.NotContains(t, stored.Path, "..")
}

func TestResolveUnknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Resolve("no-such-id")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = s.Resolve("../escape")
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestListAndDelete(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Save("a.pdf", 1, strings.NewReader("a"))
	require.NoError(t, err)
	_, err = s.Save("b.pdf", 1, strings.NewReader("b"))
	require.NoError(t, err)

	files, err := s.List()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	require.NoError(t, s.Delete(a.ID))
	files, err = s.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.pdf", files[0].Name)

	assert.True(t, errors.Is(s.Delete(a.ID), common.ErrNotFound))
}
