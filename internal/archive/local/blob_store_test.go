package local_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/knowledgesync/internal/archive/local"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "archive")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	t.Run("WritesFile", func(t *testing.T) {
		uri, err := store.PutObject(context.Background(), "run-1/page-000000.json", "application/json", bytes.NewReader([]byte(`{"hits":[]}`)))
		require.NoError(t, err)

		expected := filepath.Join(dir, "run-1", "page-000000.json")
		assert.Equal(t, "file://"+filepath.ToSlash(expected), uri)
		data, err := os.ReadFile(expected)
		require.NoError(t, err)
		assert.Equal(t, `{"hits":[]}`, string(data))
	})

	t.Run("KeepsExistingPage", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "run-2/page-000000.json", "", strings.NewReader("first"))
		require.NoError(t, err)
		_, err = store.PutObject(context.Background(), "run-2/page-000000.json", "", strings.NewReader("second"))
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, "run-2", "page-000000.json"))
		require.NoError(t, err)
		assert.Equal(t, "first", string(data))
	})

	t.Run("ReaderErrorLeavesNoFile", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "run-3/page-000000.json", "", failingReader{})
		require.ErrorContains(t, err, "connection reset")

		entries, err := os.ReadDir(filepath.Join(dir, "run-3"))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", "", bytes.NewReader(nil))
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "../escape.json", "", bytes.NewReader(nil))
		assert.ErrorContains(t, err, "path traversal")
	})
}
