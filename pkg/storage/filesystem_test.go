package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	key, err := store.Save(context.Background(), "sched-1/v2.csv", []byte("exam_id\n"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "sched-1/v2.csv", key)

	data, err := os.ReadFile(filepath.Join(dir, "sched-1", "v2.csv"))
	require.NoError(t, err)
	assert.Equal(t, "exam_id\n", string(data))

	link, err := store.URL(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "file://"))
	assert.True(t, strings.HasSuffix(link, "sched-1/v2.csv"))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "../outside.csv", []byte("x"), "text/csv")
	assert.Error(t, err)
}

func TestLocalStorageCleanup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "old.pdf", []byte("x"), "application/pdf")
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.pdf"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)
}
