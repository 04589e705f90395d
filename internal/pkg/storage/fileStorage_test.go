package storage

import (
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGetDelete(t *testing.T) {
	s := NewFileStorage(t.TempDir())
	path := filepath.Join("selections", "session", "file")

	n, err := s.Save(path, strings.NewReader("pill"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.True(t, s.Exists(path))

	rc, err := s.Get(path)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "pill", string(data))

	require.NoError(t, s.Delete(path))
	assert.False(t, s.Exists(path))
}

func TestDeleteAll(t *testing.T) {
	s := NewFileStorage(t.TempDir())

	_, err := s.Save(filepath.Join("selections", "a", "1"), strings.NewReader("x"))
	require.NoError(t, err)
	_, err = s.Save(filepath.Join("selections", "a", "2"), strings.NewReader("y"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll(filepath.Join("selections", "a")))
	assert.False(t, s.Exists(filepath.Join("selections", "a")))

	// missing directories are not an error
	assert.NoError(t, s.DeleteAll(filepath.Join("selections", "missing")))
}

func TestPathsStayInsideBase(t *testing.T) {
	s := NewFileStorage(t.TempDir())

	tests := []string{"", ".", "..", "../escape", "/etc/passwd"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := s.Save(path, strings.NewReader("x"))
			assert.Error(t, err)
			assert.False(t, s.Exists(path))
		})
	}
}
