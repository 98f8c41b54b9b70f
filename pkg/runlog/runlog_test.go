package runlog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitWritesBothSinks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	log, err := Open(dir, "alice", &console)
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Emit("Downloaded https://photo.test/a.jpg -> alice/a.jpg"))
	require.NoError(t, log.Emitf("Downloaded page %d (%d photos)", 1, 2))

	assert.Equal(t, filepath.Join(dir, "alice.log"), log.Path())

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	file := string(data)

	assert.Contains(t, file, "Downloaded https://photo.test/a.jpg -> alice/a.jpg")
	assert.Contains(t, file, "Downloaded page 1 (2 photos)")
	assert.Equal(t, 2, strings.Count(file, "\n"))

	assert.Contains(t, console.String(), "Downloaded page 1 (2 photos)")
}

func TestRunsAccumulate(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		log, err := Open(dir, "alice", nil)
		require.NoError(t, err)
		log.now = func() time.Time { return fixed }

		require.NoError(t, log.Begin())
		require.NoError(t, log.Emit("work"))
		require.NoError(t, log.End())
		require.NoError(t, log.Close())
	}

	data, err := os.ReadFile(Path(dir, "alice"))
	require.NoError(t, err)
	content := string(data)

	assert.Equal(t, 2, strings.Count(content, "===== begin 2026-10-19T09:30:00Z ====="))
	assert.Equal(t, 2, strings.Count(content, "===== end 2026-10-19T09:30:00Z ====="))
	assert.Equal(t, 2, strings.Count(content, "work"))
	assert.Less(t, strings.Index(content, "begin"), strings.Index(content, "work"))
}

func TestFileSinkHasNoColor(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(dir, "alice", &bytes.Buffer{})
	require.NoError(t, err)
	defer log.Close()

	require.NoError(t, log.Emit("plain"))

	data, _ := os.ReadFile(log.Path())
	assert.NotContains(t, string(data), "\x1b[")
}

func TestPathSanitizesOwner(t *testing.T) {
	assert.Equal(t, filepath.Join("logs", "a_b.log"), Path("logs", "a/b"))
}

func TestEmitAfterCloseReportsError(t *testing.T) {
	log, err := Open(t.TempDir(), "alice", nil)
	require.NoError(t, err)
	require.NoError(t, log.Close())

	assert.Error(t, log.Emit("too late"))
}
