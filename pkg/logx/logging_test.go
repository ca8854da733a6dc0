package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, raw string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestCriticalDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "info")

	log.Critical("credentials missing", Err(errors.New("TELEGRAM_TOKEN")))
	log.Info("still here")

	lines := decodeLines(t, buf.String())
	require.Len(t, lines, 2)
	assert.Equal(t, "critical", lines[0]["level"])
	assert.Equal(t, "TELEGRAM_TOKEN", lines[0]["err"])
	assert.Equal(t, "still here", lines[1]["message"])
}

func TestLevelFiltersAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf, "warn").With(String("comp", "poller"))

	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept", Int("n", 2))

	lines := decodeLines(t, buf.String())
	require.Len(t, lines, 1)
	assert.Equal(t, "poller", lines[0]["comp"])
	assert.EqualValues(t, 2, lines[0]["n"])
	assert.Contains(t, lines[0]["caller"], "logging_test.go:")
	assert.False(t, log.Enabled(LevelInfo))
	assert.True(t, log.Enabled(LevelCritical))
}

func TestServiceFileSinkAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "homework.log")
	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: path}})
	t.Cleanup(func() { _ = svc.Close() })

	log.Debug("hidden")
	log.Info("first")

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}})
	log.Debug("second")
	require.NoError(t, svc.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := decodeLines(t, string(raw))
	require.Len(t, lines, 2)
	assert.Equal(t, "first", lines[0]["message"])
	assert.Equal(t, "debug", lines[1]["level"])
	assert.Equal(t, "debug", svc.Config().Level)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelCritical, parseLevel("critical", LevelInfo))
	assert.Equal(t, LevelWarn, parseLevel(" warning ", LevelInfo))
	assert.Equal(t, LevelInfo, parseLevel("bogus", LevelInfo))
}
