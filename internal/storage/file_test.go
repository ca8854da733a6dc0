package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "homeworkbot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop())
	require.Error(t, err)
}

func TestFileStoreAppendsJSONLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit", "homework.audit.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)

	at := time.Unix(1000, 0).UTC()
	require.NoError(t, st.AppendAudit(context.Background(), AuditEntry{At: at, Action: ActionNotify, Name: "diplom", Text: "ok", Window: 1000, OK: true}))
	require.NoError(t, st.AppendAudit(context.Background(), AuditEntry{Action: ActionError, Kind: "connection", Error: "refused"}))
	require.NoError(t, st.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		got = append(got, e)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	assert.Equal(t, "diplom", got[0].Name)
	assert.True(t, got[0].At.Equal(at))
	assert.Equal(t, ActionError, got[1].Action)
	assert.False(t, got[1].At.IsZero())
}

func TestFileStoreClosed(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "journal")}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.Error(t, st.AppendAudit(context.Background(), AuditEntry{Action: ActionNotify}))
}
