package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"trailbot/internal/config"
	"trailbot/internal/eventlog"
	"trailbot/internal/store/gormstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInitThenCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "config.yaml")
	_, err := execute(t, "config", "init", "-c", path)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", cfg.Strategy.Symbol)

	_, err = execute(t, "config", "init", "-c", path)
	assert.Error(t, err, "refuses to overwrite")

	t.Setenv(config.EnvAPIKey, "abcdefgh")
	out, err := execute(t, "config", "check", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "symbol: ETHUSDT")
	assert.Contains(t, out, "api_key: abcd****")
	assert.NotContains(t, out, "abcdefgh")
}

func TestEventsCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "events.db")
	st, err := gormstore.NewGormStore(db)
	require.NoError(t, err)
	sink := eventlog.NewStoreSink(st)
	ts := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Record(context.Background(), eventlog.Event{Time: ts, Kind: eventlog.KindEntry, Message: "entered", Fields: map[string]any{"side": "BUY"}}))
	require.NoError(t, sink.Record(context.Background(), eventlog.Event{Time: ts.Add(time.Second), Kind: eventlog.KindProtectionPlaced, Message: "placed"}))
	require.NoError(t, st.Close())

	out, err := execute(t, "events", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05-01T08:00:00Z")
	assert.Contains(t, out, "side=BUY")
	assert.Less(t, bytes.Index([]byte(out), []byte("entry")), bytes.Index([]byte(out), []byte("protection_placed")))

	out, err = execute(t, "events", "--db", db, "--kind", "protection_placed")
	require.NoError(t, err)
	assert.NotContains(t, out, "side=BUY")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "****", mask("abc"))
	assert.Equal(t, "abcd****", mask("abcdef"))
}
