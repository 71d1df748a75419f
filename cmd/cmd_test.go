package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reunion-countdown/internal/config"
	"reunion-countdown/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "database:\n  path: " + filepath.Join(dir, "reunion.db") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_StatusWithoutTarget(t *testing.T) {
	var out bytes.Buffer

	code := run([]string{"-config", writeConfig(t), "status"}, &out)
	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Please choose our next reunion date")
}

func TestRun_StatusAfterSave(t *testing.T) {
	path := writeConfig(t)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	year := time.Now().Year() + 1
	date := time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	res, err := a.countdown.Save(context.Background(), services.NewStaticPrompter("abc"), date, "18:00", "+09:00")
	require.NoError(t, err)
	require.True(t, res.Decision.Granted)
	require.NoError(t, a.db.Close())

	var out bytes.Buffer
	code := run([]string{"-config", path, "status"}, &out)
	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "(target "+services.FormatInstant(res.Target.UTC)+")")
}

func TestRun_UnknownCommand(t *testing.T) {
	code := run([]string{"-config", writeConfig(t), "dance"}, &bytes.Buffer{})
	assert.Equal(t, 2, code)
}

func TestRun_BadFlag(t *testing.T) {
	code := run([]string{"-nope"}, &bytes.Buffer{})
	assert.Equal(t, 2, code)
}

func TestBroadcastTick_WithoutClients(t *testing.T) {
	cfg, err := config.Load(writeConfig(t))
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.db.Close()

	hub := services.NewWSHub()
	broadcastTick(context.Background(), a.countdown, hub)
	assert.Zero(t, hub.Count())
}
