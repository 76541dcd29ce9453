// ABOUTME: Tests for the registry node's logger setup and init command
// ABOUTME: Checks level filtering, attribute rendering and generated config

package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mythic-metadata/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.Debug("hidden")
	logger.With("component", "registry").Info("instruction committed",
		"tx", "5Hk2bQ9xLmN3pQrStUvWxYz", "op", "create_metadata_key", "slot", 3)
	logger.With("component", "gateway").WithGroup("call").Warn("failed", "code", "NotFound")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, lines[0], "INF [registry] instruction committed create_metadata_key @3 tx=5Hk2bQ9x")
	assert.NotContains(t, lines[0], "component=")
	assert.NotContains(t, lines[0], "5Hk2bQ9xL")
	assert.Contains(t, lines[1], "WRN [gateway] failed call.code=NotFound")
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("call", "method", "/mythic.metadata.v1.Registry/GetAccount")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "call", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "registry.yaml")
	ledgerPath := filepath.Join(dir, "data", "ledger.bolt")

	answers := strings.Join([]string{
		out,              // config path
		"127.0.0.1:6000", // grpc
		"",               // http default
		"bolt",           // driver
		ledgerPath,       // ledger path
		"",               // program id default
		"name",           // addressing
		"2m",             // max age
		"",               // cache size default
		"debug",          // level
		"json",           // format
	}, "\n") + "\n"

	require.NoError(t, runInit(strings.NewReader(answers)))

	cfg, err := config.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6000", cfg.Server.GRPCAddr)
	assert.Equal(t, "bolt", cfg.Database.Driver)
	assert.Equal(t, ledgerPath, cfg.Database.Path)
	assert.Equal(t, "name", cfg.Registry.Addressing)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "2m0s", cfg.Auth.SignatureMaxAge.String())

	_, err = os.Stat(filepath.Dir(ledgerPath))
	assert.NoError(t, err)
}

func TestRunInit_RejectsBadAnswers(t *testing.T) {
	out := filepath.Join(t.TempDir(), "registry.yaml")
	answers := out + "\n\n\nsqlite\n\n\nrandom\n\n\n\n\n"

	err := runInit(strings.NewReader(answers))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry.addressing")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
