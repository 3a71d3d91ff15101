package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairName struct{}

func (pairName) String() string { return "BTC/USD" }

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).With("source", "kraken").Info("Fetched", "samples", 3, "pair", pairName{}, "error", errors.New("boom"), 42, "ignored")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Fetched", entry["message"])
	assert.Equal(t, "kraken", entry["source"])
	assert.Equal(t, float64(3), entry["samples"])
	assert.Equal(t, "BTC/USD", entry["pair"])
	assert.Equal(t, "boom", entry["error"])
}

func TestInit_FileOutput(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)
	path := filepath.Join(t.TempDir(), "oracle.log")

	logger, err := Init(Options{Level: "warn", Format: "json", File: FileOptions{Path: path, MaxSize: 1}})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "round", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	_, err := Init(Options{Level: "loud", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestNoopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNoopLogger().With("k", "v").Error("nothing", "error", errors.New("x"))
	})
}
