package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	l := WithComponent("converge")
	l.Info().Msg("hello")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "converge", record["component"])
	assert.Equal(t, "hello", record["message"])
	assert.Equal(t, "info", record["level"])
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	Logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	Logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel(DebugLevel))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel(ErrorLevel))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
}

func TestInitWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acng.log")
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf, File: path, MaxSizeMB: 1, MaxBackups: 1})

	resLog := WithResource(WithRunID(WithComponent("converge"), "run-1"), "link[/var/cache/apt-cacher-ng]", "create")
	resLog.Info().Msg("resource updated")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"run-1"`)
	assert.Contains(t, string(data), `"resource":"link[/var/cache/apt-cacher-ng]"`)
	// console writer output is not JSON
	assert.Contains(t, buf.String(), "resource updated")
}
