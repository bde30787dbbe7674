package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/km-arc/go-dipend/framework/config"
)

func TestNew_FileOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dipend.log")
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info().Msg("dropped")
	logger.Warn().Str("dependency", "*app.Repo").Msg("kept")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(content), []byte("\n"))
	require.Len(t, lines, 1)

	line := string(lines[0])
	assert.Equal(t, "warn", gjson.Get(line, "level").String())
	assert.Equal(t, "kept", gjson.Get(line, "message").String())
	assert.Equal(t, "*app.Repo", gjson.Get(line, "dependency").String())
	assert.True(t, gjson.Get(line, "time").Exists())
}

func TestNew_Level(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestNew_BadOutput(t *testing.T) {
	_, err := New(config.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestShouldUsePretty(t *testing.T) {
	assert.True(t, shouldUsePretty(config.LoggingConfig{Format: "pretty"}, nil))
	assert.False(t, shouldUsePretty(config.LoggingConfig{Format: "json"}, os.Stdout))
	assert.False(t, shouldUsePretty(config.LoggingConfig{Format: "console"}, nil))
}

func TestConsoleWriter_FormatsMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(consoleWriter(&buf))
	logger.Info().Msg("booted")
	assert.Contains(t, buf.String(), "-> booted")
}
