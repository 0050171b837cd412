package log_test

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/bandcamp-free-downloader/internal/config"
	"github.com/handiism/bandcamp-free-downloader/internal/log"
)

func TestToWriter_AutoIsJSONOffTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.ToWriter(&buf, config.Log{Level: "info", Format: "auto"})
	logger.Info().Str("item", "x").Msg("hello")
	logger.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "x", line["item"])
	assert.Equal(t, log.Version, line["version"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestToWriter_Pretty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.ToWriter(&buf, config.Log{Level: "debug", Format: "pretty"})
	logger.Debug().Msg("shown")

	assert.Contains(t, buf.String(), "shown")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestToWriter_InvalidLevelPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		log.ToWriter(&bytes.Buffer{}, config.Log{Level: "loud", Format: "json"})
	})
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, log.IsTerminal(&bytes.Buffer{}))
}
