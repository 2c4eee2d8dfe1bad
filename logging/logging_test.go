package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polybase/solid/logging"
)

func TestNewDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("", &buf)
	require.NoError(t, err)

	logger.Debug("should be filtered")
	logger.Info("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}

func TestNewNoneSilencesEverything(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("none", &buf)
	require.NoError(t, err)

	logger.Info("nothing should show up")
	logger.Error("not even errors")

	assert.Empty(t, buf.String())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	_, err := logging.New("not-a-level", &buf)
	assert.Error(t, err)
}

func TestWithAddsModuleKey(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New("debug", &buf)
	require.NoError(t, err)

	scoped := logging.With(logger, "engine")
	scoped.Info("hello")

	assert.True(t, strings.Contains(buf.String(), "module=engine") || strings.Contains(buf.String(), "\"module\":\"engine\""))
}
