package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewDefaultLevelIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Output: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")
	require.NoError(t, logger.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "run_id")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `log level "loud"`)
}

func TestRunIDsDiffer(t *testing.T) {
	var a, b bytes.Buffer
	la, err := New(Config{Level: "info", Output: &a})
	require.NoError(t, err)
	lb, err := New(Config{Level: "info", Output: &b})
	require.NoError(t, err)
	la.Info("x")
	lb.Info("x")
	assert.NotEqual(t, a.String(), b.String())
}

func TestPhase(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Output: &buf})
	require.NoError(t, err)

	done := Phase(logger, "parse")
	done(nil)
	NewStepTimer(logger, "resolve").Done(errors.New("2 errors"))

	out := buf.String()
	assert.Contains(t, out, "phase done")
	assert.Contains(t, out, `"phase": "parse"`)
	assert.Contains(t, out, `"phase": "resolve"`)
	assert.Contains(t, out, "2 errors")
	assert.Contains(t, out, "duration")
}

func TestContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}
