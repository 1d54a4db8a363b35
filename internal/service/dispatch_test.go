package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-hq/ta-scheduler-api/pkg/config"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
	"github.com/campus-hq/ta-scheduler-api/pkg/storage"
)

func TestProcessRunnerSuccess(t *testing.T) {
	runner := NewProcessRunner(config.AlgorithmConfig{
		Command: "sh",
		Args:    []string{"-c", "echo solver done"},
		Timeout: 10 * time.Second,
	}, nil, zap.NewNop())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 0, result.ExitCode)
	assert.False(t, result.TimedOut)
	assert.Contains(t, result.Output, "solver done")
}

func TestProcessRunnerNonZeroExit(t *testing.T) {
	runner := NewProcessRunner(config.AlgorithmConfig{
		Command: "sh",
		Args:    []string{"-c", "echo boom >&2; exit 3"},
		Timeout: 10 * time.Second,
	}, nil, zap.NewNop())

	result, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDispatchFailure))
	assert.Equal(t, 3, result.ExitCode)
	assert.False(t, result.TimedOut)
	assert.Contains(t, result.Output, "boom")
}

func TestProcessRunnerTimeout(t *testing.T) {
	runner := NewProcessRunner(config.AlgorithmConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 100 * time.Millisecond,
	}, nil, zap.NewNop())

	start := time.Now()
	result, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDispatchFailure))
	assert.True(t, result.TimedOut)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestProcessRunnerTimeoutWithSurvivingGrandchild(t *testing.T) {
	// The shell backgrounds a child that inherits the output pipes and
	// outlives the deadline kill; the run must still return promptly.
	runner := NewProcessRunner(config.AlgorithmConfig{
		Command: "sh",
		Args:    []string{"-c", "sleep 5 & wait"},
		Timeout: 100 * time.Millisecond,
	}, nil, zap.NewNop())

	start := time.Now()
	result, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDispatchFailure))
	assert.True(t, result.TimedOut)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestProcessRunnerMissingCommand(t *testing.T) {
	runner := NewProcessRunner(config.AlgorithmConfig{
		Command: "definitely-not-a-command-xyz",
		Timeout: time.Second,
	}, nil, zap.NewNop())

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDispatchFailure))
}

func TestProcessRunnerPersistsRunLog(t *testing.T) {
	dir := t.TempDir()
	logs, err := storage.NewRunLogStore(dir)
	require.NoError(t, err)

	runner := NewProcessRunner(config.AlgorithmConfig{
		Command: "sh",
		Args:    []string{"-c", "echo logged output"},
		Timeout: 10 * time.Second,
	}, logs, zap.NewNop())

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.LogFile)

	data, err := os.ReadFile(filepath.Join(dir, result.LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "logged output")
}

func TestTailBufferKeepsTail(t *testing.T) {
	buf := newTailBuffer(16)
	_, err := buf.Write([]byte(strings.Repeat("a", 10)))
	require.NoError(t, err)
	_, err = buf.Write([]byte(strings.Repeat("b", 10)))
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "...(truncated)\n"))
	assert.True(t, strings.HasSuffix(out, strings.Repeat("b", 10)))
	assert.NotContains(t, out[len("...(truncated)\n"):], strings.Repeat("a", 7))
}
