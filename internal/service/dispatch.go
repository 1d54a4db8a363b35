package service

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-hq/ta-scheduler-api/pkg/config"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
	"github.com/campus-hq/ta-scheduler-api/pkg/storage"
)

// RunResult captures the outcome of one algorithm dispatch.
type RunResult struct {
	RunID    string        `json:"run_id"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
	LogFile  string        `json:"log_file,omitempty"`
}

// AlgorithmRunner launches the external assignment algorithm and reports how
// the run ended. The algorithm exchanges data through the shared database,
// not through the process streams; captured output exists for diagnostics.
type AlgorithmRunner interface {
	Run(ctx context.Context) (RunResult, error)
}

// ProcessRunner invokes the configured algorithm command as a subprocess with
// a hard deadline and bounded output capture.
type ProcessRunner struct {
	cfg    config.AlgorithmConfig
	logs   *storage.RunLogStore
	logger *zap.Logger
}

// NewProcessRunner builds a runner. The log store may be nil, in which case
// run output is not persisted.
func NewProcessRunner(cfg config.AlgorithmConfig, logs *storage.RunLogStore, logger *zap.Logger) *ProcessRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessRunner{cfg: cfg, logs: logs, logger: logger}
}

// Run executes the algorithm once. A non-zero exit, a start failure or a
// deadline hit all surface as a dispatch failure; the caller decides what to
// roll back.
func (r *ProcessRunner) Run(ctx context.Context) (RunResult, error) {
	runID := uuid.New().String()

	timeout := r.cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output := newTailBuffer(int(r.cfg.OutputLimit))
	cmd := exec.CommandContext(runCtx, r.cfg.Command, r.cfg.Args...)
	cmd.Dir = r.cfg.WorkDir
	cmd.Stdout = output
	cmd.Stderr = output
	// Grandchildren (a shell-spawned solver) inherit the output pipes and
	// survive the deadline kill; stop waiting on them shortly after.
	cmd.WaitDelay = time.Second

	r.logger.Info("dispatching assignment algorithm",
		zap.String("run_id", runID),
		zap.String("command", r.cfg.Command),
		zap.Strings("args", r.cfg.Args),
		zap.Duration("timeout", timeout),
	)

	started := time.Now()
	runErr := cmd.Run()
	result := RunResult{
		RunID:    runID,
		Output:   output.String(),
		Duration: time.Since(started),
		TimedOut: errors.Is(runCtx.Err(), context.DeadlineExceeded),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if r.logs != nil {
		if name, err := r.logs.Save(runID, output.Bytes()); err != nil {
			r.logger.Warn("persisting run log failed", zap.String("run_id", runID), zap.Error(err))
		} else {
			result.LogFile = name
		}
	}

	switch {
	case result.TimedOut:
		r.logger.Error("algorithm run timed out",
			zap.String("run_id", runID),
			zap.Duration("duration", result.Duration),
		)
		return result, appErrors.Clone(appErrors.ErrDispatchFailure,
			fmt.Sprintf("algorithm run %s exceeded %s deadline", runID, timeout))
	case runErr != nil:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			r.logger.Error("algorithm exited non-zero",
				zap.String("run_id", runID),
				zap.Int("exit_code", result.ExitCode),
			)
			return result, appErrors.Clone(appErrors.ErrDispatchFailure,
				fmt.Sprintf("algorithm run %s exited with code %d", runID, result.ExitCode))
		}
		r.logger.Error("algorithm failed to start", zap.String("run_id", runID), zap.Error(runErr))
		return result, appErrors.Wrap(runErr,
			appErrors.ErrDispatchFailure.Code,
			appErrors.ErrDispatchFailure.Status,
			fmt.Sprintf("algorithm run %s could not be started", runID))
	}

	r.logger.Info("algorithm run completed",
		zap.String("run_id", runID),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// tailBuffer keeps the last limit bytes written to it. The algorithm may be
// chatty; only the tail of its output is useful when a run goes wrong.
type tailBuffer struct {
	limit     int
	buf       []byte
	truncated bool
}

func newTailBuffer(limit int) *tailBuffer {
	if limit <= 0 {
		limit = 256 * 1024
	}
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		b.buf = b.buf[len(b.buf)-b.limit:]
		b.truncated = true
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	if !b.truncated {
		return b.buf
	}
	return append([]byte("...(truncated)\n"), b.buf...)
}

func (b *tailBuffer) String() string {
	return string(b.Bytes())
}
