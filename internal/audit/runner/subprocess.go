package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/metrics"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/telemetry"
)

// DefaultTimeout is the wall-clock ceiling for one child audit.
const DefaultTimeout = 45 * time.Second

const stderrTail = 2048

var (
	// ErrTimeout means the child did not finish before the deadline.
	ErrTimeout = errors.New("audit timed out")
	// ErrNoOutput means the child exited without writing anything.
	ErrNoOutput = errors.New("audit process exited without output")
	// ErrBadOutput means the child wrote something that is not one JSON document.
	ErrBadOutput = errors.New("audit process wrote unreadable output")
)

// AuditError carries the message a child reported in its error payload.
type AuditError struct {
	Message string
}

func (e *AuditError) Error() string {
	return "audit failed: " + e.Message
}

// Subprocess runs "<Path> <Args...> [--screenshots] -- <url>" and reads one
// JSON document from its stdout.
type Subprocess struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Run audits req in a child process.
func (s Subprocess) Run(ctx context.Context, req prospect.AuditRequest) (prospect.AuditResult, error) {
	ctx, span := startSpan(ctx, "subprocess", req)
	start := time.Now()
	result, err := s.run(ctx, req)
	metrics.ObserveAudit("subprocess", metrics.Outcome(err), time.Since(start))
	telemetry.End(span, err)
	return result, err
}

func (s Subprocess) run(ctx context.Context, req prospect.AuditRequest) (prospect.AuditResult, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append([]string{}, s.Args...)
	if req.Screenshots {
		args = append(args, "--screenshots")
	}
	// The URL always follows "--" so the child never parses it as a flag.
	args = append(args, "--", req.URL)
	cmd := exec.CommandContext(runCtx, s.Path, args...)
	if len(s.Env) > 0 {
		cmd.Env = s.Env
	}
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if tail := lastBytes(stderr.Bytes(), stderrTail); tail != "" {
		logger.Debug("audit child stderr", zap.String("url", req.URL), zap.String("stderr", tail))
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return prospect.AuditResult{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if ctx.Err() != nil {
		return prospect.AuditResult{}, fmt.Errorf("audit canceled: %w", ctx.Err())
	}
	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		if runErr != nil {
			return prospect.AuditResult{}, fmt.Errorf("%w: %v", ErrNoOutput, runErr)
		}
		return prospect.AuditResult{}, ErrNoOutput
	}

	result, err := DecodeChildOutput(stdout.Bytes())
	if err != nil {
		return prospect.AuditResult{}, err
	}
	if runErr != nil {
		logger.Warn("audit child exited with error after writing a result",
			zap.String("url", req.URL), zap.Error(runErr))
	}
	return result, nil
}

type childEnvelope struct {
	Error *string `json:"error"`
}

// DecodeChildOutput parses exactly one JSON document written by a child:
// either an AuditResult or {"error": "..."}.
func DecodeChildOutput(out []byte) (prospect.AuditResult, error) {
	var raw json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(out))
	if err := dec.Decode(&raw); err != nil {
		return prospect.AuditResult{}, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return prospect.AuditResult{}, fmt.Errorf("%w: more than one document", ErrBadOutput)
	}

	var envelope childEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return prospect.AuditResult{}, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	if envelope.Error != nil {
		return prospect.AuditResult{}, &AuditError{Message: *envelope.Error}
	}
	var result prospect.AuditResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return prospect.AuditResult{}, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}
	return result, nil
}

// WriteChildOutput writes the single JSON document a child reports.
func WriteChildOutput(w io.Writer, result prospect.AuditResult, auditErr error) error {
	var payload any = result
	if auditErr != nil {
		payload = map[string]string{"error": auditErr.Error()}
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return fmt.Errorf("write audit output: %w", err)
	}
	return nil
}

func lastBytes(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
