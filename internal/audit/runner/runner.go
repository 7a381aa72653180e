// Package runner executes site audits either in-process or in an isolated
// child process.
package runner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/walt0white1/prospectflow-sub000/internal/metrics"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/telemetry"
)

// Runner performs one audit.
type Runner interface {
	Run(ctx context.Context, req prospect.AuditRequest) (prospect.AuditResult, error)
}

// Auditor is the engine contract used by InProcess.
type Auditor interface {
	Audit(ctx context.Context, req prospect.AuditRequest) (prospect.AuditResult, error)
}

// InProcess calls the audit engine directly.
type InProcess struct {
	Engine Auditor
}

// Run audits req in the current process.
func (r InProcess) Run(ctx context.Context, req prospect.AuditRequest) (prospect.AuditResult, error) {
	ctx, span := startSpan(ctx, "in_process", req)
	start := time.Now()
	result, err := r.Engine.Audit(ctx, req)
	metrics.ObserveAudit("in_process", metrics.Outcome(err), time.Since(start))
	telemetry.End(span, err)
	return result, err
}

func startSpan(ctx context.Context, mode string, req prospect.AuditRequest) (context.Context, trace.Span) {
	return telemetry.Tracer().Start(ctx, "audit.run", trace.WithAttributes(
		attribute.String("audit.mode", mode),
		attribute.String("audit.url", req.URL),
		attribute.Bool("audit.screenshots", req.Screenshots),
	))
}
