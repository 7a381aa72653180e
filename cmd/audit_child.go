package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/audit/runner"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/server"
)

// newAuditor builds the audit engine for the child process. Tests replace it.
var newAuditor = func(ctx context.Context, e *env) (runner.Auditor, func(), error) {
	blobs, closeBlobs, err := server.OpenBlobStore(ctx, e.cfg, e.logger)
	if err != nil {
		return nil, nil, err
	}
	engine, browser, err := server.NewAuditEngine(e.cfg, blobs, e.logger)
	if err != nil {
		if closeBlobs != nil {
			_ = closeBlobs()
		}
		return nil, nil, err
	}
	cleanup := func() {
		browser.Close()
		if closeBlobs != nil {
			if cerr := closeBlobs(); cerr != nil {
				e.logger.Warn("close blob store failed", zap.Error(cerr))
			}
		}
	}
	return engine, cleanup, nil
}

func newAuditChildCmd() *cobra.Command {
	var screenshots bool
	cmd := &cobra.Command{
		Use:    "audit-child <url>",
		Short:  "Audit one site and write a single JSON document to stdout",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditChild(cmd, args[0], screenshots)
		},
	}
	cmd.Flags().BoolVar(&screenshots, "screenshots", false, "capture desktop and mobile screenshots")
	return cmd
}

// runAuditChild always writes exactly one document: the result, or an error
// payload. Logs go to stderr.
func runAuditChild(cmd *cobra.Command, rawURL string, screenshots bool) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	auditor, cleanup, err := newAuditor(cmd.Context(), e)
	if err != nil {
		return runner.WriteChildOutput(e.stdout, prospect.AuditResult{}, fmt.Errorf("init audit engine: %w", err))
	}
	defer cleanup()

	result, auditErr := auditor.Audit(cmd.Context(), prospect.AuditRequest{URL: rawURL, Screenshots: screenshots})
	if auditErr != nil {
		e.logger.Warn("audit failed", zap.String("url", rawURL), zap.Error(auditErr))
	}
	return runner.WriteChildOutput(e.stdout, result, auditErr)
}
