package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/audit"
	"github.com/walt0white1/prospectflow-sub000/internal/cli"
	"github.com/walt0white1/prospectflow-sub000/internal/config"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/scoring"
	"github.com/walt0white1/prospectflow-sub000/internal/server"
)

type auditFlags struct {
	screenshots bool
	subprocess  bool
	rating      float64
	json        bool
}

func newAuditCmd() *cobra.Command {
	var f auditFlags
	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Audit one website and score it as a prospect",
		Example: `  prospectflow audit https://example.fr
  prospectflow audit example.fr --screenshots --subprocess`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.screenshots, "screenshots", false, "capture desktop and mobile screenshots")
	cmd.Flags().BoolVar(&f.subprocess, "subprocess", false, "run the audit in an isolated child process")
	cmd.Flags().Float64Var(&f.rating, "rating", 0, "known maps rating to factor into the score")
	cmd.Flags().BoolVar(&f.json, "json", false, "write the audit and score as JSON")
	return cmd
}

func runAudit(cmd *cobra.Command, rawURL string, f auditFlags) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	target, err := audit.NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	if f.subprocess {
		e.cfg.Audit.Mode = config.AuditSubprocess
	}

	app, err := newApp(cmd.Context(), e)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		if cerr := app.Close(context.WithoutCancel(cmd.Context())); cerr != nil {
			e.logger.Warn("close failed", zap.Error(cerr))
		}
	}()

	result, err := app.Runner().Run(cmd.Context(), prospect.AuditRequest{URL: target, Screenshots: f.screenshots})
	if err != nil {
		return fmt.Errorf("audit %s: %w", target, err)
	}

	var rating *float64
	if f.rating > 0 {
		rating = &f.rating
	}
	score := scoring.ScoreAudit(true, &result, rating, server.NewRand(e.cfg.Audit.Seed))

	if f.json {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Audit prospect.AuditResult `json:"audit"`
			Score scoring.AuditScore   `json:"score"`
		}{result, score})
	}
	return cli.RenderAudit(e.stdout, result, score)
}
