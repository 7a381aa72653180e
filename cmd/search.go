package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/api"
	"github.com/walt0white1/prospectflow-sub000/internal/cli"
	"github.com/walt0white1/prospectflow-sub000/internal/progress"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

type searchFlags struct {
	sector   string
	city     string
	radiusKm float64
	limit    int
	enrich   bool
	json     bool
}

func newSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find and score businesses of a sector around a city",
		Example: `  prospectflow search --sector coiffeur --city Lyon
  prospectflow search --sector restaurant --city "Saint-Étienne" --radius 10 --enrich --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.sector, "sector", "", "sector code or label")
	cmd.Flags().StringVar(&f.city, "city", "", "city to search around")
	cmd.Flags().Float64Var(&f.radiusKm, "radius", prospect.DefaultRadiusKm, "search radius in kilometres")
	cmd.Flags().IntVar(&f.limit, "limit", prospect.DefaultLimit, "maximum number of results")
	cmd.Flags().BoolVar(&f.enrich, "enrich", false, "enrich top results from the maps service")
	cmd.Flags().BoolVar(&f.json, "json", false, "write NDJSON events instead of a table")
	_ = cmd.MarkFlagRequired("sector")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}

func runSearch(cmd *cobra.Command, f searchFlags) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
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

	req := prospect.SearchRequest{
		Sector:   f.sector,
		City:     f.city,
		RadiusKm: f.radiusKm,
		Limit:    f.limit,
		Enrich:   f.enrich,
	}
	return streamSearch(cmd.Context(), app.Searches(), req, e.stdout, f.json)
}

func streamSearch(ctx context.Context, searches api.SearchRunner, req prospect.SearchRequest, out io.Writer, asJSON bool) error {
	var emit progress.Emitter
	var renderer *cli.Renderer
	if asJSON {
		emit = api.NewStreamEmitter(out, zap.L())
	} else {
		renderer = cli.NewRenderer(out, cli.IsTerminal(out))
		emit = renderer
	}

	if _, err := searches.Run(ctx, uuid.New(), req, emit); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if renderer != nil {
		return renderer.Err()
	}
	return nil
}
