package overpass

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/metrics"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// DefaultEndpoint is the main public Overpass instance.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// MinTimeout is the floor applied to the query timeout; large radius
// queries are slow on the public instances.
const MinTimeout = 20 * time.Second

// Config controls the directory client.
type Config struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
}

// Client implements prospect.DirectorySearcher.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client. The timeout is raised to MinTimeout when lower.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout < MinTimeout {
		cfg.Timeout = MinTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

// Search queries the directory and returns deduplicated candidates in the
// order the service returned them, truncated to limit.
func (c *Client) Search(
	ctx context.Context,
	sector prospect.Sector,
	center prospect.GeoPoint,
	radiusM int,
	limit int,
) ([]prospect.CandidateRecord, error) {
	if radiusM <= 0 {
		return nil, eris.Errorf("overpass: radius must be > 0, got %d", radiusM)
	}
	query := BuildQuery(sector, center, radiusM, c.cfg.Timeout)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	elements, err := c.execute(ctx, query)
	metrics.ObserveUpstream("overpass", metrics.Outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	candidates := normalize(elements, sector.Label, limit)
	c.logger.Debug("overpass search complete",
		zap.String("sector", sector.Code),
		zap.Int("elements", len(elements)),
		zap.Int("candidates", len(candidates)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return candidates, nil
}

func (c *Client) execute(ctx context.Context, query string) ([]element, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: service returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read body")
	}
	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "overpass: parse response")
	}
	return parsed.Elements, nil
}
