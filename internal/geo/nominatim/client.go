// Package nominatim resolves place names to coordinates using a Nominatim
// compatible geocoding service.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/metrics"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// DefaultBaseURL is the public OpenStreetMap Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrEmptyPlace is returned when the caller supplies a blank place name.
var ErrEmptyPlace = errors.New("place name is required")

// Waiter throttles outbound requests per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config controls the geocoder client.
type Config struct {
	BaseURL      string
	CountryCodes string
	Language     string
	UserAgent    string
	Timeout      time.Duration
}

// Client implements prospect.Geocoder.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter Waiter
	logger  *zap.Logger
}

// New builds a Client. limiter may be nil.
func New(cfg Config, httpClient *http.Client, limiter Waiter, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, limiter: limiter, logger: logger}
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the top match for the place, or nil when nothing matches.
// A transport or upstream failure is returned once and never retried.
func (c *Client) Geocode(ctx context.Context, name string) (*prospect.GeoPoint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyPlace
	}
	reqURL := c.searchURL(name)
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, reqURL); err != nil {
			return nil, eris.Wrap(err, "geocode: rate limit")
		}
	}

	start := time.Now()
	places, err := c.fetch(ctx, reqURL)
	metrics.ObserveUpstream("geocoder", metrics.Outcome(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		c.logger.Info("geocode miss", zap.String("place", name))
		return nil, nil
	}
	return toGeoPoint(places[0])
}

func (c *Client) searchURL(name string) string {
	params := url.Values{
		"q":      {name},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if c.cfg.CountryCodes != "" {
		params.Set("countrycodes", c.cfg.CountryCodes)
	}
	if c.cfg.Language != "" {
		params.Set("accept-language", c.cfg.Language)
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/search?" + params.Encode()
}

func (c *Client) fetch(ctx context.Context, reqURL string) ([]place, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: service returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}
	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	return places, nil
}

func toGeoPoint(p place) (*prospect.GeoPoint, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: invalid latitude %q", p.Lat)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: invalid longitude %q", p.Lon)
	}
	canonical := strings.TrimSpace(p.Name)
	if canonical == "" {
		canonical = strings.TrimSpace(strings.SplitN(p.DisplayName, ",", 2)[0])
	}
	return &prospect.GeoPoint{
		Lat:           lat,
		Lng:           lng,
		CanonicalName: canonical,
		DisplayName:   p.DisplayName,
	}, nil
}
