// Package poisource queries a Tencent-LBS-style place search API for the
// candidate POIs of a city.
package poisource

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roadbook/roadbook-server/internal/domain"
	"github.com/roadbook/roadbook-server/internal/normalize"
	"github.com/roadbook/roadbook-server/internal/ratelimit"
)

// API constants.
const (
	DefaultBaseURL = "https://apis.map.qq.com"
	SearchPath     = "/ws/place/v1/search"

	pageSize   = 10
	maxResults = 15
)

// Keyword suffixes searched per city, in priority order.
var keywordSuffixes = []string{"景点", "乐园", "博物馆", "夜景", "亲子"}

// ErrNoResults is returned when every keyword query failed.
var ErrNoResults = errors.New("poisource: all keyword queries failed")

// Config configures the client.
type Config struct {
	BaseURL string
	Key     string
	// Secret signs requests; empty disables signing.
	Secret      string
	Timeout     time.Duration
	RateLimit   float64
	Concurrency int
}

// Client searches places over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a client. Outbound requests are throttled to cfg.RateLimit
// per second.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 2
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: ratelimit.New(cfg.RateLimit, max(1, int(cfg.RateLimit))),
		logger:  logger,
	}
}

// Close stops the outbound limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}

type searchResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    []struct {
		Title    string         `json:"title"`
		Address  string         `json:"address"`
		Category string         `json:"category"`
		Location *domain.LatLng `json:"location"`
	} `json:"data"`
}

// Keywords returns the queries issued for city.
func Keywords(city string) []string {
	out := make([]string, len(keywordSuffixes))
	for i, s := range keywordSuffixes {
		out[i] = city + s
	}
	return out
}

// Search runs one query per keyword. Failed keywords are skipped; results
// are deduplicated by name in keyword order and capped at 15. An error is
// returned only if every query failed or ctx ended.
func (c *Client) Search(ctx context.Context, city string) ([]domain.POI, error) {
	keywords := Keywords(city)
	results := make([][]domain.POI, len(keywords))

	var (
		mu     sync.Mutex
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, kw := range keywords {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			pois, err := c.query(gctx, city, kw)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("keyword search failed", "keyword", kw, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = pois
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search %s: %w", city, err)
	}
	if failed == len(keywords) {
		return nil, ErrNoResults
	}

	seen := make(map[string]struct{})
	var out []domain.POI
	for _, pois := range results {
		for _, p := range pois {
			if _, dup := seen[p.Name]; dup {
				continue
			}
			seen[p.Name] = struct{}{}
			out = append(out, p)
		}
	}
	if len(out) > maxResults {
		out = out[:maxResults]
	}

	c.logger.Debug("place search finished", "city", city, "pois", len(out), "failed_keywords", failed)
	return out, nil
}

func (c *Client) query(ctx context.Context, city, keyword string) ([]domain.POI, error) {
	if err := c.limiter.Wait(ctx, SearchPath); err != nil {
		return nil, err
	}

	params := map[string]string{
		"keyword":    keyword,
		"boundary":   fmt.Sprintf("region(%s,0)", city),
		"page_size":  strconv.Itoa(pageSize),
		"page_index": "1",
		"key":        c.cfg.Key,
	}
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	if c.cfg.Secret != "" {
		q.Set("sig", Sign(SearchPath, params, c.cfg.Secret))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+SearchPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if body.Status != 0 {
		return nil, fmt.Errorf("api status %d: %s", body.Status, body.Message)
	}

	pois := make([]domain.POI, 0, len(body.Data))
	for _, d := range body.Data {
		if d.Title == "" {
			continue
		}
		pois = append(pois, domain.POI{
			Name:     d.Title,
			Address:  d.Address,
			Category: d.Category,
			District: normalize.District(d.Address),
			Location: d.Location,
		})
	}
	return pois, nil
}

// Sign computes the request signature: md5 of the path, "?", the
// parameters sorted by key as raw k=v pairs joined by "&", and the secret.
func Sign(path string, params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := md5.Sum([]byte(path + "?" + strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
