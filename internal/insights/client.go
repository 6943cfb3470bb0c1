// Package insights is the typed client of the AI insights backend. Every
// response field is optional; decoding never fails on a missing or
// malformed field, it reads as zero instead.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"gigledger/internal/cache"
	"gigledger/internal/log"
)

var (
	// ErrNotConfigured is returned by every call when no base URL is set.
	ErrNotConfigured = errors.New("insights backend not configured")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("insights backend unavailable")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("insights %s: status %d", e.Endpoint, e.Code)
}

const maxBody = 1 << 20

// Endpoint names, used for cache keys and metrics.
const (
	EndpointCashflow    = "cashflow"
	EndpointSmartSpend  = "smart-spend"
	EndpointOpportunity = "opportunity"
	EndpointDreamPlan   = "dream-plan"
	EndpointPortfolio   = "portfolio"
	EndpointChat        = "chat"
	EndpointCatalog     = "catalog"
	EndpointLoans       = "loans"
)

// Recorder observes each backend call.
type Recorder interface {
	ObserveInsights(endpoint, outcome string, d time.Duration)
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	// CacheSize bounds the number of cached responses.
	CacheSize  int
	HTTPClient *http.Client
	Logger     *slog.Logger
	Recorder   Recorder
}

type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	cache    *cache.LRUCache[any]
	logger   *slog.Logger
	recorder Recorder
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 512
	}

	st := gobreaker.Settings{
		Name:        "insights",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < 500
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				log.FieldComponent, log.ComponentInsights, "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:     hc,
		breaker:  gobreaker.NewCircuitBreaker(st),
		cache:    cache.NewLRUCache[any](size, cfg.CacheTTL),
		logger:   logger,
		recorder: cfg.Recorder,
	}
}

// Configured reports whether a backend URL is set.
func (c *Client) Configured() bool { return c.baseURL != "" }

// Cache exposes the response cache so it can be registered for cleanup.
func (c *Client) Cache() *cache.LRUCache[any] { return c.cache }

// BreakerState is "closed", "half-open" or "open".
func (c *Client) BreakerState() string { return c.breaker.State().String() }

func cacheKey(endpoint, uid, query string) string {
	return endpoint + ":" + uid + "|" + query
}

// InvalidateLedger drops the cached insights derived from the user's ledger.
func (c *Client) InvalidateLedger(uid string) {
	c.cache.DeletePrefix(cacheKey(EndpointCashflow, uid, ""))
	c.cache.DeletePrefix(cacheKey(EndpointSmartSpend, uid, ""))
}

// InvalidateGoals drops the cached dream plan.
func (c *Client) InvalidateGoals(uid string) {
	c.cache.DeletePrefix(cacheKey(EndpointDreamPlan, uid, ""))
}

// cached returns the cached value under key or fetches and stores it.
func cached[T any](c *Client, key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.cache.Set(key, v)
	return v, nil
}

// do runs one request through the breaker and decodes the JSON body into out.
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body any, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, endpoint, method, path, query, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.observe(endpoint, err, time.Since(start))
	if err != nil {
		c.logger.WarnContext(ctx, "Insights request failed",
			log.FieldComponent, log.ComponentInsights, log.FieldEndpoint, endpoint, log.FieldError, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, endpoint, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) observe(endpoint string, err error, d time.Duration) {
	if c.recorder == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrUnavailable):
		outcome = "open"
	default:
		outcome = "error"
	}
	c.recorder.ObserveInsights(endpoint, outcome, d)
}

func userPath(prefix, uid string) string {
	return prefix + url.PathEscape(uid)
}

// Cashflow fetches the 30-day outlook.
func (c *Client) Cashflow(ctx context.Context, uid string) (Cashflow, error) {
	return cached(c, cacheKey(EndpointCashflow, uid, ""), func() (Cashflow, error) {
		var w cashflowWire
		if err := c.do(ctx, EndpointCashflow, http.MethodGet, userPath("/cashflow/predict/", uid), nil, nil, &w); err != nil {
			return Cashflow{}, err
		}
		return normalizeCashflow(w), nil
	})
}

// SmartSpend fetches today's spending tip.
func (c *Client) SmartSpend(ctx context.Context, uid string) (string, error) {
	return cached(c, cacheKey(EndpointSmartSpend, uid, ""), func() (string, error) {
		var w smartSpendWire
		if err := c.do(ctx, EndpointSmartSpend, http.MethodGet, userPath("/ai/smart-spend/", uid), nil, nil, &w); err != nil {
			return "", err
		}
		return strings.TrimSpace(string(w.Tip)), nil
	})
}

// Opportunity fetches where and when to work next. A known location is
// passed as lat/lon.
func (c *Client) Opportunity(ctx context.Context, uid string, loc Location) (Opportunity, error) {
	q := url.Values{}
	if loc.Known {
		q.Set("lat", strconv.FormatFloat(loc.Lat, 'f', 4, 64))
		q.Set("lon", strconv.FormatFloat(loc.Lon, 'f', 4, 64))
	}
	return cached(c, cacheKey(EndpointOpportunity, uid, q.Encode()), func() (Opportunity, error) {
		var w opportunityWire
		if err := c.do(ctx, EndpointOpportunity, http.MethodGet, userPath("/ai/opportunity/", uid), q, nil, &w); err != nil {
			return Opportunity{}, err
		}
		return normalizeOpportunity(w), nil
	})
}

// DreamPlan fetches the savings plan for the user's goals.
func (c *Client) DreamPlan(ctx context.Context, uid string) (DreamPlan, error) {
	return cached(c, cacheKey(EndpointDreamPlan, uid, ""), func() (DreamPlan, error) {
		var w dreamPlanWire
		if err := c.do(ctx, EndpointDreamPlan, http.MethodGet, userPath("/dreams/plan/", uid), nil, nil, &w); err != nil {
			return DreamPlan{}, err
		}
		return normalizeDreamPlan(w), nil
	})
}

// ClearDreamPlan asks the backend to drop its cached plan and drops ours.
func (c *Client) ClearDreamPlan(ctx context.Context, uid string) error {
	c.InvalidateGoals(uid)
	return c.do(ctx, EndpointDreamPlan, http.MethodDelete, userPath("/dreams/plan/", uid)+"/cache", nil, nil, nil)
}

// Portfolio fetches the portfolio review text.
func (c *Client) Portfolio(ctx context.Context, uid string) (string, error) {
	return cached(c, cacheKey(EndpointPortfolio, uid, ""), func() (string, error) {
		var w portfolioWire
		if err := c.do(ctx, EndpointPortfolio, http.MethodGet, userPath("/ai/portfolio/", uid), nil, nil, &w); err != nil {
			return "", err
		}
		return firstNonEmpty(string(w.Advice), string(w.Portfolio)), nil
	})
}

// Chat sends one message and returns the assistant reply. Replies are never
// cached.
func (c *Client) Chat(ctx context.Context, uid, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("empty message")
	}
	var w chatWire
	body := map[string]string{"message": message}
	if err := c.do(ctx, EndpointChat, http.MethodPost, userPath("/ai/chat/", uid), nil, body, &w); err != nil {
		return "", err
	}
	return firstNonEmpty(string(w.Reply), string(w.Message)), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
