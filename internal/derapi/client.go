package derapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"der-explorer/internal/polling"
)

const (
	meterGroupPath = "/v1/load/meter_group/"
	scenarioPath   = "/v1/dss/scenario/"

	// maxPages bounds how many next links one fetch follows.
	maxPages = 100
)

// ErrForeignNext is returned when a page links to a host other than the base url.
var ErrForeignNext = errors.New("derapi: next link leaves base url")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Status int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("derapi: http %d for %s", e.Status, e.URL)
}

// Client is a minimal client for the upstream DER API.
type Client struct {
	baseURL string
	base    *url.URL
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithRateLimit caps requests per second; zero or less disables the cap.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// NewClient constructs a client.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("derapi: empty base url")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("derapi: base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("derapi: base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: base.String(),
		base:    base,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type page struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []polling.Entity `json:"results"`
}

// FetchMeterGroups loads meter groups by id, filtered by params.
func (c *Client) FetchMeterGroups(ctx context.Context, ids []polling.ID, params polling.Params) ([]polling.Entity, error) {
	return c.fetchByIDs(ctx, meterGroupPath, ids, params)
}

// FetchScenarios loads scenarios by id, filtered by params.
func (c *Client) FetchScenarios(ctx context.Context, ids []polling.ID, params polling.Params) ([]polling.Entity, error) {
	return c.fetchByIDs(ctx, scenarioPath, ids, params)
}

func (c *Client) fetchByIDs(ctx context.Context, path string, ids []polling.ID, params polling.Params) ([]polling.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := EncodeParams(params)
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = string(id)
	}
	query.Set("filter[id][in]", strings.Join(idStrings, ","))

	next := c.baseURL + path + "?" + query.Encode()
	var out []polling.Entity
	for pages := 0; next != ""; pages++ {
		if pages >= maxPages {
			return nil, fmt.Errorf("derapi: more than %d pages for %s", maxPages, path)
		}
		var p page
		if err := c.getJSON(ctx, next, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Results...)
		next = ""
		if p.Next != nil && *p.Next != "" {
			resolved, err := c.resolveNext(*p.Next)
			if err != nil {
				return nil, err
			}
			next = resolved
		}
	}
	return out, nil
}

// resolveNext resolves a next link against the current base url and rejects
// links to another scheme or host, which would otherwise receive the token.
func (c *Client) resolveNext(next string) (string, error) {
	u, err := c.base.Parse(next)
	if err != nil {
		return "", fmt.Errorf("derapi: next link %q: %w", next, err)
	}
	if !strings.EqualFold(u.Scheme, c.base.Scheme) || !strings.EqualFold(u.Host, c.base.Host) {
		return "", fmt.Errorf("%w: %s", ErrForeignNext, u.Redacted())
	}
	return u.String(), nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, URL: target}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("derapi: decode %s: %w", target, err)
	}
	return nil
}

// EncodeParams flattens params into a query string. Nested objects become
// bracketed keys (filter[owner]=x) and arrays become comma-separated values.
func EncodeParams(params polling.Params) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		encodeValue(values, k, params[k])
	}
	return values
}

func encodeValue(values url.Values, key string, v any) {
	switch val := v.(type) {
	case nil:
		return
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeValue(values, key+"["+k+"]", val[k])
		}
	case polling.Params:
		encodeValue(values, key, map[string]any(val))
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, scalar(item))
		}
		values.Set(key, strings.Join(parts, ","))
	case []string:
		values.Set(key, strings.Join(val, ","))
	default:
		values.Set(key, scalar(val))
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case polling.ID:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
