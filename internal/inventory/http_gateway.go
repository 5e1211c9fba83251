package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/posledger-backend/pkg/errors"
	"github.com/angelmondragon/posledger-backend/pkg/metrics"
)

const (
	defaultTimeout              = 3 * time.Second
	responseBodyReadLimit int64 = 1024
	apiKeyHeader                = "X-API-Key"
)

// HTTPGateway talks to the warehouse service over its JSON API.
type HTTPGateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	metrics    *metrics.SettlementMetrics
}

// Option configures optional gateway behavior.
type Option func(*HTTPGateway)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *HTTPGateway) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// WithAPIKey sets the key sent on every request.
func WithAPIKey(key string) Option {
	return func(g *HTTPGateway) {
		g.apiKey = strings.TrimSpace(key)
	}
}

// WithMetrics records call latency.
func WithMetrics(m *metrics.SettlementMetrics) Option {
	return func(g *HTTPGateway) {
		g.metrics = m
	}
}

// NewHTTPGateway builds a gateway for baseURL. timeout bounds every call;
// zero uses the default.
func NewHTTPGateway(baseURL string, timeout time.Duration, opts ...Option) (*HTTPGateway, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("inventory base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid inventory base url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	gateway := &HTTPGateway{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gateway)
		}
	}
	return gateway, nil
}

type batchPayload struct {
	BatchID    string `json:"batch_id"`
	Quantity   int    `json:"quantity"`
	ExpiryDate string `json:"expiry_date"`
}

// ListBatches fetches every batch of an inventory type.
func (g *HTTPGateway) ListBatches(ctx context.Context, inventoryTypeKey string) ([]Batch, error) {
	key := strings.TrimSpace(inventoryTypeKey)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory type key is required")
	}
	defer g.observe("list_batches", time.Now())

	endpoint := fmt.Sprintf("%s/inventory-types/%s/batches", g.baseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build list batches request")
	}

	var apiResp struct {
		Batches []batchPayload `json:"batches"`
	}
	if err := g.do(req, &apiResp); err != nil {
		return nil, err
	}

	batches := make([]Batch, 0, len(apiResp.Batches))
	for _, b := range apiResp.Batches {
		expiry, err := parseExpiry(b.ExpiryDate)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode batch expiry")
		}
		batches = append(batches, Batch{ID: b.BatchID, Quantity: b.Quantity, ExpiryDate: expiry})
	}
	return batches, nil
}

// Withdraw removes quantity from batchID, tagging the movement with reference.
func (g *HTTPGateway) Withdraw(ctx context.Context, batchID string, quantity int, reference string) (int, error) {
	if strings.TrimSpace(batchID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "batch id is required")
	}
	if quantity <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "withdraw quantity must be positive")
	}
	defer g.observe("withdraw", time.Now())

	payload, err := json.Marshal(map[string]any{
		"quantity":  quantity,
		"reference": reference,
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal withdraw request")
	}

	endpoint := fmt.Sprintf("%s/batches/%s/withdraw", g.baseURL, url.PathEscape(batchID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build withdraw request")
	}
	req.Header.Set("Content-Type", "application/json")

	var apiResp struct {
		Remaining int `json:"remaining"`
	}
	if err := g.do(req, &apiResp); err != nil {
		return 0, err
	}
	return apiResp.Remaining, nil
}

func (g *HTTPGateway) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set(apiKeyHeader, g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "inventory request rejected")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode inventory response")
	}
	return nil
}

func (g *HTTPGateway) observe(op string, start time.Time) {
	g.metrics.ObserveGateway(op, time.Since(start))
}

// parseExpiry accepts a calendar date or an RFC 3339 timestamp. Empty means
// the batch does not expire.
func parseExpiry(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
