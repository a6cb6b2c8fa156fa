package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loyaltyworks/tally/internal/cache"
	"github.com/loyaltyworks/tally/internal/config"
)

const tokenCacheKey = "pos_access_token"

// HTTPClient talks to the POS REST API. The auth token lives in an
// injected TTL cache owned by the caller, not a package-level singleton,
// so tests and concurrent syncs share one coherent token.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	pageSize  int
	tokenTTL  time.Duration
	http      *http.Client
	tokens    *cache.TTLCache[string, string]
	log       *zap.Logger
}

func NewHTTPClient(cfg config.POSConfig, tokens *cache.TTLCache[string, string], log *zap.Logger) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		pageSize:  pageSize,
		tokenTTL:  cfg.TokenTTL,
		http:      &http.Client{Timeout: timeout},
		tokens:    tokens,
		log:       log.Named("pos.client"),
	}
}

// saleEnvelope tolerates the provider's loosely typed JSON; fields are
// converted into the narrow RawSale immediately.
type saleEnvelope struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Status   string      `json:"status"`
	Total    json.Number `json:"total"`
	Customer struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer"`
	CreatedAt string `json:"created_at"`
}

type listSalesResponse struct {
	Sales []saleEnvelope `json:"sales"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *HTTPClient) ListRecentSales(ctx context.Context, since time.Time, limit int) ([]RawSale, error) {
	if limit <= 0 {
		limit = c.pageSize
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("since", since.UTC().Format(time.RFC3339))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("sort", "created_at")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sales?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		// Token may have been revoked before its TTL; drop it so the
		// next run re-authenticates.
		c.tokens.Delete(tokenCacheKey)
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("pos: list sales: unexpected status %d", resp.StatusCode)
	}

	var payload listSalesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("pos: decode sales: %w", err)
	}

	sales := make([]RawSale, 0, len(payload.Sales))
	for _, env := range payload.Sales {
		sale, err := env.toRawSale()
		if err != nil {
			c.log.Warn("skipping malformed sale", zap.String("sale_id", env.ID), zap.Error(err))
			continue
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

func (env saleEnvelope) toRawSale() (RawSale, error) {
	id := strings.TrimSpace(env.ID)
	if id == "" {
		return RawSale{}, fmt.Errorf("missing sale id")
	}

	var total int64
	if env.Total != "" {
		parsed, err := env.Total.Float64()
		if err != nil {
			return RawSale{}, fmt.Errorf("bad total %q", env.Total)
		}
		total = int64(parsed)
	}

	createdAt, err := time.Parse(time.RFC3339, strings.TrimSpace(env.CreatedAt))
	if err != nil {
		return RawSale{}, fmt.Errorf("bad created_at %q", env.CreatedAt)
	}

	return RawSale{
		ID:            id,
		Type:          strings.ToLower(strings.TrimSpace(env.Type)),
		Status:        strings.ToLower(strings.TrimSpace(env.Status)),
		CustomerName:  strings.TrimSpace(env.Customer.Name),
		CustomerPhone: strings.TrimSpace(env.Customer.Phone),
		TotalAmount:   total,
		CreatedAt:     createdAt.UTC(),
	}, nil
}

func (c *HTTPClient) token(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(tokenCacheKey); ok {
		return token, nil
	}

	body, err := json.Marshal(map[string]string{
		"api_key":    c.apiKey,
		"api_secret": c.apiSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return "", ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", ErrUnauthorized
	default:
		return "", fmt.Errorf("pos: auth: unexpected status %d", resp.StatusCode)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("pos: decode token: %w", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", ErrUnauthorized
	}

	ttl := c.tokenTTL
	if payload.ExpiresIn > 0 {
		// Refresh slightly ahead of provider-side expiry.
		ttl = time.Duration(payload.ExpiresIn)*time.Second - 30*time.Second
	}
	c.tokens.Set(tokenCacheKey, payload.AccessToken, ttl)
	return payload.AccessToken, nil
}
