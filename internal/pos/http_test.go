package pos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/loyaltyworks/tally/internal/cache"
	"github.com/loyaltyworks/tally/internal/config"
)

func newTestServer(t *testing.T, salesStatus int, salesBody string) (*httptest.Server, *int64) {
	t.Helper()
	var tokenCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/sales", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(salesStatus)
		_, _ = w.Write([]byte(salesBody))
	})
	return httptest.NewServer(mux), &tokenCalls
}

func newTestClient(baseURL string) *HTTPClient {
	return NewHTTPClient(config.POSConfig{
		BaseURL:   baseURL,
		APIKey:    "key",
		APISecret: "secret",
		PageSize:  50,
		TokenTTL:  time.Minute,
	}, cache.New[string, string](time.Minute), zap.NewNop())
}

func TestListRecentSalesParsesLooseJSON(t *testing.T) {
	body := `{"sales":[
		{"id":"sale-1","type":"Delivery","status":"In Course","total":12499.0,
		 "customer":{"name":"Ana","phone":"(555) 111-2222"},
		 "created_at":"2025-06-01T14:00:00Z"},
		{"id":"","type":"delivery","status":"closed","total":100,
		 "customer":{},"created_at":"2025-06-01T14:05:00Z"},
		{"id":"sale-3","type":"pickup","status":"closed","total":"not-a-number",
		 "customer":{},"created_at":"2025-06-01T14:10:00Z"}
	]}`
	server, tokenCalls := newTestServer(t, http.StatusOK, body)
	defer server.Close()

	client := newTestClient(server.URL)
	sales, err := client.ListRecentSales(context.Background(), time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}

	// Malformed rows are skipped, not fatal.
	if len(sales) != 1 {
		t.Fatalf("expected 1 parseable sale, got %d", len(sales))
	}
	sale := sales[0]
	if sale.ID != "sale-1" || sale.Type != "delivery" || sale.Status != "in course" {
		t.Fatalf("unexpected sale %+v", sale)
	}
	if sale.TotalAmount != 12499 {
		t.Fatalf("expected total 12499, got %d", sale.TotalAmount)
	}
	if sale.CustomerPhone != "(555) 111-2222" {
		t.Fatalf("expected raw phone preserved, got %q", sale.CustomerPhone)
	}

	if *tokenCalls != 1 {
		t.Fatalf("expected one token fetch, got %d", *tokenCalls)
	}
}

func TestListRecentSalesReusesCachedToken(t *testing.T) {
	server, tokenCalls := newTestServer(t, http.StatusOK, `{"sales":[]}`)
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.ListRecentSales(ctx, time.Now().Add(-time.Hour), 10); err != nil {
			t.Fatalf("list sales: %v", err)
		}
	}

	if *tokenCalls != 1 {
		t.Fatalf("expected token cached across calls, got %d fetches", *tokenCalls)
	}
}

func TestListRecentSalesRateLimited(t *testing.T) {
	server, _ := newTestServer(t, http.StatusTooManyRequests, ``)
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.ListRecentSales(context.Background(), time.Now().Add(-time.Hour), 10)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected pos_rate_limited, got %v", err)
	}
}

func TestListRecentSalesUnauthorizedDropsToken(t *testing.T) {
	var tokenCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/sales", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	if _, err := client.ListRecentSales(ctx, time.Now(), 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected pos_unauthorized, got %v", err)
	}
	// The revoked token was evicted, so the next call re-authenticates.
	if _, err := client.ListRecentSales(ctx, time.Now(), 10); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected pos_unauthorized, got %v", err)
	}
	if tokenCalls != 2 {
		t.Fatalf("expected re-auth after eviction, got %d token fetches", tokenCalls)
	}
}
