package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewClient tests client creation.
func TestNewClient(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, "test-key", client.apiKey)
	assert.True(t, client.Configured())
	assert.Equal(t, 25, client.GetRemainingRequests())
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("", zerolog.Nop())
	assert.False(t, client.Configured())
}

// TestRateLimiting tests the rate limiting functionality.
func TestRateLimiting(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	// Simulate using all requests
	for i := 0; i < 25; i++ {
		remaining := client.GetRemainingRequests()
		assert.Equal(t, 25-i, remaining)
		err := client.checkRateLimit()
		require.NoError(t, err)
	}

	// 26th request should fail
	err := client.checkRateLimit()
	assert.Error(t, err)
	assert.IsType(t, ErrRateLimitExceeded{}, err)
}

// TestResetDailyCounter tests counter reset.
func TestResetDailyCounter(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	// Use some requests
	for i := 0; i < 10; i++ {
		_ = client.checkRateLimit()
	}
	assert.Equal(t, 15, client.GetRemainingRequests())

	// Reset
	client.ResetDailyCounter()
	assert.Equal(t, 25, client.GetRemainingRequests())
}

// newTestClient points a client at a stub provider.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient("test-key", zerolog.Nop())
	client.baseURL = srv.URL
	return client
}

func TestGetPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "IBM", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		w.Write([]byte(`{"Global Quote": {"01. symbol": "IBM", "05. price": "142.5500"}}`))
	})

	price, err := client.GetPrice(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 142.55, price)
}

// The CASH pseudo-symbol is priced at 1 without hitting the API,
// even when the provider would fail.
func TestGetPriceCash(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("CASH must not make a network call")
	})

	price, err := client.GetPrice(context.Background(), CashSymbol)
	require.NoError(t, err)
	assert.Equal(t, float64(1), price)

	// Budget untouched
	assert.Equal(t, 25, client.GetRemainingRequests())
}

func TestGetPriceMissingAPIKey(t *testing.T) {
	client := NewClient("", zerolog.Nop())

	_, err := client.GetPrice(context.Background(), "IBM")
	assert.True(t, errors.Is(err, ErrMissingAPIKey))
}

func TestGetPriceProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Error Message": "Invalid API call."}`))
	})

	_, err := client.GetPrice(context.Background(), "BOGUS")
	assert.Error(t, err)
}

func TestGetPriceThrottledNote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	})

	_, err := client.GetPrice(context.Background(), "IBM")
	assert.Error(t, err)
}

func TestGetPriceNoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote": {}}`))
	})

	_, err := client.GetPrice(context.Background(), "IBM")
	assert.Error(t, err)
}

func TestGetPriceBadStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.GetPrice(context.Background(), "IBM")
	assert.Error(t, err)
}

func TestGetPriceMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.GetPrice(context.Background(), "IBM")
	assert.Error(t, err)
}

func TestGetPriceRateLimited(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())
	for i := 0; i < 25; i++ {
		_ = client.checkRateLimit()
	}

	_, err := client.GetPrice(context.Background(), "IBM")
	assert.IsType(t, ErrRateLimitExceeded{}, err)
}

// TestParseFloat64 tests float parsing.
func TestParseFloat64(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"123.45", 123.45},
		{"0", 0},
		{"None", 0},
		{"", 0},
		{"null", 0},
		{"-", 0},
		{"50.5%", 50.5},
		{"invalid", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseFloat64(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
