package metalsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *Client {
	cfg := &config.Config{}
	cfg.Sources.MetalsURL = serverURL
	cfg.Sources.MetalsKey = "test-key"
	cfg.Sources.MetalsMaxSpan = 30
	return NewClient(cfg)
}

func testInterval() pricefeed.Interval {
	return pricefeed.Interval{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetchDailyNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("access_key"))
		assert.Equal(t, "2024-01-01", q.Get("start_date"))
		assert.Equal(t, "2024-01-03", q.Get("end_date"))
		assert.Equal(t, "XAU", q.Get("symbols"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"rates":{"2024-01-02":{"XAU":0.5},"2024-01-01":{"XAU":0.25}}}`))
	}))
	defer server.Close()

	points, err := testClient(server.URL).FetchDaily(context.Background(), "XAU", testInterval())

	require.NoError(t, err)
	require.Len(t, points, 2)

	// sorted chronologically even though the rates map is unordered
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("0.25")), "price %s", points[0].Price)
	assert.Equal(t, "USD", points[0].Currency)
	assert.Equal(t, "per ounce", points[0].Unit)
	require.True(t, points[0].PriceUSD.Valid)
	assert.True(t, points[0].PriceUSD.Decimal.Equal(decimal.NewFromInt(4)), "usd %s", points[0].PriceUSD.Decimal)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), points[1].Date)
	require.True(t, points[1].PriceUSD.Valid)
	assert.True(t, points[1].PriceUSD.Decimal.Equal(decimal.NewFromInt(2)), "usd %s", points[1].PriceUSD.Decimal)
}

func TestFetchDailySkipsOtherSymbols(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"rates":{"2024-01-01":{"XAG":1.5},"2024-01-02":{"XAU":0.5}}}`))
	}))
	defer server.Close()

	points, err := testClient(server.URL).FetchDaily(context.Background(), "XAU", testInterval())

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), points[0].Date)
}

func TestFetchDailyRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchDaily(context.Background(), "XAU", testInterval())

	require.Error(t, err)
	assert.True(t, pricefeed.IsTransient(err), "want transient, got %v", err)
}

func TestFetchDailyInBodyRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"code":429,"info":"monthly quota reached"}}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchDaily(context.Background(), "XAU", testInterval())

	require.Error(t, err)
	assert.True(t, pricefeed.IsTransient(err), "want transient, got %v", err)
}

func TestFetchDailyAuthRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchDaily(context.Background(), "XAU", testInterval())

	require.Error(t, err)
	assert.True(t, pricefeed.IsAuth(err), "want auth error, got %v", err)
}

func TestFetchDailyUnexpectedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchDaily(context.Background(), "XAU", testInterval())

	require.Error(t, err)
	var schemaErr *pricefeed.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.False(t, pricefeed.IsTransient(err))
}

func TestFetchDailyTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, err := testClient(server.URL).FetchDaily(context.Background(), "XAU", testInterval())

	require.Error(t, err)
	assert.True(t, pricefeed.IsTransient(err), "want transient, got %v", err)
}
