package commoditic

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
	cfg.Sources.CommoditicURL = serverURL
	cfg.Sources.CommoditicKey = "test-key"
	cfg.Sources.CommoditicCategory = "metals"
	cfg.Sources.CommoditicFrequency = "day"
	return NewClient(cfg)
}

func testInterval() pricefeed.Interval {
	return pricefeed.Interval{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetchDailyNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "iron ore", q.Get("name"))
		assert.Equal(t, "2024-01-01", q.Get("date_from"))
		assert.Equal(t, "2024-01-02", q.Get("date_to"))
		assert.Equal(t, "metals", q.Get("category"))
		assert.Equal(t, "day", q.Get("frequency"))

		w.Write([]byte(`{"output":[{"name":"iron ore","unit":"USD/t","prices":[
			{"date":"2024-01-01","price":120.5},
			{"date":"2024-01-02","price":121.75}
		]}]}`))
	}))
	defer server.Close()

	points, err := testClient(server.URL).FetchDaily(context.Background(), "iron ore", testInterval())

	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("120.5")))
	assert.Equal(t, "USD", points[0].Currency)
	assert.Equal(t, "USD/t", points[0].Unit)
	require.True(t, points[0].PriceUSD.Valid)
	assert.True(t, points[0].PriceUSD.Decimal.Equal(points[0].Price), "direct quotes carry straight through")
}

func TestFetchDailyNonUSDUnit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[{"unit":"eur/t","prices":[{"date":"2024-01-01","price":99}]}]}`))
	}))
	defer server.Close()

	points, err := testClient(server.URL).FetchDaily(context.Background(), "iron ore", testInterval())

	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "EUR", points[0].Currency)
	assert.False(t, points[0].PriceUSD.Valid)
}

func TestFetchDailyEmptyOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[]}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchDaily(context.Background(), "iron ore", testInterval())

	require.Error(t, err)
	var schemaErr *pricefeed.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestFetchDailyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := testClient(server.URL).FetchDaily(context.Background(), "iron ore", testInterval())

	require.Error(t, err)
	assert.True(t, pricefeed.IsTransient(err), "want transient, got %v", err)
}

func TestCurrencyFromUnit(t *testing.T) {
	assert.Equal(t, "USD", currencyFromUnit("USD/t"))
	assert.Equal(t, "EUR", currencyFromUnit("eur/kg"))
	assert.Equal(t, "USD", currencyFromUnit(""))
	assert.Equal(t, "GBP", currencyFromUnit(" gbp "))
}
