package pricefeed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/pricefeed/commoditic"
	"github.com/materia-project/backend/internal/pricefeed/commoditiesapi"
	"github.com/materia-project/backend/internal/pricefeed/metalsapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The three upstream payload shapes describing the same two observations
// must normalize to identical (date, price, currency) tuples.
func TestAdaptersNormalizeToSameShape(t *testing.T) {
	metalsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"rates":{"2024-01-01":{"XAU":0.5},"2024-01-02":{"XAU":0.25}}}`))
	}))
	defer metalsSrv.Close()

	commoditiesSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"rates":{"2024-01-01":{"XAU":0.5},"2024-01-02":{"XAU":0.25}},"unit":{"XAU":"per ounce"}}`))
	}))
	defer commoditiesSrv.Close()

	commoditicSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[{"name":"gold","unit":"USD/oz","prices":[
			{"date":"2024-01-01","price":0.5},
			{"date":"2024-01-02","price":0.25}
		]}]}`))
	}))
	defer commoditicSrv.Close()

	cfg := &config.Config{}
	cfg.Sources.MetalsURL = metalsSrv.URL
	cfg.Sources.MetalsMaxSpan = 30
	cfg.Sources.CommoditiesURL = commoditiesSrv.URL
	cfg.Sources.CommoditiesMaxSpan = 30
	cfg.Sources.CommoditicURL = commoditicSrv.URL
	cfg.Sources.CommoditicCategory = "metals"
	cfg.Sources.CommoditicFrequency = "day"

	ivl := pricefeed.Interval{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	sources := []struct {
		name    string
		adapter pricefeed.Source
		symbol  string
	}{
		{"metals", metalsapi.NewClient(cfg), "XAU"},
		{"commodities", commoditiesapi.NewClient(cfg), "XAU"},
		{"commoditic", commoditic.NewClient(cfg), "gold"},
	}

	wantDates := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	wantPrices := []decimal.Decimal{
		decimal.RequireFromString("0.5"),
		decimal.RequireFromString("0.25"),
	}

	for _, src := range sources {
		t.Run(src.name, func(t *testing.T) {
			points, err := src.adapter.FetchDaily(context.Background(), src.symbol, ivl)
			require.NoError(t, err)
			require.Len(t, points, 2)

			for i, p := range points {
				assert.Equal(t, wantDates[i], p.Date)
				assert.True(t, p.Price.Equal(wantPrices[i]), "price %s", p.Price)
				assert.Equal(t, "USD", p.Currency)
				assert.NoError(t, p.Validate())
			}
		})
	}
}

func TestQuotesInverse(t *testing.T) {
	assert.True(t, pricefeed.QuotesInverse(pricefeed.SourceMetals))
	assert.True(t, pricefeed.QuotesInverse(pricefeed.SourceCommodities))
	assert.False(t, pricefeed.QuotesInverse(pricefeed.SourceCommoditic))
	assert.False(t, pricefeed.QuotesInverse("something else"))
}

func TestInvertRate(t *testing.T) {
	inv := pricefeed.InvertRate(decimal.RequireFromString("0.25"))
	require.True(t, inv.Valid)
	assert.True(t, inv.Decimal.Equal(decimal.NewFromInt(4)))

	assert.False(t, pricefeed.InvertRate(decimal.Zero).Valid)
}

func TestPricePointValidate(t *testing.T) {
	good := pricefeed.PricePoint{
		Date:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Price:    decimal.RequireFromString("10.5"),
		Currency: "USD",
	}
	assert.NoError(t, good.Validate())

	noDate := good
	noDate.Date = time.Time{}
	assert.Error(t, noDate.Validate())

	zeroPrice := good
	zeroPrice.Price = decimal.Zero
	assert.Error(t, zeroPrice.Validate())

	negative := good
	negative.Price = decimal.NewFromInt(-3)
	assert.Error(t, negative.Validate())

	noCurrency := good
	noCurrency.Currency = ""
	assert.Error(t, noCurrency.Validate())
}
