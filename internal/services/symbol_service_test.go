package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/materia-project/backend/internal/models"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/pricefeed/commoditiesapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newSymbolHarness(t *testing.T, directory string) (*SymbolService, *gorm.DB) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, directory)
	}))
	t.Cleanup(server.Close)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ApiSource{}, &models.RawMaterial{}))

	client := &commoditiesapi.Client{
		BaseURL:    "https://commodities-api.com/api/timeseries",
		SymbolsURL: server.URL,
		APIKey:     "test-key",
		HTTPClient: server.Client(),
	}

	return NewSymbolService(db, client), db
}

func TestRefreshSymbolsMapsUnmappedMaterials(t *testing.T) {
	svc, db := newSymbolHarness(t, `{"ALU":"Aluminium","XAU":"Gold","COCOA":"Cocoa"}`)
	ctx := context.Background()

	metals := &models.ApiSource{Name: pricefeed.SourceMetals, URL: "https://metals-api.com"}
	require.NoError(t, db.Create(metals).Error)

	mapped := &models.RawMaterial{Name: "Gold", Slug: "gold", Symbol: "XAU", APISourceID: &metals.ID}
	require.NoError(t, db.Create(mapped).Error)
	require.NoError(t, db.Create(&models.RawMaterial{Name: "Aluminium", Slug: "aluminium"}).Error)
	require.NoError(t, db.Create(&models.RawMaterial{Name: "Obscurium", Slug: "obscurium"}).Error)

	res, err := svc.RefreshSymbols(ctx)

	require.NoError(t, err)
	assert.Equal(t, 3, res.Directory)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 1, res.Updated)

	var alu models.RawMaterial
	require.NoError(t, db.Where("raw_material_name = ?", "Aluminium").First(&alu).Error)
	assert.Equal(t, "ALU", alu.Symbol)
	require.NotNil(t, alu.APISourceID)

	var source models.ApiSource
	require.NoError(t, db.First(&source, "id = ?", alu.APISourceID).Error)
	assert.Equal(t, pricefeed.SourceCommodities, source.Name)

	// A material already mapped to another source is left alone
	var gold models.RawMaterial
	require.NoError(t, db.Where("raw_material_name = ?", "Gold").First(&gold).Error)
	assert.Equal(t, "XAU", gold.Symbol)
	assert.Equal(t, metals.ID, *gold.APISourceID)
}

func TestRefreshSymbolsMatchIsCaseInsensitive(t *testing.T) {
	svc, db := newSymbolHarness(t, `{"IRON":"  iron ore "}`)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.RawMaterial{Name: "Iron Ore", Slug: "iron-ore"}).Error)

	res, err := svc.RefreshSymbols(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	var material models.RawMaterial
	require.NoError(t, db.Where("raw_material_name = ?", "Iron Ore").First(&material).Error)
	assert.Equal(t, "IRON", material.Symbol)
}

func TestRefreshSymbolsDirectoryAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ApiSource{}, &models.RawMaterial{}))

	client := &commoditiesapi.Client{
		BaseURL:    "https://commodities-api.com/api/timeseries",
		SymbolsURL: server.URL,
		APIKey:     "bad-key",
		HTTPClient: server.Client(),
	}
	svc := NewSymbolService(db, client)

	_, err = svc.RefreshSymbols(context.Background())

	require.Error(t, err)
	assert.True(t, pricefeed.IsAuth(err))
}
