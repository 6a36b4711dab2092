package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/integrations/strapi"
	"github.com/materia-project/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func TestSyncCountriesCreatesMissingAndReportsDrift(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/countries", r.URL.Path)
		assert.Equal(t, "Bearer cms-token", r.Header.Get("Authorization"))
		assert.Equal(t, "100", r.URL.Query().Get("pagination[pageSize]"))
		assert.Equal(t, "Name", r.URL.Query().Get("fields[0]"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("pagination[page]") {
		case "1":
			fmt.Fprint(w, `{
				"data": [
					{"id": 1, "attributes": {"Name": "Chile"}},
					{"id": 2, "attributes": {"Name": "Peru"}}
				],
				"meta": {"pagination": {"page": 1, "pageSize": 100, "pageCount": 2, "total": 3}}
			}`)
		default:
			fmt.Fprint(w, `{
				"data": [
					{"id": 3, "attributes": {"Name": "Australia"}}
				],
				"meta": {"pagination": {"page": 2, "pageSize": 100, "pageCount": 2, "total": 3}}
			}`)
		}
	}))
	defer server.Close()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Country{}))

	require.NoError(t, db.Create(&models.Country{Name: "Chile"}).Error)
	require.NoError(t, db.Create(&models.Country{Name: "Ghana"}).Error)

	cfg := &config.Config{}
	cfg.Services.StrapiURL = server.URL
	cfg.Services.StrapiToken = "cms-token"

	svc := NewCountryService(db, strapi.NewClient(cfg))
	res, err := svc.SyncCountries(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, res.CMS)
	assert.Equal(t, 2, res.Existing)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, []string{"Ghana"}, res.Drift)

	var count int64
	require.NoError(t, db.Model(&models.Country{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)

	var peru models.Country
	assert.NoError(t, db.Where("name = ?", "Peru").First(&peru).Error)
}

func TestSyncCountriesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Country{}))

	cfg := &config.Config{}
	cfg.Services.StrapiURL = server.URL

	svc := NewCountryService(db, strapi.NewClient(cfg))
	_, err = svc.SyncCountries(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
