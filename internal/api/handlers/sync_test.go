package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/materia-project/backend/internal/api/middleware"
	"github.com/materia-project/backend/internal/config"
	"github.com/materia-project/backend/internal/models"
	"github.com/materia-project/backend/internal/pricefeed"
	"github.com/materia-project/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// blockingSource serves two points per fetch and can be paused to hold a run
// open.
type blockingSource struct {
	gate chan struct{}
}

func (s *blockingSource) Name() string     { return "Metals API" }
func (s *blockingSource) MaxSpanDays() int { return 0 }

func (s *blockingSource) FetchDaily(ctx context.Context, symbol string, ivl pricefeed.Interval) ([]pricefeed.PricePoint, error) {
	if s.gate != nil {
		<-s.gate
	}
	price := decimal.NewFromInt(10)
	return []pricefeed.PricePoint{
		{Date: ivl.Start, Price: price, Currency: "USD", Unit: "per ounce", PriceUSD: pricefeed.InvertRate(price)},
		{Date: ivl.Start.AddDate(0, 0, 1), Price: price, Currency: "USD", Unit: "per ounce", PriceUSD: pricefeed.InvertRate(price)},
	}, nil
}

func newSyncTestApp(t *testing.T, source *blockingSource) (*fiber.App, *services.PriceSyncService, *config.Config) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.ApiSource{}, &models.RawMaterial{}, &models.RawMaterialPrice{}, &models.SyncRun{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	apiSource := &models.ApiSource{Name: source.Name(), URL: "https://example.com"}
	if err := db.Create(apiSource).Error; err != nil {
		t.Fatalf("failed to seed source: %v", err)
	}
	material := &models.RawMaterial{Name: "Gold", Slug: "gold", Symbol: "XAU", APISourceID: &apiSource.ID}
	if err := db.Create(material).Error; err != nil {
		t.Fatalf("failed to seed material: %v", err)
	}

	cfg := &config.Config{}
	cfg.Sync.MaxRetries = 1
	cfg.Sync.RetryBackoff = time.Millisecond
	cfg.Sync.LookbackDays = 3
	cfg.Services.SyncJobSecret = "test-secret"

	if err := middleware.InitAuthMiddleware(cfg); err != nil {
		t.Fatalf("failed to init auth middleware: %v", err)
	}

	service := services.NewPriceSyncService(db, redisClient, cfg, map[string]pricefeed.Source{
		source.Name(): source,
	})
	handler := NewSyncHandler(service, services.NewSyncStreamHub(redisClient, services.SyncProgressChannel))

	app := fiber.New()
	app.Post("/api/v1/sync/:source", middleware.Protected(), handler.TriggerSync)
	app.Get("/api/v1/sync/runs", handler.ListRuns)
	app.Get("/api/v1/sync/runs/:id", handler.GetRun)
	app.Get("/api/v1/sync/:source/last", handler.GetLastRun)
	app.Get("/api/v1/sync/stream", handler.StreamSync)

	return app, service, cfg
}

func triggerRequest(t *testing.T, token, source, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/"+source, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestTriggerSyncRejectsMissingToken(t *testing.T) {
	app, _, _ := newSyncTestApp(t, &blockingSource{})

	resp, err := app.Test(triggerRequest(t, "", "metals-api", ""))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp, err = app.Test(triggerRequest(t, "not-a-jwt", "metals-api", ""))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for junk token, got %d", resp.StatusCode)
	}
}

func TestTriggerSyncRunsAndRecords(t *testing.T) {
	app, service, cfg := newSyncTestApp(t, &blockingSource{})

	token, err := middleware.MintJobToken([]byte(cfg.Services.SyncJobSecret), "ops", time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	resp, err := app.Test(triggerRequest(t, token, "metals-api", `{"from":"2024-01-01","to":"2024-01-05"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var run models.SyncRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		t.Fatalf("failed to decode run: %v", err)
	}
	if run.Source != "Metals API" {
		t.Fatalf("unexpected run source %q", run.Source)
	}

	deadline := time.After(3 * time.Second)
	for {
		stored, err := service.Runs.Get(context.Background(), run.ID)
		if err != nil {
			t.Fatalf("failed to load run: %v", err)
		}
		if stored.Status == models.RunStatusCompleted {
			if stored.Inserted != 2 {
				t.Fatalf("expected 2 inserted, got %d", stored.Inserted)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("run never completed, status %s", stored.Status)
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestTriggerSyncConflictWhileRunning(t *testing.T) {
	source := &blockingSource{gate: make(chan struct{})}
	app, service, cfg := newSyncTestApp(t, source)

	token, err := middleware.MintJobToken([]byte(cfg.Services.SyncJobSecret), "ops", time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	resp, err := app.Test(triggerRequest(t, token, "metals-api", `{"from":"2024-01-01","to":"2024-01-05"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var first models.SyncRun
	if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
		t.Fatalf("failed to decode run: %v", err)
	}

	resp, err = app.Test(triggerRequest(t, token, "metals-api", ""))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while first run holds the lock, got %d", resp.StatusCode)
	}

	close(source.gate)

	deadline := time.After(3 * time.Second)
	for {
		stored, err := service.Runs.Get(context.Background(), first.ID)
		if err != nil {
			t.Fatalf("failed to load run: %v", err)
		}
		if stored.Status == models.RunStatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("run never completed")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestTriggerSyncUnknownSource(t *testing.T) {
	app, _, cfg := newSyncTestApp(t, &blockingSource{})

	token, err := middleware.MintJobToken([]byte(cfg.Services.SyncJobSecret), "ops", time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	resp, err := app.Test(triggerRequest(t, token, "nope-api", ""))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestTriggerSyncRejectsBadInterval(t *testing.T) {
	app, _, cfg := newSyncTestApp(t, &blockingSource{})

	token, err := middleware.MintJobToken([]byte(cfg.Services.SyncJobSecret), "ops", time.Minute)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	resp, err := app.Test(triggerRequest(t, token, "metals-api", `{"from":"2024-02-01","to":"2024-01-01"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", resp.StatusCode)
	}

	resp, err = app.Test(triggerRequest(t, token, "metals-api", `{"from":"2024-01-01"}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for half-open range, got %d", resp.StatusCode)
	}
}

func TestStreamSyncDeliversProgressEvents(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer redisClient.Close()

	hub := services.NewSyncStreamHub(redisClient, services.SyncProgressChannel)
	handler := NewSyncHandler(&services.PriceSyncService{Redis: redisClient}, hub)

	app := fiber.New()
	app.Get("/api/v1/sync/stream", handler.StreamSync)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	payload := `{"run_id":"run-1","source":"Metals API","status":"synced"}`
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		// Publish until the subscriber sees it; the hub subscription is async
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = redisClient.Publish(context.Background(), services.SyncProgressChannel, payload).Err()
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/sync/stream", nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to call SSE endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	reader := bufio.NewReader(resp.Body)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-timeout:
			t.Fatal("timed out waiting for SSE data")
		default:
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("failed to read SSE line: %v", err)
			}
			if strings.HasPrefix(line, "data:") {
				if !strings.Contains(line, `"run-1"`) {
					t.Fatalf("unexpected SSE payload: %s", line)
				}
				return
			}
		}
	}
}
