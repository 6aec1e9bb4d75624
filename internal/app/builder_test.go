package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/mock/gomock"

	"github.com/ehving/noticesystem-sub000/internal/app/storage"
	storagemocks "github.com/ehving/noticesystem-sub000/internal/app/storage/mocks"
	"github.com/ehving/noticesystem-sub000/internal/clock"
	"github.com/ehving/noticesystem-sub000/internal/config"
	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/notify"
	notifymocks "github.com/ehving/noticesystem-sub000/internal/notify/mocks"
	"github.com/ehving/noticesystem-sub000/internal/store"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

// createTestConfig returns a valid in-memory configuration.
func createTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.Type = config.StorageMemory
	return cfg
}

func TestBaseConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg := createTestConfig()
		cfg.Server.Address = ""
		built, err := baseConfig(WithConfig(cfg))
		require.NoError(t, err)
		assert.Equal(t, defaultHTTPAddress, built.address)
		assert.Equal(t, defaultRequestTimeout, built.requestTimeout)
		assert.IsType(t, clock.Real{}, built.clock)
	})

	t.Run("address from config", func(t *testing.T) {
		t.Parallel()
		cfg := createTestConfig()
		cfg.Server.Address = ":9191"
		built, err := baseConfig(WithConfig(cfg))
		require.NoError(t, err)
		assert.Equal(t, ":9191", built.address)
	})

	t.Run("address option wins", func(t *testing.T) {
		t.Parallel()
		cfg := createTestConfig()
		cfg.Server.Address = ":9191"
		built, err := baseConfig(WithConfig(cfg), WithAddress(":8888"))
		require.NoError(t, err)
		assert.Equal(t, ":8888", built.address)
	})

	t.Run("config is required", func(t *testing.T) {
		t.Parallel()
		built, err := baseConfig(WithAddress(":9090"))
		require.Error(t, err)
		assert.Nil(t, built)
	})

	t.Run("option errors propagate", func(t *testing.T) {
		t.Parallel()
		built, err := baseConfig(WithConfig(createTestConfig()), WithAddress(":"))
		require.Error(t, err)
		assert.Nil(t, built)
	})

	t.Run("nil clock", func(t *testing.T) {
		t.Parallel()
		_, err := baseConfig(WithConfig(createTestConfig()), WithClock(nil))
		require.Error(t, err)
	})
}

func TestWithAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "valid address", address: ":9999", want: ":9999"},
		{name: "valid address with host", address: "127.0.0.1:9999", want: "127.0.0.1:9999"},
		{name: "valid address with localhost", address: "localhost:9999", want: "localhost:9999"},
		{name: "invalid empty address", address: "", wantErr: true},
		{name: "invalid empty port", address: ":", wantErr: true},
		{name: "invalid missing port", address: "localhost", wantErr: true},
		{name: "invalid port out of range", address: "localhost:999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &reconcilerAppConfig{}
			err := WithAddress(tt.address)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.address)
		})
	}
}

func TestBuildNotifier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		notify config.NotifyConfig
	}{
		{name: "log", notify: config.NotifyConfig{Type: config.NotifyLog}},
		{name: "webhook", notify: config.NotifyConfig{Type: config.NotifyWebhook, WebhookURL: "http://alerts.local/hook"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := createTestConfig()
			cfg.Notify = tt.notify
			n := buildNotifier(&reconcilerAppConfig{config: cfg})
			assert.IsType(t, &notify.RateLimited{}, n)
		})
	}
}

func seedRole(t *testing.T, f *storage.MemoryFactory, s store.Store, id, name string) {
	t.Helper()
	table := f.Backend().Table(s, "role")
	require.NotNil(t, table)
	table.Put(&entity.Role{ID: id, Name: name})
}

func TestNewComponents_Memory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	factory := storage.NewMemoryFactory()
	c, err := NewComponents(ctx,
		WithConfig(createTestConfig()),
		WithStorageFactory(factory),
		WithMeterProvider(sdkmetric.NewMeterProvider()),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	assert.Equal(t, store.All(), c.Registry.Stores())
	require.NotNil(t, c.Scheduler)

	seedRole(t, factory, store.MySQL, "r1", "admin")
	res, err := c.Coordinator.SubmitSync(ctx, entity.TypeRole, "r1", entity.ActionCreate, store.MySQL)
	require.NoError(t, err)
	assert.Zero(t, res.Failed())
	assert.Empty(t, res.TicketID)
	assert.Equal(t, 1, factory.Backend().Table(store.Postgres, "role").Len())
	assert.Equal(t, 1, factory.Backend().Table(store.SQLServer, "role").Len())

	page, err := c.Attempts.List(ctx, attempt.Filter{Status: entity.AttemptSuccess})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	tickets, err := c.Conflicts.List(ctx, conflict.Filter{})
	require.NoError(t, err)
	assert.Zero(t, tickets.Total)
}

func TestNewComponents_DivergenceOpensTicketAndNotifies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ctrl := gomock.NewController(t)
	notifier := notifymocks.NewMockNotifier(ctrl)
	notifier.EXPECT().SendConflictAlert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	factory := storage.NewMemoryFactory()
	c, err := NewComponents(ctx,
		WithConfig(createTestConfig()),
		WithStorageFactory(factory),
		WithNotifier(notifier),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	seedRole(t, factory, store.MySQL, "r1", "admin")
	seedRole(t, factory, store.Postgres, "r1", "root")
	seedRole(t, factory, store.SQLServer, "r1", "admin")

	stats, err := c.Conflicts.RecheckOpen(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)

	ticket, err := c.Conflicts.Detect(ctx, entity.TypeRole, "r1", entity.ActionUpdate)
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, entity.TicketOpen, ticket.Status)

	sent, err := c.Conflicts.NotifyPending(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, sent.Sent)

	resolved, err := c.Conflicts.Resolve(ctx, ticket.ID, store.MySQL, "MySQL is right")
	require.NoError(t, err)
	assert.Equal(t, entity.TicketResolved, resolved.Status)
}

// mockFactory delegates accessors and repositories to an in-memory family.
func mockFactory(ctrl *gomock.Controller) *storagemocks.MockFactory {
	mem := storage.NewMemoryFactory()
	f := storagemocks.NewMockFactory(ctrl)
	f.EXPECT().OpenAccessor(gomock.Any(), gomock.Any()).DoAndReturn(mem.OpenAccessor).AnyTimes()
	f.EXPECT().AttemptRepository().Return(mem.AttemptRepository()).AnyTimes()
	f.EXPECT().ConflictRepository().Return(mem.ConflictRepository()).AnyTimes()
	f.EXPECT().SystemStore().Return(store.Store("")).AnyTimes()
	return f
}

func TestNewComponents_CleansUpOnError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := mockFactory(ctrl)
	f.EXPECT().Cleanup().Times(1)

	cfg := createTestConfig()
	cfg.Sync.LogMode = "SOMETIMES"
	_, err := NewComponents(context.Background(), WithConfig(cfg), WithStorageFactory(f))
	require.Error(t, err)
}

func TestNewReconcilerApp_ReadinessReportsStorage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	f := mockFactory(ctrl)
	f.EXPECT().CheckReadiness(gomock.Any()).Return(errors.New("store PG unreachable"))
	f.EXPECT().Cleanup().Times(1)

	app, err := NewReconcilerApp(context.Background(), WithConfig(createTestConfig()), WithStorageFactory(f))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "store PG unreachable")

	require.NoError(t, app.Stop(time.Second))
}

func TestBuildScheduler_OnlyEnabledJobs(t *testing.T) {
	t.Parallel()

	cfg := createTestConfig()
	cfg.Retry.Enabled = false
	cfg.Conflict.Enabled = false
	cfg.Cleanup.Enabled = false
	cfg.FullResync.Enabled = true
	cfg.FullResync.Cron = "not a cron"

	c, err := NewComponents(context.Background(), WithConfig(cfg), WithStorageFactory(storage.NewMemoryFactory()))
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "full-resync")

	cfg.FullResync.Cron = "0 3 * * *"
	c, err = NewComponents(context.Background(), WithConfig(cfg), WithStorageFactory(storage.NewMemoryFactory()))
	require.NoError(t, err)
	c.Close()
}

func TestNewReconcilerApp_ServesAdminAPI(t *testing.T) {
	t.Parallel()

	factory := storage.NewMemoryFactory()
	app, err := NewReconcilerApp(context.Background(),
		WithConfig(createTestConfig()),
		WithStorageFactory(factory),
		WithAddress("127.0.0.1:0"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Stop(time.Second) })

	seedRole(t, factory, store.MySQL, "r1", "admin")
	handler := app.GetHTTPServer().Handler

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/readiness", wantStatus: http.StatusOK},
		{name: "conflicts", method: http.MethodGet, path: "/api/v1/conflicts", wantStatus: http.StatusOK, wantBody: `"total":0`},
		{
			name:       "resync",
			method:     http.MethodPost,
			path:       "/api/v1/resync",
			body:       `{"entityType":"ROLE","sourceStore":"MYSQL"}`,
			wantStatus: http.StatusOK,
			wantBody:   `"rows":1`,
		},
		{name: "detect", method: http.MethodPost, path: "/api/v1/conflicts/detect", wantStatus: http.StatusOK},
	}

	// Subtests share the app and run in order.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			assert.True(t, json.Valid(rr.Body.Bytes()))
			if tt.wantBody != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
		})
	}

	assert.Equal(t, 1, factory.Backend().Table(store.Postgres, "role").Len())
}
