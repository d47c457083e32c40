package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	eventapp "github.com/lousydropout/invoice-me-sub000/internal/application/event"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/event"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/persistence"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/persistence/models"
	"github.com/lousydropout/invoice-me-sub000/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOutboxRouter(t *testing.T) (*gin.Engine, *event.GormOutboxRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), persistence.GormConfig(nil, ""))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	repo := event.NewGormOutboxRepository(db)
	h := NewOutboxHandler(eventapp.NewOutboxService(repo, zap.NewNop()))

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1/admin/outbox")
	api.GET("/stats", h.GetStats)
	api.GET("/dead", h.ListDeadLetters)
	api.POST("/retry-dead", h.RetryAll)
	api.GET("/:id", h.GetEntry)
	api.POST("/:id/retry", h.RetryEntry)
	return engine, repo
}

func seedOutbox(t *testing.T, repo *event.GormOutboxRepository, status shared.OutboxStatus, age time.Duration) *shared.OutboxEntry {
	t.Helper()
	created := time.Now().UTC().Add(-age)
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "InvoiceSent",
		AggregateID:   uuid.New(),
		AggregateType: "Invoice",
		Payload:       []byte(`{}`),
		Status:        status,
		MaxRetries:    shared.DefaultMaxRetries,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	if status == shared.OutboxStatusDead {
		entry.RetryCount = shared.DefaultMaxRetries
		entry.LastError = "stream unavailable"
	}
	require.NoError(t, repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxHandler_Stats(t *testing.T) {
	engine, repo := setupOutboxRouter(t)
	seedOutbox(t, repo, shared.OutboxStatusPending, time.Minute)
	seedOutbox(t, repo, shared.OutboxStatusDead, time.Hour)
	seedOutbox(t, repo, shared.OutboxStatusDead, 2*time.Hour)

	w := doJSON(engine, http.MethodGet, "/api/v1/admin/outbox/stats", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stats := decodeAs[eventapp.OutboxStatsDTO](t, w).Data
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(2), stats.Dead)
	assert.Equal(t, int64(3), stats.Total)
}

func TestOutboxHandler_DeadLetters(t *testing.T) {
	engine, repo := setupOutboxRouter(t)
	oldest := seedOutbox(t, repo, shared.OutboxStatusDead, 3*time.Hour)
	seedOutbox(t, repo, shared.OutboxStatusDead, 2*time.Hour)
	newest := seedOutbox(t, repo, shared.OutboxStatusDead, time.Hour)
	pending := seedOutbox(t, repo, shared.OutboxStatusPending, time.Minute)

	t.Run("lists a page oldest first", func(t *testing.T) {
		w := doJSON(engine, http.MethodGet, "/api/v1/admin/outbox/dead?page=1&page_size=2", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeAs[[]eventapp.OutboxEntryDTO](t, w)
		require.Len(t, resp.Data, 2)
		assert.Equal(t, oldest.ID, resp.Data[0].ID)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(3), resp.Meta.Total)
	})

	t.Run("rejects an oversized page", func(t *testing.T) {
		w := doJSON(engine, http.MethodGet, "/api/v1/admin/outbox/dead?page_size=500", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("gets one entry", func(t *testing.T) {
		w := doJSON(engine, http.MethodGet, "/api/v1/admin/outbox/"+newest.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "stream unavailable", decodeAs[eventapp.OutboxEntryDTO](t, w).Data.LastError)
	})

	t.Run("unknown entry is not found", func(t *testing.T) {
		w := doJSON(engine, http.MethodGet, "/api/v1/admin/outbox/"+uuid.NewString(), nil)
		assertErrorCode(t, w, http.StatusNotFound, "ERR_NOT_FOUND")
	})

	t.Run("retrying a live entry is a state error", func(t *testing.T) {
		w := doJSON(engine, http.MethodPost, "/api/v1/admin/outbox/"+pending.ID.String()+"/retry", nil)
		info := assertErrorCode(t, w, http.StatusConflict, "ERR_INVALID_STATE")
		assert.Equal(t, eventapp.CodeOutboxEntryNotDead, info.Reason)
	})

	t.Run("retries one dead letter", func(t *testing.T) {
		w := doJSON(engine, http.MethodPost, "/api/v1/admin/outbox/"+newest.ID.String()+"/retry", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		entry := decodeAs[eventapp.OutboxEntryDTO](t, w).Data
		assert.Equal(t, "PENDING", entry.Status)
		assert.Zero(t, entry.RetryCount)
	})

	t.Run("retries the rest", func(t *testing.T) {
		w := doJSON(engine, http.MethodPost, "/api/v1/admin/outbox/retry-dead", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, int64(2), decodeAs[eventapp.RetryAllResult](t, w).Data.Requeued)

		counts, err := repo.CountByStatus(context.Background())
		require.NoError(t, err)
		assert.Zero(t, counts[shared.OutboxStatusDead])
		assert.Equal(t, int64(4), counts[shared.OutboxStatusPending])
	})
}
