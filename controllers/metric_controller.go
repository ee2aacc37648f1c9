package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/healthtracker/middleware"
	"github.com/cppla/healthtracker/models"
	"github.com/cppla/healthtracker/store"
	"github.com/cppla/healthtracker/utils"
	"github.com/cppla/healthtracker/validation"
)

const (
	msgMetricNotFound = "Metric not found"
	msgMetricSaved    = "Metric saved successfully"
	msgMetricDeleted  = "Metric deleted successfully"
)

// MetricController serves CRUD and aggregate endpoints for health entries.
type MetricController struct {
	store store.Store
	cache *utils.StatsCache
	now   func() time.Time
}

// NewMetricController creates a MetricController. cache may be nil; now defaults to time.Now.
func NewMetricController(s store.Store, cache *utils.StatsCache, now func() time.Time) *MetricController {
	if now == nil {
		now = time.Now
	}
	return &MetricController{store: s, cache: cache, now: now}
}

// CreatedMetric is the 201 body of a successful create.
type CreatedMetric struct {
	models.Entry
	Message string `json:"message"`
}

// ListMetrics returns entries ascending by date, optionally limited to ?start= and ?end= (inclusive).
func (m *MetricController) ListMetrics(ctx *gin.Context) {
	filter := store.Filter{Start: ctx.Query("start"), End: ctx.Query("end")}
	entries, err := m.store.List(ctx.Request.Context(), filter)
	if err != nil {
		logStoreError(ctx, "list metrics failed", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}
	utils.Success(ctx, http.StatusOK, entries)
}

// CreateMetric validates the payload and inserts a new entry.
func (m *MetricController) CreateMetric(ctx *gin.Context) {
	payload, err := readPayload(ctx)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			utils.Error(ctx, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		utils.Error(ctx, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	input, err := validation.Entry(payload, validation.Today(m.now()))
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			utils.Error(ctx, http.StatusBadRequest, verr.Message)
			return
		}
		utils.Error(ctx, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := m.store.Create(ctx.Request.Context(), input)
	if err != nil {
		logStoreError(ctx, "create metric failed", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to save metric")
		return
	}
	m.cache.Invalidate(ctx.Request.Context())

	utils.Success(ctx, http.StatusCreated, CreatedMetric{Entry: entry, Message: msgMetricSaved})
}

// GetMetric returns a single entry by id.
func (m *MetricController) GetMetric(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, msgMetricNotFound)
		return
	}
	entry, err := m.store.Get(ctx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, msgMetricNotFound)
		return
	}
	if err != nil {
		logStoreError(ctx, "get metric failed", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to fetch metric")
		return
	}
	utils.Success(ctx, http.StatusOK, entry)
}

// DeleteMetric removes an entry by id.
func (m *MetricController) DeleteMetric(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusNotFound, msgMetricNotFound)
		return
	}
	err := m.store.Delete(ctx.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		utils.Error(ctx, http.StatusNotFound, msgMetricNotFound)
		return
	}
	if err != nil {
		logStoreError(ctx, "delete metric failed", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to delete metric")
		return
	}
	m.cache.Invalidate(ctx.Request.Context())
	utils.Message(ctx, http.StatusOK, msgMetricDeleted)
}

// GetStats returns the store-wide aggregate, served from Redis when cached.
func (m *MetricController) GetStats(ctx *gin.Context) {
	if st, ok := m.cache.Get(ctx.Request.Context()); ok {
		utils.Success(ctx, http.StatusOK, st)
		return
	}
	// A write landing while the aggregate is computed bumps the generation and the result is not cached
	gen := m.cache.Generation(ctx.Request.Context())
	st, err := m.store.Stats(ctx.Request.Context())
	if err != nil {
		logStoreError(ctx, "stats failed", err)
		utils.Error(ctx, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	m.cache.SetIfGeneration(ctx.Request.Context(), gen, st)
	utils.Success(ctx, http.StatusOK, st)
}

// readPayload decodes the request body as a JSON object. An empty body or a JSON null
// yields an empty payload so that field validation reports what is missing.
func readPayload(ctx *gin.Context) (map[string]any, error) {
	body, err := ctx.GetRawData()
	if err != nil {
		return nil, err
	}
	payload := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func logStoreError(ctx *gin.Context, msg string, err error) {
	utils.Logger.Error(msg,
		zap.Error(err),
		zap.String("path", ctx.Request.URL.Path),
		zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
	)
}
