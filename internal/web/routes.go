package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sstent/activity-lookup/internal/database"
	"github.com/sstent/activity-lookup/internal/fitexport"
	"github.com/sstent/activity-lookup/internal/logger"
	"github.com/sstent/activity-lookup/internal/parser"
	"github.com/sstent/activity-lookup/internal/service"
)

const (
	activityURLParam = "activity-url"

	defaultLookupLimit = 50
	maxLookupLimit     = 500
)

type ActivityLookup interface {
	Lookup(ctx context.Context, activityURL string) (*service.Result, error)
}

// LookupHistory is the read side of the lookup log.
type LookupHistory interface {
	GetLookups(filters database.LookupFilters) ([]database.Lookup, error)
	GetStats() (*database.Stats, error)
}

// ErrorResponse is the body of every non-2xx JSON reply. Error is a stable
// machine-readable code, Code repeats the HTTP status.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

type WebHandler struct {
	lookups ActivityLookup
	history LookupHistory
}

// NewWebHandler takes a nil history when the lookup log is disabled.
func NewWebHandler(lookups ActivityLookup, history LookupHistory) *WebHandler {
	return &WebHandler{
		lookups: lookups,
		history: history,
	}
}

// RegisterRoutes mounts all endpoints; activityMiddleware only guards the
// routes that call out to vendors.
func (h *WebHandler) RegisterRoutes(router gin.IRouter, activityMiddleware ...gin.HandlerFunc) {
	router.GET("/", h.Index)
	router.GET("/health", h.Health)

	activity := router.Group("/activity", activityMiddleware...)
	activity.GET("", h.Activity)
	activity.GET("/fit", h.ActivityFIT)

	router.GET("/lookups", h.Lookups)
	router.GET("/lookups/stats", h.LookupStats)
}

// NewRouter builds the engine with the standard middleware stack.
func NewRouter(h *WebHandler, limiter *RateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger())

	var guards []gin.HandlerFunc
	if limiter != nil {
		guards = append(guards, limiter.Middleware())
	}
	h.RegisterRoutes(router, guards...)

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "not_found", "no route for "+c.Request.URL.Path)
	})

	return router
}

func (h *WebHandler) Index(c *gin.Context) {
	c.String(http.StatusOK, "Hello World")
}

func (h *WebHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (h *WebHandler) Activity(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Record)
}

func (h *WebHandler) ActivityFIT(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := fitexport.Encode(&buf, res.Record, res.Start()); err != nil {
		logger.Log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("fit export failed")
		abortWithError(c, http.StatusInternalServerError, "fit_export_failed", "could not encode activity")
		return
	}

	filename := fmt.Sprintf("%s-%s.fit", res.Vendor, res.Start().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, fitexport.ContentType, buf.Bytes())
}

func (h *WebHandler) lookup(c *gin.Context) (*service.Result, bool) {
	activityURL := c.Query(activityURLParam)
	if activityURL == "" {
		abortWithError(c, http.StatusBadRequest, "missing_parameter", activityURLParam+" query parameter is required")
		return nil, false
	}

	res, err := h.lookups.Lookup(c.Request.Context(), activityURL)
	if err != nil {
		status, code := lookupErrorStatus(err)
		abortWithError(c, status, code, err.Error())
		return nil, false
	}
	return res, true
}

func lookupErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, parser.ErrUnsupportedVendor):
		return http.StatusUnprocessableEntity, "unsupported_vendor"
	case errors.Is(err, parser.ErrConnection):
		return http.StatusBadGateway, "upstream_unavailable"
	case errors.Is(err, parser.ErrMalformedResponse):
		return http.StatusBadGateway, "upstream_malformed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *WebHandler) Lookups(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	limit := defaultLookupLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "invalid_parameter", "limit must be a positive integer")
			return
		}
		limit = min(n, maxLookupLimit)
	}

	filters := database.LookupFilters{
		Vendor:  c.Query("vendor"),
		Outcome: c.Query("outcome"),
		Limit:   limit,
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "invalid_parameter", "since must be an RFC 3339 timestamp")
			return
		}
		filters.Since = &since
	}

	lookups, err := h.history.GetLookups(filters)
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to read lookup log")
		abortWithError(c, http.StatusInternalServerError, "internal_error", "could not read lookup log")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lookups": lookups,
		"count":   len(lookups),
		"limit":   limit,
	})
}

func (h *WebHandler) LookupStats(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	stats, err := h.history.GetStats()
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to read lookup stats")
		abortWithError(c, http.StatusInternalServerError, "internal_error", "could not read lookup log")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *WebHandler) historyEnabled(c *gin.Context) bool {
	if h.history == nil {
		abortWithError(c, http.StatusServiceUnavailable, "lookup_log_disabled", "set DB_PATH to enable the lookup log")
		return false
	}
	return true
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}
