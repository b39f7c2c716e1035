package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tripnest/booking-service/internal/database"
	"github.com/tripnest/booking-service/internal/services"
)

// HealthHandler reports liveness, open drafts and the optional database
type HealthHandler struct {
	db      database.DB // nil when no database is configured
	store   *services.DraftStore
	version string
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db database.DB, store *services.DraftStore, version string) *HealthHandler {
	return &HealthHandler{db: db, store: store, version: version}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = "healthy"
		if err := h.db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"database":    dbStatus,
		"open_drafts": h.store.Len(),
		"version":     h.version,
		"timestamp":   time.Now().Unix(),
	})
}
