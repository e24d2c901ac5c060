package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"pbsacct/internal/service"
	"pbsacct/pkg/logger"
)

// IngestRequest optional body of a manual ingest trigger. Both paths must resolve
// inside the configured accounting directory; relative paths are taken from it.
type IngestRequest struct {
	Dir  string `json:"dir"`  // directory to scan, the configured one when empty
	File string `json:"file"` // single file; takes precedence over Dir
}

// RunHandler exposes run status and manual triggers
type RunHandler struct {
	// base outlives the request so asynchronous runs are not cancelled when it returns
	base       context.Context
	runService *service.RunService
}

// NewRunHandler creates a new run handler
func NewRunHandler(base context.Context, runService *service.RunService) *RunHandler {
	if base == nil {
		base = context.Background()
	}
	return &RunHandler{base: base, runService: runService}
}

// Health reports liveness
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *RunHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Last returns the most recent run of the requested kind, or of every kind
// @Summary Last run status
// @Tags runs
// @Produce json
// @Param kind query string false "ingest or aggregate"
// @Success 200 {object} service.Run
// @Failure 404 {object} map[string]string
// @Router /api/v1/runs/last [get]
func (h *RunHandler) Last(c *gin.Context) {
	kind := c.Query("kind")
	if kind == "" {
		c.JSON(http.StatusOK, gin.H{"runs": h.runService.Tracker().All()})
		return
	}

	switch service.RunKind(kind) {
	case service.RunKindIngest, service.RunKindAggregate:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be ingest or aggregate"})
		return
	}

	run, ok := h.runService.Tracker().Last(service.RunKind(kind))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no " + kind + " run recorded"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Ingest triggers an ingest run
// @Summary Trigger ingest
// @Tags runs
// @Accept json
// @Produce json
// @Param wait query bool false "block until the run finishes"
// @Param request body IngestRequest false "source override"
// @Success 200 {object} service.Run
// @Success 202 {object} map[string]string
// @Failure 409 {object} service.Run
// @Router /api/v1/runs/ingest [post]
func (h *RunHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	logDir := h.runService.LogDir()
	if logDir == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no accounting directory configured"})
		return
	}
	var err error
	if req.File, err = resolveUnder(logDir, req.File); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Dir, err = resolveUnder(logDir, req.Dir); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.trigger(c, service.RunKindIngest, func(ctx context.Context) (*service.Run, error) {
		if req.File != "" {
			return h.runService.IngestFile(ctx, req.File)
		}
		return h.runService.IngestDirectory(ctx, req.Dir)
	})
}

// Aggregate triggers a rollup rebuild
// @Summary Trigger aggregation
// @Tags runs
// @Produce json
// @Param wait query bool false "block until the run finishes"
// @Success 200 {object} service.Run
// @Success 202 {object} map[string]string
// @Failure 409 {object} service.Run
// @Router /api/v1/runs/aggregate [post]
func (h *RunHandler) Aggregate(c *gin.Context) {
	h.trigger(c, service.RunKindAggregate, h.runService.Aggregate)
}

// resolveUnder returns p as an absolute path inside base. An empty p stays empty.
func resolveUnder(base, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("invalid accounting directory: %w", err)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(absBase, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(absBase, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the accounting directory", p)
	}
	return p, nil
}

// trigger runs fn synchronously when wait=true, otherwise in the background
func (h *RunHandler) trigger(c *gin.Context, kind service.RunKind, fn func(ctx context.Context) (*service.Run, error)) {
	if c.Query("wait") == "true" {
		run, err := fn(c.Request.Context())
		switch {
		case errors.Is(err, service.ErrRunInProgress):
			c.JSON(http.StatusConflict, run)
		case err != nil && run == nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusInternalServerError, run)
		default:
			c.JSON(http.StatusOK, run)
		}
		return
	}

	go func() {
		if _, err := fn(h.base); err != nil && !errors.Is(err, service.ErrRunInProgress) {
			logger.ErrorCtx(h.base, "triggered %s run failed: %v", kind, err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "kind": kind})
}
