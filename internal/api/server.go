// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/jobs"
	"cv-pipeline/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JobService is the part of jobs.Service the API serves.
type JobService interface {
	Submit(ctx context.Context, jobType models.JobType, payload json.RawMessage) (*models.Job, error)
	Status(ctx context.Context, id string) (jobs.View, error)
	Inspect(ctx context.Context, id string) (jobs.AdminView, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	jobs   JobService
	checks []ReadinessCheck
	logger logger.Logger
	engine *gin.Engine
}

func NewServer(svc JobService, checks []ReadinessCheck, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		jobs:   svc,
		checks: checks,
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/ready", s.ready)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	v1.POST("/evaluations", s.submit(models.JobTypeEvaluation))
	v1.POST("/matches", s.submit(models.JobTypeMatcher))
	v1.GET("/jobs/:id", s.status)
	v1.GET("/admin/jobs/:id", s.inspect)
}

func (s *Server) submit(jobType models.JobType) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			s.writeError(c, apperrors.NewValidationError("could not read request body"))
			return
		}

		job, err := s.jobs.Submit(c.Request.Context(), jobType, body)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"id":     job.ID,
			"status": job.Status,
		})
	}
}

func (s *Server) status(c *gin.Context) {
	view, err := s.jobs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) inspect(c *gin.Context) {
	view, err := s.jobs.Inspect(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for _, check := range s.checks {
		if err := check.Check(ctx); err != nil {
			failed[check.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.logger.Warn("Readiness check failed", map[string]interface{}{"failed": failed})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// writeError maps a classified error onto its HTTP status. Internal details
// of unknown errors are logged, never returned.
func (s *Server) writeError(c *gin.Context, err error) {
	stdErr := apperrors.Classify(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	body := gin.H{
		"code":    string(apperrors.Kind(stdErr.Code)),
		"message": apperrors.PublicMessage(stdErr),
	}
	if fields, ok := stdErr.Metadata["fields"]; ok && apperrors.Kind(stdErr.Code) == apperrors.ErrCodeValidation {
		body["fields"] = fields
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", map[string]interface{}{
			"path":      c.FullPath(),
			"errorCode": string(stdErr.Code),
			"error":     err.Error(),
		})
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/metrics" || c.FullPath() == "/health" {
			return
		}
		s.logger.Debug("HTTP request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}
