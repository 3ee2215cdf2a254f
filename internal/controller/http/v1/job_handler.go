package v1

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"mediaflow/internal/domain/entity"
	"mediaflow/internal/domain/usecase"
	"mediaflow/internal/notify"
)

// JobOrchestrator is the use-case surface the handler depends on.
type JobOrchestrator interface {
	Submit(ctx context.Context, req usecase.SubmitRequest) (string, error)
	GetJob(ctx context.Context, jobID string) (*entity.ProcessingJob, string, error)
	GetStatus(ctx context.Context, jobID string) (string, int, error)
}

type JobHandler struct {
	Orchestrator JobOrchestrator
	Hub          *notify.Hub
}

func NewJobHandler(o JobOrchestrator, hub *notify.Hub) *JobHandler {
	return &JobHandler{Orchestrator: o, Hub: hub}
}

// Register mounts the job routes on a router group.
func (h *JobHandler) Register(g *gin.RouterGroup) {
	g.POST("/jobs", h.SubmitJob)
	g.GET("/jobs/:job_id", h.GetJob)
	g.GET("/jobs/:job_id/status", h.GetStatus)
	g.GET("/jobs/:job_id/events", h.StreamEvents)
}

// SubmitJob accepts the multipart submission and responds 202 with the
// new job ID; all pipeline work happens asynchronously.
func (h *JobHandler) SubmitJob(c *gin.Context) {
	requestID := uuid.New().String()

	userID, ok := c.Get("user_id")
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	file, err := c.FormFile("video")
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_request", "video file is required", requestID)
		return
	}

	f, err := file.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", err.Error(), requestID)
		return
	}
	defer f.Close()

	media, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusInternalServerError, "internal_error", err.Error(), requestID)
		return
	}

	req := usecase.SubmitRequest{
		UserID:    userID.(string),
		ProjectID: c.PostForm("projectId"),
		FileName:  file.Filename,
		Media:     media,
		Capabilities: entity.Capabilities{
			Transcription: parseFlag(c.PostForm("transcription")),
			Sentiment:     parseFlag(c.PostForm("sentiment")),
			Chapters:      parseFlag(c.PostForm("chapters")),
			Diarization:   parseFlag(c.PostForm("speakerDiarization")),
			Keywords:      parseFlag(c.PostForm("keywords")),
			Entities:      parseFlag(c.PostForm("entities")),
			Analytics:     parseFlag(c.PostForm("analytics")),
		},
		PreferredProvider: c.PostForm("preferredProvider"),
		Language:          c.PostForm("language"),
		WebhookURL:        c.PostForm("webhookUrl"),
	}

	jobID, err := h.Orchestrator.Submit(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidRequest):
			fail(c, http.StatusBadRequest, "invalid_request", err.Error(), requestID)
		case errors.Is(err, usecase.ErrInsufficientQuota):
			fail(c, http.StatusPaymentRequired, "insufficient_quota", err.Error(), requestID)
		default:
			fail(c, http.StatusInternalServerError, "internal_error", err.Error(), requestID)
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":   true,
		"jobId":     jobID,
		"requestId": requestID,
		"message":   "processing started",
	})
}

// GetJob returns the full job document plus a signed result URL once
// the job has completed.
func (h *JobHandler) GetJob(c *gin.Context) {
	requestID := uuid.New().String()
	jobID := c.Param("job_id")

	job, resultURL, err := h.Orchestrator.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "not_found", "job not found", requestID)
		} else {
			fail(c, http.StatusInternalServerError, "internal_error", err.Error(), requestID)
		}
		return
	}

	resp := gin.H{"job": job}
	if resultURL != "" {
		resp["resultUrl"] = resultURL
	}
	c.JSON(http.StatusOK, resp)
}

// GetStatus serves the lightweight status poll, cache-first.
func (h *JobHandler) GetStatus(c *gin.Context) {
	requestID := uuid.New().String()
	jobID := c.Param("job_id")

	status, progress, err := h.Orchestrator.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "not_found", "job not found", requestID)
		} else {
			fail(c, http.StatusInternalServerError, "internal_error", err.Error(), requestID)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobId": jobID, "status": status, "progress": progress})
}

// StreamEvents serves the live per-job event channel over SSE. No
// replay: a reconnecting client sees only events published after it
// subscribed, and should poll job status to catch up.
func (h *JobHandler) StreamEvents(c *gin.Context) {
	jobID := c.Param("job_id")

	events, cancel := h.Hub.Subscribe(jobID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("message", event)
			if event.Type == entity.EventProcessingComplete || event.Type == entity.EventProcessingError {
				return false
			}
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// fail writes the uniform error envelope.
func fail(c *gin.Context, status int, code, message, requestID string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
		"requestId": requestID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
