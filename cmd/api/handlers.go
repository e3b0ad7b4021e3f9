package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/captioner/internal/jobstore"
	"github.com/therealutkarshpriyadarshi/captioner/internal/logging"
	"github.com/therealutkarshpriyadarshi/captioner/internal/metrics"
	"github.com/therealutkarshpriyadarshi/captioner/internal/processor"
	"github.com/therealutkarshpriyadarshi/captioner/internal/props"
	"github.com/therealutkarshpriyadarshi/captioner/internal/storage"
	"github.com/therealutkarshpriyadarshi/captioner/pkg/models"
)

// JobSubmitter starts a stored job's pipeline without blocking
type JobSubmitter interface {
	Submit(jobID string)
}

// ArchiveLinker presigns links to archived job artifacts
type ArchiveLinker interface {
	GetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// archiveLinkExpiry bounds the lifetime of presigned archive links
const archiveLinkExpiry = time.Hour

// statusResponse is the job record plus a link to its archived output, when there is one
type statusResponse struct {
	*models.Job
	ArchiveURL string `json:"archiveUrl,omitempty"`
}

// pinger is implemented by stores backed by an external service
type pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	store          jobstore.Store
	jobs           JobSubmitter
	layout         processor.Layout
	logger         *logging.Logger
	maxUploadBytes int64
	archive        ArchiveLinker // nil when archiving is disabled
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	if p, ok := api.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// Upload endpoint: stores the video and optional watermark, creates the job and starts it
func (api *API) upload(c *gin.Context) {
	if api.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxUploadBytes)
	}

	video, err := c.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RecordUpload("too_large", 0)
			api.logger.WithField("limit_bytes", tooLarge.Limit).Warn("Upload rejected: body too large")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("%s: upload exceeds %d bytes", models.ErrUploadRejected, tooLarge.Limit),
			})
			return
		}
		api.reject(c, fmt.Errorf("%w: no video uploaded", models.ErrUploadRejected))
		return
	}

	opts, err := parseRenderOptions(c)
	if err != nil {
		api.reject(c, err)
		return
	}

	// The stored filename's stem is the job identifier.
	jobID := uuid.New().String()
	inputPath := api.layout.UploadPath(jobID + strings.ToLower(filepath.Ext(video.Filename)))
	if err := c.SaveUploadedFile(video, inputPath); err != nil {
		api.logger.WithJobID(jobID).ErrorWithErr("Failed to save upload", err)
		metrics.RecordUpload("error", video.Size)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	if watermark, err := c.FormFile("watermark"); err == nil {
		wmPath := api.layout.UploadPath(jobID + "-watermark" + strings.ToLower(filepath.Ext(watermark.Filename)))
		if err := c.SaveUploadedFile(watermark, wmPath); err != nil {
			api.logger.WithJobID(jobID).ErrorWithErr("Failed to save watermark", err)
			api.removeFiles(jobID, inputPath, wmPath)
			metrics.RecordUpload("error", watermark.Size)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save watermark"})
			return
		}
		opts.WatermarkPath = wmPath
	}

	job := models.NewJob(jobID, inputPath, video.Filename, opts)
	if err := api.store.Create(c.Request.Context(), job); err != nil {
		api.logger.WithJobID(jobID).ErrorWithErr("Failed to create job", err)
		api.removeFiles(jobID, inputPath, opts.WatermarkPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
		return
	}

	metrics.RecordUpload("accepted", video.Size)
	metrics.RecordJobCreated(props.Mode(opts))
	api.logger.LogJobEvent(jobID, "created", job.Status, job.Step, map[string]interface{}{
		"original_name": video.Filename,
		"size":          video.Size,
		"watermark":     opts.WatermarkPath != "",
	})

	api.jobs.Submit(jobID)

	c.JSON(http.StatusOK, gin.H{"jobId": jobID})
}

// Status endpoint: returns the full job record
func (api *API) status(c *gin.Context) {
	jobID := c.Param("id")

	job, err := api.store.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		api.logger.WithJobID(jobID).ErrorWithErr("Failed to get job", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	resp := statusResponse{Job: job}
	if api.archive != nil && job.Status == models.JobStatusCompleted {
		key := storage.ObjectKey(job.ID, api.layout.OutputPath(job.ID))
		url, err := api.archive.GetURL(c.Request.Context(), key, archiveLinkExpiry)
		if err != nil {
			api.logger.WithJobID(jobID).ErrorWithErr("Failed to presign archive link", err)
		} else {
			resp.ArchiveURL = url
		}
	}

	c.JSON(http.StatusOK, resp)
}

// removeFiles deletes uploads that will never belong to a job
func (api *API) removeFiles(jobID string, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			api.logger.WithJobID(jobID).ErrorWithErr("Failed to remove orphaned upload", err)
		}
	}
}

func (api *API) reject(c *gin.Context, err error) {
	metrics.RecordUpload("rejected", 0)
	api.logger.WithError(err).Warn("Upload rejected")
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
