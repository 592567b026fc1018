package api

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"vidredact/internal/blobstore"
	"vidredact/internal/jobs"
	"vidredact/internal/logging"
	"vidredact/internal/services"
)

func (s *Server) handleEditVideo(c *gin.Context) {
	ctx := c.Request.Context()
	file, err := c.FormFile("videofile")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "videofile is required"})
		return
	}
	form, err := s.parseIngestForm(
		c.PostForm("worknum"),
		c.PostForm("filename"),
		c.PostForm("power"),
		c.PostForm("mosaic_strength"),
		file,
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		return
	}
	ctx = services.WithWorkID(ctx, form.WorkID)
	logger := logging.WithContext(ctx, s.logger)

	if _, err := s.deps.Store.Get(ctx, form.WorkID); err == nil {
		c.JSON(http.StatusConflict, ErrorResponse{Detail: "work order already exists"})
		return
	} else if !errors.Is(err, jobs.ErrNotFound) {
		s.internalError(c, "lookup work order", err)
		return
	}

	source := s.sourcePath(form)
	order, err := s.newOrder(form, source)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		return
	}

	tmp, err := saveUpload(form.File, source)
	if err != nil {
		s.internalError(c, "save upload", err)
		return
	}
	if err := s.deps.Store.Insert(ctx, order); err != nil {
		_ = os.Remove(tmp)
		if isDuplicate(err) {
			c.JSON(http.StatusConflict, ErrorResponse{Detail: "work order already exists"})
			return
		}
		s.internalError(c, "insert work order", err)
		return
	}
	if err := os.Rename(tmp, source); err != nil {
		_ = os.Remove(tmp)
		if delErr := s.deps.Store.Delete(ctx, form.WorkID); delErr != nil {
			logging.ErrorWithContext(logger, "failed to remove work order after upload error", "job_rollback_failed",
				logging.Error(delErr),
				logging.String(logging.FieldErrorHint, "delete the pending record before retrying this worknum"),
			)
		}
		s.internalError(c, "place upload", err)
		return
	}

	s.deps.Queue.Enqueue(form.WorkID)
	logger.Info("work order accepted",
		logging.String("source_file", source),
		logging.Int64("bytes", form.File.Size),
		logging.Float64("threshold", form.Threshold),
		logging.Int("mosaic_strength", form.Strength),
		logging.String(logging.FieldEventType, "job_accepted"),
	)
	c.JSON(http.StatusOK, IngestResponse{Message: http.StatusOK})
}

func (s *Server) handleDownloadVideo(c *gin.Context) {
	ctx := c.Request.Context()
	workID := strings.TrimSpace(c.Query("worknum"))
	if workID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "worknum is required"})
		return
	}
	order, err := s.deps.Store.Get(ctx, workID)
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Document not found"})
		return
	}
	if err != nil {
		s.internalError(c, "lookup work order", err)
		return
	}

	keys, err := s.deps.Blobs.List(ctx, blobstore.WorkPrefix(workID))
	if err != nil {
		s.internalError(c, "list artifacts", err)
		return
	}
	if len(keys) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Job number folder not found"})
		return
	}
	key, err := blobstore.FirstWithSuffix(keys, ".mp4")
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "No mp4 files found in the job number folder"})
		return
	}
	url, err := s.deps.Blobs.PresignGet(ctx, key, s.cfg.PresignTTL())
	if err != nil {
		s.internalError(c, "presign artifact", err)
		return
	}
	c.JSON(http.StatusOK, DownloadResponse{
		DownloadURL: url,
		Labels:      LabelsFromDurations(order.Durations),
	})
}

func (s *Server) handleFindList(c *gin.Context) {
	ids, err := s.deps.Store.PendingIDs(c.Request.Context())
	if err != nil {
		s.internalError(c, "list pending orders", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, PendingResponse{PendingJobs: ids})
}

func (s *Server) handleStatus(c *gin.Context) {
	workID := strings.TrimSpace(c.Query("worknum"))
	if workID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "worknum is required"})
		return
	}
	order, err := s.deps.Store.Get(c.Request.Context(), workID)
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Document not found"})
		return
	}
	if err != nil {
		s.internalError(c, "lookup work order", err)
		return
	}
	c.JSON(http.StatusOK, FromWorkOrder(order))
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.Status == nil {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
		return
	}
	c.JSON(http.StatusOK, FromStatusSummary(s.deps.Status.Status(c.Request.Context())))
}

func (s *Server) internalError(c *gin.Context, operation string, err error) {
	logging.ErrorWithContext(logging.WithContext(c.Request.Context(), s.logger), "request failed", "api_error",
		logging.String("operation", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "failed to " + operation})
}
