// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the gateway's HTTP surface: evaluation
// submission, job retrieval and listing, health and readiness probes,
// and the per-job progress WebSocket.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seizeval/seizeval/services/gateway/cache"
	"github.com/seizeval/seizeval/services/gateway/jobs"
	"github.com/seizeval/seizeval/services/gateway/middleware"
	"github.com/seizeval/seizeval/services/gateway/progress"
	"github.com/seizeval/seizeval/services/gateway/validation"
)

// Handler carries the gateway's shared dependencies into the route
// handlers.
type Handler struct {
	manager *jobs.Manager
	pool    *jobs.Pool
	store   cache.Store
	hub     *progress.Hub
	logger  *slog.Logger
}

// New creates a Handler. A nil logger falls back to slog.Default().
func New(manager *jobs.Manager, pool *jobs.Pool, store cache.Store, hub *progress.Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		manager: manager,
		pool:    pool,
		store:   store,
		hub:     hub,
		logger:  logger,
	}
}

// fail writes the error envelope with the request id attached.
func (h *Handler) fail(c *gin.Context, status int, code, detail string) {
	c.JSON(status, gin.H{
		"error":      code,
		"detail":     detail,
		"request_id": middleware.GetRequestID(c),
	})
}

// -----------------------------------------------------------------------------
// Submission
// -----------------------------------------------------------------------------

// Evaluate handles POST /api/v1/evaluate. The request is multipart with
// file fields "reference" and "hypothesis", repeated "algorithms"
// values, and an optional "pipeline" value.
func (h *Handler) Evaluate(c *gin.Context) {
	refName, refBytes, err := readUpload(c, "reference")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_reference", err.Error())
		return
	}
	hypName, hypBytes, err := readUpload(c, "hypothesis")
	if err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_hypothesis", err.Error())
		return
	}

	algoNames := c.PostFormArray("algorithms")
	pipeline := c.PostForm("pipeline")

	job, err := h.manager.Submit(refName, hypName, refBytes, hypBytes, algoNames, pipeline)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			h.fail(c, http.StatusServiceUnavailable, "queue_full",
				"evaluation backlog is saturated; retry later")
			return
		}
		h.fail(c, http.StatusBadRequest, "invalid_submission", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"created_at": job.CreatedAt,
		"message":    "evaluation queued",
	})
}

// readUpload pulls one multipart file field into memory, bounded by the
// blob size limit so oversize uploads fail before buffering completes.
func readUpload(c *gin.Context, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, errors.New("missing file field " + field)
	}
	if header.Size > validation.MaxBlobBytes {
		return header.Filename, nil, validation.ErrBlobTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return header.Filename, nil, err
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(io.LimitReader(file, validation.MaxBlobBytes+1))
	if err != nil {
		return header.Filename, nil, err
	}
	if int64(len(data)) > validation.MaxBlobBytes {
		return header.Filename, nil, validation.ErrBlobTooLarge
	}
	return header.Filename, data, nil
}

// -----------------------------------------------------------------------------
// Retrieval
// -----------------------------------------------------------------------------

// GetJob handles GET /api/v1/evaluate/:job_id. Single-algorithm jobs
// lift the result fields to the top level; multi-algorithm jobs return
// a results map keyed by algorithm.
func (h *Handler) GetJob(c *gin.Context) {
	id := c.Param("job_id")
	job, err := h.manager.Get(id)
	if err != nil {
		h.fail(c, http.StatusNotFound, "job_not_found", err.Error())
		return
	}

	resp := gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"pipeline":   job.Pipeline,
		"algorithms": job.Algorithms,
		"created_at": job.CreatedAt,
	}
	if job.StartedAt != nil {
		resp["started_at"] = job.StartedAt
	}
	if job.CompletedAt != nil {
		resp["completed_at"] = job.CompletedAt
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}

	if len(job.Algorithms) == 1 {
		if result, ok := job.Results[string(job.Algorithms[0])]; ok {
			lifted, err := toMap(result)
			if err != nil {
				h.fail(c, http.StatusInternalServerError, "internal", "result serialisation failed")
				return
			}
			for k, v := range lifted {
				resp[k] = v
			}
		}
	} else if len(job.Results) > 0 {
		resp["results"] = job.Results
	}

	c.JSON(http.StatusOK, resp)
}

// toMap flattens a result into envelope fields via its JSON form.
func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// listQuery binds the job listing parameters.
type listQuery struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Status string `form:"status" binding:"omitempty,oneof=queued processing completed failed"`
}

// ListJobs handles GET /api/v1/evaluate.
func (h *Handler) ListJobs(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	page, total := h.manager.List(q.Limit, q.Offset, jobs.Status(q.Status))
	c.JSON(http.StatusOK, gin.H{
		"jobs":   page,
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

// -----------------------------------------------------------------------------
// Probes
// -----------------------------------------------------------------------------

// Health handles GET /api/v1/health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Ready handles GET /api/v1/ready: 200 only when the worker pool is
// running and the cache backend answers a ping.
func (h *Handler) Ready(c *gin.Context) {
	if !h.pool.Running() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready", "detail": "worker is not running",
		})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready", "detail": "cache backend unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
