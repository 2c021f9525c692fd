// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package foresight

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/foresight/services/foresight/telemetry"
)

// Handlers contains the HTTP handlers for Foresight.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleAnalyze handles POST /v1/foresight/analyze.
//
// Description:
//
//	Analyzes a project directory on the server's filesystem. Options
//	absent from the body take their configured defaults. A client
//	disconnect cancels the run; the partial report is still written.
//
// Request Body:
//
//	AnalyzeRequest
//
// Response:
//
//	200 OK: report.Report
//	400 Bad Request: Validation error or invalid path
//	422 Unprocessable Entity: No readable files
//	500 Internal Server Error: Processing error
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), slog.With("request_id", requestID, "handler", "HandleAnalyze"))

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		h.respondError(c, "analyze", http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	opts := h.svc.DefaultProjectOptions()
	opts.Framework = req.Framework
	opts.EnabledRules = req.EnabledRules
	opts.DisabledRules = req.DisabledRules
	opts.TargetFiles = req.TargetFiles
	if req.StrictMode != nil {
		opts.StrictMode = *req.StrictMode
	}
	if req.PredictErrors != nil {
		opts.PredictErrors = *req.PredictErrors
	}
	if req.AnalyzeDependencies != nil {
		opts.AnalyzeDependencies = *req.AnalyzeDependencies
	}
	if req.MaxIssues != 0 {
		opts.MaxIssues = req.MaxIssues
	}

	logger.Info("Analyzing project", "project_root", req.ProjectRoot)

	rep, err := h.svc.AnalyzeProject(c.Request.Context(), req.ProjectRoot, opts)
	if err != nil {
		status, code := analysisErrorStatus(err, "ANALYZE_FAILED")
		logger.Error("Analysis failed", "error", err)
		h.respondError(c, "analyze", status, ErrorResponse{
			Error:   err.Error(),
			Code:    code,
			Details: req.ProjectRoot,
		})
		return
	}

	httpRequestsTotal.WithLabelValues("analyze", strconv.Itoa(http.StatusOK)).Inc()
	c.JSON(http.StatusOK, rep)
}

// HandleSnippet handles POST /v1/foresight/snippet.
//
// Request Body:
//
//	SnippetRequest
//
// Response:
//
//	200 OK: SnippetResult
//	400 Bad Request: Validation error
//	413 Request Entity Too Large: Snippet over MaxSnippetBytes
func (h *Handlers) HandleSnippet(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), slog.With("request_id", requestID, "handler", "HandleSnippet"))

	var req SnippetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		h.respondError(c, "snippet", http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	res, err := h.svc.AnalyzeSnippet(c.Request.Context(), req.Code, SnippetOptions{
		Language:  req.Language,
		Framework: req.Framework,
		FileName:  req.FileName,
	})
	if err != nil {
		status, code := analysisErrorStatus(err, "SNIPPET_FAILED")
		logger.Warn("Snippet analysis failed", "error", err)
		h.respondError(c, "snippet", status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	httpRequestsTotal.WithLabelValues("snippet", strconv.Itoa(http.StatusOK)).Inc()
	c.JSON(http.StatusOK, res)
}

// HandleRules handles GET /v1/foresight/rules.
//
// Query Parameters:
//
//	framework - Optional tag filter, e.g. "react"
//
// Response:
//
//	200 OK: RulesResponse
//	400 Bad Request: Unknown framework
func (h *Handlers) HandleRules(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), slog.With("request_id", requestID, "handler", "HandleRules"))

	list, version, err := h.svc.Rules(c.Query("framework"))
	if err != nil {
		logger.Warn("Invalid rules query", "error", err)
		h.respondError(c, "rules", http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_FRAMEWORK",
		})
		return
	}

	httpRequestsTotal.WithLabelValues("rules", strconv.Itoa(http.StatusOK)).Inc()
	c.JSON(http.StatusOK, RulesResponse{Version: version, Rules: list})
}

// HandleClearCache handles DELETE /v1/foresight/cache.
func (h *Handlers) HandleClearCache(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := telemetry.LoggerWithTrace(c.Request.Context(), slog.With("request_id", requestID, "handler", "HandleClearCache"))

	if err := h.svc.ClearCache(c.Request.Context()); err != nil {
		logger.Error("Cache clear failed", "error", err)
		h.respondError(c, "cache", http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "CACHE_CLEAR_FAILED",
		})
		return
	}
	httpRequestsTotal.WithLabelValues("cache", strconv.Itoa(http.StatusNoContent)).Inc()
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/foresight/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
		Rules:   h.svc.RuleCount(),
		Cache:   h.svc.CacheStats(),
	})
}

func (h *Handlers) respondError(c *gin.Context, handler string, status int, body ErrorResponse) {
	httpRequestsTotal.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	c.JSON(status, body)
}

// analysisErrorStatus maps service errors to an HTTP status and code.
func analysisErrorStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidPath):
		return http.StatusBadRequest, "INVALID_PATH"
	case errors.Is(err, ErrInvalidOptions):
		return http.StatusBadRequest, "INVALID_OPTIONS"
	case errors.Is(err, ErrEmptySnippet):
		return http.StatusBadRequest, "EMPTY_SNIPPET"
	case errors.Is(err, ErrSnippetTooLarge):
		return http.StatusRequestEntityTooLarge, "SNIPPET_TOO_LARGE"
	case errors.Is(err, ErrNoReadableFiles):
		return http.StatusUnprocessableEntity, "NO_READABLE_FILES"
	default:
		return http.StatusInternalServerError, fallback
	}
}

// getOrCreateRequestID returns the X-Request-ID header, generating one if
// absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
