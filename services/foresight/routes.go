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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/foresight/services/foresight/telemetry"
)

// RegisterRoutes registers all Foresight routes with the router.
//
// Description:
//
//	Registers all /v1/foresight/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/foresight/analyze - Analyze a project directory
//	POST   /v1/foresight/snippet - Analyze a code snippet
//	GET    /v1/foresight/rules - List registered rules
//	DELETE /v1/foresight/cache - Clear the file-result cache
//	GET    /v1/foresight/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	fs := rg.Group("/foresight")
	{
		fs.POST("/analyze", handlers.HandleAnalyze)
		fs.POST("/snippet", handlers.HandleSnippet)
		fs.GET("/rules", handlers.HandleRules)
		fs.DELETE("/cache", handlers.HandleClearCache)
		fs.GET("/health", handlers.HandleHealth)
	}
}

// RegisterMetrics serves Prometheus metrics at /metrics on the engine.
// The OpenTelemetry exporter's handler is used when it is active; it
// serves the default registry, which also holds the service counters.
func RegisterMetrics(r *gin.Engine) {
	handler := telemetry.MetricsHandler()
	if handler == nil {
		handler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(handler))
}
