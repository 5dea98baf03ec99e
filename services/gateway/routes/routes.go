// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seizeval/seizeval/services/gateway/handlers"
	"github.com/seizeval/seizeval/services/gateway/middleware"
	"github.com/seizeval/seizeval/services/gateway/ratelimit"
)

// SetupRoutes wires the gateway's HTTP surface onto router. The rate
// limiter guards only the submission endpoint; probes, reads, and the
// WebSocket stay unthrottled. A nil registry falls back to the default
// Prometheus gatherer.
func SetupRoutes(router *gin.Engine, h *handlers.Handler, limiter *ratelimit.Limiter,
	registry *prometheus.Registry) {

	router.Use(middleware.RequestID())

	if registry != nil {
		router.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	} else {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/ws/:job_id", h.WatchJob)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", h.Health)
		v1.GET("/ready", h.Ready)
		v1.POST("/evaluate", middleware.RateLimit(limiter), h.Evaluate)
		v1.GET("/evaluate", h.ListJobs)
		v1.GET("/evaluate/:job_id", h.GetJob)
	}
}
