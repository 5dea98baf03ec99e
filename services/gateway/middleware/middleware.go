// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides HTTP middleware for the gateway service:
// request id assignment and per-client rate limiting.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seizeval/seizeval/services/gateway/ratelimit"
)

// requestIDKey is the gin context key for the request id. A typed
// constant keeps it from colliding with other context values.
const requestIDKey = "seizeval_request_id"

// RequestIDHeader carries the request id on both requests and
// responses.
const RequestIDHeader = "X-Request-ID"

// GetRequestID retrieves the request id assigned by RequestID, or ""
// when the middleware did not run.
func GetRequestID(c *gin.Context) string {
	if v, exists := c.Get(requestIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// RequestID assigns every request a unique id, honouring a
// client-supplied X-Request-ID so callers can correlate across systems.
// The id is stored in the context and echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// RateLimit rejects clients exceeding the limiter's per-minute budget
// with 429 and a Retry-After hint. The client id is the remote IP.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate_limited",
				"detail":     fmt.Sprintf("request rate exceeded; retry in %.0f seconds", retryAfter.Seconds()),
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
