// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/seizeval/seizeval/services/scoring/algorithms"
)

var tracer = otel.Tracer("seizeval.scoring.dual")

// HTTPOracle talks to the legacy scoring service over HTTP. It satisfies
// ReferenceRunner.
//
// The wire contract: POST {base}/score/{algorithm} with a JSON body
// carrying both annotation blobs; the response is {"metrics": {...}}
// with flat float values.
type HTTPOracle struct {
	httpClient *http.Client
	baseURL    string
}

var _ ReferenceRunner = (*HTTPOracle)(nil)

type oracleRequest struct {
	Reference  string `json:"reference"`
	Hypothesis string `json:"hypothesis"`
}

type oracleResponse struct {
	Metrics map[string]float64 `json:"metrics"`
	Error   string             `json:"error,omitempty"`
}

// NewHTTPOracle creates an oracle client for the given base URL.
func NewHTTPOracle(baseURL string) (*HTTPOracle, error) {
	if baseURL == "" {
		return nil, ErrNoOracle
	}
	return &HTTPOracle{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Run implements ReferenceRunner.
func (c *HTTPOracle) Run(ctx context.Context, algo algorithms.Algorithm, refBytes, hypBytes []byte) (map[string]float64, error) {
	ctx, span := tracer.Start(ctx, "HTTPOracle.Run")
	defer span.End()
	span.SetAttributes(attribute.String("scoring.algorithm", string(algo)))

	payload, err := json.Marshal(oracleRequest{
		Reference:  string(refBytes),
		Hypothesis: string(hypBytes),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("marshal oracle request: %w", err)
	}

	url := fmt.Sprintf("%s/score/%s", c.baseURL, algo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("create oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("oracle call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var parsed oracleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("oracle error: %s", parsed.Error)
	}
	return parsed.Metrics, nil
}
