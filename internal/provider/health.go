package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// probeTimeout bounds the health probe. The probe runs once per cache
// miss, so it must fail fast when nothing is listening.
const probeTimeout = 2 * time.Second

// HealthChecker verifies a local backend is reachable and serves the
// requested model. Injectable so the factory can be tested without a
// running Ollama.
type HealthChecker interface {
	Check(ctx context.Context, baseURL, model string) error
}

// ollamaHealth probes Ollama's model-listing endpoint.
type ollamaHealth struct {
	client *http.Client
}

func newOllamaHealth() *ollamaHealth {
	return &ollamaHealth{client: &http.Client{Timeout: probeTimeout}}
}

// tagsResponse mirrors the relevant part of GET /api/tags.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Check distinguishes three failure modes, all surfaced as distinct error
// types: unreachable endpoint, malformed payload, and missing model. The
// model is accepted both bare and with Ollama's implicit ":latest" tag.
func (h *ollamaHealth) Check(ctx context.Context, baseURL, model string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return &ConnectivityError{BaseURL: baseURL, Err: err}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return &ConnectivityError{BaseURL: baseURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &ConnectivityError{BaseURL: baseURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return &InvalidResponseError{BaseURL: baseURL, Err: err}
	}

	names := make([]string, 0, len(tags.Models))
	found := false
	for _, m := range tags.Models {
		names = append(names, m.Name)
		if m.Name == model || m.Name == model+":latest" {
			found = true
		}
	}

	if !found {
		return &ModelNotFoundError{Model: model, Available: names}
	}
	return nil
}
