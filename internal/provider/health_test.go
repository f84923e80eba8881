package provider

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"nomic-embed-text:latest"}]}`))
	}))
	defer srv.Close()

	hc := newOllamaHealth()

	// Bare name matches the ":latest" tag the server reports.
	require.NoError(t, hc.Check(t.Context(), srv.URL, "llama3.2"))
	// Exact tagged name matches too.
	require.NoError(t, hc.Check(t.Context(), srv.URL, "llama3.2:latest"))
}

func TestHealthCheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	err := newOllamaHealth().Check(t.Context(), srv.URL, "llama3.2")
	require.Error(t, err)

	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, err.Error(), "Is Ollama running?")
	assert.Contains(t, err.Error(), "ollama serve")
}

func TestHealthCheck_InvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not an api</html>`))
	}))
	defer srv.Close()

	err := newOllamaHealth().Check(t.Context(), srv.URL, "llama3.2")
	require.Error(t, err)

	var respErr *InvalidResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Contains(t, err.Error(), "invalid response")
}

func TestHealthCheck_ModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"mistral:latest"}]}`))
	}))
	defer srv.Close()

	err := newOllamaHealth().Check(t.Context(), srv.URL, "llama3.2")
	require.Error(t, err)

	var missingErr *ModelNotFoundError
	require.ErrorAs(t, err, &missingErr)
	assert.Contains(t, err.Error(), `"llama3.2"`)
	assert.Contains(t, err.Error(), "mistral:latest")
	assert.Contains(t, err.Error(), "Run: ollama pull llama3.2")
}

func TestHealthCheck_ModelMissing_NoneInstalled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	err := newOllamaHealth().Check(t.Context(), srv.URL, "llama3.2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none available")
}

func TestHealthCheck_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newOllamaHealth().Check(t.Context(), srv.URL, "llama3.2")
	require.Error(t, err)

	var connErr *ConnectivityError
	require.True(t, errors.As(err, &connErr))
}
