package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"PriceCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequest_PointArray(t *testing.T) {
	raw := []byte(`[{"date":"2024-01-03","price":12},{"date":"2024-01-01","price":10},{"date":"2024-01-02","price":11}]`)
	req, err := buildRequest(raw, options{name: "kettle", typ: "trend"})
	require.NoError(t, err)
	assert.Equal(t, "kettle", req.ProductName)
	assert.Equal(t, "trend", req.AnalysisType)
	require.NotNil(t, req.CurrentPrice)
	assert.Equal(t, 12.0, *req.CurrentPrice, "latest point by date")
}

func TestBuildRequest_FullRequestWithOverrides(t *testing.T) {
	raw := []byte(`{"product_name":"Lamp","current_price":9,"price_history":[{"date":"2024-01-01","price":10}]}`)

	req, err := buildRequest(raw, options{name: "file", horizon: 60})
	require.NoError(t, err)
	assert.Equal(t, "Lamp", req.ProductName)
	assert.Equal(t, 9.0, *req.CurrentPrice)
	assert.Equal(t, 60, req.HorizonDays)

	req, err = buildRequest(raw, options{current: 7.5})
	require.NoError(t, err)
	assert.Equal(t, 7.5, *req.CurrentPrice)
}

func TestBuildRequest_Errors(t *testing.T) {
	_, err := buildRequest([]byte(`[]`), options{})
	assert.Error(t, err)
	_, err = buildRequest([]byte(`{`), options{})
	assert.Error(t, err)
	_, err = buildRequest([]byte(`[{"date":"bad","price":1}]`), options{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRun_PostsToService(t *testing.T) {
	var got models.PredictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/predict", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"message":"OK","data":{"trend":"increasing"}}`))
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "desk.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"date":"2024-01-01","price":10},{"date":"2024-01-02","price":11}]`), 0o600))

	require.NoError(t, run(options{file: file, url: srv.URL + "/", typ: "full", timeout: 5 * time.Second}))
	assert.Equal(t, "desk", got.ProductName)
	assert.Equal(t, "full", got.AnalysisType)
	assert.Len(t, got.PriceHistory, 2)
}

func TestRun_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":400}`))
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "x.json")
	require.NoError(t, os.WriteFile(file, []byte(`[{"date":"2024-01-01","price":10}]`), 0o600))

	err := run(options{file: file, url: srv.URL, timeout: 5 * time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestRun_StoredProductUsesQueryParams(t *testing.T) {
	var path, query string
	var bodyLen int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		path, query, bodyLen = r.URL.EscapedPath(), r.URL.RawQuery, r.ContentLength
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":200,"message":"OK","data":{"product_id":"sku 1"}}`))
	}))
	defer srv.Close()

	require.NoError(t, run(options{product: "sku 1", url: srv.URL, typ: "trend", horizon: 90, timeout: 5 * time.Second}))
	assert.Equal(t, "/api/products/sku%201/predict", path)
	assert.Equal(t, "analysis_type=trend&horizon_days=90", query)
	assert.Zero(t, bodyLen)
}

func TestBuildCall_RequiresFileOrProduct(t *testing.T) {
	_, err := buildCall(options{url: "http://localhost:8080"})
	assert.EqualError(t, err, "-file or -product is required")
}
