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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/foresight/services/foresight/report"
	"github.com/AleutianAI/foresight/services/foresight/rules"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(svc *Service) *gin.Engine {
	router := gin.New()
	handlers := NewHandlers(svc)
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	RegisterMetrics(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlers_HandleHealth(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, http.MethodGet, "/v1/foresight/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
	assert.Positive(t, resp.Rules)
}

func TestHandlers_HandleAnalyze(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"package.json": `{"name":"app","dependencies":{}}`,
		"src/a.ts":     "import pad from 'left-pad';\nconsole.log(pad);\n",
	})
	router := setupTestRouter(newTestService(t))

	strict := false
	w := doJSON(t, router, http.MethodPost, "/v1/foresight/analyze", AnalyzeRequest{
		ProjectRoot: root,
		StrictMode:  &strict,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rep report.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Empty(t, resultsFor(rep.Results, rules.RuleConsoleLog), "strict_mode=false drops best-practice rules")
	require.Len(t, rep.DependencyIssues, 1)
	assert.Equal(t, "left-pad", rep.DependencyIssues[0].Package)
}

func TestHandlers_HandleAnalyze_Errors(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"missing root", map[string]any{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad path", AnalyzeRequest{ProjectRoot: filepath.Join(t.TempDir(), "nope")}, http.StatusBadRequest, "INVALID_PATH"},
		{"empty project", AnalyzeRequest{ProjectRoot: t.TempDir()}, http.StatusUnprocessableEntity, "NO_READABLE_FILES"},
		{"bad framework", AnalyzeRequest{ProjectRoot: t.TempDir(), Framework: "ember"}, http.StatusBadRequest, "INVALID_OPTIONS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/v1/foresight/analyze", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestHandlers_HandleSnippet(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, http.MethodPost, "/v1/foresight/snippet", SnippetRequest{
		Code:     "'use client';\nexport default function B(){ console.log('x'); return null }\n",
		Language: "tsx",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res SnippetResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, resultsFor(res.Results, rules.RuleConsoleLog), 1)
	assert.Empty(t, resultsFor(res.Results, rules.RuleServerClientBoundary))

	w = doJSON(t, router, http.MethodPost, "/v1/foresight/snippet", SnippetRequest{Code: "x", Language: "cobol"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/v1/foresight/snippet", map[string]string{"language": "ts"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_HandleRules(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, http.MethodGet, "/v1/foresight/rules?framework=vue", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RulesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Version)
	ids := make(map[string]bool)
	for _, r := range resp.Rules {
		ids[r.ID] = true
	}
	assert.True(t, ids[rules.RuleVueForKey])
	assert.False(t, ids[rules.RuleServerClientBoundary])

	w = doJSON(t, router, http.MethodGet, "/v1/foresight/rules?framework=ember", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_HandleClearCacheAndMetrics(t *testing.T) {
	router := setupTestRouter(newTestService(t))

	w := doJSON(t, router, http.MethodDelete, "/v1/foresight/cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "foresight_http_requests_total")
}
