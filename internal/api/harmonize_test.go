package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jenezis/harmonizer/internal/api"
	"github.com/jenezis/harmonizer/internal/harmonizer"
	"github.com/jenezis/harmonizer/internal/middleware"
	"github.com/jenezis/harmonizer/internal/models"
)

func harmonizeRouter(svc api.HarmonizerService) *gin.Engine {
	r := gin.New()
	h := api.NewHarmonizeHandler(svc, testLogger())
	r.POST("/harmonize", h.Harmonize)
	r.POST("/suggest", h.Suggest)

	return r
}

func TestHarmonize_ReturnsResultsInOrder(t *testing.T) {
	t.Parallel()

	svc := &mockHarmonizer{
		batchFn: func(raws []string) []harmonizer.Result {
			out := make([]harmonizer.Result, len(raws))
			for i, r := range raws {
				out[i] = harmonizer.Result{Original: r, Canonical: r, IsKnown: i == 0}
			}
			return out
		},
	}

	w := doRequest(harmonizeRouter(svc), http.MethodPost, "/harmonize", `{"skills":["python","cobol"]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.HarmonizeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(resp.Results) != 2 || resp.Results[0].Original != "python" || resp.Results[1].Original != "cobol" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}

	if !resp.Results[0].IsKnown || resp.Results[1].IsKnown {
		t.Errorf("unexpected is_known flags: %+v", resp.Results)
	}
}

func TestHarmonize_InvalidBody(t *testing.T) {
	t.Parallel()

	w := doRequest(harmonizeRouter(&mockHarmonizer{}), http.MethodPost, "/harmonize", `{"skills":"python"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSuggest_PassesArguments(t *testing.T) {
	t.Parallel()

	svc := &mockHarmonizer{
		suggestFn: func(_ context.Context, raw string, topK int, allowRerank bool) (harmonizer.SuggestResult, error) {
			if raw != "pythn" || topK != 2 || !allowRerank {
				return harmonizer.SuggestResult{}, fmt.Errorf("unexpected args %q %d %v", raw, topK, allowRerank)
			}
			return harmonizer.SuggestResult{
				Original: raw,
				Method:   harmonizer.MethodSimilarity,
				Suggestions: []harmonizer.Suggestion{
					{CanonicalName: "python", Score: 0.909, Parents: []string{"programming_languages"}},
				},
			}, nil
		},
	}

	w := doRequest(harmonizeRouter(svc), http.MethodPost, "/suggest", `{"skill":"pythn","top_k":2,"use_llm":true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if body["method"] != harmonizer.MethodSimilarity {
		t.Errorf("unexpected method: %v", body["method"])
	}

	suggestions, ok := body["suggestions"].([]any)
	if !ok || len(suggestions) != 1 {
		t.Fatalf("unexpected suggestions: %v", body["suggestions"])
	}

	first := suggestions[0].(map[string]any)
	if first["canonical_name"] != "python" || first["similarity_score"] != 0.909 {
		t.Errorf("unexpected suggestion: %v", first)
	}
}

func TestSuggest_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"missing skill", `{"top_k":3}`, nil, http.StatusBadRequest},
		{"top_k too large", `{"skill":"go","top_k":500}`, nil, http.StatusBadRequest},
		{"invalid argument from service", `{"skill":"go"}`, fmt.Errorf("empty: %w", harmonizer.ErrInvalidArgument), http.StatusBadRequest},
		{"unexpected failure", `{"skill":"go"}`, fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockHarmonizer{
				suggestFn: func(context.Context, string, int, bool) (harmonizer.SuggestResult, error) {
					return harmonizer.SuggestResult{}, tt.err
				},
			}

			w := doRequest(harmonizeRouter(svc), http.MethodPost, "/suggest", tt.body)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestHarmonize_StreamedBodyOverLimit(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(middleware.JSONBody(64))
	h := api.NewHarmonizeHandler(&mockHarmonizer{}, testLogger())
	r.POST("/harmonize", h.Harmonize)

	body := `{"skills":["` + strings.Repeat("x", 100) + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/harmonize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}

	var body413 map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body413); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body413["code"] != api.ErrCodeTooLarge {
		t.Errorf("expected code %q, got %q", api.ErrCodeTooLarge, body413["code"])
	}
}
