package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/jenezis/harmonizer/internal/api"
	"github.com/jenezis/harmonizer/internal/harmonizer"
	"github.com/jenezis/harmonizer/internal/middleware"
	"github.com/jenezis/harmonizer/internal/ontology"
	"github.com/jenezis/harmonizer/internal/taxonomy"
	"github.com/jenezis/harmonizer/internal/ws"
)

func newRouter(t *testing.T, token string) http.Handler {
	t.Helper()
	return newRouterWith(t, token, nil, ws.NewHub(testLogger(), nil))
}

func newRouterWith(t *testing.T, token string, limits map[string]middleware.Limit, hub *ws.Hub) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := testLogger()

	return api.NewRouter(ctx, &api.RouterDeps{
		Log: log,
		Harmonizer: &mockHarmonizer{
			batchFn: func(raws []string) []harmonizer.Result { return []harmonizer.Result{} },
			suggestFn: func(context.Context, string, int, bool) (harmonizer.SuggestResult, error) {
				return harmonizer.SuggestResult{}, nil
			},
		},
		Reloader: &mockReloader{
			reloadFn: func(context.Context, string) (taxonomy.Stats, error) { return loadedStats(), nil },
		},
		Cache:       &mockCache{stats: loadedStats()},
		Store:       &mockStore{},
		Validator:   ontology.NewValidator(ontology.Schema{}, log, nil),
		Hub:         hub,
		AuthToken:   token,
		CORSOrigins: []string{"http://localhost:3000"},
		RateLimits:  limits,
		Version:     "test",
	})
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	t.Parallel()

	r := newRouter(t, "s3cret")

	if w := doRequest(r, http.MethodPost, "/api/v1/admin/reload", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	w := doRequestWithHeader(r, http.MethodPost, "/api/v1/admin/reload", "", map[string]string{"Authorization": "Bearer s3cret"})
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRouter_PublicRoutes(t *testing.T) {
	t.Parallel()

	r := newRouter(t, "s3cret")

	tests := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/v1/health", ""},
		{http.MethodGet, "/api/v1/ready", ""},
		{http.MethodGet, "/api/v1/stats", ""},
		{http.MethodPost, "/api/v1/harmonize", `{"skills":[]}`},
		{http.MethodPost, "/api/v1/ontology/validate", `{}`},
		{http.MethodGet, "/metrics", ""},
	}

	for _, tt := range tests {
		w := doRequest(r, tt.method, tt.path, tt.body)
		if w.Code != http.StatusOK {
			t.Errorf("%s %s: expected 200, got %d", tt.method, tt.path, w.Code)
		}
	}
}

func TestRouter_SetsRequestIDAndSecurityHeaders(t *testing.T) {
	t.Parallel()

	w := doRequest(newRouter(t, ""), http.MethodGet, "/api/v1/health", "")

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}

func TestRouter_SuggestHasOwnRateClass(t *testing.T) {
	t.Parallel()

	r := newRouterWith(t, "", map[string]middleware.Limit{
		middleware.ClassDefault: {Rate: 100, Burst: 100},
		middleware.ClassSuggest: {Rate: 0.001, Burst: 1},
	}, ws.NewHub(testLogger(), nil))

	if w := doRequest(r, http.MethodPost, "/api/v1/suggest", `{"skill":"pythn"}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w := doRequest(r, http.MethodPost, "/api/v1/suggest", `{"skill":"pythn"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	if w := doRequest(r, http.MethodPost, "/api/v1/harmonize", `{"skills":["go"]}`); w.Code != http.StatusOK {
		t.Errorf("expected harmonize unaffected, got %d", w.Code)
	}
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	t.Parallel()

	w := doRequestWithHeader(newRouter(t, ""), http.MethodPost, "/api/v1/harmonize", `skills=go`,
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", w.Code)
	}
}

func TestRouter_EventsStream(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := ws.NewHub(testLogger(), nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(newRouterWith(t, "s3cret", nil, hub))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/events"

	_, resp, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		t.Fatal("expected dial without token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer s3cret"}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var welcome ws.WelcomeMsg
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		t.Fatalf("reading welcome: %v", err)
	}
	if welcome.Type != "welcome" {
		t.Errorf("expected welcome frame, got %q", welcome.Type)
	}

	hub.BroadcastEvent(ws.EventTaxonomyReloaded, nil)

	var evt ws.Event
	if err := wsjson.Read(ctx, conn, &evt); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if evt.Type != ws.EventTaxonomyReloaded || evt.ID != 1 {
		t.Errorf("expected reloaded event 1, got %s %d", evt.Type, evt.ID)
	}
}
