package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// newTestServer creates a test server that routes to the given handler map.
// Keys are "METHOD /path", values are handler funcs.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithAPIKey("test-key"))
	return srv, c
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, HealthResponse{Status: "healthy", Version: "1.2.0", CacheLoaded: true,
				Cache: CacheStats{Aliases: 3, State: "loaded"}})
		},
	})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("got status %q, want healthy", resp.Status)
	}
	if resp.Version != "1.2.0" {
		t.Errorf("got version %q, want 1.2.0", resp.Version)
	}
	if resp.Cache.State != "loaded" || resp.Cache.Aliases != 3 {
		t.Errorf("got cache %+v", resp.Cache)
	}
}

func TestReadyNotReady(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/ready": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 503, map[string]string{"code": "unavailable", "message": "not ready"})
		},
	})
	_, err := c.Ready(context.Background())
	if !IsUnavailable(err) {
		t.Errorf("expected unavailable, got: %v", err)
	}
}

func TestStats(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/stats": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, StatsResponse{TotalSkills: 40, TotalAliases: 120, Database: "connected", Source: "store"})
		},
	})
	resp, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if resp.TotalSkills != 40 || resp.TotalAliases != 120 {
		t.Errorf("got %+v", resp)
	}
}

func TestHarmonize(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/harmonize": func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Skills []string `json:"skills"`
			}
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			results := make([]HarmonizeResult, len(req.Skills))
			for i, s := range req.Skills {
				results[i] = HarmonizeResult{Original: s, Canonical: s, IsKnown: s == "python"}
			}
			jsonResponse(w, 200, map[string]any{"results": results})
		},
	})

	got, err := c.Skills.Harmonize(context.Background(), []string{"python", "cobol"})
	if err != nil {
		t.Fatalf("Harmonize() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if !got[0].IsKnown || got[1].IsKnown {
		t.Errorf("got %+v", got)
	}
	if got[1].Original != "cobol" {
		t.Errorf("results out of order: %+v", got)
	}
}

func TestHarmonizeNilSendsEmptyArray(t *testing.T) {
	var body string
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/harmonize": func(w http.ResponseWriter, r *http.Request) {
			var raw json.RawMessage
			json.NewDecoder(r.Body).Decode(&raw) //nolint:errcheck
			body = string(raw)
			jsonResponse(w, 200, map[string]any{"results": []HarmonizeResult{}})
		},
	})

	if _, err := c.Skills.Harmonize(context.Background(), nil); err != nil {
		t.Fatalf("Harmonize() error: %v", err)
	}
	if body != `{"skills":[]}` {
		t.Errorf("got body %s", body)
	}
}

func TestSuggest(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/suggest": func(w http.ResponseWriter, r *http.Request) {
			var req SuggestRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			if req.TopK != 2 || !req.UseLLM {
				jsonResponse(w, 400, map[string]string{"code": "invalid_request", "message": "bad"})
				return
			}
			jsonResponse(w, 200, SuggestResponse{
				Original:    req.Skill,
				Method:      "llm",
				Suggestions: []Suggestion{{CanonicalName: "python", Score: 0.9, Parents: []string{"programming"}}},
			})
		},
	})

	resp, err := c.Skills.Suggest(context.Background(), SuggestRequest{Skill: "pythn", TopK: 2, UseLLM: true})
	if err != nil {
		t.Fatalf("Suggest() error: %v", err)
	}
	if resp.Method != "llm" || len(resp.Suggestions) != 1 {
		t.Fatalf("got %+v", resp)
	}
	if resp.Suggestions[0].Parents[0] != "programming" {
		t.Errorf("got parents %v", resp.Suggestions[0].Parents)
	}
}

func TestValidateOntology(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/ontology/validate": func(w http.ResponseWriter, r *http.Request) {
			var req ValidateRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			if req.Schema == nil || req.Schema.EntityTypes[0] != "Person" {
				t.Errorf("schema override not sent: %+v", req.Schema)
			}
			jsonResponse(w, 200, ValidateResponse{Entities: req.Entities[:1], Relations: []json.RawMessage{}, DroppedEntities: 1})
		},
	})

	resp, err := c.Ontology.Validate(context.Background(), ValidateRequest{
		Entities: []json.RawMessage{
			json.RawMessage(`{"id":"a","type":"Person","name":"Ada"}`),
			json.RawMessage(`{"id":"b","type":"Spaceship"}`),
		},
		Relations: []json.RawMessage{},
		Schema:    &Schema{EntityTypes: []string{"Person"}, RelationTypes: []string{"KNOWS"}},
	})
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if resp.DroppedEntities != 1 || len(resp.Entities) != 1 {
		t.Fatalf("got %+v", resp)
	}
	if string(resp.Entities[0]) != `{"id":"a","type":"Person","name":"Ada"}` {
		t.Errorf("entity not passed through verbatim: %s", resp.Entities[0])
	}
}

func TestReload(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/admin/reload": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, ReloadResponse{Status: "success", AliasesCount: 10, SkillsCount: 4})
		},
	})
	resp, err := c.Admin.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if resp.Status != "success" || resp.AliasesCount != 10 {
		t.Errorf("got %+v", resp)
	}
}

func TestAPIError(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/suggest": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 400, map[string]string{"code": "invalid_request", "message": "skill is required", "request_id": "r1"})
		},
		"POST /api/v1/admin/reload": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 401, map[string]string{"code": "unauthorized", "message": "invalid token"})
		},
		"GET /api/v1/stats": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(502)
			w.Write([]byte("bad gateway")) //nolint:errcheck
		},
	})

	ctx := context.Background()

	_, err := c.Skills.Suggest(ctx, SuggestRequest{})
	if !IsInvalidRequest(err) {
		t.Errorf("expected invalid request, got: %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.RequestID != "r1" {
		t.Errorf("expected request id r1, got: %v", err)
	}

	_, err = c.Admin.Reload(ctx)
	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized, got: %v", err)
	}

	_, err = c.Stats(ctx)
	if !errors.As(err, &apiErr) || apiErr.Code != "unknown" || apiErr.Message != "bad gateway" {
		t.Errorf("expected raw fallback, got: %v", err)
	}
}

func TestAuthHeader(t *testing.T) {
	var gotAuth string
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			jsonResponse(w, 200, HealthResponse{Status: "healthy"})
		},
	})

	c.Health(context.Background()) //nolint:errcheck
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header: got %q, want %q", gotAuth, "Bearer test-key")
	}
}

func TestSubscribe(t *testing.T) {
	var gotAuth string
	var gotSub subscribeMessage
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/events": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				return
			}
			defer conn.CloseNow() //nolint:errcheck

			ctx := r.Context()
			wsjson.Write(ctx, conn, Event{Type: EventWelcome, LastEventID: 7, Cache: &CacheStats{State: "loaded"}}) //nolint:errcheck
			if err := wsjson.Read(ctx, conn, &gotSub); err != nil {
				return
			}
			wsjson.Write(ctx, conn, Event{Type: EventTaxonomyReloaded, ID: 8, Time: time.Now()}) //nolint:errcheck
			conn.Close(websocket.StatusNormalClosure, "")                                        //nolint:errcheck
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var events []Event
	opts := SubscribeOptions{LastEventID: 7, Events: []string{EventTaxonomyReloaded}}
	err := c.Admin.Subscribe(ctx, opts, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header: got %q", gotAuth)
	}
	if gotSub.Type != "subscribe" || gotSub.LastEventID != 7 || len(gotSub.Events) != 1 {
		t.Errorf("subscribe message: got %+v", gotSub)
	}
	if len(events) != 2 {
		t.Fatalf("got events %+v", events)
	}
	if events[0].Type != EventWelcome || events[0].Cache == nil || events[0].LastEventID != 7 {
		t.Errorf("welcome: got %+v", events[0])
	}
	if events[1].Type != EventTaxonomyReloaded || events[1].ID != 8 {
		t.Errorf("event: got %+v", events[1])
	}
}

func TestSubscribeUnauthorized(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/events": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set(requestIDHeader, "rid-9")
			jsonResponse(w, 401, map[string]string{"code": "unauthorized", "message": "invalid token"})
		},
	})

	err := c.Admin.Subscribe(context.Background(), SubscribeOptions{}, func(Event) error { return nil })
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RequestID != "rid-9" {
		t.Errorf("expected request id from header, got %q", apiErr.RequestID)
	}
}

func TestRetriesRateLimited(t *testing.T) {
	var calls int
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/stats": func(w http.ResponseWriter, _ *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Retry-After", "0")
				jsonResponse(w, 429, map[string]string{"code": "rate_limited", "message": "rate limit exceeded"})
				return
			}
			jsonResponse(w, 200, StatsResponse{TotalSkills: 4})
		},
	})

	resp, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if calls != 2 || resp.TotalSkills != 4 {
		t.Errorf("expected retry then success, got calls=%d resp=%+v", calls, resp)
	}
}

func TestNoRetryWhenDisabled(t *testing.T) {
	var calls int
	srv, _ := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/stats": func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.Header().Set(requestIDHeader, "rid-1")
			jsonResponse(w, 429, map[string]string{"code": "rate_limited", "message": "slow down"})
		},
	})
	c := New(srv.URL, WithMaxRetries(0))

	_, err := c.Stats(context.Background())
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.RequestID != "rid-1" {
		t.Errorf("expected request id from header, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", time.Second},
		{"2", 2 * time.Second},
		{"600", maxRetryWait},
		{"soon", time.Second},
	}
	for _, tt := range tests {
		h := http.Header{}
		h.Set("Retry-After", tt.header)
		if got := retryAfter(h); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
