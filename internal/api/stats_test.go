package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jenezis/harmonizer/internal/api"
	"github.com/jenezis/harmonizer/internal/models"
	"github.com/jenezis/harmonizer/internal/store"
)

func getStats(t *testing.T, st *mockStore) models.StatsResponse {
	t.Helper()

	r := gin.New()
	r.GET("/stats", api.NewStatsHandler(st, &mockCache{stats: loadedStats()}, testLogger()).GetStats)

	w := doRequest(r, http.MethodGet, "/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	return resp
}

func TestStats_FromStore(t *testing.T) {
	t.Parallel()

	resp := getStats(t, &mockStore{counts: store.Counts{Skills: 10, Aliases: 25, Relations: 7}})

	if resp.Source != models.StatsFromStore || resp.TotalSkills != 10 || resp.TotalAliases != 25 || resp.TotalRelations != 7 {
		t.Errorf("unexpected response: %+v", resp)
	}

	if resp.Database != store.DialectPostgres {
		t.Errorf("unexpected database: %q", resp.Database)
	}
}

func TestStats_FallsBackToCache(t *testing.T) {
	t.Parallel()

	resp := getStats(t, &mockStore{err: errDown})

	if resp.Source != models.StatsFromCache || resp.TotalSkills != 3 || resp.TotalAliases != 4 || resp.TotalRelations != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
}
