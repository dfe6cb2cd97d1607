package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/futbolbase/futbolbase/internal/config"
	"github.com/futbolbase/futbolbase/internal/db"
	"github.com/futbolbase/futbolbase/internal/merge"
	"github.com/futbolbase/futbolbase/internal/resolver"
	"github.com/futbolbase/futbolbase/internal/source"
)

func testServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	conn := db.OpenMemory(t)
	cfg := &config.Config{
		SeasonName: "2025-2026",
		Categories: []config.CategoryConfig{
			{Name: "BENJAMIN", VarName: "BENJAMIN"},
		},
		CORSAllowOrigins: []string{"http://localhost:3000"},
		CacheEnabled:     true,
	}
	srv := httptest.NewServer(NewRouter(conn, cfg))
	t.Cleanup(srv.Close)
	return srv, conn
}

func seedGroup(t *testing.T, conn *sql.DB) {
	t.Helper()
	ctx := context.Background()

	seasonID, err := resolver.Season(ctx, conn, "2025-2026", 2025, 2026, true)
	if err != nil {
		t.Fatal(err)
	}
	catID, err := resolver.Category(ctx, conn, "BENJAMIN")
	if err != nil {
		t.Fatal(err)
	}
	groupID, err := resolver.Group(ctx, conn, seasonID, catID, source.GroupMeta{
		Code: "A1", Name: "Grupo 1", FullName: "SEGUNDA FASE BENJAMIN A-G1",
		CurrentRound: "Jornada 1",
	})
	if err != nil {
		t.Fatal(err)
	}

	var res merge.Result
	merge.Matches(ctx, conn, groupID, []source.MatchRecord{
		{Round: "Jornada 1", Date: "2025-11-21", Home: "CD Arenas", Away: "UD Vecindario",
			HomeScore: source.IntPtr(3), AwayScore: source.IntPtr(1)},
	}, &res)
	merge.Standings(ctx, conn, groupID, []source.StandingRow{
		{Position: 1, Team: "CD Arenas", Points: 3, Played: 1, Won: 1,
			GoalsFor: 3, GoalsAgainst: 1, GoalDiff: 2},
	}, &res)
	merge.Scorers(ctx, conn, groupID, []source.ScorerRow{
		{Player: "PEDRO SANTANA", Team: "CD Arenas", Goals: 2, Games: 1},
	}, &res)
	if len(res.Errors) > 0 {
		t.Fatalf("seed errors: %v", res.Errors)
	}
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
	}
	return resp
}

func TestRoot(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Name       string   `json:"name"`
		Season     string   `json:"season"`
		Categories []string `json:"categories"`
	}
	resp := getJSON(t, srv, "/", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Name != "FutbolBase API" || body.Season != "2025-2026" {
		t.Fatalf("body = %+v", body)
	}
	if len(body.Categories) != 1 || body.Categories[0] != "BENJAMIN" {
		t.Fatalf("categories = %v", body.Categories)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Status string `json:"status"`
	}
	if resp := getJSON(t, srv, "/health", &body); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Status != "healthy" {
		t.Fatalf("status = %q", body.Status)
	}
	if resp := getJSON(t, srv, "/health/db", &body); resp.StatusCode != http.StatusOK {
		t.Fatalf("db status = %d", resp.StatusCode)
	}
}

func TestGetCategoryGroups(t *testing.T) {
	srv, conn := testServer(t)
	seedGroup(t, conn)

	var body struct {
		Groups []struct {
			ID        string            `json:"id"`
			Jornada   string            `json:"jornada"`
			Standings []json.RawMessage `json:"standings"`
			Matches   []json.RawMessage `json:"matches"`
		} `json:"groups"`
		Stats struct {
			Groups int `json:"groups"`
			Teams  int `json:"teams"`
		} `json:"stats"`
	}
	resp := getJSON(t, srv, "/api/v1/categories/benjamin/groups", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc == "" {
		t.Fatal("missing Cache-Control")
	}
	if len(body.Groups) != 1 || body.Groups[0].ID != "A1" {
		t.Fatalf("groups = %+v", body.Groups)
	}
	if len(body.Groups[0].Standings) != 1 || len(body.Groups[0].Matches) != 1 {
		t.Fatalf("group content = %+v", body.Groups[0])
	}
	if body.Stats.Groups != 1 || body.Stats.Teams != 1 {
		t.Fatalf("stats = %+v", body.Stats)
	}
}

func TestGetCategoryGroupsUnknown(t *testing.T) {
	srv, _ := testServer(t)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	resp := getJSON(t, srv, "/api/v1/categories/cadete/groups", &body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Error.Code != "UNKNOWN_CATEGORY" {
		t.Fatalf("code = %q", body.Error.Code)
	}
}

func TestGetGroupScorers(t *testing.T) {
	srv, conn := testServer(t)
	seedGroup(t, conn)

	var scorers []json.RawMessage
	resp := getJSON(t, srv, "/api/v1/scorers/A1", &scorers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(scorers) != 1 {
		t.Fatalf("scorers = %v", scorers)
	}

	resp = getJSON(t, srv, "/api/v1/scorers/ZZ", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGetHistoryAndShields(t *testing.T) {
	srv, conn := testServer(t)
	seedGroup(t, conn)

	var hist struct {
		History      map[string]map[string][]json.RawMessage `json:"history"`
		TotalMatches int                                     `json:"total_matches"`
	}
	if resp := getJSON(t, srv, "/api/v1/history", &hist); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if hist.TotalMatches != 1 || len(hist.History["A1"]["Jornada 1"]) != 1 {
		t.Fatalf("history = %+v", hist)
	}

	var shields map[string]string
	if resp := getJSON(t, srv, "/api/v1/shields", &shields); resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// No shields seeded: the map is present but empty.
	if len(shields) != 0 {
		t.Fatalf("shields = %v", shields)
	}
}

func TestETagRevalidation(t *testing.T) {
	srv, conn := testServer(t)
	seedGroup(t, conn)

	resp, err := http.Get(srv.URL + "/api/v1/shields")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/shields", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	conn := db.OpenMemory(t)
	cfg := &config.Config{
		SeasonName:        "2025-2026",
		RateLimitEnabled:  true,
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	}
	srv := httptest.NewServer(NewRouter(conn, cfg))
	t.Cleanup(srv.Close)

	var last int
	for i := 0; i < 10; i++ {
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("last status = %d, want 429", last)
	}
}
