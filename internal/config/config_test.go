package config

import (
	"testing"
	"time"
)

func TestParseSeason(t *testing.T) {
	start, end, err := parseSeason("2025-2026")
	if err != nil {
		t.Fatal(err)
	}
	if start != 2025 || end != 2026 {
		t.Fatalf("got %d-%d", start, end)
	}

	for _, bad := range []string{"2025", "abc-def", ""} {
		if _, _, err := parseSeason(bad); err == nil {
			t.Errorf("parseSeason(%q) accepted", bad)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SeasonName != "2025-2026" {
		t.Fatalf("season = %q", cfg.SeasonName)
	}
	if cfg.FetchDelay != 350*time.Millisecond {
		t.Fatalf("fetch delay = %v", cfg.FetchDelay)
	}
	if len(cfg.Categories) != 2 {
		t.Fatalf("got %d categories", len(cfg.Categories))
	}
	for _, cat := range cfg.Categories {
		if cat.Source != SourceMyGol {
			t.Fatalf("category %s source = %q", cat.Name, cat.Source)
		}
	}
	if !cfg.RateLimitEnabled || cfg.RateLimitRequests != 100 {
		t.Fatalf("rate limit defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SEASON", "2024-2025")
	t.Setenv("API_PORT", "9000")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://example.org, https://other.example")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StartYear != 2024 || cfg.EndYear != 2025 {
		t.Fatalf("years = %d-%d", cfg.StartYear, cfg.EndYear)
	}
	if cfg.APIPort != 9000 || !cfg.Debug {
		t.Fatalf("port=%d debug=%v", cfg.APIPort, cfg.Debug)
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[0] != "https://example.org" {
		t.Fatalf("cors = %v", cfg.CORSAllowOrigins)
	}
}

func TestLoadBadSeason(t *testing.T) {
	t.Setenv("SEASON", "2025")
	if _, err := Load(); err == nil {
		t.Fatal("bad season accepted")
	}
}

func TestApplyScrapedGroups(t *testing.T) {
	t.Setenv("FUTBOLASPALMAS_GROUPS",
		"BENJAMIN:A1=https://example.org/a1,A2=https://example.org/a2")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	var benj *CategoryConfig
	for i := range cfg.Categories {
		if cfg.Categories[i].Name == "BENJAMIN" {
			benj = &cfg.Categories[i]
		}
	}
	if benj == nil {
		t.Fatal("BENJAMIN missing")
	}
	if benj.Source != SourceFAP {
		t.Fatalf("source = %q", benj.Source)
	}
	if len(benj.Groups) != 2 || benj.Groups[1].Code != "A2" {
		t.Fatalf("groups = %+v", benj.Groups)
	}

	// Other categories keep their source.
	for _, cat := range cfg.Categories {
		if cat.Name != "BENJAMIN" && cat.Source != SourceMyGol {
			t.Fatalf("category %s flipped to %q", cat.Name, cat.Source)
		}
	}
}

func TestApplyScrapedGroupsRejectsUnknownCategory(t *testing.T) {
	t.Setenv("FUTBOLASPALMAS_GROUPS", "CADETE:X=https://example.org/x")
	if _, err := Load(); err == nil {
		t.Fatal("unknown category accepted")
	}
}
