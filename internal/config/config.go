// Package config provides centralized configuration loaded from environment
// variables, plus the source registry describing which categories and groups
// each run processes. Shared by cmd/api and cmd/ingest. The registry is a
// plain value handed to the pipeline entry point — nothing here is mutated
// at run time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Source registry
// --------------------------------------------------------------------------

// SourceKind selects which adapter a category's data comes from.
type SourceKind string

const (
	// SourceFAP scrapes server-rendered futbolaspalmas.com group pages.
	SourceFAP SourceKind = "futbolaspalmas"
	// SourceMyGol reads the MyGol platform REST API.
	SourceMyGol SourceKind = "mygol"
)

// GroupConfig identifies one scraped group: our short code and its page URL.
type GroupConfig struct {
	Code string
	URL  string
}

// TournamentConfig identifies one MyGol tournament. Group codes become
// CodePrefix plus ordinal.
type TournamentConfig struct {
	ID         int
	CodePrefix string
	Island     string
}

// CategoryConfig describes one age category: where its data comes from and
// how its export artifacts are named.
type CategoryConfig struct {
	Name       string // category natural key, e.g. "BENJAMIN"
	VarName    string // JS const for the exported group array
	StatsVar   string // JS const for the exported stats object
	ScorersVar string // JS const for the exported scorer list
	DataFile   string // exported artifact filename

	Source     SourceKind
	Groups     []GroupConfig    // SourceFAP
	Tournament TournamentConfig // SourceMyGol
}

// DefaultCategories is the current-season registry.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			Name:       "BENJAMIN",
			VarName:    "BENJAMIN",
			StatsVar:   "BENJ_STATS",
			ScorersVar: "GOL_BENJ",
			DataFile:   "data-benjamin.js",
			Source:     SourceMyGol,
			Tournament: TournamentConfig{ID: 86, CodePrefix: "BEN", Island: "grancanaria"},
		},
		{
			Name:       "PREBENJAMIN",
			VarName:    "PREBENJAMIN",
			StatsVar:   "PREBENJ_STATS",
			ScorersVar: "GOL_PREBENJ",
			DataFile:   "data-prebenjamin.js",
			Source:     SourceMyGol,
			Tournament: TournamentConfig{ID: 87, CodePrefix: "PRE", Island: "grancanaria"},
		},
	}
}

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Store
	DBPath string

	// Export
	DataDir string

	// Season
	SeasonName string
	StartYear  int
	EndYear    int

	// Sources
	MyGolBaseURL string
	FetchDelay   time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Response cache
	CacheEnabled bool

	// Registry
	Categories []CategoryConfig
}

// Load reads configuration from environment variables with sensible
// defaults. The season name must look like "2025-2026"; start and end years
// are derived from it.
func Load() (*Config, error) {
	seasonName := envOr("SEASON", "2025-2026")
	startYear, endYear, err := parseSeason(seasonName)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:  envOr("FUTBOLBASE_DB", "futbolbase.db"),
		DataDir: envOr("DATA_DIR", "."),

		SeasonName: seasonName,
		StartYear:  startYear,
		EndYear:    endYear,

		MyGolBaseURL: envOr("MYGOL_BASE_URL", "https://tusligascanarias.mygol.es/api"),
		FetchDelay:   time.Duration(envInt("FETCH_DELAY_MS", 350)) * time.Millisecond,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),

		Categories: DefaultCategories(),
	}

	if groups := os.Getenv("FUTBOLASPALMAS_GROUPS"); groups != "" {
		if err := applyScrapedGroups(cfg, groups); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// parseSeason splits a "2025-2026" season name into start and end years.
func parseSeason(name string) (int, int, error) {
	parts := strings.SplitN(name, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("season %q: want YYYY-YYYY", name)
	}
	start, err1 := strconv.Atoi(parts[0])
	end, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("season %q: want YYYY-YYYY", name)
	}
	return start, end, nil
}

// applyScrapedGroups switches categories to the scraped source using a spec
// of the form "CATEGORY:CODE=URL,CODE=URL;CATEGORY:...".
func applyScrapedGroups(cfg *Config, spec string) error {
	for _, catSpec := range strings.Split(spec, ";") {
		catSpec = strings.TrimSpace(catSpec)
		if catSpec == "" {
			continue
		}
		name, rest, ok := strings.Cut(catSpec, ":")
		if !ok {
			return fmt.Errorf("FUTBOLASPALMAS_GROUPS: missing category in %q", catSpec)
		}

		var groups []GroupConfig
		for _, pair := range strings.Split(rest, ",") {
			code, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				return fmt.Errorf("FUTBOLASPALMAS_GROUPS: bad group %q", pair)
			}
			groups = append(groups, GroupConfig{Code: code, URL: url})
		}

		found := false
		for i := range cfg.Categories {
			if cfg.Categories[i].Name == name {
				cfg.Categories[i].Source = SourceFAP
				cfg.Categories[i].Groups = groups
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("FUTBOLASPALMAS_GROUPS: unknown category %q", name)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
