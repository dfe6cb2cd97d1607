package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/futbolbase/futbolbase/internal/config"
)

// WriteAll regenerates every JS data artifact under cfg.DataDir and bumps
// the cache version in index.html when one is present.
func WriteAll(ctx context.Context, conn *sql.DB, cfg *config.Config, logger *slog.Logger) error {
	for _, cat := range cfg.Categories {
		content, err := categoryJS(ctx, conn, cat)
		if err != nil {
			return err
		}
		if err := writeArtifact(cfg.DataDir, cat.DataFile, content, logger); err != nil {
			return err
		}
	}

	history, err := historyJS(ctx, conn)
	if err != nil {
		return err
	}
	if err := writeArtifact(cfg.DataDir, "data-history.js", history, logger); err != nil {
		return err
	}

	details, err := matchDetailJS(ctx, conn)
	if err != nil {
		return err
	}
	if err := writeArtifact(cfg.DataDir, "data-matchdetail.js", details, logger); err != nil {
		return err
	}

	shields, err := shieldsJS(ctx, conn)
	if err != nil {
		return err
	}
	if err := writeArtifact(cfg.DataDir, "data-shields.js", shields, logger); err != nil {
		return err
	}

	scorers, err := scorersJS(ctx, conn, cfg.Categories)
	if err != nil {
		return err
	}
	if err := writeArtifact(cfg.DataDir, "data-goleadores.js", scorers, logger); err != nil {
		return err
	}

	return bumpCacheVersion(cfg.DataDir, logger)
}

func categoryJS(ctx context.Context, conn *sql.DB, cat config.CategoryConfig) (string, error) {
	groups, err := CategoryGroups(ctx, conn, cat.Name)
	if err != nil {
		return "", err
	}

	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return "", err
	}
	statsJSON, err := json.Marshal(Stats(groups))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "const %s=%s;\n", cat.VarName, groupsJSON)
	fmt.Fprintf(&b, "const %s=%s;\n", cat.StatsVar, statsJSON)
	return b.String(), nil
}

func historyJS(ctx context.Context, conn *sql.DB) (string, error) {
	h, err := History(ctx, conn)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("const HISTORY=%s;const HIST_MATCHES=%d;", data, h.TotalMatches), nil
}

func matchDetailJS(ctx context.Context, conn *sql.DB) (string, error) {
	details, err := MatchDetails(ctx, conn)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(details)
	if err != nil {
		return "", err
	}
	header := "// data-matchdetail.js — generado automáticamente\n" +
		"// NO editar manualmente\n\n"
	return header + "const MATCH_DETAIL=" + string(data) + ";", nil
}

func shieldsJS(ctx context.Context, conn *sql.DB) (string, error) {
	shields, err := Shields(ctx, conn)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(shields)
	if err != nil {
		return "", err
	}
	return "const SHIELDS=" + string(data) + ";\n", nil
}

func scorersJS(ctx context.Context, conn *sql.DB, categories []config.CategoryConfig) (string, error) {
	var parts []string
	for _, cat := range categories {
		entries, err := CategoryScorers(ctx, conn, cat.Name)
		if err != nil {
			return "", err
		}
		if entries == nil {
			entries = []ScorerGroup{}
		}
		data, err := json.Marshal(entries)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("const %s=%s;", cat.ScorersVar, data))
	}
	return strings.Join(parts, "\n"), nil
}

func writeArtifact(dir, name, content string, logger *slog.Logger) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	logger.Info("artifact written", "file", name, "bytes", len(content))
	return nil
}

var cacheVersionRe = regexp.MustCompile(`\?v=\d{8}`)

// bumpCacheVersion rewrites ?v=YYYYMMDD query strings in index.html to
// today's date so browsers pick up the regenerated artifacts.
func bumpCacheVersion(dir string, logger *slog.Logger) error {
	path := filepath.Join(dir, "index.html")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read index.html: %w", err)
	}

	today := time.Now().Format("20060102")
	updated := cacheVersionRe.ReplaceAllString(string(raw), "?v="+today)
	if updated == string(raw) {
		return nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("write index.html: %w", err)
	}
	logger.Info("cache version bumped", "version", today)
	return nil
}

var (
	groupNumberRe    = regexp.MustCompile(`G-?(\d+)`)
	lanzaroteGroupRe = regexp.MustCompile(`GRUPO\s*(\d+)`)
	benjaminWordRe   = regexp.MustCompile(`\bBENJAMIN\b\s*`)
)

// ScorerGroupName converts a group's code and full name into the display
// name used by the goleadores view.
func ScorerGroupName(code, fullName, categoryName string) string {
	upper := strings.ToUpper(fullName)

	if categoryName == "PREBENJAMIN" {
		if m := groupNumberRe.FindStringSubmatch(upper); m != nil {
			return "PREBENJAMIN GC GRUPO " + m[1]
		}
		return upper
	}

	if strings.Contains(upper, "FUERTEVENTURA") {
		return "BENJAMIN " + strings.TrimSpace(benjaminWordRe.ReplaceAllString(upper, ""))
	}

	if strings.Contains(upper, "LANZAROTE") {
		if m := lanzaroteGroupRe.FindStringSubmatch(upper); m != nil {
			return "BENJAMIN PRIMERA LANZAROTE G" + m[1]
		}
		return "BENJAMIN " + strings.TrimSpace(benjaminWordRe.ReplaceAllString(upper, ""))
	}

	return "BENJAMIN " + strings.TrimSpace(benjaminWordRe.ReplaceAllString(upper, ""))
}
