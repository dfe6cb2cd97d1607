// Package importer seeds the store from previously generated JS data
// artifacts. It exists for the one-time migration from a file-based
// deployment and for rebuilding a database from published artifacts.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/futbolbase/futbolbase/internal/config"
	"github.com/futbolbase/futbolbase/internal/export"
	"github.com/futbolbase/futbolbase/internal/merge"
	"github.com/futbolbase/futbolbase/internal/resolver"
	"github.com/futbolbase/futbolbase/internal/source"
)

// Result counts everything one import run wrote.
type Result struct {
	Groups    int
	Standings int
	Matches   int
	History   int
	Goals     int
	Shields   int
	Scorers   int
	Warnings  []string
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable import summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("groups=%d standings=%d matches=%d history=%d goals=%d shields=%d scorers=%d warnings=%d",
		r.Groups, r.Standings, r.Matches, r.History, r.Goals, r.Shields, r.Scorers, len(r.Warnings))
}

// Run imports every artifact found under cfg.DataDir into the store. A
// missing artifact file is a warning, not an error; the run continues with
// the remaining files.
func Run(ctx context.Context, conn *sql.DB, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	res := &Result{}

	seasonID, err := resolver.Season(ctx, conn, cfg.SeasonName, cfg.StartYear, cfg.EndYear, true)
	if err != nil {
		return nil, fmt.Errorf("resolve season %q: %w", cfg.SeasonName, err)
	}

	for _, cat := range cfg.Categories {
		categoryID, err := resolver.Category(ctx, conn, cat.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve category %s: %w", cat.Name, err)
		}
		text, err := readArtifact(cfg.DataDir, cat.DataFile)
		if err != nil {
			res.warnf("%s: %v", cat.DataFile, err)
			continue
		}
		raw, ok := ExtractJSON(text, cat.VarName)
		if !ok {
			res.warnf("%s: const %s not found", cat.DataFile, cat.VarName)
			continue
		}
		var groups []export.GroupExport
		if err := json.Unmarshal(raw, &groups); err != nil {
			res.warnf("%s: %v", cat.DataFile, err)
			continue
		}
		if err := importCategory(ctx, conn, seasonID, categoryID, groups, res); err != nil {
			return nil, fmt.Errorf("import %s: %w", cat.Name, err)
		}
		logger.Info("category imported", "category", cat.Name, "groups", len(groups))
	}

	if err := importShields(ctx, conn, cfg.DataDir, res); err != nil {
		return nil, err
	}
	if err := importHistory(ctx, conn, cfg, seasonID, res); err != nil {
		return nil, err
	}
	if err := importMatchDetails(ctx, conn, cfg.DataDir, res); err != nil {
		return nil, err
	}
	if err := importScorers(ctx, conn, cfg, seasonID, res); err != nil {
		return nil, err
	}

	logger.Info("import finished", "summary", res.Summary())
	return res, nil
}

func readArtifact(dir, name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ExtractJSON pulls the JSON value assigned to a JS const out of an
// artifact file. The scanner is bracket-aware and skips string contents, so
// team names containing brackets cannot unbalance it.
func ExtractJSON(text, varName string) ([]byte, bool) {
	re := regexp.MustCompile(`const\s+` + regexp.QuoteMeta(varName) + `\s*=\s*`)
	loc := re.FindStringIndex(text)
	if loc == nil {
		return nil, false
	}
	start := loc[1]
	if start >= len(text) {
		return nil, false
	}
	opener := text[start]
	var closer byte
	switch opener {
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		return nil, false
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return []byte(text[start : i+1]), true
			}
		case '"':
			i++
			for i < len(text) && text[i] != '"' {
				if text[i] == '\\' {
					i++
				}
				i++
			}
		}
	}
	return nil, false
}

func importCategory(ctx context.Context, conn *sql.DB, seasonID, categoryID int64, groups []export.GroupExport, res *Result) error {
	for _, g := range groups {
		meta := source.GroupMeta{
			Code:         g.ID,
			Name:         g.Name,
			FullName:     g.FullName,
			Phase:        g.Phase,
			Island:       g.Island,
			URL:          g.URL,
			CurrentRound: g.Jornada,
		}
		groupID, err := resolver.Group(ctx, conn, seasonID, categoryID, meta)
		if err != nil {
			return fmt.Errorf("group %s: %w", g.ID, err)
		}
		res.Groups++

		var mres merge.Result
		rows := make([]source.StandingRow, 0, len(g.Standings))
		for _, s := range g.Standings {
			rows = append(rows, source.StandingRow{
				Position: s.Position, Team: s.Team, Points: s.Points,
				Played: s.Played, Won: s.Won, Drawn: s.Drawn, Lost: s.Lost,
				GoalsFor: s.GoalsFor, GoalsAgainst: s.GoalsAgainst, GoalDiff: s.GoalDiff,
			})
		}
		merge.Standings(ctx, conn, groupID, rows, &mres)
		res.Standings += mres.StandingsRows

		recs := make([]source.MatchRecord, 0, len(g.Matches))
		for _, m := range g.Matches {
			recs = append(recs, source.MatchRecord{
				Round:     g.Jornada,
				Date:      strOrEmpty(m.Date),
				Time:      strOrEmpty(m.Time),
				Home:      m.Home,
				Away:      m.Away,
				HomeScore: m.HomeScore,
				AwayScore: m.AwayScore,
				Venue:     strOrEmpty(m.Venue),
			})
		}
		merge.Matches(ctx, conn, groupID, recs, &mres)
		res.Matches += mres.MatchesInserted
		for _, w := range mres.Errors {
			res.warnf("group %s: %s", g.ID, w)
		}
	}
	return nil
}

func importShields(ctx context.Context, conn *sql.DB, dataDir string, res *Result) error {
	text, err := readArtifact(dataDir, "data-shields.js")
	if err != nil {
		res.warnf("data-shields.js: %v", err)
		return nil
	}
	raw, ok := ExtractJSON(text, "SHIELDS")
	if !ok {
		res.warnf("data-shields.js: const SHIELDS not found")
		return nil
	}
	var shields map[string]string
	if err := json.Unmarshal(raw, &shields); err != nil {
		res.warnf("data-shields.js: %v", err)
		return nil
	}
	for team, filename := range shields {
		if _, err := resolver.Team(ctx, conn, team, filename); err != nil {
			return fmt.Errorf("shield %s: %w", team, err)
		}
		res.Shields++
	}
	return nil
}

func importHistory(ctx context.Context, conn *sql.DB, cfg *config.Config, seasonID int64, res *Result) error {
	text, err := readArtifact(cfg.DataDir, "data-history.js")
	if err != nil {
		res.warnf("data-history.js: %v", err)
		return nil
	}
	raw, ok := ExtractJSON(text, "HISTORY")
	if !ok {
		res.warnf("data-history.js: const HISTORY not found")
		return nil
	}
	var history map[string]map[string][]export.HistoryEntry
	if err := json.Unmarshal(raw, &history); err != nil {
		res.warnf("data-history.js: %v", err)
		return nil
	}

	for code, rounds := range history {
		groupID, ok, err := findGroup(ctx, conn, cfg, seasonID, code)
		if err != nil {
			return err
		}
		if !ok {
			res.warnf("history: group %q not found", code)
			continue
		}
		var mres merge.Result
		for round, entries := range rounds {
			recs := make([]source.MatchRecord, 0, len(entries))
			for _, e := range entries {
				recs = append(recs, source.MatchRecord{
					Round:     round,
					Date:      strOrEmpty(e.Date),
					Home:      e.Home,
					Away:      e.Away,
					HomeScore: e.HomeScore,
					AwayScore: e.AwayScore,
				})
			}
			merge.Matches(ctx, conn, groupID, recs, &mres)
		}
		res.History += mres.MatchesInserted
		for _, w := range mres.Errors {
			res.warnf("history %s: %s", code, w)
		}
	}
	return nil
}

func importMatchDetails(ctx context.Context, conn *sql.DB, dataDir string, res *Result) error {
	text, err := readArtifact(dataDir, "data-matchdetail.js")
	if err != nil {
		res.warnf("data-matchdetail.js: %v", err)
		return nil
	}
	raw, ok := ExtractJSON(text, "MATCH_DETAIL")
	if !ok {
		res.warnf("data-matchdetail.js: const MATCH_DETAIL not found")
		return nil
	}
	var details map[string]struct {
		G []export.GoalEntry `json:"g"`
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		res.warnf("data-matchdetail.js: %v", err)
		return nil
	}

	for key, detail := range details {
		parts := strings.Split(key, "|")
		if len(parts) != 3 {
			res.warnf("match detail: bad key %q", key)
			continue
		}
		var hs, as int
		if _, err := fmt.Sscanf(parts[2], "%d-%d", &hs, &as); err != nil {
			res.warnf("match detail: bad score in key %q", key)
			continue
		}

		var matchID int64
		err := conn.QueryRowContext(ctx,
			`SELECT m.id FROM matches m
			 JOIN teams h ON m.home_team_id = h.id
			 JOIN teams a ON m.away_team_id = a.id
			 WHERE h.name = ? AND a.name = ? AND m.home_score = ? AND m.away_score = ?`,
			parts[0], parts[1], hs, as).Scan(&matchID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("match detail %q: %w", key, err)
		}

		has, err := merge.HasGoals(ctx, conn, matchID)
		if err != nil {
			return err
		}
		if has {
			continue
		}

		events := make([]source.GoalEvent, 0, len(detail.G))
		for _, g := range detail.G {
			events = append(events, source.GoalEvent{
				Minute:       g.Minute,
				Player:       g.Player,
				RunningScore: g.RunningScore,
				Side:         g.Side,
				Type:         strOrEmpty(g.Type),
			})
		}
		n, err := merge.Goals(ctx, conn, matchID, events)
		res.Goals += n
		if err != nil {
			return fmt.Errorf("match detail %q: %w", key, err)
		}
	}
	return nil
}

func importScorers(ctx context.Context, conn *sql.DB, cfg *config.Config, seasonID int64, res *Result) error {
	text, err := readArtifact(cfg.DataDir, "data-goleadores.js")
	if err != nil {
		res.warnf("data-goleadores.js: %v", err)
		return nil
	}

	for _, cat := range cfg.Categories {
		raw, ok := ExtractJSON(text, cat.ScorersVar)
		if !ok {
			res.warnf("data-goleadores.js: const %s not found", cat.ScorersVar)
			continue
		}
		var entries []export.ScorerGroup
		if err := json.Unmarshal(raw, &entries); err != nil {
			res.warnf("data-goleadores.js: %s: %v", cat.ScorersVar, err)
			continue
		}

		for _, entry := range entries {
			code := ExtractGroupCode(entry.Group)
			if code == "" {
				res.warnf("scorers: no code for group %q", entry.Group)
				continue
			}
			groupID, ok, err := lookupGroup(ctx, conn, seasonID, cat.Name, code)
			if err != nil {
				return err
			}
			if !ok {
				res.warnf("scorers: group %q (code %s) not found in %s", entry.Group, code, cat.Name)
				continue
			}
			var mres merge.Result
			rows := make([]source.ScorerRow, 0, len(entry.Scorers))
			for _, s := range entry.Scorers {
				rows = append(rows, source.ScorerRow{Player: s.Player, Team: s.Team, Goals: s.Goals, Games: s.Games})
			}
			merge.Scorers(ctx, conn, groupID, rows, &mres)
			res.Scorers += mres.ScorersUpserted
			for _, w := range mres.Errors {
				res.warnf("scorers %s: %s", code, w)
			}
		}
	}
	return nil
}

// findGroup resolves a bare group code to an id by trying every configured
// category in order.
func findGroup(ctx context.Context, conn *sql.DB, cfg *config.Config, seasonID int64, code string) (int64, bool, error) {
	for _, cat := range cfg.Categories {
		id, ok, err := lookupGroup(ctx, conn, seasonID, cat.Name, code)
		if err != nil || ok {
			return id, ok, err
		}
	}
	return 0, false, nil
}

func lookupGroup(ctx context.Context, conn *sql.DB, seasonID int64, categoryName, code string) (int64, bool, error) {
	var id int64
	err := conn.QueryRowContext(ctx,
		`SELECT g.id FROM groups g
		 JOIN categories c ON g.category_id = c.id
		 WHERE g.season_id = ? AND g.code = ? AND c.name = ?`,
		seasonID, code, categoryName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup group %s/%s: %w", categoryName, code, err)
	}
	return id, true, nil
}

var (
	lanzaroteCodeRe   = regexp.MustCompile(`LANZAROTE\s+G(\d+)`)
	faseCodeRe        = regexp.MustCompile(`FASE\s+([A-C])-G(\d+)`)
	prebenjaminCodeRe = regexp.MustCompile(`PREBENJAMIN\s+GC\s+GRUPO\s+(\d+)`)
)

// ExtractGroupCode recovers the short group code from a goleadores display
// name. Returns "" when the name matches no known pattern.
func ExtractGroupCode(name string) string {
	s := strings.ToUpper(name)

	if strings.Contains(s, "FUERTEVENTURA") {
		switch {
		case strings.Contains(s, "ORO"):
			return "FO"
		case strings.Contains(s, "PLATA"):
			return "FP"
		case strings.Contains(s, "BRONCE"):
			return "FB"
		}
	}
	if m := lanzaroteCodeRe.FindStringSubmatch(s); m != nil {
		return "LZ" + m[1]
	}
	if m := faseCodeRe.FindStringSubmatch(s); m != nil {
		return m[1] + m[2]
	}
	if m := prebenjaminCodeRe.FindStringSubmatch(s); m != nil {
		return "PG" + m[1]
	}
	return ""
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
