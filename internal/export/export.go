// Package export builds the read views served by the HTTP API and written
// out as JS data artifacts. All join-heavy queries live here; the ingest
// path works on ids only.
package export

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/futbolbase/futbolbase/internal/db"
)

// StandingEntry is one classification row. It marshals as the positional
// array [pos, team, pts, J, G, E, P, GF, GC, DF] the frontend consumes.
type StandingEntry struct {
	Position     int
	Team         string
	Points       int
	Played       int
	Won          int
	Drawn        int
	Lost         int
	GoalsFor     int
	GoalsAgainst int
	GoalDiff     int
}

func (e StandingEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Position, e.Team, e.Points, e.Played, e.Won,
		e.Drawn, e.Lost, e.GoalsFor, e.GoalsAgainst, e.GoalDiff})
}

// MatchEntry is one fixture of the current round, marshaled as
// [date, time, home, away, homeScore, awayScore, venue].
type MatchEntry struct {
	Date      *string
	Time      *string
	Home      string
	Away      string
	HomeScore *int
	AwayScore *int
	Venue     *string
}

func (e MatchEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Date, e.Time, e.Home, e.Away, e.HomeScore, e.AwayScore, e.Venue})
}

// HistoryEntry is one past result, marshaled as [date, home, away, hs, as].
type HistoryEntry struct {
	Date      *string
	Home      string
	Away      string
	HomeScore *int
	AwayScore *int
}

func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Date, e.Home, e.Away, e.HomeScore, e.AwayScore})
}

// GoalEntry is one goal of a match detail, marshaled as
// [minute, player, runningScore, side, type].
type GoalEntry struct {
	Minute       int
	Player       string
	RunningScore string
	Side         string
	Type         *string
}

func (e GoalEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Minute, e.Player, e.RunningScore, e.Side, e.Type})
}

// ScorerEntry is one top-scorer row, marshaled as [player, team, goals, games].
type ScorerEntry struct {
	Player string
	Team   string
	Goals  int
	Games  int
}

func (e ScorerEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Player, e.Team, e.Goals, e.Games})
}

// GroupExport is one group with its classification and current-round
// fixtures, shaped for the frontend.
type GroupExport struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	FullName  string          `json:"fullName"`
	Phase     string          `json:"phase"`
	Island    string          `json:"island"`
	URL       string          `json:"url"`
	Jornada   string          `json:"jornada"`
	Standings []StandingEntry `json:"standings"`
	Matches   []MatchEntry    `json:"matches"`

	id int64
}

// CategoryStats summarizes a category's exported groups.
type CategoryStats struct {
	Groups int `json:"groups"`
	Teams  int `json:"teams"`
}

// RoundHistory is the results of one round.
type RoundHistory struct {
	Name    string
	Matches []HistoryEntry
}

// GroupHistory is one group's full results, rounds in numeric order. It
// marshals as an object keyed by round name, preserving that order.
type GroupHistory struct {
	Code   string
	Rounds []RoundHistory
}

func (g GroupHistory) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range g.Rounds {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.Matches)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// HistoryExport is the whole history view, groups in code order. It
// marshals as an object keyed by group code, preserving that order.
type HistoryExport struct {
	Groups       []GroupHistory
	TotalMatches int
}

func (h HistoryExport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range h.Groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.Code)
		if err != nil {
			return nil, err
		}
		val, err := g.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MatchDetail is the goal list of one finished match.
type MatchDetail struct {
	Key   string
	Goals []GoalEntry
}

// MatchDetailExport maps "Home|Away|hs-as" keys to goal lists, in match-id
// order.
type MatchDetailExport struct {
	Matches []MatchDetail
}

func (m MatchDetailExport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range m.Matches {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(struct {
			G []GoalEntry `json:"g"`
		}{d.Goals})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ScorerGroup is one group's top-scorer table under its display name.
type ScorerGroup struct {
	Group   string        `json:"g"`
	Scorers []ScorerEntry `json:"s"`
}

// CategoryGroups returns the current season's groups of a category, in
// code order, each with classification and current-round fixtures.
func CategoryGroups(ctx context.Context, q db.DBTX, categoryName string) ([]GroupExport, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT g.id, g.code, g.name, g.full_name, g.phase, g.island, g.url, g.current_round
		 FROM groups g
		 JOIN categories c ON g.category_id = c.id
		 JOIN seasons s ON g.season_id = s.id
		 WHERE c.name = ? AND s.is_current = 1
		 ORDER BY g.code`, categoryName)
	if err != nil {
		return nil, fmt.Errorf("list groups for %s: %w", categoryName, err)
	}
	defer rows.Close()

	var groups []GroupExport
	for rows.Next() {
		var g GroupExport
		var name, fullName, phase, island, url, round sql.NullString
		if err := rows.Scan(&g.id, &g.ID, &name, &fullName, &phase, &island, &url, &round); err != nil {
			return nil, err
		}
		g.Name = name.String
		g.FullName = fullName.String
		g.Phase = phase.String
		g.Island = island.String
		g.URL = url.String
		g.Jornada = round.String
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		g := &groups[i]
		if g.Standings, err = groupStandings(ctx, q, g.id); err != nil {
			return nil, err
		}
		if g.Jornada != "" {
			if g.Matches, err = roundMatches(ctx, q, g.id, g.Jornada); err != nil {
				return nil, err
			}
		}
		if g.Standings == nil {
			g.Standings = []StandingEntry{}
		}
		if g.Matches == nil {
			g.Matches = []MatchEntry{}
		}
	}
	return groups, nil
}

// Stats derives the groups/teams counters from an exported category.
func Stats(groups []GroupExport) CategoryStats {
	st := CategoryStats{Groups: len(groups)}
	for _, g := range groups {
		st.Teams += len(g.Standings)
	}
	return st
}

func groupStandings(ctx context.Context, q db.DBTX, groupID int64) ([]StandingEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT s.position, t.name, s.points, s.played, s.won, s.drawn, s.lost, s.gf, s.ga, s.gd
		 FROM standings s
		 JOIN teams t ON s.team_id = t.id
		 WHERE s.group_id = ?
		 ORDER BY s.position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("standings for group %d: %w", groupID, err)
	}
	defer rows.Close()

	var out []StandingEntry
	for rows.Next() {
		var e StandingEntry
		if err := rows.Scan(&e.Position, &e.Team, &e.Points, &e.Played, &e.Won,
			&e.Drawn, &e.Lost, &e.GoalsFor, &e.GoalsAgainst, &e.GoalDiff); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func roundMatches(ctx context.Context, q db.DBTX, groupID int64, round string) ([]MatchEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT m.date, m.time, h.name, a.name, m.home_score, m.away_score, m.venue
		 FROM matches m
		 JOIN teams h ON m.home_team_id = h.id
		 JOIN teams a ON m.away_team_id = a.id
		 WHERE m.group_id = ? AND m.round = ?
		 ORDER BY m.date, m.time, h.name`, groupID, round)
	if err != nil {
		return nil, fmt.Errorf("matches for group %d: %w", groupID, err)
	}
	defer rows.Close()

	var out []MatchEntry
	for rows.Next() {
		var e MatchEntry
		if err := rows.Scan(&e.Date, &e.Time, &e.Home, &e.Away, &e.HomeScore, &e.AwayScore, &e.Venue); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var roundNumberRe = regexp.MustCompile(`(\d+)`)

func roundSortKey(name string) int {
	if m := roundNumberRe.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// History returns every stored match of the current season, grouped by
// group code and round, rounds ordered by their embedded number.
func History(ctx context.Context, q db.DBTX) (*HistoryExport, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT g.code, m.round, m.date, h.name, a.name, m.home_score, m.away_score
		 FROM matches m
		 JOIN groups g ON m.group_id = g.id
		 JOIN seasons s ON g.season_id = s.id
		 JOIN teams h ON m.home_team_id = h.id
		 JOIN teams a ON m.away_team_id = a.id
		 WHERE s.is_current = 1
		 ORDER BY g.code, m.round, m.date, h.name`)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	byGroup := map[string]map[string][]HistoryEntry{}
	var codes []string
	out := &HistoryExport{}
	for rows.Next() {
		var code string
		var round sql.NullString
		var e HistoryEntry
		if err := rows.Scan(&code, &round, &e.Date, &e.Home, &e.Away, &e.HomeScore, &e.AwayScore); err != nil {
			return nil, err
		}
		if byGroup[code] == nil {
			byGroup[code] = map[string][]HistoryEntry{}
			codes = append(codes, code)
		}
		byGroup[code][round.String] = append(byGroup[code][round.String], e)
		out.TotalMatches++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(codes)
	for _, code := range codes {
		gh := GroupHistory{Code: code}
		names := make([]string, 0, len(byGroup[code]))
		for name := range byGroup[code] {
			names = append(names, name)
		}
		sort.SliceStable(names, func(i, j int) bool {
			return roundSortKey(names[i]) < roundSortKey(names[j])
		})
		for _, name := range names {
			gh.Rounds = append(gh.Rounds, RoundHistory{Name: name, Matches: byGroup[code][name]})
		}
		out.Groups = append(out.Groups, gh)
	}
	return out, nil
}

// MatchDetails returns goal lists for every match that has at least one
// goal row, keyed by "Home|Away|hs-as".
func MatchDetails(ctx context.Context, q db.DBTX) (*MatchDetailExport, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT DISTINCT m.id, h.name, a.name, m.home_score, m.away_score
		 FROM matches m
		 JOIN teams h ON m.home_team_id = h.id
		 JOIN teams a ON m.away_team_id = a.id
		 JOIN goals g ON g.match_id = m.id
		 ORDER BY m.id`)
	if err != nil {
		return nil, fmt.Errorf("match details: %w", err)
	}
	defer rows.Close()

	type matchRow struct {
		id                   int64
		home, away           string
		homeScore, awayScore sql.NullInt64
	}
	var matches []matchRow
	for rows.Next() {
		var m matchRow
		if err := rows.Scan(&m.id, &m.home, &m.away, &m.homeScore, &m.awayScore); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := &MatchDetailExport{}
	for _, m := range matches {
		goals, err := matchGoals(ctx, q, m.id)
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%s|%s|%d-%d", m.home, m.away, m.homeScore.Int64, m.awayScore.Int64)
		out.Matches = append(out.Matches, MatchDetail{Key: key, Goals: goals})
	}
	return out, nil
}

func matchGoals(ctx context.Context, q db.DBTX, matchID int64) ([]GoalEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT minute, player_name, running_score, side, type
		 FROM goals WHERE match_id = ? ORDER BY minute, id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("goals for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var out []GoalEntry
	for rows.Next() {
		var e GoalEntry
		if err := rows.Scan(&e.Minute, &e.Player, &e.RunningScore, &e.Side, &e.Type); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Shields returns the team → shield filename map for every team that has
// one.
func Shields(ctx context.Context, q db.DBTX) (map[string]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT name, shield_filename FROM teams WHERE shield_filename IS NOT NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("shields: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, filename string
		if err := rows.Scan(&name, &filename); err != nil {
			return nil, err
		}
		out[name] = filename
	}
	return out, rows.Err()
}

// GroupScorers returns a group's top scorers, best first.
func GroupScorers(ctx context.Context, q db.DBTX, groupID int64) ([]ScorerEntry, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT s.player_name, t.name, s.goals, s.games
		 FROM scorers s
		 JOIN teams t ON s.team_id = t.id
		 WHERE s.group_id = ?
		 ORDER BY s.goals DESC, s.games ASC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("scorers for group %d: %w", groupID, err)
	}
	defer rows.Close()

	var out []ScorerEntry
	for rows.Next() {
		var e ScorerEntry
		if err := rows.Scan(&e.Player, &e.Team, &e.Goals, &e.Games); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CategoryScorers returns the per-group top-scorer tables of a category,
// each under its goleadores display name. Groups without scorers are
// omitted.
func CategoryScorers(ctx context.Context, q db.DBTX, categoryName string) ([]ScorerGroup, error) {
	groups, err := CategoryGroups(ctx, q, categoryName)
	if err != nil {
		return nil, err
	}

	var out []ScorerGroup
	for _, g := range groups {
		scorers, err := GroupScorers(ctx, q, g.id)
		if err != nil {
			return nil, err
		}
		if len(scorers) == 0 {
			continue
		}
		out = append(out, ScorerGroup{
			Group:   ScorerGroupName(g.ID, g.FullName, categoryName),
			Scorers: scorers,
		})
	}
	return out, nil
}
