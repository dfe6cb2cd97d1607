package mygol

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/futbolbase/futbolbase/internal/source"
)

// StatusPlayed is the match status code for a finished match.
const StatusPlayed = 5

// API payload shapes.

type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Stage struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Group struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	IDStage int    `json:"idStage"`
}

type Tournament struct {
	ID     int     `json:"id"`
	Teams  []Team  `json:"teams"`
	Groups []Group `json:"groups"`
	Stages []Stage `json:"stages"`
}

type Field struct {
	Name string `json:"name"`
}

type Match struct {
	IDGroup       int    `json:"idGroup"`
	IDHomeTeam    int    `json:"idHomeTeam"`
	IDVisitorTeam int    `json:"idVisitorTeam"`
	HomeScore     int    `json:"homeScore"`
	VisitorScore  int    `json:"visitorScore"`
	Status        int    `json:"status"`
	StartTime     string `json:"startTime"`
	IDField       int    `json:"idField"`
	Field         Field  `json:"field"`
}

type MatchDay struct {
	Name    string  `json:"name"`
	IDGroup int     `json:"idGroup"`
	Matches []Match `json:"matches"`
}

type ClassificationEntry struct {
	IDTeam           int `json:"idTeam"`
	IDGroup          int `json:"idGroup"`
	TournamentPoints int `json:"tournamentPoints"`
	GamesPlayed      int `json:"gamesPlayed"`
	GamesWon         int `json:"gamesWon"`
	GamesDraw        int `json:"gamesDraw"`
	GamesLost        int `json:"gamesLost"`
}

// GroupData is the fully-normalized output for one tournament group.
type GroupData struct {
	Meta      source.GroupMeta
	Standings []source.StandingRow
	Current   []source.MatchRecord
	History   []source.MatchRecord
}

// BuildGroups assembles canonical records for every group of a tournament.
// Group codes are prefix+ordinal (assigned by us, the API has no stable
// short code). Goals for/against are summed from played-match scores, never
// taken from an API aggregate.
func BuildGroups(t *Tournament, days []MatchDay, classification []ClassificationEntry, codePrefix, island string) []GroupData {
	teamNames := make(map[int]string, len(t.Teams))
	for _, tm := range t.Teams {
		teamNames[tm.ID] = titleCase(tm.Name)
	}
	stages := make(map[int]Stage, len(t.Stages))
	for _, s := range t.Stages {
		stages[s.ID] = s
	}

	classByGroup := make(map[int][]ClassificationEntry)
	for _, e := range classification {
		classByGroup[e.IDGroup] = append(classByGroup[e.IDGroup], e)
	}
	daysByGroup := make(map[int][]MatchDay)
	for _, day := range days {
		gid := day.IDGroup
		if len(day.Matches) > 0 {
			gid = day.Matches[0].IDGroup
		}
		daysByGroup[gid] = append(daysByGroup[gid], day)
	}

	singleGroup := len(t.Groups) == 1

	out := make([]GroupData, 0, len(t.Groups))
	for i, g := range t.Groups {
		groupDays := daysByGroup[g.ID]
		groupClass := classByGroup[g.ID]
		if singleGroup {
			// Some tournaments never tag matches/classification with a
			// group id; with one group everything belongs to it.
			if len(groupDays) == 0 {
				groupDays = days
			}
			if len(groupClass) == 0 {
				groupClass = classification
			}
		}

		roundName, current := currentRound(groupDays)
		if roundName == "" {
			roundName = "Jornada 1"
		}

		gd := GroupData{
			Standings: buildStandings(groupClass, groupDays, teamNames),
			Current:   buildCurrentMatches(roundName, current, teamNames),
			History:   buildHistory(groupDays, teamNames),
		}

		stage := stages[g.IDStage]
		name := g.Name
		if name == "" {
			name = fmt.Sprintf("Grupo %d", i+1)
		}
		fullName := name
		if stage.Name != "" {
			fullName = strings.Trim(stage.Name+" - "+name, " -")
		}
		gd.Meta = source.GroupMeta{
			Code:         fmt.Sprintf("%s%d", codePrefix, i+1),
			Name:         name,
			FullName:     fullName,
			Phase:        stage.Name,
			Island:       island,
			CurrentRound: roundName,
		}

		out = append(out, gd)
	}
	return out
}

// currentRound picks the LAST match day containing at least one played
// match; when nothing has been played yet, the FIRST match day.
func currentRound(days []MatchDay) (string, []Match) {
	for i := len(days) - 1; i >= 0; i-- {
		for _, m := range days[i].Matches {
			if m.Status == StatusPlayed {
				return days[i].Name, days[i].Matches
			}
		}
	}
	if len(days) > 0 {
		return days[0].Name, days[0].Matches
	}
	return "", nil
}

func buildStandings(entries []ClassificationEntry, days []MatchDay, teamNames map[int]string) []source.StandingRow {
	gf, ga := computeGoals(days, entries)

	rows := make([]source.StandingRow, 0, len(entries))
	for i, e := range entries {
		name := teamNames[e.IDTeam]
		if name == "" {
			name = fmt.Sprintf("Equipo %d", e.IDTeam)
		}
		rows = append(rows, source.StandingRow{
			Position:     i + 1,
			Team:         name,
			Points:       e.TournamentPoints,
			Played:       e.GamesPlayed,
			Won:          e.GamesWon,
			Drawn:        e.GamesDraw,
			Lost:         e.GamesLost,
			GoalsFor:     gf[e.IDTeam],
			GoalsAgainst: ga[e.IDTeam],
			GoalDiff:     gf[e.IDTeam] - ga[e.IDTeam],
		})
	}
	return rows
}

// computeGoals sums goals for/against per classified team from played
// matches only.
func computeGoals(days []MatchDay, entries []ClassificationEntry) (map[int]int, map[int]int) {
	gf := make(map[int]int, len(entries))
	ga := make(map[int]int, len(entries))
	for _, e := range entries {
		gf[e.IDTeam], ga[e.IDTeam] = 0, 0
	}
	for _, day := range days {
		for _, m := range day.Matches {
			if m.Status != StatusPlayed {
				continue
			}
			if _, ok := gf[m.IDHomeTeam]; ok {
				gf[m.IDHomeTeam] += m.HomeScore
				ga[m.IDHomeTeam] += m.VisitorScore
			}
			if _, ok := gf[m.IDVisitorTeam]; ok {
				gf[m.IDVisitorTeam] += m.VisitorScore
				ga[m.IDVisitorTeam] += m.HomeScore
			}
		}
	}
	return gf, ga
}

func buildCurrentMatches(round string, matches []Match, teamNames map[int]string) []source.MatchRecord {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartTime < sorted[j].StartTime })

	out := make([]source.MatchRecord, 0, len(sorted))
	for _, m := range sorted {
		date, tm := parseStartTime(m.StartTime)
		rec := source.MatchRecord{
			Round: round,
			Date:  date,
			Time:  tm,
			Home: teamName(teamNames, m.IDHomeTeam),
			Away: teamName(teamNames, m.IDVisitorTeam),
		}
		if m.IDField > 0 {
			rec.Venue = m.Field.Name
		}
		if m.Status == StatusPlayed {
			rec.HomeScore = source.IntPtr(m.HomeScore)
			rec.AwayScore = source.IntPtr(m.VisitorScore)
		}
		out = append(out, rec)
	}
	return out
}

func buildHistory(days []MatchDay, teamNames map[int]string) []source.MatchRecord {
	var out []source.MatchRecord
	for _, day := range days {
		for _, m := range day.Matches {
			if m.Status != StatusPlayed {
				continue
			}
			iso, ok := isoStartDate(m.StartTime)
			if !ok {
				continue
			}
			out = append(out, source.MatchRecord{
				Round:     day.Name,
				Date:      iso,
				Home:      teamName(teamNames, m.IDHomeTeam),
				Away:      teamName(teamNames, m.IDVisitorTeam),
				HomeScore: source.IntPtr(m.HomeScore),
				AwayScore: source.IntPtr(m.VisitorScore),
			})
		}
	}
	return out
}

func teamName(names map[int]string, id int) string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("Equipo %d", id)
}

var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseStartTime renders a start timestamp as ("DD/MM", "HH:MM"). The API
// marks unscheduled matches with sentinel years; those render as unknown
// rather than being parsed.
func parseStartTime(s string) (string, string) {
	ts, ok := parseStart(s)
	if !ok {
		return "", ""
	}
	return ts.Format("02/01"), ts.Format("15:04")
}

// isoStartDate renders a start timestamp as ISO "YYYY-MM-DD".
func isoStartDate(s string) (string, bool) {
	ts, ok := parseStart(s)
	if !ok {
		return "", false
	}
	return ts.Format("2006-01-02"), true
}

func parseStart(s string) (time.Time, bool) {
	if s == "" || strings.HasPrefix(s, "0001") || strings.HasPrefix(s, "1901") {
		return time.Time{}, false
	}
	for _, layout := range startTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// titleCase mirrors the upstream display convention: every word capitalized,
// the rest lowered ("C.D. SAN JOSE" → "C.d. San Jose" is avoided by keeping
// single-letter dot groups intact).
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		runes := []rune(w)
		upper := true
		for j, r := range runes {
			if upper {
				runes[j] = []rune(strings.ToUpper(string(r)))[0]
			}
			upper = r == '.' || r == '-' || r == '\''
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
