package fap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/futbolbase/futbolbase/internal/source"
)

// The classification widget is styled HTML with no stable table structure;
// standings are recovered by three independent scans and re-zipped. The
// point-total count is the ground truth for the number of teams.

var (
	// Team display names: divs carrying the fw-bolder class.
	teamNameRe = regexp.MustCompile(`fw-bolder[^>]*>([^<]+)`)

	// Point totals: fw-bold divs with a position-dependent bg-* class.
	pointsRe = regexp.MustCompile(`fw-bold[^"]*bg-[^"]*"[^>]*>\s*(\d+)\s*<`)

	// Flat run of per-team stats (played, won, drawn, lost, for, against,
	// difference): divs with the border-start class.
	statsRe = regexp.MustCompile(`border-start[^"]*"[^>]*>\s*(-?\d+)\s*<`)

	// Shield images: filename plus the team display name in the alt text.
	shieldRe = regexp.MustCompile(`<img[^>]*src="[^"]*escudos/([^"]+)"[^>]*alt="([^"]+)"`)

	// Optional size prefix on shield filenames, e.g. "64x64escudo.png".
	sizePrefixRe = regexp.MustCompile(`^\d+x\d+`)

	// Team code side table: links into the per-team page carry the
	// source-side team code used by the acta endpoint.
	teamCodeRe = regexp.MustCompile(`equipo\.php\?cod=(\d+)[^>]*>([^<]+)<`)
)

const statsPerTeam = 7

// ParseStandings recovers the classification from the widget HTML. If the
// flat stats run is shorter than 7×teamCount the document is malformed and
// no standings are returned.
func ParseStandings(html string) ([]source.StandingRow, error) {
	var names []string
	for _, m := range teamNameRe.FindAllStringSubmatch(html, -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			names = append(names, name)
		}
	}

	var points []int
	for _, m := range pointsRe.FindAllStringSubmatch(html, -1) {
		n, _ := strconv.Atoi(m[1])
		points = append(points, n)
	}

	var stats []int
	for _, m := range statsRe.FindAllStringSubmatch(html, -1) {
		n, _ := strconv.Atoi(m[1])
		stats = append(stats, n)
	}

	teamCount := len(points)
	if len(names) == 0 || teamCount == 0 || len(stats) < teamCount*statsPerTeam {
		return nil, fmt.Errorf("%w: classification widget: names=%d points=%d stats=%d",
			source.ErrParse, len(names), teamCount, len(stats))
	}
	if len(names) > teamCount {
		names = names[:teamCount]
	}

	rows := make([]source.StandingRow, 0, teamCount)
	for i, name := range names {
		s := stats[i*statsPerTeam : i*statsPerTeam+statsPerTeam]
		rows = append(rows, source.StandingRow{
			Position:     i + 1,
			Team:         name,
			Points:       points[i],
			Played:       s[0],
			Won:          s[1],
			Drawn:        s[2],
			Lost:         s[3],
			GoalsFor:     s[4],
			GoalsAgainst: s[5],
			GoalDiff:     s[6],
		})
	}
	return rows, nil
}

// ParseShields extracts team shield references from the widget HTML. Any
// leading size prefix on the filename is stripped before use.
func ParseShields(html string) []source.Shield {
	var shields []source.Shield
	for _, m := range shieldRe.FindAllStringSubmatch(html, -1) {
		filename := sizePrefixRe.ReplaceAllString(strings.TrimSpace(m[1]), "")
		team := strings.TrimSpace(m[2])
		if filename == "" || team == "" {
			continue
		}
		shields = append(shields, source.Shield{Team: team, Filename: filename})
	}
	return shields
}

// ParseTeamCodes extracts the source-side team codes from a group's main
// page. The acta endpoint identifies fixtures by these codes, so a team
// missing here simply cannot be enriched.
func ParseTeamCodes(html string) map[string]string {
	codes := make(map[string]string)
	for _, m := range teamCodeRe.FindAllStringSubmatch(html, -1) {
		team := strings.TrimSpace(m[2])
		if team != "" {
			codes[team] = m[1]
		}
	}
	return codes
}
