package fap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/futbolbase/futbolbase/internal/source"
)

// Fixture tables are a flat run of <tr> rows: a one-cell row whose text
// starts with "JORNADA <n>" opens a round section, seven-cell rows inside a
// section are fixtures (date, time, home, home score, away score, away,
// venue). Rows outside any section are noise and dropped.

var roundHeaderRe = regexp.MustCompile(`(?i)^JORNADA\s+(\d+)`)

// cleanDateRe strips everything but digits and date separators.
var cleanDateRe = regexp.MustCompile(`[^\d\-/]`)

var dateSplitRe = regexp.MustCompile(`[-/]`)

const (
	historyYearMin = 2020
	historyYearMax = 2030
)

type roundSection struct {
	name string
	rows [][]string
}

// collectRounds walks the document's table rows once and groups fixture rows
// under their round headers in document order.
func collectRounds(html string) ([]roundSection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", source.ErrParse, err)
	}

	var rounds []roundSection
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		switch len(cells) {
		case 1:
			if m := roundHeaderRe.FindStringSubmatch(cells[0]); m != nil {
				rounds = append(rounds, roundSection{name: "Jornada " + m[1]})
			}
		case 7:
			if len(rounds) > 0 {
				last := &rounds[len(rounds)-1]
				last.rows = append(last.rows, cells)
			}
		}
	})
	return rounds, nil
}

// CurrentRound extracts the current round — by policy the LAST round section
// in document order, with no attempt to verify the round is finished — and
// its fixtures. Scores that do not parse as a full pair are reported as
// unplayed rather than dropped.
func CurrentRound(html string) (string, []source.MatchRecord, error) {
	rounds, err := collectRounds(html)
	if err != nil {
		return "", nil, err
	}
	if len(rounds) == 0 {
		return "", nil, fmt.Errorf("%w: no round sections found", source.ErrParse)
	}

	last := rounds[len(rounds)-1]
	matches := make([]source.MatchRecord, 0, len(last.rows))
	for _, cells := range last.rows {
		rec := source.MatchRecord{
			Round: last.name,
			Date:  shortDate(cells[0]),
			Time:  normalizeTime(cells[1]),
			Home:  cells[2],
			Away:  cells[5],
			Venue: cells[6],
		}
		if hs, as, ok := parseScores(cells[3], cells[4]); ok {
			rec.HomeScore, rec.AwayScore = source.IntPtr(hs), source.IntPtr(as)
		}
		matches = append(matches, rec)
	}
	return last.name, matches, nil
}

// History walks the same row stream but keeps fixtures from EVERY round,
// retaining only rows whose date carries an in-range 4-digit year and whose
// score cells both parse. Rows failing either test are silently skipped.
func History(html string) ([]source.MatchRecord, error) {
	rounds, err := collectRounds(html)
	if err != nil {
		return nil, err
	}

	var matches []source.MatchRecord
	for _, round := range rounds {
		for _, cells := range round.rows {
			iso, ok := isoDate(cells[0])
			if !ok {
				continue
			}
			hs, as, ok := parseScores(cells[3], cells[4])
			if !ok {
				continue
			}
			matches = append(matches, source.MatchRecord{
				Round:     round.name,
				Date:      iso,
				Home:      cells[2],
				Away:      cells[5],
				HomeScore: source.IntPtr(hs),
				AwayScore: source.IntPtr(as),
			})
		}
	}
	return matches, nil
}

func parseScores(homeRaw, awayRaw string) (int, int, bool) {
	hs, err1 := strconv.Atoi(strings.TrimSpace(homeRaw))
	as, err2 := strconv.Atoi(strings.TrimSpace(awayRaw))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return hs, as, true
}

// shortDate normalizes a raw date cell to "D/M": "28-11-2025" → "28/11".
// Cells without at least day and month come back cleaned but otherwise
// untouched.
func shortDate(raw string) string {
	cleaned := strings.TrimSpace(cleanDateRe.ReplaceAllString(raw, ""))
	parts := dateSplitRe.Split(cleaned, -1)
	if len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return cleaned
}

// isoDate reassembles a raw date cell as ISO "YYYY-MM-DD" when it contains a
// 4-digit year in the accepted range; the first two groups of one or two
// digits are taken as day and month in that order.
func isoDate(raw string) (string, bool) {
	cleaned := strings.TrimSpace(cleanDateRe.ReplaceAllString(raw, ""))
	parts := dateSplitRe.Split(cleaned, -1)

	year := 0
	var dayMonth []int
	for _, p := range parts {
		if len(p) == 4 {
			if y, err := strconv.Atoi(p); err == nil && y >= historyYearMin && y <= historyYearMax {
				year = y
			}
			continue
		}
		if len(p) >= 1 && len(p) <= 2 && len(dayMonth) < 2 {
			if n, err := strconv.Atoi(p); err == nil {
				dayMonth = append(dayMonth, n)
			}
		}
	}
	if year == 0 || len(dayMonth) < 2 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, dayMonth[1], dayMonth[0]), true
}

// normalizeTime strips the trailing hour suffix: "17:00h" → "17:00".
func normalizeTime(raw string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "h"))
}
