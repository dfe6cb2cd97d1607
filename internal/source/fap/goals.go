package fap

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/futbolbase/futbolbase/internal/source"
)

// The acta fragment carries exactly two marked goal blocks in document
// order: home side first, away side second. Each block is a run of
// "<minute>' - <player>" lines.

var (
	goalBlockRe = regexp.MustCompile(`(?s)<ul[^>]*class="[^"]*acta-goles[^"]*"[^>]*>(.*?)</ul>`)
	goalLineRe  = regexp.MustCompile(`(\d+)['′]\s*-\s*([^<\r\n]+)`)
)

// ParseActa extracts the goal events of one match. The two side blocks are
// merged into a single chronological sequence ordered by minute (same-minute
// goals keep block order) and the running score is computed event by event;
// whatever score strings the fragment itself renders are ignored.
func ParseActa(html string) ([]source.GoalEvent, error) {
	blocks := goalBlockRe.FindAllStringSubmatch(html, -1)
	if len(blocks) != 2 {
		return nil, fmt.Errorf("%w: acta: found %d goal blocks, want 2", source.ErrParse, len(blocks))
	}

	events := parseGoalLines(blocks[0][1], source.SideHome)
	events = append(events, parseGoalLines(blocks[1][1], source.SideAway)...)

	sort.SliceStable(events, func(i, j int) bool { return events[i].Minute < events[j].Minute })

	home, away := 0, 0
	for i := range events {
		if events[i].Side == source.SideHome {
			home++
		} else {
			away++
		}
		events[i].RunningScore = fmt.Sprintf("%d-%d", home, away)
	}
	return events, nil
}

func parseGoalLines(block, side string) []source.GoalEvent {
	var events []source.GoalEvent
	for _, m := range goalLineRe.FindAllStringSubmatch(block, -1) {
		minute, _ := strconv.Atoi(m[1])
		player := strings.TrimSpace(m[2])
		if player == "" {
			continue
		}
		events = append(events, source.GoalEvent{
			Minute: minute,
			Player: player,
			Side:   side,
		})
	}
	return events
}
