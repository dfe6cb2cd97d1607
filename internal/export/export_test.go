package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/futbolbase/futbolbase/internal/db"
	"github.com/futbolbase/futbolbase/internal/merge"
	"github.com/futbolbase/futbolbase/internal/resolver"
	"github.com/futbolbase/futbolbase/internal/source"
)

func seedStore(t *testing.T, conn *sql.DB) {
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
		Phase: "Segunda", Island: "grancanaria", CurrentRound: "Jornada 2",
	})
	if err != nil {
		t.Fatal(err)
	}

	var res merge.Result
	merge.Matches(ctx, conn, groupID, []source.MatchRecord{
		{Round: "Jornada 1", Date: "2025-11-21", Home: "CD Arenas", Away: "UD Vecindario",
			HomeScore: source.IntPtr(3), AwayScore: source.IntPtr(1)},
		{Round: "Jornada 2", Date: "28/11", Time: "17:00", Home: "UD Vecindario", Away: "CD Arenas",
			Venue: "Campo Sur"},
		{Round: "Jornada 10", Date: "2026-02-06", Home: "CD Arenas", Away: "UD Vecindario",
			HomeScore: source.IntPtr(0), AwayScore: source.IntPtr(0)},
	}, &res)
	merge.Standings(ctx, conn, groupID, []source.StandingRow{
		{Position: 1, Team: "CD Arenas", Points: 4, Played: 2, Won: 1, Drawn: 1,
			GoalsFor: 3, GoalsAgainst: 1, GoalDiff: 2},
		{Position: 2, Team: "UD Vecindario", Points: 1, Played: 2, Drawn: 1, Lost: 1,
			GoalsFor: 1, GoalsAgainst: 3, GoalDiff: -2},
	}, &res)
	merge.Scorers(ctx, conn, groupID, []source.ScorerRow{
		{Player: "PEDRO SANTANA", Team: "CD Arenas", Goals: 3, Games: 2},
		{Player: "KILIAN HERNANDEZ", Team: "UD Vecindario", Goals: 3, Games: 1},
	}, &res)
	if len(res.Errors) > 0 {
		t.Fatalf("seed errors: %v", res.Errors)
	}

	if _, err := resolver.Team(ctx, conn, "CD Arenas", "arenas.png"); err != nil {
		t.Fatal(err)
	}

	var matchID int64
	err = conn.QueryRow("SELECT id FROM matches WHERE round = 'Jornada 1'").Scan(&matchID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := merge.Goals(ctx, conn, matchID, []source.GoalEvent{
		{Minute: 40, Player: "PEDRO SANTANA", RunningScore: "2-1", Side: source.SideHome},
		{Minute: 10, Player: "PEDRO SANTANA", RunningScore: "1-0", Side: source.SideHome},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestCategoryGroups(t *testing.T) {
	conn := db.OpenMemory(t)
	seedStore(t, conn)

	groups, err := CategoryGroups(context.Background(), conn, "BENJAMIN")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}

	g := groups[0]
	if g.ID != "A1" || g.Jornada != "Jornada 2" {
		t.Fatalf("unexpected group: %+v", g)
	}
	if len(g.Standings) != 2 {
		t.Fatalf("got %d standings rows, want 2", len(g.Standings))
	}
	if g.Standings[0].Team != "CD Arenas" || g.Standings[0].Position != 1 {
		t.Fatalf("unexpected leader: %+v", g.Standings[0])
	}
	// Only the current round's fixtures.
	if len(g.Matches) != 1 {
		t.Fatalf("got %d current matches, want 1", len(g.Matches))
	}
	m := g.Matches[0]
	if m.Home != "UD Vecindario" || m.HomeScore != nil {
		t.Fatalf("unexpected current match: %+v", m)
	}

	stats := Stats(groups)
	if stats.Groups != 1 || stats.Teams != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestStandingEntryMarshalsAsArray(t *testing.T) {
	e := StandingEntry{Position: 1, Team: "CD Arenas", Points: 4, Played: 2, Won: 1,
		Drawn: 1, GoalsFor: 3, GoalsAgainst: 1, GoalDiff: 2}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	want := `[1,"CD Arenas",4,2,1,1,0,3,1,2]`
	if string(data) != want {
		t.Fatalf("marshal = %s, want %s", data, want)
	}
}

func TestHistoryRoundOrderIsNumeric(t *testing.T) {
	conn := db.OpenMemory(t)
	seedStore(t, conn)

	h, err := History(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	if h.TotalMatches != 3 {
		t.Fatalf("total = %d, want 3", h.TotalMatches)
	}
	if len(h.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(h.Groups))
	}

	rounds := h.Groups[0].Rounds
	names := make([]string, len(rounds))
	for i, r := range rounds {
		names[i] = r.Name
	}
	// Lexical order would put Jornada 10 before Jornada 2.
	want := []string{"Jornada 1", "Jornada 2", "Jornada 10"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("round order = %v, want %v", names, want)
		}
	}

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Index(string(data), `"Jornada 2"`) > strings.Index(string(data), `"Jornada 10"`) {
		t.Fatalf("marshaled rounds out of order: %s", data)
	}
}

func TestMatchDetails(t *testing.T) {
	conn := db.OpenMemory(t)
	seedStore(t, conn)

	details, err := MatchDetails(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	if len(details.Matches) != 1 {
		t.Fatalf("got %d details, want 1", len(details.Matches))
	}

	d := details.Matches[0]
	if d.Key != "CD Arenas|UD Vecindario|3-1" {
		t.Fatalf("key = %q", d.Key)
	}
	if len(d.Goals) != 2 {
		t.Fatalf("got %d goals, want 2", len(d.Goals))
	}
	// Minute order, not insertion order.
	if d.Goals[0].Minute != 10 || d.Goals[1].Minute != 40 {
		t.Fatalf("goals out of order: %+v", d.Goals)
	}
}

func TestShields(t *testing.T) {
	conn := db.OpenMemory(t)
	seedStore(t, conn)

	shields, err := Shields(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	if len(shields) != 1 || shields["CD Arenas"] != "arenas.png" {
		t.Fatalf("shields = %v", shields)
	}
}

func TestCategoryScorers(t *testing.T) {
	conn := db.OpenMemory(t)
	seedStore(t, conn)

	entries, err := CategoryScorers(context.Background(), conn, "BENJAMIN")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d scorer groups, want 1", len(entries))
	}
	if entries[0].Group != "BENJAMIN SEGUNDA FASE A-G1" {
		t.Fatalf("display name = %q", entries[0].Group)
	}
	// Equal goals: fewer games first.
	if entries[0].Scorers[0].Player != "KILIAN HERNANDEZ" {
		t.Fatalf("scorer order: %+v", entries[0].Scorers)
	}
}

func TestScorerGroupName(t *testing.T) {
	cases := []struct {
		code, fullName, category, want string
	}{
		{"A1", "SEGUNDA FASE BENJAMIN A-G1", "BENJAMIN", "BENJAMIN SEGUNDA FASE A-G1"},
		{"LZ1", "Benjamin Lanzarote Grupo 1", "BENJAMIN", "BENJAMIN PRIMERA LANZAROTE G1"},
		{"FO", "Benjamin Fuerteventura Liga Oro", "BENJAMIN", "BENJAMIN FUERTEVENTURA LIGA ORO"},
		{"PG1", "PREBENJAMIN PRIMERA GRAN CANARIA G-1", "PREBENJAMIN", "PREBENJAMIN GC GRUPO 1"},
	}
	for _, c := range cases {
		if got := ScorerGroupName(c.code, c.fullName, c.category); got != c.want {
			t.Errorf("ScorerGroupName(%q) = %q, want %q", c.fullName, got, c.want)
		}
	}
}
