package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/futbolbase/futbolbase/internal/config"
	"github.com/futbolbase/futbolbase/internal/db"
	"github.com/futbolbase/futbolbase/internal/export"
	"github.com/futbolbase/futbolbase/internal/source/mygol"
)

const groupPageHTML = `<table>
<tr><td>JORNADA 1</td></tr>
<tr><td>21-11-2025</td><td>17:00h</td><td>CD Arenas</td><td>3</td><td>1</td><td>UD Vecindario</td><td>Campo Municipal</td></tr>
<tr><td colspan="7">JORNADA 2</td></tr>
<tr><td>28-11-2025</td><td>12:00h</td><td>UD Vecindario</td><td>-</td><td>-</td><td>CD Arenas</td><td>Campo Sur</td></tr>
</table>
<a href="equipo.php?cod=101">CD Arenas</a>
<a href="equipo.php?cod=102">UD Vecindario</a>`

const classificationHTML = `<div class="fw-bolder">CD Arenas</div>
<img src="/img/escudos/64x64arenas.png" alt="CD Arenas">
<div class="fw-bold bg-primary">3</div>
<div class="border-start">1</div><div class="border-start">1</div><div class="border-start">0</div>
<div class="border-start">0</div><div class="border-start">3</div><div class="border-start">1</div>
<div class="border-start">2</div>
<div class="fw-bolder">UD Vecindario</div>
<img src="/img/escudos/vecindario.png" alt="UD Vecindario">
<div class="fw-bold bg-secondary">0</div>
<div class="border-start">1</div><div class="border-start">0</div><div class="border-start">0</div>
<div class="border-start">1</div><div class="border-start">1</div><div class="border-start">3</div>
<div class="border-start">-2</div>`

const actaHTML = `<ul class="acta-goles"><li>10' - PEDRO SANTANA</li><li>40' - AIRAM GUEDES</li></ul>
<ul class="acta-goles"><li>12' - KILIAN HERNANDEZ</li></ul>`

type fakeFAP struct {
	page, classification, acta string
	pageErr, classificationErr error
	actaCalls                  int
}

func (f *fakeFAP) GroupPage(ctx context.Context, groupURL string) (string, error) {
	return f.page, f.pageErr
}

func (f *fakeFAP) Classification(ctx context.Context, groupURL string) (string, error) {
	return f.classification, f.classificationErr
}

func (f *fakeFAP) Acta(ctx context.Context, groupURL, homeCode, awayCode string) (string, error) {
	f.actaCalls++
	return f.acta, nil
}

type fakeMyGol struct {
	tournament *mygol.Tournament
	days       []mygol.MatchDay
	class      []mygol.ClassificationEntry
	err        error
}

func (f *fakeMyGol) Tournament(ctx context.Context, id int) (*mygol.Tournament, error) {
	return f.tournament, f.err
}

func (f *fakeMyGol) MatchDays(ctx context.Context, tournamentID int) ([]mygol.MatchDay, error) {
	return f.days, f.err
}

func (f *fakeMyGol) StageClassification(ctx context.Context, stageID int) ([]mygol.ClassificationEntry, error) {
	return f.class, f.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scrapedConfig() *config.Config {
	return &config.Config{
		SeasonName: "2025-2026",
		StartYear:  2025,
		EndYear:    2026,
		Categories: []config.CategoryConfig{{
			Name:   "BENJAMIN",
			Source: config.SourceFAP,
			Groups: []config.GroupConfig{{Code: "A1", URL: "https://example.org/a1"}},
		}},
	}
}

func mygolConfig() *config.Config {
	return &config.Config{
		SeasonName: "2025-2026",
		StartYear:  2025,
		EndYear:    2026,
		Categories: []config.CategoryConfig{{
			Name:       "BENJAMIN",
			Source:     config.SourceMyGol,
			Tournament: config.TournamentConfig{ID: 86, CodePrefix: "BEN", Island: "grancanaria"},
		}},
	}
}

func countRows(t *testing.T, conn *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestRunScrapedGroup(t *testing.T) {
	conn := db.OpenMemory(t)
	fap := &fakeFAP{page: groupPageHTML, classification: classificationHTML, acta: actaHTML}

	p := New(conn, scrapedConfig(), fap, &fakeMyGol{}, discard())
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.GroupsProcessed != 1 || res.GroupsSkipped != 0 {
		t.Fatalf("processed=%d skipped=%d", res.GroupsProcessed, res.GroupsSkipped)
	}
	if len(res.Merge.Errors) > 0 {
		t.Fatalf("merge errors: %v", res.Merge.Errors)
	}

	// One played match from history plus the unplayed current fixture.
	if n := countRows(t, conn, "matches"); n != 2 {
		t.Fatalf("matches = %d", n)
	}
	if n := countRows(t, conn, "standings"); n != 2 {
		t.Fatalf("standings = %d", n)
	}
	// Enrichment fetched the single played match once.
	if fap.actaCalls != 1 {
		t.Fatalf("acta calls = %d", fap.actaCalls)
	}
	if n := countRows(t, conn, "goals"); n != 3 {
		t.Fatalf("goals = %d", n)
	}

	groups, err := export.CategoryGroups(context.Background(), conn, "BENJAMIN")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0].Jornada != "Jornada 2" {
		t.Fatalf("groups = %+v", groups)
	}

	// Shields arrived via the classification page.
	shields, err := export.Shields(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	if shields["CD Arenas"] != "arenas.png" {
		t.Fatalf("shields = %v", shields)
	}
}

func TestRunScrapedGroupIsIdempotent(t *testing.T) {
	conn := db.OpenMemory(t)
	fap := &fakeFAP{page: groupPageHTML, classification: classificationHTML, acta: actaHTML}
	p := New(conn, scrapedConfig(), fap, &fakeMyGol{}, discard())

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Merge.MatchesInserted != 0 {
		t.Fatalf("second run inserted %d matches", res.Merge.MatchesInserted)
	}
	if fap.actaCalls != 1 {
		t.Fatalf("acta refetched: %d calls", fap.actaCalls)
	}
	if n := countRows(t, conn, "goals"); n != 3 {
		t.Fatalf("goals = %d", n)
	}
}

func TestRunSkipsGroupOnPageFailure(t *testing.T) {
	conn := db.OpenMemory(t)
	fap := &fakeFAP{pageErr: errors.New("connection refused")}
	p := New(conn, scrapedConfig(), fap, &fakeMyGol{}, discard())

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.GroupsSkipped != 1 || res.GroupsProcessed != 0 {
		t.Fatalf("processed=%d skipped=%d", res.GroupsProcessed, res.GroupsSkipped)
	}
	if n := countRows(t, conn, "groups"); n != 0 {
		t.Fatalf("groups created on failed fetch: %d", n)
	}
}

func TestRunDegradesOnClassificationFailure(t *testing.T) {
	conn := db.OpenMemory(t)
	fap := &fakeFAP{page: groupPageHTML, classificationErr: errors.New("503"), acta: actaHTML}
	p := New(conn, scrapedConfig(), fap, &fakeMyGol{}, discard())

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.GroupsProcessed != 1 {
		t.Fatalf("processed = %d", res.GroupsProcessed)
	}
	if len(res.Merge.Errors) == 0 {
		t.Fatal("classification failure not recorded")
	}
	// Matches still merged, standings skipped.
	if n := countRows(t, conn, "matches"); n != 2 {
		t.Fatalf("matches = %d", n)
	}
	if n := countRows(t, conn, "standings"); n != 0 {
		t.Fatalf("standings = %d", n)
	}
}

func TestRunTournament(t *testing.T) {
	conn := db.OpenMemory(t)
	mg := &fakeMyGol{
		tournament: &mygol.Tournament{
			ID: 86,
			Teams: []mygol.Team{
				{ID: 1, Name: "C.D. SAN ISIDRO"},
				{ID: 2, Name: "UD GUIA"},
			},
			Groups: []mygol.Group{{ID: 10, Name: "Grupo 1", IDStage: 5}},
			Stages: []mygol.Stage{{ID: 5, Name: "Benjamin Primera"}},
		},
		days: []mygol.MatchDay{
			{Name: "Jornada 1", IDGroup: 10, Matches: []mygol.Match{
				{IDGroup: 10, IDHomeTeam: 1, IDVisitorTeam: 2, HomeScore: 2, VisitorScore: 0,
					Status: mygol.StatusPlayed, StartTime: "2025-11-21T17:00:00"},
			}},
			{Name: "Jornada 2", IDGroup: 10, Matches: []mygol.Match{
				{IDGroup: 10, IDHomeTeam: 2, IDVisitorTeam: 1, StartTime: "2025-11-28T12:00:00"},
			}},
		},
		class: []mygol.ClassificationEntry{
			{IDTeam: 1, IDGroup: 10, TournamentPoints: 3, GamesPlayed: 1, GamesWon: 1},
			{IDTeam: 2, IDGroup: 10, TournamentPoints: 0, GamesPlayed: 1, GamesLost: 1},
		},
	}

	p := New(conn, mygolConfig(), &fakeFAP{}, mg, discard())
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.GroupsProcessed != 1 {
		t.Fatalf("processed = %d (errors: %v)", res.GroupsProcessed, res.Merge.Errors)
	}

	groups, err := export.CategoryGroups(context.Background(), conn, "BENJAMIN")
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %+v", groups)
	}
	g := groups[0]
	if g.ID != "BEN1" || g.FullName != "Benjamin Primera - Grupo 1" {
		t.Fatalf("group meta: %+v", g)
	}
	// Last day with a played match.
	if g.Jornada != "Jornada 1" {
		t.Fatalf("jornada = %q", g.Jornada)
	}
	if len(g.Standings) != 2 || g.Standings[0].Team != "C.D. San Isidro" {
		t.Fatalf("standings: %+v", g.Standings)
	}
	if g.Standings[0].GoalsFor != 2 || g.Standings[0].GoalsAgainst != 0 {
		t.Fatalf("goal sums: %+v", g.Standings[0])
	}
}

func TestRunTournamentFetchFailure(t *testing.T) {
	conn := db.OpenMemory(t)
	mg := &fakeMyGol{err: errors.New("timeout")}

	p := New(conn, mygolConfig(), &fakeFAP{}, mg, discard())
	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.GroupsSkipped != 1 || len(res.Merge.Errors) == 0 {
		t.Fatalf("skipped=%d errors=%v", res.GroupsSkipped, res.Merge.Errors)
	}
}
