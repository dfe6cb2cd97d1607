// Package pipeline orchestrates one synchronization run: for every
// configured category it fetches the upstream data, normalizes it, and
// merges it into the store. Groups are processed sequentially; a failure in
// one group never aborts the run, it is recorded and the run moves on.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/futbolbase/futbolbase/internal/config"
	"github.com/futbolbase/futbolbase/internal/enrich"
	"github.com/futbolbase/futbolbase/internal/merge"
	"github.com/futbolbase/futbolbase/internal/resolver"
	"github.com/futbolbase/futbolbase/internal/source"
	"github.com/futbolbase/futbolbase/internal/source/fap"
	"github.com/futbolbase/futbolbase/internal/source/mygol"
)

// FAPSource is the scraped-site client surface the pipeline needs.
// Satisfied by *fap.Client.
type FAPSource interface {
	GroupPage(ctx context.Context, groupURL string) (string, error)
	Classification(ctx context.Context, groupURL string) (string, error)
	Acta(ctx context.Context, groupURL, homeCode, awayCode string) (string, error)
}

// MyGolSource is the REST client surface the pipeline needs. Satisfied by
// *mygol.Client.
type MyGolSource interface {
	Tournament(ctx context.Context, id int) (*mygol.Tournament, error)
	MatchDays(ctx context.Context, tournamentID int) ([]mygol.MatchDay, error)
	StageClassification(ctx context.Context, stageID int) ([]mygol.ClassificationEntry, error)
}

// Result aggregates the whole run's counters.
type Result struct {
	GroupsProcessed int
	GroupsSkipped   int
	Merge           merge.Result
	Enrich          enrich.Result
}

// Summary returns a human-readable run summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("groups=%d skipped=%d | %s | %s",
		r.GroupsProcessed, r.GroupsSkipped, r.Merge.Summary(), r.Enrich.Summary())
}

// Pipeline runs the fetch → normalize → merge → enrich loop.
type Pipeline struct {
	conn   *sql.DB
	cfg    *config.Config
	fap    FAPSource
	mygol  MyGolSource
	logger *slog.Logger
}

func New(conn *sql.DB, cfg *config.Config, fapSource FAPSource, mygolSource MyGolSource, logger *slog.Logger) *Pipeline {
	return &Pipeline{conn: conn, cfg: cfg, fap: fapSource, mygol: mygolSource, logger: logger}
}

// Run synchronizes every configured category and returns the aggregated
// result. Only an unusable store or an unresolvable season aborts the run;
// per-group failures are recorded in the result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	seasonID, err := resolver.Season(ctx, p.conn, p.cfg.SeasonName, p.cfg.StartYear, p.cfg.EndYear, true)
	if err != nil {
		return nil, fmt.Errorf("resolve season %q: %w", p.cfg.SeasonName, err)
	}

	for _, cat := range p.cfg.Categories {
		categoryID, err := resolver.Category(ctx, p.conn, cat.Name)
		if err != nil {
			res.Merge.AddErrorf("resolve category %s: %v", cat.Name, err)
			continue
		}

		p.logger.Info("syncing category", "category", cat.Name, "source", string(cat.Source))

		switch cat.Source {
		case config.SourceFAP:
			for _, gc := range cat.Groups {
				p.syncScrapedGroup(ctx, seasonID, categoryID, gc, res)
			}
		case config.SourceMyGol:
			p.syncTournament(ctx, seasonID, categoryID, cat.Tournament, res)
		default:
			res.Merge.AddErrorf("category %s: unknown source %q", cat.Name, cat.Source)
		}
	}

	p.logger.Info("sync finished", "summary", res.Summary())
	return res, nil
}

// syncScrapedGroup handles one scraped group end to end. A failed main-page
// fetch skips the whole group; a failed classification fetch or parse skips
// only standings and shields.
func (p *Pipeline) syncScrapedGroup(ctx context.Context, seasonID, categoryID int64, gc config.GroupConfig, res *Result) {
	html, err := p.fap.GroupPage(ctx, gc.URL)
	if err != nil {
		p.logger.Warn("group page fetch failed", "group", gc.Code, "error", err)
		res.Merge.AddErrorf("group %s: fetch: %v", gc.Code, err)
		res.GroupsSkipped++
		return
	}

	roundName, current, err := fap.CurrentRound(html)
	if err != nil {
		p.logger.Warn("no rounds on group page", "group", gc.Code, "error", err)
	}
	history, err := fap.History(html)
	if err != nil {
		res.Merge.AddErrorf("group %s: history: %v", gc.Code, err)
	}
	codes := fap.ParseTeamCodes(html)

	var standings []source.StandingRow
	var shields []source.Shield
	if clasiHTML, err := p.fap.Classification(ctx, gc.URL); err != nil {
		p.logger.Warn("classification fetch failed", "group", gc.Code, "error", err)
		res.Merge.AddErrorf("group %s: classification: %v", gc.Code, err)
	} else {
		if standings, err = fap.ParseStandings(clasiHTML); err != nil {
			res.Merge.AddErrorf("group %s: standings: %v", gc.Code, err)
		}
		shields = fap.ParseShields(clasiHTML)
	}

	meta := source.GroupMeta{
		Code:         gc.Code,
		URL:          gc.URL,
		CurrentRound: roundName,
	}

	groupID, err := p.mergeGroup(ctx, seasonID, categoryID, meta, history, current, standings, shields, res)
	if err != nil {
		res.Merge.AddErrorf("group %s: %v", gc.Code, err)
		res.GroupsSkipped++
		return
	}
	res.GroupsProcessed++

	er := enrich.Run(ctx, p.conn, groupID, gc.URL, codes, p.fap, p.logger)
	res.Enrich.Add(er)
}

// syncTournament handles one MyGol tournament: one round of API calls, then
// a merge per group. Stage classification failures degrade to empty
// standings for the affected groups.
func (p *Pipeline) syncTournament(ctx context.Context, seasonID, categoryID int64, tc config.TournamentConfig, res *Result) {
	t, err := p.mygol.Tournament(ctx, tc.ID)
	if err != nil {
		p.logger.Warn("tournament fetch failed", "tournament", tc.ID, "error", err)
		res.Merge.AddErrorf("tournament %d: %v", tc.ID, err)
		res.GroupsSkipped++
		return
	}
	days, err := p.mygol.MatchDays(ctx, tc.ID)
	if err != nil {
		p.logger.Warn("match days fetch failed", "tournament", tc.ID, "error", err)
		res.Merge.AddErrorf("tournament %d: match days: %v", tc.ID, err)
		res.GroupsSkipped++
		return
	}

	var classification []mygol.ClassificationEntry
	for _, stage := range t.Stages {
		entries, err := p.mygol.StageClassification(ctx, stage.ID)
		if err != nil {
			p.logger.Warn("stage classification fetch failed", "stage", stage.ID, "error", err)
			res.Merge.AddErrorf("tournament %d: stage %d classification: %v", tc.ID, stage.ID, err)
			continue
		}
		classification = append(classification, entries...)
	}

	groups := mygol.BuildGroups(t, days, classification, tc.CodePrefix, tc.Island)
	for _, gd := range groups {
		if _, err := p.mergeGroup(ctx, seasonID, categoryID, gd.Meta, gd.History, gd.Current, gd.Standings, nil, res); err != nil {
			res.Merge.AddErrorf("group %s: %v", gd.Meta.Code, err)
			res.GroupsSkipped++
			continue
		}
		res.GroupsProcessed++
	}
}

// mergeGroup writes one group's records inside a single transaction:
// either the group advances to the new snapshot as a whole or it stays on
// the previous one.
func (p *Pipeline) mergeGroup(ctx context.Context, seasonID, categoryID int64, meta source.GroupMeta, history, current []source.MatchRecord, standings []source.StandingRow, shields []source.Shield, res *Result) (int64, error) {
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	groupID, err := resolver.Group(ctx, tx, seasonID, categoryID, meta)
	if err != nil {
		return 0, fmt.Errorf("resolve group: %w", err)
	}

	for _, sh := range shields {
		if sh.Team == "" || sh.Filename == "" {
			continue
		}
		if _, err := resolver.Team(ctx, tx, sh.Team, sh.Filename); err != nil {
			res.Merge.AddErrorf("shield %s: %v", sh.Team, err)
		}
	}

	merge.Matches(ctx, tx, groupID, history, &res.Merge)
	merge.Matches(ctx, tx, groupID, current, &res.Merge)
	if len(standings) > 0 {
		merge.Standings(ctx, tx, groupID, standings, &res.Merge)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	p.logger.Info("group merged", "group", meta.Code, "round", meta.CurrentRound,
		"history", len(history), "current", len(current), "standings", len(standings))
	return groupID, nil
}
