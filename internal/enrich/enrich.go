// Package enrich decides, per played match, whether the expensive
// goal-detail fetch is still needed, and bounds upstream load by fetching
// each match's acta at most once across all runs.
package enrich

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/futbolbase/futbolbase/internal/merge"
	"github.com/futbolbase/futbolbase/internal/resolver"
	"github.com/futbolbase/futbolbase/internal/source"
	"github.com/futbolbase/futbolbase/internal/source/fap"
)

// ActaFetcher performs the per-match goal-detail round trip. Satisfied by
// *fap.Client.
type ActaFetcher interface {
	Acta(ctx context.Context, groupURL, homeCode, awayCode string) (string, error)
}

// Result tracks one group's enrichment outcome.
type Result struct {
	Enriched int
	Skipped  int
	Goals    int
	Errors   []string
}

// Add folds another group's result into this one.
func (r *Result) Add(other Result) {
	r.Enriched += other.Enriched
	r.Skipped += other.Skipped
	r.Goals += other.Goals
	r.Errors = append(r.Errors, other.Errors...)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the enrichment.
func (r *Result) Summary() string {
	return fmt.Sprintf("enriched=%d skipped=%d goals=%d errors=%d",
		r.Enriched, r.Skipped, r.Goals, len(r.Errors))
}

// Run enriches every match in a group that has a final score and no goal
// rows yet. codes is the team-name → source-code side table scraped from
// the group's main page; a match whose teams are not both in it is skipped
// without error. The goal-presence check runs immediately before each fetch
// decision, so goals inserted earlier in the same run are seen. Each
// match's goal rows commit independently: a failure partway leaves earlier
// matches enriched.
func Run(ctx context.Context, conn *sql.DB, groupID int64, groupURL string, codes map[string]string, fetcher ActaFetcher, logger *slog.Logger) Result {
	var res Result

	candidates, err := playedMatches(ctx, conn, groupID)
	if err != nil {
		res.AddErrorf("list played matches for group %d: %v", groupID, err)
		return res
	}

	for _, c := range candidates {
		has, err := merge.HasGoals(ctx, conn, c.id)
		if err != nil {
			res.AddErrorf("match %d: %v", c.id, err)
			continue
		}
		if has {
			continue
		}

		homeCode, awayCode := codes[c.home], codes[c.away]
		if homeCode == "" || awayCode == "" {
			res.Skipped++
			continue
		}

		html, err := fetcher.Acta(ctx, groupURL, homeCode, awayCode)
		if err != nil {
			res.AddErrorf("acta %s vs %s: %v", c.home, c.away, err)
			continue
		}
		events, err := fap.ParseActa(html)
		if err != nil {
			res.AddErrorf("acta %s vs %s: %v", c.home, c.away, err)
			continue
		}
		if len(events) == 0 {
			res.Skipped++
			continue
		}

		inserted, err := insertGoals(ctx, conn, c.id, events)
		if err != nil {
			res.AddErrorf("goals %s vs %s: %v", c.home, c.away, err)
			continue
		}
		res.Enriched++
		res.Goals += inserted
		logger.Info("Match enriched", "home", c.home, "away", c.away, "goals", inserted)
	}
	return res
}

type candidate struct {
	id         int64
	home, away string
}

// playedMatches lists the matches of a group with a known final score. Team
// names come from point lookups by id rather than a join; joins belong to
// the export layer.
func playedMatches(ctx context.Context, conn *sql.DB, groupID int64) ([]candidate, error) {
	rows, err := conn.QueryContext(ctx, `
		SELECT id, home_team_id, away_team_id
		FROM matches
		WHERE group_id = ? AND home_score IS NOT NULL AND away_score IS NOT NULL
		ORDER BY id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type idRow struct {
		id, homeID, awayID int64
	}
	var ids []idRow
	for rows.Next() {
		var r idRow
		if err := rows.Scan(&r.id, &r.homeID, &r.awayID); err != nil {
			return nil, err
		}
		ids = append(ids, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	out := make([]candidate, 0, len(ids))
	for _, r := range ids {
		home, err := resolver.TeamName(ctx, conn, r.homeID)
		if err != nil {
			return nil, err
		}
		away, err := resolver.TeamName(ctx, conn, r.awayID)
		if err != nil {
			return nil, err
		}
		out = append(out, candidate{id: r.id, home: home, away: away})
	}
	return out, nil
}

func insertGoals(ctx context.Context, conn *sql.DB, matchID int64, events []source.GoalEvent) (int, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	inserted, err := merge.Goals(ctx, tx, matchID, events)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}
