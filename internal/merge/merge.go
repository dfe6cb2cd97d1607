package merge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/futbolbase/futbolbase/internal/db"
	"github.com/futbolbase/futbolbase/internal/resolver"
	"github.com/futbolbase/futbolbase/internal/source"
)

// Matches applies match records to a group. Each record is inserted if its
// natural key (group, round, home, away) is unseen; if the stored row exists
// with a null score and the record carries one, score, venue and date are
// filled in. A stored non-null score is never changed — sources re-render
// played fixtures with placeholder scores, and the only trustworthy
// transition is null → known.
func Matches(ctx context.Context, q db.DBTX, groupID int64, recs []source.MatchRecord, res *Result) {
	for _, rec := range recs {
		inserted, filled, err := applyMatch(ctx, q, groupID, rec)
		switch {
		case err != nil:
			res.AddErrorf("match %s vs %s (%s): %v", rec.Home, rec.Away, rec.Round, err)
		case inserted:
			res.MatchesInserted++
		case filled:
			res.MatchesFilled++
		}
	}
}

func applyMatch(ctx context.Context, q db.DBTX, groupID int64, rec source.MatchRecord) (inserted, filled bool, err error) {
	homeID, err := resolver.Team(ctx, q, rec.Home, "")
	if err != nil {
		return false, false, err
	}
	awayID, err := resolver.Team(ctx, q, rec.Away, "")
	if err != nil {
		return false, false, err
	}

	const lookup = `
		SELECT id, home_score IS NULL
		FROM matches
		WHERE group_id = ? AND round = ? AND home_team_id = ? AND away_team_id = ?`

	var matchID int64
	var scoreUnknown bool
	err = q.QueryRowContext(ctx, lookup, groupID, rec.Round, homeID, awayID).Scan(&matchID, &scoreUnknown)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = q.ExecContext(ctx, `
			INSERT INTO matches (group_id, round, date, time, home_team_id, away_team_id, home_score, away_score, venue)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			groupID, rec.Round, nullIfEmpty(rec.Date), nullIfEmpty(rec.Time),
			homeID, awayID, rec.HomeScore, rec.AwayScore, nullIfEmpty(rec.Venue))
		if err != nil {
			return false, false, fmt.Errorf("insert: %w", err)
		}
		return true, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("lookup: %w", err)
	}

	if scoreUnknown && rec.Played() {
		_, err = q.ExecContext(ctx, `
			UPDATE matches
			SET home_score = ?, away_score = ?,
			    venue = COALESCE(?, venue),
			    date  = COALESCE(?, date)
			WHERE id = ?`,
			rec.HomeScore, rec.AwayScore, nullIfEmpty(rec.Venue), nullIfEmpty(rec.Date), matchID)
		if err != nil {
			return false, false, fmt.Errorf("fill score: %w", err)
		}
		return false, true, nil
	}
	return false, false, nil
}

// Standings replaces the full standings set of a group. Standings are a
// point-in-time snapshot, not an append log: the previous set is deleted
// and the fresh one inserted, so teams dropped upstream disappear here too.
func Standings(ctx context.Context, q db.DBTX, groupID int64, rows []source.StandingRow, res *Result) {
	if _, err := q.ExecContext(ctx, "DELETE FROM standings WHERE group_id = ?", groupID); err != nil {
		res.AddErrorf("clear standings for group %d: %v", groupID, err)
		return
	}
	for _, row := range rows {
		teamID, err := resolver.Team(ctx, q, row.Team, "")
		if err != nil {
			res.AddErrorf("standing %q: %v", row.Team, err)
			continue
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO standings (group_id, team_id, position, points, played, won, drawn, lost, gf, ga, gd)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			groupID, teamID, row.Position, row.Points, row.Played,
			row.Won, row.Drawn, row.Lost, row.GoalsFor, row.GoalsAgainst, row.GoalDiff)
		if err != nil {
			res.AddErrorf("standing %q: %v", row.Team, err)
			continue
		}
		res.StandingsRows++
	}
}

// Scorers replaces scorer aggregates keyed by (group, player, team). The
// latest reported totals win outright: season-to-date numbers both grow and
// occasionally get corrected downward by the source.
func Scorers(ctx context.Context, q db.DBTX, groupID int64, rows []source.ScorerRow, res *Result) {
	for _, row := range rows {
		teamID, err := resolver.Team(ctx, q, row.Team, "")
		if err != nil {
			res.AddErrorf("scorer %q: %v", row.Player, err)
			continue
		}
		_, err = q.ExecContext(ctx, `
			INSERT OR REPLACE INTO scorers (group_id, player_name, team_id, goals, games)
			VALUES (?, ?, ?, ?, ?)`,
			groupID, row.Player, teamID, row.Goals, row.Games)
		if err != nil {
			res.AddErrorf("scorer %q: %v", row.Player, err)
			continue
		}
		res.ScorersUpserted++
	}
}

// Goals appends goal events to a match. Callers are responsible for the
// fetched-at-most-once guarantee via HasGoals.
func Goals(ctx context.Context, q db.DBTX, matchID int64, events []source.GoalEvent) (int, error) {
	inserted := 0
	for _, ev := range events {
		_, err := q.ExecContext(ctx, `
			INSERT INTO goals (match_id, minute, player_name, running_score, side, type)
			VALUES (?, ?, ?, ?, ?, ?)`,
			matchID, ev.Minute, ev.Player, ev.RunningScore, ev.Side, nullIfEmpty(ev.Type))
		if err != nil {
			return inserted, fmt.Errorf("insert goal min %d: %w", ev.Minute, err)
		}
		inserted++
	}
	return inserted, nil
}

// HasGoals reports whether any goal row exists for a match. The presence of
// one row is the signal that enrichment already ran for the match.
func HasGoals(ctx context.Context, q db.DBTX, matchID int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM goals WHERE match_id = ? LIMIT 1", matchID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("goal presence for match %d: %w", matchID, err)
	}
	return true, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
