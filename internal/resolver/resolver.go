// Package resolver maps natural keys (season name, category name, team
// name, (season, category, group code)) to stable store ids, creating
// records on first sight and refreshing mutable attributes on every
// subsequent sight. All lookups are safe to repeat: the store's uniqueness
// constraints are the authoritative guard, the lookup-then-insert sequence
// here is the fast path, and any insert conflict triggers exactly one
// re-lookup before the error is surfaced.
package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/futbolbase/futbolbase/internal/db"
	"github.com/futbolbase/futbolbase/internal/source"
)

// Season returns the id for a season name, creating the record if needed.
// Seasons are immutable once created except the current flag; marking a
// season current clears the flag on every other season.
func Season(ctx context.Context, q db.DBTX, name string, startYear, endYear int, current bool) (int64, error) {
	id, err := lookupID(ctx, q, "SELECT id FROM seasons WHERE name = ?", name)
	if err == nil {
		if current {
			if err := setCurrentSeason(ctx, q, id); err != nil {
				return 0, err
			}
		}
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup season %q: %w", name, err)
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO seasons (name, start_year, end_year, is_current) VALUES (?, ?, ?, ?)",
		name, startYear, endYear, boolInt(current))
	if err != nil {
		// Lost a race or the record predates us under a different path;
		// the unique constraint already guarantees a single row.
		if id, lerr := lookupID(ctx, q, "SELECT id FROM seasons WHERE name = ?", name); lerr == nil {
			return id, nil
		}
		return 0, fmt.Errorf("insert season %q: %w", name, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert season %q: %w", name, err)
	}
	if current {
		if err := setCurrentSeason(ctx, q, id); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func setCurrentSeason(ctx context.Context, q db.DBTX, id int64) error {
	if _, err := q.ExecContext(ctx, "UPDATE seasons SET is_current = (id = ?)", id); err != nil {
		return fmt.Errorf("set current season %d: %w", id, err)
	}
	return nil
}

// Category returns the id for a category name, creating it if needed.
func Category(ctx context.Context, q db.DBTX, name string) (int64, error) {
	id, err := lookupID(ctx, q, "SELECT id FROM categories WHERE name = ?", name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup category %q: %w", name, err)
	}

	res, err := q.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		if id, lerr := lookupID(ctx, q, "SELECT id FROM categories WHERE name = ?", name); lerr == nil {
			return id, nil
		}
		return 0, fmt.Errorf("insert category %q: %w", name, err)
	}
	return res.LastInsertId()
}

// Team returns the id for a team name, creating the record if needed. The
// name is the sole natural key shared across all sources. A non-empty
// shield filename overwrites the stored one; an empty one never clears it.
func Team(ctx context.Context, q db.DBTX, name, shieldFilename string) (int64, error) {
	id, err := lookupID(ctx, q, "SELECT id FROM teams WHERE name = ?", name)
	if err == nil {
		if shieldFilename != "" {
			if _, err := q.ExecContext(ctx,
				"UPDATE teams SET shield_filename = ? WHERE id = ?", shieldFilename, id); err != nil {
				return 0, fmt.Errorf("update team %q shield: %w", name, err)
			}
		}
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup team %q: %w", name, err)
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO teams (name, shield_filename) VALUES (?, ?)",
		name, nullIfEmpty(shieldFilename))
	if err != nil {
		if id, lerr := lookupID(ctx, q, "SELECT id FROM teams WHERE name = ?", name); lerr == nil {
			return id, nil
		}
		return 0, fmt.Errorf("insert team %q: %w", name, err)
	}
	return res.LastInsertId()
}

// Group returns the id for a (season, category, code) triple, creating the
// record if needed. Non-empty meta attributes refresh the stored row on
// every sight; empty ones never null anything out.
func Group(ctx context.Context, q db.DBTX, seasonID, categoryID int64, meta source.GroupMeta) (int64, error) {
	const lookup = "SELECT id FROM groups WHERE season_id = ? AND category_id = ? AND code = ?"

	id, err := lookupID(ctx, q, lookup, seasonID, categoryID, meta.Code)
	if err == nil {
		return id, updateGroupMeta(ctx, q, id, meta)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup group %q: %w", meta.Code, err)
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO groups (season_id, category_id, code, name, full_name, phase, island, url, current_round)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seasonID, categoryID, meta.Code,
		nullIfEmpty(meta.Name), nullIfEmpty(meta.FullName), nullIfEmpty(meta.Phase),
		nullIfEmpty(meta.Island), nullIfEmpty(meta.URL), nullIfEmpty(meta.CurrentRound))
	if err != nil {
		if id, lerr := lookupID(ctx, q, lookup, seasonID, categoryID, meta.Code); lerr == nil {
			return id, updateGroupMeta(ctx, q, id, meta)
		}
		return 0, fmt.Errorf("insert group %q: %w", meta.Code, err)
	}
	return res.LastInsertId()
}

func updateGroupMeta(ctx context.Context, q db.DBTX, id int64, meta source.GroupMeta) error {
	sets := ""
	var args []any
	for _, col := range []struct {
		name  string
		value string
	}{
		{"name", meta.Name},
		{"full_name", meta.FullName},
		{"phase", meta.Phase},
		{"island", meta.Island},
		{"url", meta.URL},
		{"current_round", meta.CurrentRound},
	} {
		if col.value == "" {
			continue
		}
		if sets != "" {
			sets += ", "
		}
		sets += col.name + " = ?"
		args = append(args, col.value)
	}
	if sets == "" {
		return nil
	}
	args = append(args, id)
	if _, err := q.ExecContext(ctx, "UPDATE groups SET "+sets+" WHERE id = ?", args...); err != nil {
		return fmt.Errorf("update group %d: %w", id, err)
	}
	return nil
}

// TeamName returns the stored name for a team id.
func TeamName(ctx context.Context, q db.DBTX, id int64) (string, error) {
	var name string
	if err := q.QueryRowContext(ctx, "SELECT name FROM teams WHERE id = ?", id).Scan(&name); err != nil {
		return "", fmt.Errorf("lookup team %d: %w", id, err)
	}
	return name, nil
}

func lookupID(ctx context.Context, q db.DBTX, query string, args ...any) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, query, args...).Scan(&id)
	return id, err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
