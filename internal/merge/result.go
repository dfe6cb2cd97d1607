// Package merge applies canonical records to the store under the conflict
// policy: matches are insert-if-absent with null→known score fill, standings
// are replaced wholesale per group, scorer aggregates are replaced outright,
// goals are append-only. Written once against the canonical shapes; no
// source-specific structure reaches this package.
package merge

import "fmt"

// Result tracks counts and per-row errors from merging one or more groups.
// Row-level failures (for instance a foreign key violation) are recorded
// here and never abort the surrounding run.
type Result struct {
	MatchesInserted int
	MatchesFilled   int
	StandingsRows   int
	ScorersUpserted int
	GoalsInserted   int
	Errors          []string
}

// Add merges another Result into this one.
func (r *Result) Add(other Result) {
	r.MatchesInserted += other.MatchesInserted
	r.MatchesFilled += other.MatchesFilled
	r.StandingsRows += other.StandingsRows
	r.ScorersUpserted += other.ScorersUpserted
	r.GoalsInserted += other.GoalsInserted
	r.Errors = append(r.Errors, other.Errors...)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the merge.
func (r *Result) Summary() string {
	return fmt.Sprintf(
		"matches=%d filled=%d standings=%d scorers=%d goals=%d errors=%d",
		r.MatchesInserted, r.MatchesFilled, r.StandingsRows,
		r.ScorersUpserted, r.GoalsInserted, len(r.Errors),
	)
}
