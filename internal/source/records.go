// Package source defines the canonical record types every upstream adapter
// normalizes into. These structs are the contract between adapters and the
// merge engine — adapters output these, the merge engine writes them to the
// store. Adding a new upstream means implementing functions that return
// these types; the merge engine and schema never change.
package source

import "errors"

// Error kinds recognized by the pipeline. Adapters wrap their failures in
// ErrParse; clients wrap fetch failures in ErrTransport. The pipeline uses
// errors.Is to decide whether a group or only a sub-step is skipped.
var (
	ErrTransport = errors.New("source: fetch failed")
	ErrParse     = errors.New("source: payload did not match expected shape")
)

// Goal side markers.
const (
	SideHome = "home"
	SideAway = "away"
)

// GroupMeta carries the mutable attributes of a league group. Empty strings
// mean "not reported"; the resolver never overwrites a stored attribute with
// an empty one.
type GroupMeta struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	FullName     string `json:"full_name"`
	Phase        string `json:"phase"`
	Island       string `json:"island"`
	URL          string `json:"url"`
	CurrentRound string `json:"current_round"`
}

// MatchRecord is one fixture within a round. Nil scores mean the match has
// not been played (or the source did not report a result). Empty date, time
// or venue mean unknown.
type MatchRecord struct {
	Round     string `json:"round"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore *int   `json:"home_score"`
	AwayScore *int   `json:"away_score"`
	Venue     string `json:"venue"`
}

// Played reports whether the record carries a full result.
func (m MatchRecord) Played() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// StandingRow is one classification entry for a team within a group.
type StandingRow struct {
	Position     int    `json:"position"`
	Team         string `json:"team"`
	Points       int    `json:"points"`
	Played       int    `json:"played"`
	Won          int    `json:"won"`
	Drawn        int    `json:"drawn"`
	Lost         int    `json:"lost"`
	GoalsFor     int    `json:"gf"`
	GoalsAgainst int    `json:"ga"`
	GoalDiff     int    `json:"gd"`
}

// GoalEvent is one goal within a match. RunningScore is the score after the
// goal, computed by the adapter in minute order, never taken from the source.
type GoalEvent struct {
	Minute       int    `json:"minute"`
	Player       string `json:"player"`
	RunningScore string `json:"running_score"`
	Side         string `json:"side"`
	Type         string `json:"type"`
}

// ScorerRow is a season-to-date scorer aggregate as reported by the source.
// Reported totals can disagree with the stored goal events; they are kept
// as-is rather than derived.
type ScorerRow struct {
	Player string `json:"player"`
	Team   string `json:"team"`
	Goals  int    `json:"goals"`
	Games  int    `json:"games"`
}

// Shield associates a team display name with its shield image filename.
type Shield struct {
	Team     string `json:"team"`
	Filename string `json:"filename"`
}

// IntPtr returns a pointer to v. Convenience for building MatchRecords.
func IntPtr(v int) *int { return &v }
