package export

import (
	"encoding/json"
	"fmt"
)

// The positional-array row types decode back from their array form so the
// bulk importer can re-read previously generated artifacts.

func unmarshalRow(data []byte, want int) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) != want {
		return nil, fmt.Errorf("row has %d elements, want %d", len(raw), want)
	}
	return raw, nil
}

func scanRow(raw []json.RawMessage, dests ...any) error {
	for i, dest := range dests {
		if err := json.Unmarshal(raw[i], dest); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (e *StandingEntry) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalRow(data, 10)
	if err != nil {
		return err
	}
	return scanRow(raw, &e.Position, &e.Team, &e.Points, &e.Played, &e.Won,
		&e.Drawn, &e.Lost, &e.GoalsFor, &e.GoalsAgainst, &e.GoalDiff)
}

func (e *MatchEntry) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalRow(data, 7)
	if err != nil {
		return err
	}
	return scanRow(raw, &e.Date, &e.Time, &e.Home, &e.Away, &e.HomeScore, &e.AwayScore, &e.Venue)
}

func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalRow(data, 5)
	if err != nil {
		return err
	}
	return scanRow(raw, &e.Date, &e.Home, &e.Away, &e.HomeScore, &e.AwayScore)
}

func (e *GoalEntry) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalRow(data, 5)
	if err != nil {
		return err
	}
	return scanRow(raw, &e.Minute, &e.Player, &e.RunningScore, &e.Side, &e.Type)
}

func (e *ScorerEntry) UnmarshalJSON(data []byte) error {
	raw, err := unmarshalRow(data, 4)
	if err != nil {
		return err
	}
	return scanRow(raw, &e.Player, &e.Team, &e.Goals, &e.Games)
}
