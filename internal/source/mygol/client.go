// Package mygol normalizes the MyGol platform REST API: tournament metadata,
// match days, and stage classifications. Unlike the scraped upstream, the
// payloads are already structured JSON; the adapter's job is assembling
// per-group canonical records and applying the current-round policy.
package mygol

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/futbolbase/futbolbase/internal/source"
)

// Client is the HTTP client for the MyGol API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a MyGol client with the given inter-request delay.
func NewClient(baseURL string, delay time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		logger:     logger,
	}
}

// Tournament fetches tournament metadata: teams, groups, stages.
func (c *Client) Tournament(ctx context.Context, id int) (*Tournament, error) {
	var t Tournament
	if err := c.getJSON(ctx, fmt.Sprintf("/tournaments/%d", id), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// MatchDays fetches the full match-day list for a tournament.
func (c *Client) MatchDays(ctx context.Context, tournamentID int) ([]MatchDay, error) {
	var days []MatchDay
	if err := c.getJSON(ctx, fmt.Sprintf("/matches/fortournament/%d", tournamentID), &days); err != nil {
		return nil, err
	}
	return days, nil
}

// StageClassification fetches the classification for one stage. The API
// answers either a bare array or an object wrapping it under
// leagueClassification.
func (c *Client) StageClassification(ctx context.Context, stageID int) ([]ClassificationEntry, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, fmt.Sprintf("/tournaments/stageclassification/%d", stageID), &raw); err != nil {
		return nil, err
	}

	var entries []ClassificationEntry
	if err := json.Unmarshal(raw, &entries); err == nil {
		return entries, nil
	}
	var wrapped struct {
		LeagueClassification []ClassificationEntry `json:"leagueClassification"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: stage %d classification: %v", source.ErrParse, stageID, err)
	}
	return wrapped.LeagueClassification, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: pacing wait: %v", source.ErrTransport, err)
	}

	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: create request %s: %v", source.ErrTransport, u, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; FutbolBase/1.0)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", source.ErrTransport, u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", source.ErrTransport, u, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", source.ErrTransport, u, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", source.ErrParse, u, err)
	}
	return nil
}
