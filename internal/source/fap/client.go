// Package fap scrapes the futbolaspalmas.com group pages: fixture tables on
// the main page, the classification widget rendered by mostrar_clasi.php,
// and the per-match acta fragment served by a stateful POST endpoint.
//
// Parsing functions are pure (payload in, canonical records out) so they are
// testable against fixture files; only Client touches the network.
package fap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/futbolbase/futbolbase/internal/source"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client fetches pages from one futbolaspalmas host, pacing every request
// through a burst-1 limiter so sequential use yields a fixed delay between
// fetches regardless of outcome.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client with the given inter-request delay.
func NewClient(delay time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		logger:     logger,
	}
}

// GroupPage fetches the main page of a group (fixture tables plus the team
// code side table).
func (c *Client) GroupPage(ctx context.Context, groupURL string) (string, error) {
	return c.get(ctx, groupURL)
}

// Classification fetches the rendered classification widget for a group.
func (c *Client) Classification(ctx context.Context, groupURL string) (string, error) {
	return c.get(ctx, strings.TrimRight(groupURL, "/")+"/mostrar_clasi.php")
}

// Acta fetches the goal-by-goal match report for one fixture. The endpoint
// is stateful: it identifies the fixture by the two source-side team codes
// posted as form values.
func (c *Client) Acta(ctx context.Context, groupURL, homeCode, awayCode string) (string, error) {
	endpoint := strings.TrimRight(groupURL, "/") + "/ver_acta.php"
	form := url.Values{"equipo1": {homeCode}, "equipo2": {awayCode}}
	return c.do(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
}

func (c *Client) get(ctx context.Context, pageURL string) (string, error) {
	return c.do(ctx, http.MethodGet, pageURL, nil)
}

func (c *Client) do(ctx context.Context, method, pageURL string, body io.Reader) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: pacing wait: %v", source.ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, pageURL, body)
	if err != nil {
		return "", fmt.Errorf("%w: create request %s: %v", source.ErrTransport, pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,*/*")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: %v", source.ErrTransport, method, pageURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", source.ErrTransport, pageURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %d", source.ErrTransport, pageURL, resp.StatusCode)
	}

	return decodeBody(raw), nil
}

// decodeBody returns the page text as UTF-8. The upstream occasionally
// serves ISO-8859-1; invalid UTF-8 is re-decoded byte-per-rune.
func decodeBody(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
