package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the chess.com published-data API.
const DefaultBaseURL = "https://api.chess.com/pub"

// DefaultResponseHeaderTimeout is the default timeout for receiving response headers.
const DefaultResponseHeaderTimeout = 30 * time.Second

// ErrNoContact indicates a client without contact information; the API
// asks callers to identify themselves in the User-Agent.
var ErrNoContact = errors.New("archive: contact information required")

// StatusError reports a month the API refused to serve.
type StatusError struct {
	Month  Month
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("archive %s: unexpected status %d %s", e.Month, e.Status, http.StatusText(e.Status))
}

// Progress reports one fetched month.
type Progress struct {
	Month Month
	Games int
	Err   error
}

// ProgressFunc is called after every month.
type ProgressFunc func(Progress)

// Client fetches monthly archives.
type Client struct {
	client   *http.Client
	baseURL  string
	contact  string
	limiter  *rate.Limiter
	logger   *zap.Logger
	progress ProgressFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithRateLimit bounds the request rate.
// Default is one request per second with no burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithProgress sets a callback invoked after every month.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Client) {
		c.progress = fn
	}
}

// NewClient creates a client that identifies itself with contact.
func NewClient(contact string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(contact) == "" {
		return nil, ErrNoContact
	}

	c := &Client{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		baseURL: DefaultBaseURL,
		contact: contact,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// monthResponse is the body of a monthly archive.
type monthResponse struct {
	Games []Game `json:"games"`
}

// FetchMonth downloads the games username played in m.
// A non-200 answer yields a *StatusError.
func (c *Client) FetchMonth(ctx context.Context, username string, m Month) ([]Game, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/player/%s/games/%04d/%02d",
		c.baseURL, url.PathEscape(strings.ToLower(username)), m.Year, int(m.Month))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.contact)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", m, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Month: m, Status: resp.StatusCode}
	}

	var body monthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", m, err)
	}
	return body.Games, nil
}

// FetchRange downloads and merges every month from first to last.
// Months the API refuses are logged and skipped; any other failure
// stops the download.
func (c *Client) FetchRange(ctx context.Context, username string, first, last Month) ([]Game, error) {
	if last.Before(first) {
		return nil, fmt.Errorf("range %s-%s is empty", first, last)
	}

	var merged []Game
	for _, m := range Months(first, last) {
		c.logger.Info("fetching games", zap.String("month", m.String()))

		games, err := c.FetchMonth(ctx, username, m)
		c.report(Progress{Month: m, Games: len(games), Err: err})

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			c.logger.Warn("month skipped",
				zap.String("month", m.String()),
				zap.Int("status", statusErr.Status),
			)
			continue
		}
		if err != nil {
			return merged, err
		}
		merged = append(merged, games...)
	}
	return merged, nil
}

func (c *Client) report(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}
