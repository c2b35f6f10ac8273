package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// fakeAPI serves monthly archives keyed by "YYYY/MM".
type fakeAPI struct {
	mu       sync.Mutex
	months   map[string]string
	agents   []string
	requests []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.agents = append(f.agents, r.Header.Get("User-Agent"))
	f.requests = append(f.requests, r.URL.Path)

	var year, month int
	if _, err := fmt.Sscanf(r.URL.Path, "/player/alice/games/%d/%d", &year, &month); err != nil {
		http.NotFound(w, r)
		return
	}
	body, ok := f.months[fmt.Sprintf("%04d/%02d", year, month)]
	if !ok {
		http.Error(w, "gone", http.StatusGone)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(rate.Inf, 1),
	}, opts...)
	c, err := NewClient("alice@example.com", opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestNewClient_RequiresContact(t *testing.T) {
	if _, err := NewClient("  "); !errors.Is(err, ErrNoContact) {
		t.Errorf("NewClient() error = %v, want ErrNoContact", err)
	}
}

func TestClient_FetchMonth(t *testing.T) {
	api := &fakeAPI{months: map[string]string{
		"2023/03": `{"games":[{"url":"u1","pgn":"1. e4 *","time_class":"blitz","white":{"username":"alice","rating":1500,"result":"win"},"black":{"username":"bob","rating":1400,"result":"checkmated"}}]}`,
	}}
	c := newTestClient(t, api)

	games, err := c.FetchMonth(context.Background(), "Alice", Month{Year: 2023, Month: time.March})
	if err != nil {
		t.Fatalf("FetchMonth() error = %v", err)
	}
	if len(games) != 1 || games[0].URL != "u1" || games[0].Black.Result != "checkmated" {
		t.Errorf("FetchMonth() = %+v", games)
	}
	if got := api.agents[0]; got != "alice@example.com" {
		t.Errorf("User-Agent = %q, want contact information", got)
	}
	if got := api.requests[0]; got != "/player/alice/games/2023/03" {
		t.Errorf("request path = %q", got)
	}
}

func TestClient_FetchMonth_Status(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	_, err := c.FetchMonth(context.Background(), "alice", Month{Year: 2023, Month: time.March})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusGone {
		t.Errorf("FetchMonth() error = %v, want StatusError 410", err)
	}
}

func TestClient_FetchRange(t *testing.T) {
	api := &fakeAPI{months: map[string]string{
		"2022/12": `{"games":[{"url":"a"},{"url":"b"}]}`,
		"2023/02": `{"games":[{"url":"c"}]}`,
	}}
	var progress []Progress
	c := newTestClient(t, api, WithProgress(func(p Progress) { progress = append(progress, p) }))

	games, err := c.FetchRange(context.Background(), "alice",
		Month{Year: 2022, Month: time.December}, Month{Year: 2023, Month: time.February})
	if err != nil {
		t.Fatalf("FetchRange() error = %v", err)
	}

	var urls []string
	for _, g := range games {
		urls = append(urls, g.URL)
	}
	if fmt.Sprint(urls) != "[a b c]" {
		t.Errorf("FetchRange() urls = %v, want [a b c]", urls)
	}
	if len(progress) != 3 || progress[1].Err == nil {
		t.Errorf("progress = %+v, want 3 months with the middle one failed", progress)
	}
}

func TestClient_FetchRange_Cancelled(t *testing.T) {
	c := newTestClient(t, &fakeAPI{}, WithRateLimit(rate.Every(time.Hour), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchRange(ctx, "alice", Month{Year: 2023, Month: time.January}, Month{Year: 2023, Month: time.February})
	if err == nil {
		t.Error("FetchRange() with a cancelled context should fail")
	}
}

func TestClient_FetchRange_Empty(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})
	if _, err := c.FetchRange(context.Background(), "alice",
		Month{Year: 2023, Month: time.May}, Month{Year: 2023, Month: time.January}); err == nil {
		t.Error("FetchRange() of a reversed range should fail")
	}
}
