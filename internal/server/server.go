// Package server exposes game analysis over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/discochess/accuracy"
	"github.com/discochess/accuracy/internal/pgnio"
	"github.com/discochess/accuracy/internal/report"
	"github.com/discochess/accuracy/internal/snapshot"
)

// DefaultMaxBody bounds the PGN accepted per request.
const DefaultMaxBody = 4 << 20

// Server analyzes PGN text posted by clients. Requests share one Batch
// and are served one at a time.
type Server struct {
	batch     *accuracy.Batch
	sink      snapshot.Sink
	snapshots *report.SnapshotWriter
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
	maxBody   int64
	upgrader  websocket.Upgrader

	mu           sync.Mutex
	lastSnapshot int
	games        int
}

// Option configures a Server.
type Option func(*Server)

// WithSink persists blunder snapshots to sink.
func WithSink(sink snapshot.Sink, w *report.SnapshotWriter) Option {
	return func(s *Server) {
		s.sink = sink
		s.snapshots = w
	}
}

// WithGatherer serves the gatherer's metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMaxBody sets the largest accepted request in bytes.
func WithMaxBody(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// New returns a Server analyzing with batch.
func New(batch *accuracy.Batch, opts ...Option) *Server {
	s := &Server{
		batch:   batch,
		logger:  zap.NewNop(),
		maxBody: DefaultMaxBody,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP routes of the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Get("/ws", s.handleStream)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// GameError is the JSON form of a game that could not be analyzed.
type GameError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// AnalyzeResponse is the body returned by POST /analyze.
type AnalyzeResponse struct {
	Games  []report.Record `json:"games"`
	Errors []GameError     `json:"errors,omitempty"`
}

// Message is one WebSocket frame sent to clients.
type Message struct {
	// Type is "game", "error" or "done".
	Type   string         `json:"type"`
	Record *report.Record `json:"record,omitempty"`
	Error  *GameError     `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok\n")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	var resp AnalyzeResponse
	err = s.analyze(r.Context(), string(body), func(rec *report.Record, gerr *GameError) error {
		if gerr != nil {
			resp.Errors = append(resp.Errors, *gerr)
		} else {
			resp.Games = append(resp.Games, *rec)
		}
		return nil
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.maxBody)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read failed", zap.Error(err))
			}
			return
		}

		err = s.analyze(r.Context(), string(data), func(rec *report.Record, gerr *GameError) error {
			if gerr != nil {
				return conn.WriteJSON(Message{Type: "error", Error: gerr})
			}
			return conn.WriteJSON(Message{Type: "game", Record: rec})
		})
		if err != nil {
			if werr := conn.WriteJSON(Message{Type: "error", Error: &GameError{Index: -1, Error: err.Error()}}); werr != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(Message{Type: "done"}); err != nil {
			return
		}
	}
}

// errNoGames is returned for requests without a single parsable game.
var errNoGames = errors.New("no games in request")

// analyze runs every game of text and hands each outcome to emit in
// input order. Games that do not parse are reported as errors at their
// position in text, like games that fail analysis.
func (s *Server) analyze(ctx context.Context, text string, emit func(*report.Record, *GameError) error) error {
	games, submitted, parseErrs, err := parseGames(text)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		if len(parseErrs) > 0 {
			return errors.New(parseErrs[0].Error)
		}
		return errNoGames
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.batch.Run(ctx, games)
	if err != nil {
		return err
	}

	next := 0
	flushParseErrs := func(before int) error {
		for ; next < len(parseErrs) && parseErrs[next].Index < before; next++ {
			if err := emit(nil, &parseErrs[next]); err != nil {
				return err
			}
		}
		return nil
	}

	for _, res := range results {
		index := submitted[res.Index]
		if err := flushParseErrs(index); err != nil {
			return err
		}

		if res.Err != nil {
			if err := emit(nil, &GameError{Index: index, Error: res.Err.Error()}); err != nil {
				return err
			}
			continue
		}

		var saved report.Snapshots
		if s.sink != nil {
			saved, s.lastSnapshot, err = s.snapshots.Write(ctx, s.sink, res.Analysis, s.lastSnapshot)
			if err != nil {
				s.logger.Warn("saving snapshots", zap.Error(err))
			}
		}

		s.games++
		rec := report.NewRecord(report.Game{
			Number:     s.games,
			Analysis:   res.Analysis,
			Accuracies: res.Accuracies,
			Snapshots:  saved,
		})
		if err := emit(&rec, nil); err != nil {
			return err
		}
	}
	return flushParseErrs(len(games) + len(parseErrs))
}

// parseGames splits text into games. submitted[i] is the position of
// games[i] in text; parse failures carry their own position.
func parseGames(text string) (games []*accuracy.Game, submitted []int, parseErrs []GameError, err error) {
	r := pgnio.NewReader(strings.NewReader(text))
	for i := 0; ; i++ {
		pgn, err := r.NextText()
		if errors.Is(err, io.EOF) {
			return games, submitted, parseErrs, nil
		}
		if err != nil {
			return nil, nil, nil, err
		}
		g, err := pgnio.Parse(pgn)
		if err != nil {
			parseErrs = append(parseErrs, GameError{Index: i, Error: err.Error()})
			continue
		}
		games = append(games, g)
		submitted = append(submitted, i)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
