// Package endings evaluates the final positions of a player's archived
// games and classifies how the player stood when each game ended.
package endings

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/notnil/chess"
	"go.uber.org/zap"

	"github.com/discochess/accuracy/internal/archive"
	"github.com/discochess/accuracy/internal/engine"
)

// DefaultDepth is the search depth used for final positions.
const DefaultDepth = 20

// Category classifies a final position from the player's side.
type Category string

// Position categories.
const (
	Winning Category = "winning"
	Losing  Category = "losing"
	Neutral Category = "neutral"
)

// decisiveCP is the margin beyond which a position counts as decided.
const decisiveCP = 300

// Row describes how one game ended for the player of interest.
type Row struct {
	DateTime    string
	Side        string
	Elo         int
	Opponent    string
	OpponentElo int
	TimeClass   string
	TimeControl string

	// Result is "win", "lose" or "draw" for the player of interest.
	Result string

	// EndReason is the loser's result code, or the player's own code
	// for a draw.
	EndReason string

	FEN string

	// Score is the final evaluation from the player's side in centipawns,
	// or "#+n"/"#-n" for forced mates.
	Score    string
	Category Category
}

// FindUOI returns the username, lowercased, that takes part in the most
// games. Ties go to the name seen first.
func FindUOI(games []archive.Game) string {
	counts := make(map[string]int)
	var order []string
	for _, g := range games {
		for _, name := range []string{g.White.Username, g.Black.Username} {
			name = strings.ToLower(name)
			if _, ok := counts[name]; !ok {
				order = append(order, name)
			}
			counts[name]++
		}
	}

	var uoi string
	best := 0
	for _, name := range order {
		if counts[name] > best {
			uoi, best = name, counts[name]
		}
	}
	return uoi
}

// FormatScore renders a White-perspective score from side's point of view.
func FormatScore(s engine.Score, side chess.Color) string {
	if side == chess.Black {
		s = s.Negate()
	}
	switch {
	case s.Mate != nil && *s.Mate == 0:
		if s.MatedSide == side {
			return "#-0"
		}
		return "#+0"
	case s.Mate != nil && *s.Mate > 0:
		return "#+" + strconv.Itoa(*s.Mate)
	case s.Mate != nil:
		return "#" + strconv.Itoa(*s.Mate)
	case s.Centipawns == nil:
		return "?"
	case *s.Centipawns > 0:
		return "+" + strconv.Itoa(*s.Centipawns)
	}
	return strconv.Itoa(*s.Centipawns)
}

// Categorize classifies a score produced by FormatScore. Mates decide by
// their sign; other scores need more than three pawns either way.
func Categorize(score string) (Category, error) {
	switch {
	case strings.HasPrefix(score, "#+"):
		return Winning, nil
	case strings.HasPrefix(score, "#-"):
		return Losing, nil
	case strings.HasPrefix(score, "#"):
		return Neutral, nil
	}

	cp, err := strconv.ParseFloat(score, 64)
	if err != nil {
		return "", fmt.Errorf("invalid score %q: %w", score, err)
	}
	switch {
	case cp > decisiveCP:
		return Winning, nil
	case cp < -decisiveCP:
		return Losing, nil
	}
	return Neutral, nil
}

var tagPattern = regexp.MustCompile(`\[(\w+) "([^"]*)"\]`)

// tags reads the tag pairs of a PGN.
func tags(pgn string) map[string]string {
	out := make(map[string]string)
	for _, m := range tagPattern.FindAllStringSubmatch(pgn, -1) {
		if _, ok := out[m[1]]; !ok {
			out[m[1]] = m[2]
		}
	}
	return out
}

// Analyzer evaluates final positions with one engine handle.
type Analyzer struct {
	evaluator engine.Evaluator
	depth     int
	logger    *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDepth sets the search depth. Default is 20.
func WithDepth(depth int) Option {
	return func(a *Analyzer) {
		a.depth = depth
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// New returns an Analyzer using evaluator. The caller keeps ownership of
// the evaluator.
func New(evaluator engine.Evaluator, opts ...Option) *Analyzer {
	a := &Analyzer{
		evaluator: evaluator,
		depth:     DefaultDepth,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze builds one row per game for the most frequent participant.
func (a *Analyzer) Analyze(ctx context.Context, games []archive.Game) (string, []Row, error) {
	uoi := FindUOI(games)
	a.logger.Info("player of interest", zap.String("username", uoi), zap.Int("games", len(games)))

	rows := make([]Row, 0, len(games))
	for _, g := range games {
		row, err := a.Row(ctx, g, uoi)
		if err != nil {
			return uoi, rows, fmt.Errorf("game %s: %w", g.URL, err)
		}
		rows = append(rows, row)
	}
	return uoi, rows, nil
}

// Row describes how g ended for uoi.
func (a *Analyzer) Row(ctx context.Context, g archive.Game, uoi string) (Row, error) {
	pgnTags := tags(g.PGN)

	side, player, opponent := chess.White, g.White, g.Black
	if strings.ToLower(g.White.Username) != uoi {
		side, player, opponent = chess.Black, g.Black, g.White
	}

	row := Row{
		DateTime:    dateTime(pgnTags, g.EndTime),
		Side:        colorName(side),
		Elo:         player.Rating,
		Opponent:    strings.ToLower(opponent.Username),
		OpponentElo: opponent.Rating,
		TimeClass:   g.TimeClass,
		TimeControl: g.TimeControl,
		FEN:         g.FEN,
	}

	switch pgnTags["Result"] {
	case "1-0":
		row.Result = outcome(side == chess.White)
		row.EndReason = g.Black.Result
	case "0-1":
		row.Result = outcome(side == chess.Black)
		row.EndReason = g.White.Result
	default:
		row.Result = "draw"
		row.EndReason = player.Result
	}

	fen, err := chess.FEN(g.FEN)
	if err != nil {
		return Row{}, fmt.Errorf("parsing final position: %w", err)
	}
	pos := chess.NewGame(fen).Position()

	score, err := a.evaluator.Evaluate(ctx, pos, a.depth)
	if err != nil {
		return Row{}, fmt.Errorf("evaluating final position: %w", err)
	}
	row.Score = FormatScore(score, side)
	row.Category, err = Categorize(row.Score)
	if err != nil {
		return Row{}, err
	}

	a.logger.Debug("final position analyzed",
		zap.String("url", g.URL),
		zap.String("score", row.Score),
		zap.String("category", string(row.Category)),
	)
	return row, nil
}

func outcome(won bool) string {
	if won {
		return "win"
	}
	return "lose"
}

func colorName(c chess.Color) string {
	if c == chess.White {
		return "white"
	}
	return "black"
}

// dateTime formats the game's UTC start as "YYYY/MM/DD hh:mm:ss", falling
// back to the archive end time when the PGN has no UTC tags.
func dateTime(pgnTags map[string]string, endTime int64) string {
	date, clock := pgnTags["UTCDate"], pgnTags["UTCTime"]
	if date == "" || clock == "" {
		return time.Unix(endTime, 0).UTC().Format("2006/01/02 15:04:05")
	}
	return strings.ReplaceAll(date, ".", "/") + " " + clock
}
