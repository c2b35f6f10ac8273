// Package pgnio imports games from PGN text and from archive JSON, and
// converts archives to PGN.
package pgnio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/notnil/chess"

	"github.com/discochess/accuracy"
	"github.com/discochess/accuracy/internal/archive"
	"github.com/discochess/accuracy/internal/codec"
)

// maxLine bounds a single PGN line.
const maxLine = 1024 * 1024

var clockPattern = regexp.MustCompile(`\[%clk\s+(\d+):(\d{1,2}):(\d{1,2}(?:\.\d+)?)\]`)

// Reader splits a PGN stream into games.
type Reader struct {
	scanner *bufio.Scanner
	pending string
	done    bool
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	return &Reader{scanner: scanner}
}

// NextText returns the raw text of the next game, or io.EOF.
// A game starts at a tag line that follows movetext.
func (r *Reader) NextText() (string, error) {
	if r.done {
		return "", io.EOF
	}

	var text strings.Builder
	var seenMoves bool
	if r.pending != "" {
		text.WriteString(r.pending)
		text.WriteString("\n")
		r.pending = ""
	}

	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && seenMoves {
			r.pending = line
			return text.String(), nil
		}
		if trimmed != "" && !strings.HasPrefix(trimmed, "[") {
			seenMoves = true
		}
		text.WriteString(line)
		text.WriteString("\n")
	}
	r.done = true

	if err := r.scanner.Err(); err != nil {
		return "", fmt.Errorf("reading PGN: %w", err)
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", io.EOF
	}
	return text.String(), nil
}

// Next parses the next game, or returns io.EOF.
func (r *Reader) Next() (*accuracy.Game, error) {
	text, err := r.NextText()
	if err != nil {
		return nil, err
	}
	return Parse(text)
}

// Parse converts the PGN text of one game. Clock readouts are kept as
// found; the analyzer rejects games whose readouts do not pair up with
// the moves.
func Parse(text string) (*accuracy.Game, error) {
	pgn, err := chess.PGN(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing PGN: %w", err)
	}
	cg := chess.NewGame(pgn)

	headers := make(accuracy.Headers)
	for _, tp := range cg.TagPairs() {
		headers[tp.Key] = tp.Value
	}

	g := &accuracy.Game{
		Headers: headers,
		Start:   cg.Positions()[0],
		Moves:   cg.Moves(),
	}
	g.Clocks = ParseClocks(text)
	return g, nil
}

// ParseClocks returns every [%clk h:mm:ss(.f)] readout in text, in order.
func ParseClocks(text string) []time.Duration {
	matches := clockPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	clocks := make([]time.Duration, 0, len(matches))
	for _, m := range matches {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		d := time.Duration(h)*time.Hour + time.Duration(min)*time.Minute +
			time.Duration(sec*float64(time.Second))
		clocks = append(clocks, d.Round(time.Millisecond))
	}
	return clocks
}

// FromArchive converts one archived game.
func FromArchive(ag archive.Game) (*accuracy.Game, error) {
	g, err := Parse(ag.PGN)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", ag.URL, err)
	}
	if g.Headers.TimeControl() == "" && ag.TimeControl != "" {
		g.Headers[accuracy.TagTimeControl] = ag.TimeControl
	}
	return g, nil
}

// ReadAll parses every game of a PGN stream. Unparsable games are
// skipped and reported together in the returned error.
func ReadAll(r io.Reader) ([]*accuracy.Game, error) {
	pr := NewReader(r)

	var games []*accuracy.Game
	var errs []error
	for i := 0; ; i++ {
		text, err := pr.NextText()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return games, err
		}
		g, err := Parse(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("game %d: %w", i+1, err))
			continue
		}
		games = append(games, g)
	}
	return games, errors.Join(errs...)
}

// IsArchive reports whether path names an archive JSON file, possibly
// compressed.
func IsArchive(path string) bool {
	if filepath.Ext(path) == ".json" {
		return true
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return codec.ForPath(path) != codec.Plain && filepath.Ext(base) == ".json"
}

// ReadFile imports every game of a PGN or archive file. Compressed
// inputs are recognized by their extension.
func ReadFile(path string) ([]*accuracy.Game, error) {
	if IsArchive(path) {
		archived, err := archive.ReadFile(path)
		if err != nil {
			return nil, err
		}
		games := make([]*accuracy.Game, 0, len(archived))
		var errs []error
		for _, ag := range archived {
			g, err := FromArchive(ag)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			games = append(games, g)
		}
		return games, errors.Join(errs...)
	}

	r, err := codec.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PGN: %w", err)
	}
	defer r.Close()
	return ReadAll(r)
}

// WritePGN writes the PGN of every archived game, separated by a blank
// line, and returns the number of games written.
func WritePGN(w io.Writer, games []archive.Game) (int, error) {
	bw := bufio.NewWriter(w)
	for i, g := range games {
		if _, err := bw.WriteString(g.PGN); err != nil {
			return i, err
		}
		if _, err := bw.WriteString("\n\n"); err != nil {
			return i, err
		}
	}
	return len(games), bw.Flush()
}

// ConvertFile converts an archive file to a PGN file.
func ConvertFile(in, out string) (int, error) {
	games, err := archive.ReadFile(in)
	if err != nil {
		return 0, err
	}

	w, err := codec.Create(out)
	if err != nil {
		return 0, fmt.Errorf("creating PGN: %w", err)
	}
	n, err := WritePGN(w, games)
	if err != nil {
		w.Close()
		return n, fmt.Errorf("writing PGN: %w", err)
	}
	return n, w.Close()
}
