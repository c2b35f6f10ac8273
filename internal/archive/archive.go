// Package archive downloads and stores monthly game archives from the
// chess.com published-data API.
package archive

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/discochess/accuracy/internal/codec"
)

// Player is one side of an archived game.
type Player struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Result   string `json:"result"`
	ID       string `json:"@id,omitempty"`
	UUID     string `json:"uuid,omitempty"`
}

// Game is one game of a monthly archive.
type Game struct {
	URL         string `json:"url"`
	PGN         string `json:"pgn"`
	TimeControl string `json:"time_control"`
	EndTime     int64  `json:"end_time"`
	Rated       bool   `json:"rated"`
	TCN         string `json:"tcn,omitempty"`
	UUID        string `json:"uuid,omitempty"`
	InitialFEN  string `json:"initial_setup,omitempty"`
	FEN         string `json:"fen"`
	TimeClass   string `json:"time_class"`
	Rules       string `json:"rules"`
	White       Player `json:"white"`
	Black       Player `json:"black"`
}

// Month is a calendar month of an archive.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses "YYYY/MM".
func ParseMonth(s string) (Month, error) {
	year, month, ok := strings.Cut(s, "/")
	if !ok {
		return Month{}, fmt.Errorf("month %q is not YYYY/MM", s)
	}
	y, err := strconv.Atoi(year)
	if err != nil || len(year) != 4 {
		return Month{}, fmt.Errorf("month %q has an invalid year", s)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return Month{}, fmt.Errorf("month %q has an invalid month", s)
	}
	return Month{Year: y, Month: time.Month(m)}, nil
}

// String formats the month as "YYYY/MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d/%02d", m.Year, int(m.Month))
}

// Next returns the following month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Before reports whether m is earlier than o.
func (m Month) Before(o Month) bool {
	return m.Year < o.Year || (m.Year == o.Year && m.Month < o.Month)
}

// Months returns every month from first to last, inclusive.
func Months(first, last Month) []Month {
	var months []Month
	for m := first; !last.Before(m); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// ReadFile reads a merged archive: a JSON array of games, optionally
// compressed according to the file extension.
func ReadFile(path string) ([]Game, error) {
	r, err := codec.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	var games []Game
	if err := json.NewDecoder(r).Decode(&games); err != nil {
		return nil, fmt.Errorf("decoding archive %s: %w", path, err)
	}
	return games, nil
}

// WriteFile writes games as an indented JSON array.
func WriteFile(path string, games []Game) error {
	w, err := codec.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if games == nil {
		games = []Game{}
	}
	if err := enc.Encode(games); err != nil {
		w.Close()
		return fmt.Errorf("encoding archive: %w", err)
	}
	return w.Close()
}
