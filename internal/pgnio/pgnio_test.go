package pgnio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/discochess/accuracy/internal/archive"
)

const twoGames = `[Event "Live Chess"]
[White "alice"]
[Black "bob"]
[Result "1-0"]
[TimeControl "180+2"]

1. e4 {[%clk 0:02:59.9]} 1... e5 {[%clk 0:02:58]} 2. Qh5 {[%clk 0:02:55.5]} 2... Nc6 {[%clk 0:02:50]} 3. Bc4 {[%clk 0:02:54]} 3... Nf6 {[%clk 0:02:40]} 4. Qxf7# {[%clk 0:02:53]} 1-0

[Event "Live Chess"]
[White "carol"]
[Black "alice"]
[Result "0-1"]
[TimeControl "600"]

1. f3 e5 2. g4 Qh4# 0-1
`

func TestReader_Next(t *testing.T) {
	r := NewReader(strings.NewReader(twoGames))

	first, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got := first.Headers.White(); got != "alice" {
		t.Errorf("White() = %q, want %q", got, "alice")
	}
	if got := first.Plies(); got != 7 {
		t.Errorf("Plies() = %d, want 7", got)
	}
	if got := len(first.Clocks); got != 7 {
		t.Fatalf("len(Clocks) = %d, want 7", got)
	}
	if got, want := first.Clocks[0], 2*time.Minute+59*time.Second+900*time.Millisecond; got != want {
		t.Errorf("Clocks[0] = %v, want %v", got, want)
	}
	if first.Start == nil {
		t.Error("Start = nil, want the initial position")
	}

	second, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got := second.Headers.TimeControl(); got != "600" {
		t.Errorf("TimeControl() = %q, want %q", got, "600")
	}
	if got := second.Plies(); got != 4 {
		t.Errorf("Plies() = %d, want 4", got)
	}
	if second.Clocks != nil {
		t.Errorf("Clocks = %v, want nil", second.Clocks)
	}

	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestReader_Empty(t *testing.T) {
	r := NewReader(strings.NewReader("\n\n"))
	if _, err := r.NextText(); !errors.Is(err, io.EOF) {
		t.Errorf("NextText() error = %v, want io.EOF", err)
	}
}

func TestParseClocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []time.Duration
	}{
		{name: "none", text: "1. e4 e5", want: nil},
		{name: "whole seconds", text: "{[%clk 0:03:00]}", want: []time.Duration{3 * time.Minute}},
		{name: "fraction", text: "{[%clk 1:00:00.5]}", want: []time.Duration{time.Hour + 500*time.Millisecond}},
		{
			name: "several",
			text: "1. e4 {[%clk 0:00:10]} e5 {[%clk 0:00:09.1]}",
			want: []time.Duration{10 * time.Second, 9*time.Second + 100*time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseClocks(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseClocks() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseClocks()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParse_PartialClocksKept(t *testing.T) {
	g, err := Parse("[White \"a\"]\n\n1. e4 {[%clk 0:01:00]} e5 2. Nf3 *\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(g.Clocks) != 1 || g.Clocks[0] != time.Minute {
		t.Errorf("Clocks = %v, want [1m0s]", g.Clocks)
	}
	if g.Plies() != 3 {
		t.Errorf("Plies() = %d, want 3", g.Plies())
	}
}

func TestReadAll(t *testing.T) {
	games, err := ReadAll(strings.NewReader(twoGames))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(games) != 2 {
		t.Errorf("ReadAll() returned %d games, want 2", len(games))
	}
}

func TestIsArchive(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"games.json", true},
		{"games.json.zst", true},
		{"games.json.gz", true},
		{"games.pgn", false},
		{"games.pgn.zst", false},
		{"games.zst", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsArchive(tt.path); got != tt.want {
				t.Errorf("IsArchive(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func archivedGames(t *testing.T) []archive.Game {
	t.Helper()
	r := NewReader(strings.NewReader(twoGames))
	var games []archive.Game
	for {
		text, err := r.NextText()
		if errors.Is(err, io.EOF) {
			return games
		}
		if err != nil {
			t.Fatalf("NextText() error = %v", err)
		}
		games = append(games, archive.Game{URL: "https://example.com/game", PGN: strings.TrimSpace(text)})
	}
}

func TestWritePGN(t *testing.T) {
	games := archivedGames(t)

	var buf bytes.Buffer
	n, err := WritePGN(&buf, games)
	if err != nil {
		t.Fatalf("WritePGN() error = %v", err)
	}
	if n != 2 {
		t.Errorf("WritePGN() = %d, want 2", n)
	}
	if !strings.HasSuffix(buf.String(), "0-1\n\n") {
		t.Errorf("WritePGN() output does not end with a blank line")
	}

	back, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(back) != 2 {
		t.Errorf("ReadAll() returned %d games, want 2", len(back))
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "games.json.zst")
	out := filepath.Join(dir, "games.pgn")

	if err := archive.WriteFile(in, archivedGames(t)); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	n, err := ConvertFile(in, out)
	if err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ConvertFile() = %d, want 2", n)
	}

	fromPGN, err := ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile(pgn) error = %v", err)
	}
	fromJSON, err := ReadFile(in)
	if err != nil {
		t.Fatalf("ReadFile(json) error = %v", err)
	}
	if len(fromPGN) != len(fromJSON) {
		t.Errorf("ReadFile() = %d games from PGN, %d from JSON", len(fromPGN), len(fromJSON))
	}
}

func TestFromArchive_TimeControlFallback(t *testing.T) {
	g, err := FromArchive(archive.Game{
		PGN:         "[White \"a\"]\n[Black \"b\"]\n\n1. e4 e5 *",
		TimeControl: "300+5",
	})
	if err != nil {
		t.Fatalf("FromArchive() error = %v", err)
	}
	if got := g.Headers.TimeControl(); got != "300+5" {
		t.Errorf("TimeControl() = %q, want %q", got, "300+5")
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.pgn")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile() error = %v, want os.ErrNotExist", err)
	}
}
