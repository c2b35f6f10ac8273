package engine

import (
	"testing"

	"github.com/notnil/chess"
)

func TestPositionKey(t *testing.T) {
	g := chess.NewGame()
	if err := g.MoveStr("Nf3"); err != nil {
		t.Fatalf("MoveStr() error = %v", err)
	}

	got := PositionKey(g.Position(), 18)
	want := "rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - d18"
	if got != want {
		t.Errorf("PositionKey() = %q, want %q", got, want)
	}
	if PositionKey(g.Position(), 18) == PositionKey(g.Position(), 19) {
		t.Error("PositionKey() ignores the depth")
	}
}

func TestScore_Text(t *testing.T) {
	tests := []struct {
		name  string
		score Score
		want  string
	}{
		{name: "centipawns", score: CP(-42), want: "cp -42"},
		{name: "mate", score: MateIn(3), want: "mate 3"},
		{name: "mated white", score: Mated(chess.White), want: "mated w"},
		{name: "mated black", score: Mated(chess.Black), want: "mated b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := tt.score.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText() error = %v", err)
			}
			if string(text) != tt.want {
				t.Errorf("MarshalText() = %q, want %q", text, tt.want)
			}

			var back Score
			if err := back.UnmarshalText(text); err != nil {
				t.Fatalf("UnmarshalText() error = %v", err)
			}
			if back.String() != tt.score.String() || back.Clamped() != tt.score.Clamped() {
				t.Errorf("UnmarshalText() = %v, want %v", back, tt.score)
			}
		})
	}
}

func TestScore_UnmarshalText_Invalid(t *testing.T) {
	for _, text := range []string{"", "cp", "cp x", "mated q", "eval 3"} {
		var s Score
		if err := s.UnmarshalText([]byte(text)); err == nil {
			t.Errorf("UnmarshalText(%q) error = nil, want error", text)
		}
	}
	if _, err := (Score{}).MarshalText(); err == nil {
		t.Error("MarshalText() of empty score error = nil, want error")
	}
}
