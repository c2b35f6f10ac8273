package accuracy

import (
	"bytes"
	"errors"
	"image/png"
	"testing"

	"github.com/notnil/chess"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		accuracy float64
		want     Grade
	}{
		{accuracy: 0, want: GradeBlunder},
		{accuracy: 19.99, want: GradeBlunder},
		{accuracy: 20, want: GradeMistake},
		{accuracy: 49.9, want: GradeMistake},
		{accuracy: 50, want: GradeInaccurate},
		{accuracy: 79.9, want: GradeInaccurate},
		{accuracy: 80, want: GradeGood},
		{accuracy: 97.99, want: GradeGood},
		{accuracy: 98, want: GradeBest},
		{accuracy: 100, want: GradeBest},
	}

	for _, tt := range tests {
		if got := GradeFor(tt.accuracy); got != tt.want {
			t.Errorf("GradeFor(%v) = %q, want %q", tt.accuracy, got, tt.want)
		}
	}
}

// lastPosition plays moves from the initial position.
func lastPosition(t *testing.T, moves ...string) (*chess.Position, *chess.Move) {
	t.Helper()
	g := chess.NewGame()
	for _, m := range moves {
		if err := g.MoveStr(m); err != nil {
			t.Fatalf("MoveStr(%q) error = %v", m, err)
		}
	}
	played := g.Moves()
	return g.Position(), played[len(played)-1]
}

type failingRenderer struct{}

func (failingRenderer) Render(*chess.Position, *chess.Move) ([]byte, error) {
	return nil, errors.New("no canvas")
}

func TestGrader_Grade(t *testing.T) {
	pos, move := lastPosition(t, "e4", "f6")

	tests := []struct {
		name         string
		renderer     Renderer
		accuracy     float64
		wantGrade    Grade
		wantFEN      bool
		wantSnapshot bool
		wantErr      bool
	}{
		{name: "good move keeps no board", renderer: SVGRenderer{}, accuracy: 85, wantGrade: GradeGood},
		{name: "blunder with diagram", renderer: SVGRenderer{}, accuracy: 7.9, wantGrade: GradeBlunder, wantFEN: true, wantSnapshot: true},
		{name: "blunder without renderer", renderer: nil, accuracy: 7.9, wantGrade: GradeBlunder, wantFEN: true},
		{name: "renderer failure", renderer: failingRenderer{}, accuracy: 1, wantGrade: GradeBlunder, wantFEN: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := MoveEvaluation{Accuracy: tt.accuracy}
			err := NewGrader(tt.renderer).Grade(&rec, pos, move)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Grade() error = %v, wantErr %v", err, tt.wantErr)
			}
			if rec.Grade != tt.wantGrade {
				t.Errorf("Grade = %q, want %q", rec.Grade, tt.wantGrade)
			}
			if rec.Blunder != (tt.wantGrade == GradeBlunder) {
				t.Errorf("Blunder = %v, want %v", rec.Blunder, tt.wantGrade == GradeBlunder)
			}
			if got := rec.FEN != ""; got != tt.wantFEN {
				t.Errorf("FEN = %q, want set = %v", rec.FEN, tt.wantFEN)
			}
			if tt.wantFEN && rec.FEN != pos.String() {
				t.Errorf("FEN = %q, want %q", rec.FEN, pos.String())
			}
			if got := len(rec.Snapshot) > 0; got != tt.wantSnapshot {
				t.Errorf("Snapshot set = %v, want %v", got, tt.wantSnapshot)
			}
		})
	}
}

func TestSVGRenderer_Render(t *testing.T) {
	pos, move := lastPosition(t, "e4")

	svg, err := SVGRenderer{}.Render(pos, move)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Errorf("Render() output is not an SVG document: %.60q", svg)
	}
}

func TestPNGRenderer_Render(t *testing.T) {
	pos, move := lastPosition(t, "e4")

	data, err := PNGRenderer{Size: 64}.Render(pos, move)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := img.Bounds().Dx(); got != 64 {
		t.Errorf("width = %d, want 64", got)
	}
}

func TestRendererFor(t *testing.T) {
	tests := []struct {
		format  string
		want    Renderer
		wantErr bool
	}{
		{format: "svg", want: SVGRenderer{}},
		{format: "", want: SVGRenderer{}},
		{format: "png", want: PNGRenderer{}},
		{format: "gif", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := RendererFor(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RendererFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("RendererFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
