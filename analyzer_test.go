package accuracy

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/notnil/chess"

	"github.com/discochess/accuracy/internal/engine"
	"github.com/discochess/accuracy/internal/engine/fakeengine"
)

// newGame plays SAN moves from the initial position. Games without a
// TimeControl header get a ten minute one so clock tracking accepts them.
func newGame(t *testing.T, headers Headers, moves ...string) *Game {
	t.Helper()
	h := Headers{TagTimeControl: "600"}
	for k, v := range headers {
		h[k] = v
	}
	headers = h

	g := chess.NewGame()
	for _, m := range moves {
		if err := g.MoveStr(m); err != nil {
			t.Fatalf("MoveStr(%q) error = %v", m, err)
		}
	}
	return &Game{Headers: headers, Moves: g.Moves()}
}

func newAnalyzerWith(t *testing.T, eval engine.Evaluator, opts ...Option) *Analyzer {
	t.Helper()
	a, err := New(append([]Option{WithEvaluator(eval)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_RequiresEvaluator(t *testing.T) {
	_, err := New()
	if !errors.Is(err, ErrNoEvaluator) {
		t.Errorf("New() error = %v, want ErrNoEvaluator", err)
	}
}

func TestNew_InvalidDepth(t *testing.T) {
	if _, err := New(WithEvaluator(fakeengine.New()), WithDepth(0)); err == nil {
		t.Error("New() with depth 0 should fail")
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	fake := fakeengine.New(
		engine.CP(0),    // start position
		engine.CP(-42),  // 1. e4
		engine.CP(1500), // 1... e5
		engine.CP(1500), // 2. Nf3
		engine.CP(1500), // 2... Nc6
	)
	a := newAnalyzerWith(t, fake, WithDepth(12))

	headers := Headers{TagWhite: "alice", TagBlack: "bob", TagResult: "1-0", TagTimeControl: "180+2"}
	g := newGame(t, headers, "e4", "e5", "Nf3", "Nc6")
	g.Clocks = []time.Duration{179 * time.Second, 178 * time.Second, 170 * time.Second, 175 * time.Second}

	analysis, err := a.Analyze(context.Background(), g)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(analysis.Moves) != 4 {
		t.Fatalf("Analyze() returned %d moves, want 4", len(analysis.Moves))
	}

	tests := []struct {
		san        string
		number     int
		side       chess.Color
		eval       float64
		delta      float64
		winPercent float64
		accuracy   float64
		grade      Grade
		spent      time.Duration
	}{
		{san: "e4", number: 1, side: chess.White, eval: -0.42, delta: -0.42, winPercent: 46.14150285897469, accuracy: 85.04422618107472, grade: GradeGood, spent: 3 * time.Second},
		{san: "e5", number: 1, side: chess.Black, eval: -15, delta: -15.42, winPercent: 100 - 99.60225143948907, accuracy: 7.891837621427011, grade: GradeBlunder, spent: 4 * time.Second},
		{san: "Nf3", number: 2, side: chess.White, eval: 15, delta: 0, winPercent: 99.60225143948907, accuracy: 100, grade: GradeBest, spent: 11 * time.Second},
		{san: "Nc6", number: 2, side: chess.Black, eval: -15, delta: 0, winPercent: 100 - 99.60225143948907, accuracy: 100, grade: GradeBest, spent: 5 * time.Second},
	}

	for i, tt := range tests {
		got := analysis.Moves[i]
		if got.SAN != tt.san {
			t.Errorf("move %d SAN = %q, want %q", i, got.SAN, tt.san)
		}
		if got.MoveNumber != tt.number {
			t.Errorf("move %d MoveNumber = %d, want %d", i, got.MoveNumber, tt.number)
		}
		if got.Side != tt.side {
			t.Errorf("move %d Side = %v, want %v", i, got.Side, tt.side)
		}
		if math.Abs(got.Eval-tt.eval) > 1e-9 {
			t.Errorf("move %d Eval = %v, want %v", i, got.Eval, tt.eval)
		}
		if math.Abs(got.Delta-tt.delta) > 1e-9 {
			t.Errorf("move %d Delta = %v, want %v", i, got.Delta, tt.delta)
		}
		if math.Abs(got.WinPercent-tt.winPercent) > 1e-9 {
			t.Errorf("move %d WinPercent = %v, want %v", i, got.WinPercent, tt.winPercent)
		}
		if math.Abs(got.Accuracy-tt.accuracy) > 1e-9 {
			t.Errorf("move %d Accuracy = %v, want %v", i, got.Accuracy, tt.accuracy)
		}
		if got.Grade != tt.grade {
			t.Errorf("move %d Grade = %q, want %q", i, got.Grade, tt.grade)
		}
		if got.Time != tt.spent {
			t.Errorf("move %d Time = %v, want %v", i, got.Time, tt.spent)
		}
	}

	blunders := analysis.Blunders()
	if len(blunders) != 1 {
		t.Fatalf("Blunders() returned %d moves, want 1", len(blunders))
	}
	if blunders[0].FEN == "" || len(blunders[0].Snapshot) == 0 {
		t.Error("blunder should carry a FEN and a snapshot")
	}
	if analysis.Moves[0].FEN != "" || analysis.Moves[0].Snapshot != nil {
		t.Error("non-blunder should carry neither FEN nor snapshot")
	}

	for _, d := range fake.Depths() {
		if d != 12 {
			t.Errorf("evaluation depth = %d, want 12", d)
		}
	}
	if got := fake.Calls(); got != 5 {
		t.Errorf("evaluations = %d, want 5", got)
	}
}

func TestAnalyzer_Analyze_Continuity(t *testing.T) {
	fake := fakeengine.New(engine.CP(20), engine.CP(35), engine.CP(-80), engine.MateIn(3), engine.CP(400), engine.MateIn(-2))
	a := newAnalyzerWith(t, fake, WithSnapshots(false))

	g := newGame(t, nil, "d4", "d5", "c4", "e6", "Nc3")
	analysis, err := a.Analyze(context.Background(), g)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	prevWhite := 0.2
	for i, m := range analysis.Moves {
		wantDelta := m.WhiteEval - prevWhite
		if m.Side == chess.Black {
			wantDelta = -wantDelta
		}
		if math.Abs(m.Delta-wantDelta) > 1e-9 {
			t.Errorf("move %d Delta = %v, want %v", i, m.Delta, wantDelta)
		}
		if m.Snapshot != nil {
			t.Errorf("move %d has a snapshot with snapshots disabled", i)
		}
		if m.Time != 0 {
			t.Errorf("move %d Time = %v, want 0 without clocks", i, m.Time)
		}
		prevWhite = m.WhiteEval
	}
	if got := analysis.Moves[2].WhiteEval; got != 15 {
		t.Errorf("mate score WhiteEval = %v, want 15", got)
	}
}

func TestAnalyzer_Analyze_ConstantEvaluationIsPerfect(t *testing.T) {
	fake := fakeengine.New()
	fake.SetFallback(engine.CP(35))
	a := newAnalyzerWith(t, fake)

	g := newGame(t, nil, "e4", "c5", "Nf3", "d6", "d4", "cxd4")
	analysis, err := a.Analyze(context.Background(), g)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	for i, m := range analysis.Moves {
		if m.Accuracy != 100 || m.Grade != GradeBest {
			t.Errorf("move %d = %v/%q, want 100/best", i, m.Accuracy, m.Grade)
		}
	}

	acc, err := analysis.GameAccuracy()
	if err != nil {
		t.Fatalf("GameAccuracy() error = %v", err)
	}
	if math.Abs(acc.White-100) > 1e-9 || math.Abs(acc.Black-100) > 1e-9 {
		t.Errorf("GameAccuracy() = %+v, want 100 for both sides", acc)
	}
}

func TestAnalyzer_Analyze_DoesNotModifyGame(t *testing.T) {
	a := newAnalyzerWith(t, fakeengine.New())

	g := newGame(t, Headers{TagWhite: "a"}, "e4", "e5")
	before := g.Moves[0].String()
	if _, err := a.Analyze(context.Background(), g); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if g.Start != nil {
		t.Error("Analyze() set the game's start position")
	}
	if got := g.Moves[0].String(); got != before {
		t.Errorf("first move = %q after analysis, want %q", got, before)
	}
}

func TestAnalyzer_Analyze_UnrecognizedTimeControl(t *testing.T) {
	fake := fakeengine.New()
	a := newAnalyzerWith(t, fake)

	g := newGame(t, Headers{TagTimeControl: "1/259200"}, "e4")
	g.Clocks = []time.Duration{time.Hour}

	_, err := a.Analyze(context.Background(), g)
	if !errors.Is(err, ErrUnrecognizedTimeControl) {
		t.Fatalf("Analyze() error = %v, want ErrUnrecognizedTimeControl", err)
	}
	var gameErr *GameError
	if !errors.As(err, &gameErr) || gameErr.Ply != -1 {
		t.Errorf("Analyze() error = %#v, want a GameError with ply -1", err)
	}
	if got := fake.Calls(); got != 0 {
		t.Errorf("evaluations = %d, want 0 before the time control is known", got)
	}
}

func TestAnalyzer_Analyze_TimeControlCheckedWithoutClocks(t *testing.T) {
	tests := []struct {
		name string
		tc   string
	}{
		{name: "garbage", tc: "abc"},
		{name: "unknown", tc: "-"},
		{name: "missing", tc: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := fakeengine.New()
			a := newAnalyzerWith(t, fake)

			g := newGame(t, nil, "e4", "e5")
			g.Headers[TagTimeControl] = tt.tc

			_, err := a.Analyze(context.Background(), g)
			if !errors.Is(err, ErrUnrecognizedTimeControl) {
				t.Fatalf("Analyze() error = %v, want ErrUnrecognizedTimeControl", err)
			}
			if got := fake.Calls(); got != 0 {
				t.Errorf("evaluations = %d, want 0", got)
			}
		})
	}
}

func TestAnalyzer_Analyze_NoReadouts(t *testing.T) {
	a := newAnalyzerWith(t, fakeengine.New())

	analysis, err := a.Analyze(context.Background(), newGame(t, Headers{TagTimeControl: "180+2"}, "e4", "e5"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	for i, m := range analysis.Moves {
		if m.Time != 0 {
			t.Errorf("move %d Time = %v, want 0 without readouts", i, m.Time)
		}
	}
}

func TestAnalyzer_Analyze_ClockMismatch(t *testing.T) {
	fake := fakeengine.New()
	a := newAnalyzerWith(t, fake)

	g := newGame(t, Headers{TagTimeControl: "180+2"}, "e4", "e5", "Nf3")
	g.Clocks = []time.Duration{179 * time.Second, 178 * time.Second}

	_, err := a.Analyze(context.Background(), g)
	if !errors.Is(err, ErrClockMismatch) {
		t.Fatalf("Analyze() error = %v, want ErrClockMismatch", err)
	}
	if got := fake.Calls(); got != 0 {
		t.Errorf("evaluations = %d, want 0", got)
	}
}

func TestAnalyzer_Analyze_ClocksDisabledIgnoresTimeControl(t *testing.T) {
	a := newAnalyzerWith(t, fakeengine.New(), WithClocks(false))

	g := newGame(t, Headers{TagTimeControl: "-"}, "e4")
	g.Clocks = []time.Duration{time.Minute}

	analysis, err := a.Analyze(context.Background(), g)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got := analysis.Moves[0].Time; got != 0 {
		t.Errorf("Time = %v, want 0 with clocks disabled", got)
	}
}

func TestAnalyzer_Analyze_EvaluatorFailure(t *testing.T) {
	fake := fakeengine.New()
	fake.FailAt(2, engine.ErrUnavailable)
	a := newAnalyzerWith(t, fake)

	g := newGame(t, Headers{TagWhite: "alice", TagBlack: "bob", TagResult: "0-1"}, "e4", "e5", "Nf3")
	_, err := a.Analyze(context.Background(), g)
	if !errors.Is(err, ErrEvaluatorUnavailable) {
		t.Fatalf("Analyze() error = %v, want ErrEvaluatorUnavailable", err)
	}

	var gameErr *GameError
	if !errors.As(err, &gameErr) {
		t.Fatalf("Analyze() error = %T, want *GameError", err)
	}
	if gameErr.Ply != 1 || gameErr.White != "alice" || gameErr.Black != "bob" || gameErr.Result != "0-1" {
		t.Errorf("GameError = %+v, want ply 1 of alice vs bob (0-1)", gameErr)
	}
}

func TestAnalyzer_Analyze_Timeout(t *testing.T) {
	fake := fakeengine.New()
	fake.Block()
	a := newAnalyzerWith(t, fake, WithEvalTimeout(10*time.Millisecond))

	_, err := a.Analyze(context.Background(), newGame(t, nil, "e4"))
	if !errors.Is(err, ErrEvaluatorTimeout) {
		t.Errorf("Analyze() error = %v, want ErrEvaluatorTimeout", err)
	}
}

func TestAnalyzer_Analyze_FromPosition(t *testing.T) {
	// Black to move on fullmove 12.
	opt, err := chess.FEN("r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 3 12")
	if err != nil {
		t.Fatalf("FEN() error = %v", err)
	}
	cg := chess.NewGame(opt)
	start := cg.Position()
	for _, m := range []string{"Nf6", "Nc3"} {
		if err := cg.MoveStr(m); err != nil {
			t.Fatalf("MoveStr(%q) error = %v", m, err)
		}
	}

	fake := fakeengine.New(engine.CP(0), engine.CP(0), engine.CP(0))
	a := newAnalyzerWith(t, fake, WithClocks(false))

	analysis, err := a.Analyze(context.Background(), &Game{Start: start, Moves: cg.Moves()})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	first, second := analysis.Moves[0], analysis.Moves[1]
	if first.Side != chess.Black || first.MoveNumber != 12 {
		t.Errorf("first move = %v on %d, want black on 12", first.Side, first.MoveNumber)
	}
	if second.Side != chess.White || second.MoveNumber != 13 {
		t.Errorf("second move = %v on %d, want white on 13", second.Side, second.MoveNumber)
	}
}

func TestAnalysis_GameAccuracy_BlackFirstSingleMove(t *testing.T) {
	opt, err := chess.FEN("r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 3 12")
	if err != nil {
		t.Fatalf("FEN() error = %v", err)
	}
	cg := chess.NewGame(opt)
	start := cg.Position()
	if err := cg.MoveStr("Nf6"); err != nil {
		t.Fatalf("MoveStr() error = %v", err)
	}

	a := newAnalyzerWith(t, fakeengine.New(), WithClocks(false))
	analysis, err := a.Analyze(context.Background(), &Game{Start: start, Moves: cg.Moves()})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	_, err = analysis.GameAccuracy()
	if !errors.Is(err, ErrEmptySideSample) {
		t.Fatalf("GameAccuracy() error = %v, want ErrEmptySideSample", err)
	}
	if !strings.HasSuffix(err.Error(), "white") {
		t.Errorf("GameAccuracy() error = %q, want it to name white", err)
	}
}

func TestAnalyzer_Close(t *testing.T) {
	fake := fakeengine.New()
	a, err := New(WithEvaluator(fake))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !fake.Closed() {
		t.Error("evaluator should be closed")
	}
	if err := a.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("Close() second call error = %v, want ErrClosed", err)
	}
	if _, err := a.Analyze(context.Background(), newGame(t, nil, "e4")); !errors.Is(err, ErrClosed) {
		t.Errorf("Analyze() after close error = %v, want ErrClosed", err)
	}
}
