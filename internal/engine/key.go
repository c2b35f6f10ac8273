package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"

	"github.com/discochess/accuracy/internal/fen"
)

// PositionKey identifies a search of pos at depth: the first four FEN
// fields plus the depth. Positions differing only in their move counters
// share a key.
func PositionKey(pos *chess.Position, depth int) string {
	key := pos.String()
	if r, err := fen.Parse(key); err == nil {
		key = r.Key()
	}
	return key + " d" + strconv.Itoa(depth)
}

// MarshalText encodes the score as "cp <n>", "mate <n>" or "mated <w|b>".
func (s Score) MarshalText() ([]byte, error) {
	switch {
	case s.Mate != nil && *s.Mate == 0:
		return []byte("mated " + s.MatedSide.String()), nil
	case s.Mate != nil:
		return []byte("mate " + strconv.Itoa(*s.Mate)), nil
	case s.Centipawns != nil:
		return []byte("cp " + strconv.Itoa(*s.Centipawns)), nil
	}
	return nil, fmt.Errorf("engine: empty score")
}

// UnmarshalText decodes a score written by MarshalText.
func (s *Score) UnmarshalText(text []byte) error {
	kind, value, ok := strings.Cut(string(text), " ")
	if !ok {
		return fmt.Errorf("engine: invalid score %q", text)
	}

	switch kind {
	case "mated":
		switch value {
		case "w":
			*s = Mated(chess.White)
		case "b":
			*s = Mated(chess.Black)
		default:
			return fmt.Errorf("engine: invalid mated side %q", value)
		}
		return nil
	case "mate", "cp":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("engine: invalid score %q: %w", text, err)
		}
		if kind == "mate" {
			*s = MateIn(n)
		} else {
			*s = CP(n)
		}
		return nil
	}
	return fmt.Errorf("engine: invalid score %q", text)
}
