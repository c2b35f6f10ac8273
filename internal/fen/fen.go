// Package fen splits FEN (Forsyth-Edwards Notation) records into their
// fields.
package fen

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidFEN indicates the FEN string is malformed.
var ErrInvalidFEN = errors.New("invalid FEN notation")

// Record is a parsed FEN.
type Record struct {
	Placement string
	Turn      string
	Castling  string
	EnPassant string

	// HalfMove and FullMove are the move counters. Records without them
	// read as 0 and 1.
	HalfMove int
	FullMove int
}

// Parse splits fen into its fields. The move counters are optional.
func Parse(fen string) (Record, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 || len(parts) > 6 {
		return Record{}, ErrInvalidFEN
	}
	if !isValidPiecePlacement(parts[0]) {
		return Record{}, ErrInvalidFEN
	}
	if parts[1] != "w" && parts[1] != "b" {
		return Record{}, ErrInvalidFEN
	}

	r := Record{
		Placement: parts[0],
		Turn:      parts[1],
		Castling:  parts[2],
		EnPassant: parts[3],
		FullMove:  1,
	}
	if len(parts) > 4 {
		n, err := strconv.Atoi(parts[4])
		if err != nil || n < 0 {
			return Record{}, ErrInvalidFEN
		}
		r.HalfMove = n
	}
	if len(parts) > 5 {
		n, err := strconv.Atoi(parts[5])
		if err != nil || n < 1 {
			return Record{}, ErrInvalidFEN
		}
		r.FullMove = n
	}
	return r, nil
}

// Key returns the position part of the record: placement, side to move,
// castling rights and en passant square. Positions reached by different
// move orders share a key.
func (r Record) Key() string {
	return r.Placement + " " + r.Turn + " " + r.Castling + " " + r.EnPassant
}

// isValidPiecePlacement validates the piece placement part of a FEN.
func isValidPiecePlacement(placement string) bool {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return false
	}

	for _, rank := range ranks {
		squares := 0
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				squares += int(ch - '0')
			case strings.ContainsRune("PNBRQKpnbrqk", ch):
				squares++
			default:
				return false
			}
		}
		if squares != 8 {
			return false
		}
	}

	return true
}
