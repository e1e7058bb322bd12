// Package panel encodes textual panel addresses into linear grid-cell
// indices on the fixed 26x10 inspection grid.
package panel

import (
	"strconv"
)

// Grid dimensions. A panel address is one row letter (A..Z) followed by a
// column number (1..10), e.g. "A1" or "B10".
const (
	GridRows    = 26
	GridColumns = 10
	GridCells   = GridRows * GridColumns
)

// Status classifies an encoding attempt. Malformed input never produces an
// error or panic; it is reported through the status so a batch can keep
// going and retain the raw address text.
type Status int

const (
	// StatusValue means the address parsed and landed inside the grid.
	StatusValue Status = iota
	// StatusExcluded means the address text is unparseable or out of grid
	// and must be excluded from indexed aggregation.
	StatusExcluded
	// StatusNotApplicable means there was no address at all.
	StatusNotApplicable
)

// Result is the tri-state outcome of encoding one panel address.
type Result struct {
	Index  int
	Status Status
}

// Valid reports whether the result carries a usable grid index.
func (r Result) Valid() bool { return r.Status == StatusValue }

// Encode maps a panel address onto its linear grid-cell index.
//
// Convention: indices are 1-based. With rowOrdinal = letter - 'A' (A=0,
// B=1, ...) and column parsed as an integer in 1..10,
//
//	Index = rowOrdinal*10 + column
//
// so "A1" -> 1, "A10" -> 10, "B1" -> 11 and "Z10" -> 260. Every valid
// address lands in 1..GridCells.
//
// Empty input yields StatusNotApplicable. Codes shorter than two
// characters, a leading byte outside A..Z, a non-numeric column suffix, or
// a column outside 1..10 yield StatusExcluded. Encode never fails.
func Encode(addr string) Result {
	if addr == "" {
		return Result{Status: StatusNotApplicable}
	}
	if len(addr) < 2 {
		return Result{Status: StatusExcluded}
	}

	row := addr[0]
	if row < 'A' || row > 'Z' {
		return Result{Status: StatusExcluded}
	}

	col, err := strconv.Atoi(addr[1:])
	if err != nil || col < 1 || col > GridColumns {
		return Result{Status: StatusExcluded}
	}

	return Result{
		Index:  int(row-'A')*GridColumns + col,
		Status: StatusValue,
	}
}
