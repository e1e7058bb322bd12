package panel

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRowsDifferByTen(t *testing.T) {
	a1 := Encode("A1")
	b1 := Encode("B1")
	require.True(t, a1.Valid())
	require.True(t, b1.Valid())
	assert.Equal(t, 10, b1.Index-a1.Index)
}

func TestEncodeKnownAddresses(t *testing.T) {
	cases := []struct {
		addr  string
		index int
	}{
		{"A1", 1},
		{"A10", 10},
		{"B1", 11},
		{"B10", 20},
		{"C3", 23},
		{"Z10", 260},
	}
	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			got := Encode(tc.addr)
			require.Equal(t, StatusValue, got.Status)
			assert.Equal(t, tc.index, got.Index)
		})
	}
}

func TestEncodeCoversWholeGrid(t *testing.T) {
	seen := make(map[int]bool, GridCells)
	for row := byte('A'); row <= 'Z'; row++ {
		for col := 1; col <= GridColumns; col++ {
			addr := fmt.Sprintf("%c%d", row, col)
			got := Encode(addr)
			require.Truef(t, got.Valid(), "address %q", addr)
			require.GreaterOrEqual(t, got.Index, 1)
			require.LessOrEqual(t, got.Index, GridCells)
			assert.Falsef(t, seen[got.Index], "index collision at %q", addr)
			seen[got.Index] = true
		}
	}
	assert.Len(t, seen, GridCells)
}

func TestEncodeExcludesMalformedInput(t *testing.T) {
	for _, addr := range []string{"A", "7", "AX", "B1X", "a1", "A0", "A11", "@5", "B-1"} {
		t.Run(addr, func(t *testing.T) {
			got := Encode(addr)
			assert.Equal(t, StatusExcluded, got.Status)
			assert.False(t, got.Valid())
		})
	}
}

func TestEncodeEmptyIsNotApplicable(t *testing.T) {
	got := Encode("")
	assert.Equal(t, StatusNotApplicable, got.Status)
	assert.False(t, got.Valid())
}
