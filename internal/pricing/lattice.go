package pricing

import "fmt"

// Lattice is a flat (row, column) grid backing one trinomial tree.
//
// Rows are interleaved: an even row holds underlying prices and the odd row
// right below it holds the option values for those prices. Adjacent price
// states in a column are therefore two rows apart. Column c holds the 2c+1
// states reachable after c steps, centred on Center().
type Lattice struct {
	rows  int
	cols  int
	cells []float64
}

// NewLattice allocates a (4*steps+2) x (steps+1) lattice.
func NewLattice(steps int) *Lattice {
	if steps < 1 {
		panic(fmt.Sprintf("pricing: lattice needs at least one step, got %d", steps))
	}
	rows, cols := 4*steps+2, steps+1
	return &Lattice{rows: rows, cols: cols, cells: make([]float64, rows*cols)}
}

// Rows returns the number of rows.
func (l *Lattice) Rows() int { return l.rows }

// Cols returns the number of columns (steps + 1).
func (l *Lattice) Cols() int { return l.cols }

// Center is the price row holding the spot at time zero.
func (l *Lattice) Center() int { return l.rows/2 - 1 }

// PriceRow returns the price row for a node k levels above (k > 0) or below
// (k < 0) the centre.
func (l *Lattice) PriceRow(k int) int { return l.Center() - 2*k }

// At returns the cell at (row, col).
func (l *Lattice) At(row, col int) float64 {
	return l.cells[l.index(row, col)]
}

// Set stores v at (row, col).
func (l *Lattice) Set(row, col int, v float64) {
	l.cells[l.index(row, col)] = v
}

// Price returns the underlying price of node k in column col.
func (l *Lattice) Price(k, col int) float64 { return l.At(l.PriceRow(k), col) }

// Value returns the option value of node k in column col.
func (l *Lattice) Value(k, col int) float64 { return l.At(l.PriceRow(k)+1, col) }

func (l *Lattice) index(row, col int) int {
	if row < 0 || row >= l.rows || col < 0 || col >= l.cols {
		panic(fmt.Sprintf("pricing: lattice index (%d,%d) out of range [%d,%d)", row, col, l.rows, l.cols))
	}
	return row*l.cols + col
}
