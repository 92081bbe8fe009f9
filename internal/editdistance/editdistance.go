// Package editdistance computes Levenshtein distances between strings and,
// when the full dynamic-programming matrix is retained, reconstructs the
// edit script behind the distance.
//
// Every call returns its own Result, so concurrent callers never observe
// each other's matrices or operations.
package editdistance

import (
	"errors"
)

// ErrMatrixNotRetained is returned when a traceback is requested from a
// Result computed without its matrix.
var ErrMatrixNotRetained = errors.New("edit distance matrix not retained")

// Result holds the outcome of a single distance computation.
type Result struct {
	Distance int

	a, b   []rune
	matrix [][]int
}

// Distance returns the Levenshtein distance between a and b.
func Distance(a, b string) int {
	return Compute(a, b, false).Distance
}

// Compute returns the Levenshtein distance between a and b using unit costs
// for insertion, deletion, and substitution. With retainMatrix the full
// (len(b)+1) x (len(a)+1) matrix is kept for Operations; without it only a
// rolling row over the shorter string is allocated. Lengths are in runes.
func Compute(a, b string, retainMatrix bool) *Result {
	ra, rb := []rune(a), []rune(b)
	if !retainMatrix {
		return &Result{Distance: rollingDistance(ra, rb), a: ra, b: rb}
	}
	m := fullMatrix(ra, rb)
	return &Result{
		Distance: m[len(rb)][len(ra)],
		a:        ra,
		b:        rb,
		matrix:   m,
	}
}

// Matrix returns the retained matrix, rows indexed by b and columns by a,
// or nil if it was not retained.
func (r *Result) Matrix() [][]int {
	return r.matrix
}

// Retained reports whether the matrix was kept.
func (r *Result) Retained() bool {
	return r.matrix != nil
}

// Operations reconstructs the edit script that turns b into a, in
// left-to-right order. No-op diagonal steps are omitted.
func (r *Result) Operations() ([]Operation, error) {
	if r.matrix == nil {
		return nil, ErrMatrixNotRetained
	}
	m := r.matrix
	ops := make([]Operation, 0, r.Distance)
	i, j := len(r.b), len(r.a)
	for i > 0 || j > 0 {
		switch {
		case i == 0:
			j--
			ops = append(ops, Operation{Position: j, Char: r.a[j], Kind: Insertion})
		case j == 0:
			i--
			ops = append(ops, Operation{Position: i, Char: r.b[i], Kind: Deletion})
		default:
			diag, left, top := m[i-1][j-1], m[i][j-1], m[i-1][j]
			switch {
			case diag <= left && diag <= top:
				i--
				j--
				if r.a[j] != r.b[i] {
					ops = append(ops, Operation{Position: j, Char: r.a[j], Kind: Substitution})
				}
			case left <= top:
				j--
				ops = append(ops, Operation{Position: j, Char: r.a[j], Kind: Insertion})
			default:
				i--
				ops = append(ops, Operation{Position: i, Char: r.b[i], Kind: Deletion})
			}
		}
	}
	for lo, hi := 0, len(ops)-1; lo < hi; lo, hi = lo+1, hi-1 {
		ops[lo], ops[hi] = ops[hi], ops[lo]
	}
	return ops, nil
}

// Summary folds Operations into a single classification.
func (r *Result) Summary() (Summary, error) {
	ops, err := r.Operations()
	if err != nil {
		return SummaryNone, err
	}
	return Summarize(ops), nil
}

func fullMatrix(a, b []rune) [][]int {
	m := make([][]int, len(b)+1)
	for i := range m {
		m[i] = make([]int, len(a)+1)
		m[i][0] = i
	}
	for j := 0; j <= len(a); j++ {
		m[0][j] = j
	}
	for i := 1; i <= len(b); i++ {
		for j := 1; j <= len(a); j++ {
			cost := 1
			if a[j-1] == b[i-1] {
				cost = 0
			}
			m[i][j] = min(m[i-1][j-1]+cost, m[i][j-1]+1, m[i-1][j]+1)
		}
	}
	return m
}

func rollingDistance(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		prevDiag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			above := row[j]
			row[j] = min(prevDiag+cost, row[j-1]+1, above+1)
			prevDiag = above
		}
	}
	return row[len(b)]
}
