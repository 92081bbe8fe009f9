package editdistance

import (
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"cat", "car", 1},
		{"sunday", "saturday", 3},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Distance(tt.a, tt.b), "Distance(%q, %q)", tt.a, tt.b)
		assert.Equal(t, tt.want, Distance(tt.b, tt.a), "Distance(%q, %q)", tt.b, tt.a)
		assert.Equal(t, tt.want, Compute(tt.a, tt.b, true).Distance, "Compute(%q, %q, true)", tt.a, tt.b)
	}
}

func TestDistanceProperties(t *testing.T) {
	words := []string{"", "a", "search", "engine", "fuzzy", "fuzz", "levenshtein", "lowenstein", "über"}
	for _, a := range words {
		assert.Zero(t, Distance(a, a))
		assert.Equal(t, utf8.RuneCountInString(a), Distance("", a))
		assert.Equal(t, utf8.RuneCountInString(a), Distance(a, ""))
		for _, b := range words {
			assert.Equal(t, Distance(a, b), Distance(b, a), "symmetry %q %q", a, b)
		}
	}
}

func TestComputeMatrixBoundaries(t *testing.T) {
	r := Compute("abc", "", true)
	require.True(t, r.Retained())
	assert.Equal(t, [][]int{{0, 1, 2, 3}}, r.Matrix())

	r = Compute("", "ab", true)
	assert.Equal(t, [][]int{{0}, {1}, {2}}, r.Matrix())

	r = Compute("", "", true)
	assert.Equal(t, [][]int{{0}}, r.Matrix())
	assert.Zero(t, r.Distance)
}

func TestComputeWithoutMatrix(t *testing.T) {
	r := Compute("kitten", "sitting", false)
	assert.False(t, r.Retained())
	assert.Nil(t, r.Matrix())

	_, err := r.Operations()
	assert.ErrorIs(t, err, ErrMatrixNotRetained)
	_, err = r.Summary()
	assert.ErrorIs(t, err, ErrMatrixNotRetained)
}

func TestOperations(t *testing.T) {
	tests := []struct {
		name    string
		a, b    string
		want    []Operation
		summary Summary
	}{
		{"identical", "cat", "cat", []Operation{}, SummaryNone},
		{"substitution", "cat", "car", []Operation{{Position: 2, Char: 't', Kind: Substitution}}, SummarySubstitution},
		{"insertion", "cats", "cat", []Operation{{Position: 3, Char: 's', Kind: Insertion}}, SummaryInsertion},
		{"deletion", "cat", "cats", []Operation{{Position: 3, Char: 's', Kind: Deletion}}, SummaryDeletion},
		{"from empty", "ab", "", []Operation{
			{Position: 0, Char: 'a', Kind: Insertion},
			{Position: 1, Char: 'b', Kind: Insertion},
		}, SummaryInsertion},
		{"to empty", "", "ab", []Operation{
			{Position: 0, Char: 'a', Kind: Deletion},
			{Position: 1, Char: 'b', Kind: Deletion},
		}, SummaryDeletion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Compute(tt.a, tt.b, true)
			ops, err := r.Operations()
			require.NoError(t, err)
			assert.Equal(t, tt.want, ops)
			summary, err := r.Summary()
			require.NoError(t, err)
			assert.Equal(t, tt.summary, summary)
		})
	}
}

func TestOperationsReplay(t *testing.T) {
	pairs := [][2]string{
		{"sitting", "kitten"},
		{"kitten", "sitting"},
		{"saturday", "sunday"},
		{"lawn", "flaw"},
		{"distributed", "distribution"},
		{"über", "uber"},
		{"abc", "xyz"},
	}
	for _, p := range pairs {
		r := Compute(p[0], p[1], true)
		ops, err := r.Operations()
		require.NoError(t, err)
		assert.Len(t, ops, r.Distance, "ops for %q/%q", p[0], p[1])
		assert.Equal(t, p[0], replay(p[1], ops), "replaying %q -> %q", p[1], p[0])
	}
}

func TestKittenSittingSummary(t *testing.T) {
	summary, err := Compute("sitting", "kitten", true).Summary()
	require.NoError(t, err)
	assert.Equal(t, SummaryInSub, summary)
}

func TestSummaryFold(t *testing.T) {
	assert.Equal(t, SummaryInDel, SummaryNone.Add(Insertion).Add(Deletion))
	assert.Equal(t, SummaryInDel, SummaryNone.Add(Deletion).Add(Insertion))
	assert.Equal(t, SummarySubDel, SummarySubstitution.Add(Deletion))
	assert.Equal(t, SummaryInSub, SummaryInsertion.Merge(SummarySubstitution))
	assert.Equal(t, SummaryInDelSub, SummaryInDel.Add(Substitution))
	assert.Equal(t, SummaryInDelSub, SummaryInDelSub.Add(Insertion))
	assert.True(t, SummaryInSub.Has(Insertion))
	assert.False(t, SummaryInSub.Has(Deletion))
	assert.Equal(t, "indelsub", SummaryInDelSub.String())
	assert.Equal(t, SummaryInDelSub, Summarize([]Operation{
		{Kind: Substitution}, {Kind: Deletion}, {Kind: Insertion}, {Kind: Substitution},
	}))
}

func TestComputeConcurrent(t *testing.T) {
	pairs := [][2]string{{"kitten", "sitting"}, {"cat", "car"}, {"", "abc"}, {"flaw", "lawn"}}
	want := []int{3, 1, 3, 2}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				for i, p := range pairs {
					r := Compute(p[0], p[1], true)
					ops, err := r.Operations()
					if err != nil || r.Distance != want[i] || len(ops) != want[i] {
						t.Errorf("pair %v: distance %d ops %d err %v", p, r.Distance, len(ops), err)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

// replay applies ops to b and returns the rebuilt string, which must equal a.
func replay(b string, ops []Operation) string {
	src := []rune(b)
	out := make([]rune, 0, len(src))
	bi := 0
	copyUntil := func(done func() bool) {
		for !done() && bi < len(src) {
			out = append(out, src[bi])
			bi++
		}
	}
	for _, op := range ops {
		switch op.Kind {
		case Insertion:
			copyUntil(func() bool { return len(out) == op.Position })
			out = append(out, op.Char)
		case Substitution:
			copyUntil(func() bool { return len(out) == op.Position })
			out = append(out, op.Char)
			bi++
		case Deletion:
			copyUntil(func() bool { return bi == op.Position })
			bi++
		}
	}
	out = append(out, src[bi:]...)
	return string(out)
}
