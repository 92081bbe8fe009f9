package editdistance

// Kind is the type of a single character edit.
type Kind uint8

const (
	Insertion Kind = 1 << iota
	Deletion
	Substitution
)

func (k Kind) String() string {
	switch k {
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	case Substitution:
		return "substitution"
	default:
		return "unknown"
	}
}

// Operation is one step of an edit script. Position indexes the rune in a
// (insertions, substitutions) or in b (deletions); Char is the rune that is
// inserted, deleted, or written by the substitution.
type Operation struct {
	Position int  `json:"position"`
	Char     rune `json:"char"`
	Kind     Kind `json:"kind"`
}

// Summary classifies which kinds of edits occurred across a whole edit
// script. Its value is the union of the Kind bits seen.
type Summary uint8

const (
	SummaryNone         Summary = 0
	SummaryInsertion    Summary = Summary(Insertion)
	SummaryDeletion     Summary = Summary(Deletion)
	SummaryInDel        Summary = Summary(Insertion | Deletion)
	SummarySubstitution Summary = Summary(Substitution)
	SummaryInSub        Summary = Summary(Insertion | Substitution)
	SummarySubDel       Summary = Summary(Substitution | Deletion)
	SummaryInDelSub     Summary = Summary(Insertion | Deletion | Substitution)
)

// Add folds kind into s.
func (s Summary) Add(kind Kind) Summary {
	return s | Summary(kind)
}

// Merge folds another summary into s.
func (s Summary) Merge(other Summary) Summary {
	return s | other
}

// Has reports whether kind occurred.
func (s Summary) Has(kind Kind) bool {
	return s&Summary(kind) != 0
}

func (s Summary) String() string {
	switch s {
	case SummaryNone:
		return "none"
	case SummaryInsertion:
		return "insertion"
	case SummaryDeletion:
		return "deletion"
	case SummarySubstitution:
		return "substitution"
	case SummaryInDel:
		return "indel"
	case SummaryInSub:
		return "insub"
	case SummarySubDel:
		return "subdel"
	case SummaryInDelSub:
		return "indelsub"
	default:
		return "unknown"
	}
}

// Summarize folds ops into a single Summary.
func Summarize(ops []Operation) Summary {
	s := SummaryNone
	for _, op := range ops {
		s = s.Add(op.Kind)
	}
	return s
}
