package parser

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
)

// Mode selects how query tokens are resolved to index terms.
type Mode int

const (
	ModeExact Mode = iota
	ModeFuzzy
)

func (m Mode) String() string {
	if m == ModeFuzzy {
		return "fuzzy"
	}
	return "exact"
}

// ParseMode accepts "exact", "fuzzy" or "" (exact).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return ModeExact, nil
	case "fuzzy":
		return ModeFuzzy, nil
	default:
		return ModeExact, fmt.Errorf("unknown query mode %q", s)
	}
}

type QueryPlan struct {
	Terms            []string
	Mode             Mode
	ReturnAllIfEmpty bool
	RawQuery         string
}

// Parse tokenises query with the same tokenizer used at index time.
func Parse(query string, exact bool, returnAllIfEmpty bool) *QueryPlan {
	mode := ModeFuzzy
	if exact {
		mode = ModeExact
	}
	return &QueryPlan{
		Terms:            tokenizer.Terms(query),
		Mode:             mode,
		ReturnAllIfEmpty: returnAllIfEmpty,
		RawQuery:         query,
	}
}

// Exact reports whether the plan uses exact term lookup.
func (p *QueryPlan) Exact() bool {
	return p.Mode == ModeExact
}

// Empty reports whether the query produced no tokens.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// Normalized is a canonical string for the plan; two queries with the same
// Normalized form produce the same results.
func (p *QueryPlan) Normalized() string {
	return fmt.Sprintf("%s|all=%t|%s", p.Mode, p.ReturnAllIfEmpty, strings.Join(p.Terms, " "))
}
