// Package ids mints the human-facing sequential identifiers (U1001,
// A5001, APP9001, P1001). A Generator is not safe on its own under
// concurrent writers: callers must hold the store's write lock or run
// inside the transaction that inserts the row.
package ids

import (
	"fmt"
	"strconv"
	"strings"
)

// Strategy selects how the next number is derived.
type Strategy string

const (
	// Count uses row count + offset + 1.
	Count Strategy = "count"
	// Last increments the numeric suffix of the last stored id.
	Last Strategy = "last"
)

// ParseStrategy maps a config value to a Strategy. Unknown values
// fall back to Count.
func ParseStrategy(s string) Strategy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Last):
		return Last
	default:
		return Count
	}
}

// Sequence describes one identifier family.
type Sequence struct {
	Table  string
	Column string // id column in Table
	Prefix string
	Offset int
}

var (
	Users        = Sequence{Table: "users", Column: "user_id", Prefix: "U", Offset: 1000}
	Applicants   = Sequence{Table: "applicants", Column: "applicant_id", Prefix: "A", Offset: 5000}
	Applications = Sequence{Table: "applications", Column: "application_id", Prefix: "APP", Offset: 9000}
	Profiles     = Sequence{Table: "academic_profile", Column: "profile_id", Prefix: "P", Offset: 1000}
)

// State is what a store can tell the generator about a table.
type State struct {
	Count  int    // number of rows
	LastID string // id of the last stored row, "" if empty
}

// Generator derives identifiers using a fixed strategy.
type Generator struct {
	Strategy Strategy
}

// New returns a Generator for the given strategy.
func New(s Strategy) Generator { return Generator{Strategy: s} }

// Next returns the identifier that follows st in seq.
func (g Generator) Next(seq Sequence, st State) string {
	return seq.Format(g.NextNumber(seq, st))
}

// NextNumber returns the numeric part of the next identifier.
func (g Generator) NextNumber(seq Sequence, st State) int {
	if g.Strategy == Last {
		if n, ok := seq.Number(st.LastID); ok {
			return n + 1
		}
		return seq.Offset + 1
	}
	return st.Count + seq.Offset + 1
}

// NextFree is like Next but skips numbers whose formatted id is already
// taken. Stores that index every existing id use it to step over gaps
// left by skipped or hand-edited rows.
func (g Generator) NextFree(seq Sequence, st State, taken func(id string) bool) string {
	n := g.NextNumber(seq, st)
	for taken(seq.Format(n)) {
		n++
	}
	return seq.Format(n)
}

// Format renders n with the sequence prefix.
func (s Sequence) Format(n int) string {
	return fmt.Sprintf("%s%d", s.Prefix, n)
}

// Number parses the trailing digits of id. It returns false when id has
// no trailing digits.
func (s Sequence) Number(id string) (int, bool) {
	id = strings.TrimSpace(id)
	end := len(id)
	start := end
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(id[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
