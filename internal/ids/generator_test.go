package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountStrategy(t *testing.T) {
	g := New(Count)

	assert.Equal(t, "U1001", g.Next(Users, State{}))
	assert.Equal(t, "A5011", g.Next(Applicants, State{Count: 10}))
	assert.Equal(t, "APP9001", g.Next(Applications, State{Count: 0, LastID: "APP9500"}))
	assert.Equal(t, "P1003", g.Next(Profiles, State{Count: 2}))
}

func TestLastStrategy(t *testing.T) {
	g := New(Last)

	tests := []struct {
		name string
		seq  Sequence
		last string
		want string
	}{
		{"empty table falls back to offset", Applications, "", "APP9001"},
		{"increments suffix", Applications, "APP9123", "APP9124"},
		{"applicant", Applicants, "A5999", "A6000"},
		{"no digits falls back", Profiles, "P", "P1001"},
		{"whitespace trimmed", Users, " U1042 ", "U1043"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Next(tt.seq, State{Count: 99, LastID: tt.last}))
		})
	}
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, Last, ParseStrategy("LAST"))
	assert.Equal(t, Count, ParseStrategy("count"))
	assert.Equal(t, Count, ParseStrategy("bogus"))
	assert.Equal(t, Count, ParseStrategy(""))
}

func TestNumber(t *testing.T) {
	n, ok := Applications.Number("APP9042")
	assert.True(t, ok)
	assert.Equal(t, 9042, n)

	_, ok = Applications.Number("APP")
	assert.False(t, ok)
}

func TestNextFreeSkipsTakenIDs(t *testing.T) {
	g := New(Count)
	taken := map[string]bool{"A5003": true, "A5004": true}

	id := g.NextFree(Applicants, State{Count: 2}, func(id string) bool { return taken[id] })
	assert.Equal(t, "A5005", id)

	id = g.NextFree(Applicants, State{Count: 5}, func(id string) bool { return taken[id] })
	assert.Equal(t, "A5006", id)
}
