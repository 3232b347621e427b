package ballot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/senutpal/seqpaxos/internal/ballot"
)

func TestBallotOrdering(t *testing.T) {
	cases := []struct {
		name string
		a, b ballot.Ballot
		less bool
	}{
		{"lower round wins", ballot.Ballot{N: 1, Pid: 9}, ballot.Ballot{N: 2, Pid: 1}, true},
		{"tie broken by pid", ballot.Ballot{N: 1, Pid: 1}, ballot.Ballot{N: 1, Pid: 2}, true},
		{"equal is not less", ballot.Ballot{N: 1, Pid: 1}, ballot.Ballot{N: 1, Pid: 1}, false},
		{"higher round loses", ballot.Ballot{N: 3, Pid: 1}, ballot.Ballot{N: 2, Pid: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.less, tc.a.Less(tc.b))
			assert.Equal(t, tc.less, tc.b.Greater(tc.a))
		})
	}
}

func TestBallotBottom(t *testing.T) {
	assert.True(t, ballot.Bottom.IsZero())
	assert.True(t, ballot.Bottom.Less(ballot.Ballot{N: 1, Pid: 1}))
}

func TestBallotGreaterOrEqual(t *testing.T) {
	a := ballot.Ballot{N: 2, Pid: 1}
	assert.True(t, a.GreaterOrEqual(a))
	assert.True(t, a.GreaterOrEqual(ballot.Ballot{N: 1, Pid: 9}))
	assert.False(t, a.GreaterOrEqual(ballot.Ballot{N: 3, Pid: 1}))
}
