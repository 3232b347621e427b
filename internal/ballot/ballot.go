// Package ballot defines the totally-ordered round identifier that Sequence
// Paxos uses to order Prepare/Promise/Accept rounds across proposers.
//
// Grounded on the teacher's ProposalNumber (internal/paxos/proposal.go,
// internal/paxos/proposer.go): a round counter paired with a proposer
// identity, compared lexicographically by (round, id). Ballot renames the
// fields to match this module's wire vocabulary (N, Pid) and adds the
// (0,0) bottom element required by the Paxos safety argument.
package ballot

import "fmt"

// NodeID identifies a replica. Zero is never a valid id.
type NodeID = uint64

// Ballot is a totally ordered round identifier (n, pid). The zero value
// (0,0) is the bottom element: less than every ballot a real node can hold,
// since node ids are nonzero and n starts at 1.
type Ballot struct {
	N   uint32
	Pid NodeID
}

// Bottom is the zero ballot, ordered below every ballot a live node can hold.
var Bottom = Ballot{}

// IsZero reports whether b is the bottom element.
func (b Ballot) IsZero() bool {
	return b == Bottom
}

// Less reports whether b orders strictly before other.
func (b Ballot) Less(other Ballot) bool {
	if b.N != other.N {
		return b.N < other.N
	}
	return b.Pid < other.Pid
}

// Greater reports whether b orders strictly after other.
func (b Ballot) Greater(other Ballot) bool {
	return other.Less(b)
}

// GreaterOrEqual reports whether b does not order strictly before other.
func (b Ballot) GreaterOrEqual(other Ballot) bool {
	return !b.Less(other)
}

// Equal reports whether b and other are the same ballot.
func (b Ballot) Equal(other Ballot) bool {
	return b == other
}

func (b Ballot) String() string {
	return fmt.Sprintf("(n=%d, pid=%d)", b.N, b.Pid)
}
