// Package paxosmsg defines the Sequence Paxos wire messages (spec §6.2).
//
// Adapted from the teacher's internal/paxos/message.go, which defines the
// single-decree message set (Prepare/Promise/Reject/Accept/Accepted/Learn)
// each carrying a GetFrom() accessor. This rewrites the message set for
// chained Sequence Paxos — AcceptSync replaces single-decree Accept as the
// catch-up message, AcceptDecide/Decide carry decided_idx and a
// SequenceNumber instead of a single value, and AcceptStopSign/
// DecideStopSign/AcceptedStopSign are added for reconfiguration — while
// keeping the teacher's "plain struct per message kind" shape rather than
// one tagged union struct.
package paxosmsg

import (
	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/seqnum"
	"github.com/senutpal/seqpaxos/internal/storage"
)

// Prepare opens a new round: "I want to lead with ballot N."
type Prepare struct {
	N           ballot.Ballot
	NAccepted   ballot.Ballot
	AcceptedIdx uint64
	DecidedIdx  uint64
}

// Promise is a follower's response to Prepare: a commitment not to accept
// below N, plus enough of the follower's state for the leader to catch it
// up.
type Promise[T any, S any] struct {
	N               ballot.Ballot
	NAccepted       ballot.Ballot
	DecidedSnapshot *storage.SnapshotType[S]
	Suffix          []T
	DecidedIdx      uint64
	AcceptedIdx     uint64
	StopSign        *storage.StopSign
}

// Clone returns a deep-enough copy of p suitable for caching and replay
// (cached_promise, spec §3/§9): the Suffix slice is copied so a later
// mutation of the live log does not alias into the cached message.
func (p Promise[T, S]) Clone() Promise[T, S] {
	out := p
	if p.Suffix != nil {
		out.Suffix = append([]T(nil), p.Suffix...)
	}
	return out
}

// AcceptSync is the leader's catch-up message delivering a suffix and/or
// snapshot to a newly-promised follower.
type AcceptSync[T any, S any] struct {
	N               ballot.Ballot
	DecidedSnapshot *storage.SnapshotType[S]
	Suffix          []T
	SyncIdx         uint64
	DecidedIdx      uint64
	StopSign        *storage.StopSign
	SeqNum          seqnum.SequenceNumber
}

// AcceptDecide carries newly decided entries in the Accept phase.
type AcceptDecide[T any] struct {
	N          ballot.Ballot
	SeqNum     seqnum.SequenceNumber
	DecidedIdx uint64
	Entries    []T
}

// AcceptStopSign installs a StopSign without a fresh Prepare
// (prepare-less reconfiguration).
type AcceptStopSign struct {
	N      ballot.Ballot
	SeqNum seqnum.SequenceNumber
	SS     storage.StopSign
}

// Decide advances decided_idx.
type Decide struct {
	N          ballot.Ballot
	SeqNum     seqnum.SequenceNumber
	DecidedIdx uint64
}

// DecideStopSign marks the installed StopSign as decided.
type DecideStopSign struct {
	N      ballot.Ballot
	SeqNum seqnum.SequenceNumber
}

// Accepted acknowledges AcceptSync/AcceptDecide up to AcceptedIdx.
type Accepted struct {
	N           ballot.Ballot
	AcceptedIdx uint64
}

// AcceptedStopSign acknowledges AcceptStopSign/the StopSign branch of
// AcceptSync.
type AcceptedStopSign struct {
	N ballot.Ballot
}
