package paxosmsg

import "github.com/senutpal/seqpaxos/internal/ballot"

// OutKind discriminates the message carried by an outbound Envelope.
type OutKind int

const (
	OutPromise OutKind = iota
	OutAccepted
	OutAcceptedStopSign
)

// Envelope is PaxosMessage{from, to, msg} restricted to the three message
// kinds a follower ever emits (spec §3, §4.3): Promise, Accepted, and
// AcceptedStopSign. A tagged struct, rather than an interface, keeps the
// coalescing back-index in follower.OutgoingQueue a simple mutation of
// in-place struct fields.
type Envelope[T any, S any] struct {
	From ballot.NodeID
	To   ballot.NodeID
	Kind OutKind

	Promise          Promise[T, S]
	Accepted         Accepted
	AcceptedStopSign AcceptedStopSign
}

// NewPromise builds an outbound Promise envelope.
func NewPromise[T any, S any](from, to ballot.NodeID, p Promise[T, S]) Envelope[T, S] {
	return Envelope[T, S]{From: from, To: to, Kind: OutPromise, Promise: p}
}

// NewAccepted builds an outbound Accepted envelope.
func NewAccepted[T any, S any](from, to ballot.NodeID, a Accepted) Envelope[T, S] {
	return Envelope[T, S]{From: from, To: to, Kind: OutAccepted, Accepted: a}
}

// NewAcceptedStopSign builds an outbound AcceptedStopSign envelope.
func NewAcceptedStopSign[T any, S any](from, to ballot.NodeID, a AcceptedStopSign) Envelope[T, S] {
	return Envelope[T, S]{From: from, To: to, Kind: OutAcceptedStopSign, AcceptedStopSign: a}
}
