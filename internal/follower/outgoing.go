package follower

import "github.com/senutpal/seqpaxos/internal/paxosmsg"

// OutgoingQueue is the ordered buffer of outbound messages a follower
// produces, plus the back-index used to coalesce consecutive Accepted
// messages for the same round into one queued message (spec §2, §4.3,
// §9). There is no teacher precedent for a dedicated outgoing-message
// abstraction (senutpal-quorum's node.go pushes directly onto a transport),
// so this is built fresh from spec.md, matching the surrounding package's
// plain-struct-plus-methods style.
type OutgoingQueue[T any, S any] struct {
	items []paxosmsg.Envelope[T, S]
}

// Push appends env and returns its index in the queue, for later
// coalescing lookups.
func (q *OutgoingQueue[T, S]) Push(env paxosmsg.Envelope[T, S]) int {
	q.items = append(q.items, env)
	return len(q.items) - 1
}

// At returns a pointer to the queued envelope at idx, for in-place
// mutation (coalescing an Accepted's accepted_idx).
func (q *OutgoingQueue[T, S]) At(idx int) *paxosmsg.Envelope[T, S] {
	return &q.items[idx]
}

// Len reports how many messages are currently queued.
func (q *OutgoingQueue[T, S]) Len() int {
	return len(q.items)
}

// Drain removes and returns every queued message. Any back-index held by a
// caller (e.g. Replica.latestAcceptedMeta) is invalidated by a drain and
// must not be used afterward (spec §9).
func (q *OutgoingQueue[T, S]) Drain() []paxosmsg.Envelope[T, S] {
	out := q.items
	q.items = nil
	return out
}
