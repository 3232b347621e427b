// Package seqnum implements the per-leader sequence-number tracker (§4.2):
// a monotonic (session, counter) pair used during the Accept phase to
// detect dropped predecessor messages from the current leader.
//
// There is no teacher precedent for this component (senutpal-quorum is
// single-decree and never reconnects a dropped leader), so it is built
// fresh from spec.md §3/§4.2, in the same small-struct-plus-methods style
// as ballot.Ballot.
package seqnum

// SequenceNumber is a per-leader monotonic counter. Session changes mark a
// new leader term (a "leader-reboot marker"); counter increases within a
// session.
type SequenceNumber struct {
	Session uint64
	Counter uint64
}

// Status classifies an incoming SequenceNumber against the tracker's
// current value.
type Status int

const (
	// First marks the first message of a new leader session: either the
	// incoming session is newer than the tracker's, or the tracker is still
	// at its zero value and this is genuinely the first counter.
	First Status = iota
	// Expected is the next message in the current session.
	Expected
	// DroppedPreceding means one or more messages in this session were lost.
	DroppedPreceding
	// Outdated is an older session, or a non-increasing counter in the
	// current session; the message must be ignored.
	Outdated
)

func (s Status) String() string {
	switch s {
	case First:
		return "First"
	case Expected:
		return "Expected"
	case DroppedPreceding:
		return "DroppedPreceding"
	case Outdated:
		return "Outdated"
	default:
		return "Unknown"
	}
}

// CheckMsgStatus classifies incoming against the tracker's current value
// cur, per §4.2:
//
//	First            — new session, OR cur is the zero value and incoming
//	                   counter is 1
//	Expected         — same session, incoming counter == cur.Counter+1
//	DroppedPreceding — same session, incoming counter > cur.Counter+1
//	Outdated         — older session, or incoming counter <= cur.Counter
func (cur SequenceNumber) CheckMsgStatus(incoming SequenceNumber) Status {
	if incoming.Session > cur.Session {
		return First
	}
	if incoming.Session < cur.Session {
		return Outdated
	}
	if cur == (SequenceNumber{}) && incoming.Counter == 1 {
		return First
	}
	switch {
	case incoming.Counter == cur.Counter+1:
		return Expected
	case incoming.Counter > cur.Counter+1:
		return DroppedPreceding
	default:
		return Outdated
	}
}
