package follower

import (
	"github.com/senutpal/seqpaxos/internal/paxosmsg"
)

// Dispatch routes one inbound wire frame to the matching handler and
// returns every frame the replica queued in response, adapted from the
// teacher's node.go routeMessage switch (single-decree Prepare/Accept/
// Accepted/Learn) generalized to Sequence Paxos's six inbound kinds.
// Frames carrying an outbound-only kind (Promise/Accepted/AcceptedStopSign)
// are ignored: a follower never receives its own reply kinds from a
// well-behaved leader.
func (r *Replica[T, S]) Dispatch(f paxosmsg.Frame[T, S]) []paxosmsg.Frame[T, S] {
	switch f.Kind {
	case paxosmsg.MsgPrepare:
		r.HandlePrepare(f.Prepare, f.From)
	case paxosmsg.MsgAcceptSync:
		r.HandleAcceptSync(f.AcceptSync, f.From)
	case paxosmsg.MsgAcceptDecide:
		r.HandleAcceptDecide(f.AcceptDecide)
	case paxosmsg.MsgAcceptStopSign:
		r.HandleAcceptStopSign(f.AcceptStopSign)
	case paxosmsg.MsgDecide:
		r.HandleDecide(f.Decide)
	case paxosmsg.MsgDecideStopSign:
		r.HandleDecideStopSign(f.DecideStopSign)
	default:
		return nil
	}

	envelopes := r.DrainOutgoing()
	frames := make([]paxosmsg.Frame[T, S], len(envelopes))
	for i, env := range envelopes {
		frames[i] = paxosmsg.FromEnvelope(env)
	}
	return frames
}
