package demoharness

import (
	"time"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/paxosmsg"
	"github.com/senutpal/seqpaxos/internal/seqnum"
	"github.com/senutpal/seqpaxos/internal/storage"
)

const replyTimeout = 200 * time.Millisecond

// Scenario drives a Cluster through the catch-up, steady-state,
// reconfiguration, and reconnect flows spec §8 walks through. It plays
// the role the leader-side Sequence Paxos state machine would in a full
// deployment, since that half of the protocol is this repo's explicit
// external collaborator (spec §1).
type Scenario struct {
	cluster *Cluster
	round   ballot.Ballot
	seq     seqnum.SequenceNumber
}

// NewScenario opens round 1 under the scripted leader's own pid.
func NewScenario(c *Cluster) *Scenario {
	return &Scenario{cluster: c, round: ballot.Ballot{N: 1, Pid: leaderPid}}
}

// Prepare broadcasts Prepare(round) to every host and waits for their
// Promise replies.
func (s *Scenario) Prepare() int {
	for _, h := range s.cluster.Hosts {
		f := paxosmsg.FramePrepare[Entry, Snapshot](leaderPid, h.ID(), paxosmsg.Prepare{N: s.round})
		_ = s.cluster.leaderNode.Send(f)
	}
	return s.cluster.drainReplies(len(s.cluster.Hosts), replyTimeout)
}

// CatchUp sends AcceptSync carrying suffix to every host, opening a fresh
// sequence-number session (counter 1, a new session id).
func (s *Scenario) CatchUp(session uint64, suffix []Entry) int {
	s.seq = seqnum.SequenceNumber{Session: session, Counter: 1}
	for _, h := range s.cluster.Hosts {
		msg := paxosmsg.AcceptSync[Entry, Snapshot]{
			N:      s.round,
			Suffix: suffix,
			SeqNum: s.seq,
		}
		f := paxosmsg.FrameAcceptSync(leaderPid, h.ID(), msg)
		_ = s.cluster.leaderNode.Send(f)
	}
	return s.cluster.drainReplies(len(s.cluster.Hosts), replyTimeout)
}

// AcceptDecide advances the sequence number and broadcasts newly decided
// entries.
func (s *Scenario) AcceptDecide(decidedIdx uint64, entries []Entry) int {
	s.seq.Counter++
	for _, h := range s.cluster.Hosts {
		msg := paxosmsg.AcceptDecide[Entry]{
			N:          s.round,
			SeqNum:     s.seq,
			DecidedIdx: decidedIdx,
			Entries:    entries,
		}
		f := paxosmsg.FrameAcceptDecide[Entry, Snapshot](leaderPid, h.ID(), msg)
		_ = s.cluster.leaderNode.Send(f)
	}
	return s.cluster.drainReplies(len(s.cluster.Hosts), replyTimeout)
}

// Decide advances decided_idx without appending new entries.
func (s *Scenario) Decide(decidedIdx uint64) {
	s.seq.Counter++
	for _, h := range s.cluster.Hosts {
		msg := paxosmsg.Decide{N: s.round, SeqNum: s.seq, DecidedIdx: decidedIdx}
		f := paxosmsg.FrameDecide[Entry, Snapshot](leaderPid, h.ID(), msg)
		_ = s.cluster.leaderNode.Send(f)
	}
}

// AcceptStopSign installs ss on every host and waits for AcceptedStopSign.
func (s *Scenario) AcceptStopSign(ss storage.StopSign) int {
	s.seq.Counter++
	for _, h := range s.cluster.Hosts {
		msg := paxosmsg.AcceptStopSign{N: s.round, SeqNum: s.seq, SS: ss}
		f := paxosmsg.FrameAcceptStopSign[Entry, Snapshot](leaderPid, h.ID(), msg)
		_ = s.cluster.leaderNode.Send(f)
	}
	return s.cluster.drainReplies(len(s.cluster.Hosts), replyTimeout)
}

// DecideStopSign marks the installed StopSign decided on every host.
func (s *Scenario) DecideStopSign() {
	s.seq.Counter++
	for _, h := range s.cluster.Hosts {
		msg := paxosmsg.DecideStopSign{N: s.round, SeqNum: s.seq}
		f := paxosmsg.FrameDecideStopSign[Entry, Snapshot](leaderPid, h.ID(), msg)
		_ = s.cluster.leaderNode.Send(f)
	}
}

// SkipAndDrop advances the tracked counter by more than one without ever
// sending the skipped counters, then sends one AcceptDecide at the
// post-skip counter, simulating lost network messages (spec §4.2, §7):
// every host should classify it DroppedPreceding and fire OnReconnected.
func (s *Scenario) SkipAndDrop(decidedIdx uint64, entries []Entry) {
	s.seq.Counter += 2
	for _, h := range s.cluster.Hosts {
		msg := paxosmsg.AcceptDecide[Entry]{
			N:          s.round,
			SeqNum:     s.seq,
			DecidedIdx: decidedIdx,
			Entries:    entries,
		}
		f := paxosmsg.FrameAcceptDecide[Entry, Snapshot](leaderPid, h.ID(), msg)
		_ = s.cluster.leaderNode.Send(f)
	}
}
