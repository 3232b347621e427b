// Package follower implements the follower-side Sequence Paxos state
// machine (spec §4.3): the six inbound-message handlers, the storage
// write ordering and rollback discipline that substitutes for atomicity
// across them, and the outgoing-message coalescing described in §9.
//
// There is no teacher precedent for this component: senutpal-quorum's
// Acceptor (internal/paxos/acceptor.go) is a TODO-only sketch of
// single-decree Promise/Accept handling with no chaining, no StopSign, and
// no sequence-number tracking. This package is a structural port of
// original_source/omnipaxos/src/sequence_paxos/follower.rs, translating
// Rust's .expect()-on-storage-error idiom into a wrapped panic (see
// Replica.fatal) and its ordered rollback calls into explicit
// InternalStorage.RollbackIfErr invocations in the same order.
package follower

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/internalstorage"
	"github.com/senutpal/seqpaxos/internal/metrics"
	"github.com/senutpal/seqpaxos/internal/paxosmsg"
	"github.com/senutpal/seqpaxos/internal/seqnum"
	"github.com/senutpal/seqpaxos/internal/storage"
)

// Role is whether this replica currently acts as Paxos follower or leader.
// Only Follower is exercised by this package; Leader exists so State can
// represent the full (Role, Phase) pair from spec §4.3, even though the
// leader-side Sequence Paxos state machine is an out-of-scope external
// collaborator (spec §1).
type Role int

const (
	RoleFollower Role = iota
	RoleLeader
)

// Phase is the follower's position within the current round.
type Phase int

const (
	PhaseRecover Phase = iota
	PhasePrepare
	PhaseAccept
)

// State is the (Role, Phase) pair gating every handler in this package.
type State struct {
	Role  Role
	Phase Phase
}

// acceptedMeta points at a queued, not-yet-flushed Accepted message whose
// accepted_idx may still advance in place (spec §3 latest_accepted_meta).
type acceptedMeta struct {
	round      ballot.Ballot
	outgoingID int
}

// Replica is a single follower's Sequence Paxos state (spec §3's
// per-replica mutable state) plus its owned InternalStorage.
type Replica[T any, S any] struct {
	pid           ballot.NodeID
	leader        ballot.Ballot
	state         State
	currentSeqNum seqnum.SequenceNumber

	storage *internalstorage.InternalStorage[T, S]

	cachedPromise      *paxosmsg.Promise[T, S]
	latestAcceptedMeta *acceptedMeta
	pendingProposals   []T
	outgoing           OutgoingQueue[T, S]

	// ForwardProposals dispatches taken-over pending_proposals to the
	// current leader. Forwarding is external to this package (spec §1's
	// "leader-side of Sequence Paxos" collaborator); a nil func is a no-op.
	ForwardProposals func(proposals []T)
	// OnReconnected signals that storage must be resynced with peerPid's
	// leader session (spec §4.3 reconnected, §7). A nil func is a no-op.
	OnReconnected func(peerPid ballot.NodeID)

	logger  *zap.Logger
	metrics *metrics.Set
}

// New constructs a Replica bootstrapped into (Follower, Recover), per
// spec §4.3. A nil logger defaults to a no-op logger; a nil metrics set
// disables instrumentation.
func New[T any, S any](pid ballot.NodeID, st *internalstorage.InternalStorage[T, S], logger *zap.Logger, m *metrics.Set) *Replica[T, S] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replica[T, S]{
		pid:     pid,
		state:   State{Role: RoleFollower, Phase: PhaseRecover},
		storage: st,
		logger:  logger,
		metrics: m,
	}
}

// AddProposal enqueues a client value to be forwarded to the leader once
// the replica next enters the Accept phase.
func (r *Replica[T, S]) AddProposal(v T) {
	r.pendingProposals = append(r.pendingProposals, v)
}

// State returns the replica's current (Role, Phase).
func (r *Replica[T, S]) State() State {
	return r.state
}

// CachedPromise returns the last Promise this replica sent, for replay to
// a reconnecting leader (spec §9). It is a pure projection of persistent
// state, so regenerating it from storage is equivalent to caching it; this
// implementation caches it as the teacher's comments and the Rust original
// both do, avoiding a storage round trip on replay.
func (r *Replica[T, S]) CachedPromise() *paxosmsg.Promise[T, S] {
	if r.cachedPromise == nil {
		return nil
	}
	cloned := r.cachedPromise.Clone()
	return &cloned
}

// DrainOutgoing removes and returns every queued outbound message.
func (r *Replica[T, S]) DrainOutgoing() []paxosmsg.Envelope[T, S] {
	r.latestAcceptedMeta = nil
	return r.outgoing.Drain()
}

// expectPromise reads the promised ballot, treating a storage error as
// fatal (Rust's `.expect("storage error while trying to read promise")`).
func (r *Replica[T, S]) expectPromise() ballot.Ballot {
	n, err := r.storage.GetPromise()
	if err != nil {
		r.fatal(err, "storage error while trying to read promise")
	}
	return n
}

// fatal wraps err with msg, logs it, counts it, and panics. Storage errors
// are fatal to the replica (spec §7): the caller is expected to have
// already performed any applicable rollback before calling fatal.
func (r *Replica[T, S]) fatal(err error, msg string) {
	wrapped := errors.Wrap(err, msg)
	r.logger.Error("fatal storage error", zap.Error(wrapped), zap.Uint64("pid", r.pid))
	r.metrics.ObserveStorageFatal()
	panic(wrapped)
}

func (r *Replica[T, S]) refreshLogGauges() {
	if r.metrics == nil {
		return
	}
	logLen, err := r.storage.GetLogLen()
	if err != nil {
		return
	}
	compactedIdx, err := r.storage.GetCompactedIdx()
	if err != nil {
		return
	}
	decidedIdx, err := r.storage.GetDecidedIdx()
	if err != nil {
		return
	}
	r.metrics.SetLogState(logLen, compactedIdx, decidedIdx)
}

// HandlePrepare implements spec §4.3 handle_prepare.
func (r *Replica[T, S]) HandlePrepare(prep paxosmsg.Prepare, from ballot.NodeID) {
	oldPromise := r.expectPromise()
	if !(oldPromise.Less(prep.N) || (oldPromise.Equal(prep.N) && r.state.Phase == PhaseRecover)) {
		r.metrics.ObserveMessage("prepare", "dropped")
		return
	}

	r.leader = prep.N
	r.state = State{Role: RoleFollower, Phase: PhasePrepare}
	r.currentSeqNum = seqnum.SequenceNumber{}

	na, err := r.storage.GetAcceptedRound()
	if err != nil {
		r.fatal(err, "storage error while trying to read accepted round")
	}
	acceptedIdx, err := r.storage.GetLogLen()
	if err != nil {
		r.fatal(err, "storage error while trying to read log length")
	}
	decidedIdx, err := r.storage.GetDecidedIdx()
	if err != nil {
		r.fatal(err, "storage error while trying to read decided index")
	}
	ssEntry, err := r.storage.GetStopSign()
	if err != nil {
		r.fatal(err, "storage error while trying to read stopsign")
	}
	var stopSign *storage.StopSign
	if ssEntry != nil {
		ss := ssEntry.StopSign
		stopSign = &ss
	}

	var decidedSnapshot *storage.SnapshotType[S]
	var suffix []T

	switch {
	case na.Greater(prep.NAccepted):
		ld := prep.DecidedIdx
		if ld < decidedIdx && r.storage.UseSnapshots() {
			// See spec §9 Open Question: safe only when decided_idx_local
			// >= prep.decided_idx, which this branch's guard (ld <
			// decidedIdx) establishes defensively before using
			// decided_idx_local as the suffix start below.
			snap, err := r.storage.CreateDiffSnapshot(ld, decidedIdx)
			if err != nil {
				r.fatal(err, "storage error while trying to read diff snapshot")
			}
			decidedSnapshot = &snap
			suffix, err = r.storage.GetSuffix(decidedIdx)
			if err != nil {
				r.fatal(err, "storage error while trying to read log suffix")
			}
		} else {
			suffix, err = r.storage.GetSuffix(ld)
			if err != nil {
				r.fatal(err, "storage error while trying to read log suffix")
			}
		}

	case na.Equal(prep.NAccepted) && acceptedIdx > prep.AcceptedIdx:
		compactedIdx, err := r.storage.GetCompactedIdx()
		if err != nil {
			r.fatal(err, "storage error while trying to read compacted index")
		}
		if r.storage.UseSnapshots() && compactedIdx > prep.AcceptedIdx {
			snap, err := r.storage.CreateDiffSnapshot(prep.DecidedIdx, decidedIdx)
			if err != nil {
				r.fatal(err, "storage error while trying to read diff snapshot")
			}
			decidedSnapshot = &snap
			suffix, err = r.storage.GetSuffix(decidedIdx)
			if err != nil {
				r.fatal(err, "storage error while trying to read log suffix")
			}
		} else {
			suffix, err = r.storage.GetSuffix(prep.AcceptedIdx)
			if err != nil {
				r.fatal(err, "storage error while trying to read log suffix")
			}
		}

	default:
		decidedSnapshot = nil
		suffix = nil
	}

	if err := r.storage.SetPromise(prep.N); err != nil {
		r.fatal(err, "storage error while trying to write promise")
	}

	promise := paxosmsg.Promise[T, S]{
		N:               prep.N,
		NAccepted:       na,
		DecidedSnapshot: decidedSnapshot,
		Suffix:          suffix,
		DecidedIdx:      decidedIdx,
		AcceptedIdx:     acceptedIdx,
		StopSign:        stopSign,
	}
	cloned := promise.Clone()
	r.cachedPromise = &cloned
	r.outgoing.Push(paxosmsg.NewPromise[T, S](r.pid, from, promise))
	r.metrics.ObserveMessage("prepare", "accepted")
	r.refreshLogGauges()
}

// HandleAcceptSync implements spec §4.3 handle_acceptsync. Storage writes
// happen in the exact order specified there — the ordering is the
// correctness substitute for atomicity (spec §9).
func (r *Replica[T, S]) HandleAcceptSync(accsync paxosmsg.AcceptSync[T, S], from ballot.NodeID) {
	if !(r.expectPromise().Equal(accsync.N) && r.state == (State{Role: RoleFollower, Phase: PhasePrepare})) {
		r.metrics.ObserveMessage("accept_sync", "dropped")
		return
	}

	oldDecidedIdx, err := r.storage.GetDecidedIdx()
	if err != nil {
		r.fatal(err, "storage error while trying to read decided index")
	}
	oldAcceptedRound, err := r.storage.GetAcceptedRound()
	if err != nil {
		r.fatal(err, "storage error while trying to read accepted round")
	}

	if err := r.storage.SetAcceptedRound(accsync.N); err != nil {
		r.fatal(err, "storage error while trying to write accepted round")
	}

	err = r.storage.SetDecidedIdx(accsync.DecidedIdx)
	r.storage.RollbackIfErr(err, []internalstorage.RollbackValue{
		internalstorage.AcceptedRoundRollback{Round: oldAcceptedRound},
	}, "storage error while trying to write decided index")

	var accepted paxosmsg.Accepted
	if accsync.DecidedSnapshot != nil {
		snap := *accsync.DecidedSnapshot
		var err error
		if snap.IsComplete() {
			err = r.storage.SetSnapshot(accsync.DecidedIdx, snap.Snapshot)
		} else {
			err = r.storage.MergeSnapshot(accsync.DecidedIdx, snap.Snapshot)
		}
		r.storage.RollbackIfErr(err, []internalstorage.RollbackValue{
			internalstorage.DecidedIdxRollback{Idx: oldDecidedIdx},
			internalstorage.AcceptedRoundRollback{Round: oldAcceptedRound},
		}, "storage error while trying to write snapshot")

		acceptedIdx, err := r.storage.AppendEntries(accsync.Suffix)
		r.storage.RollbackIfErr(err, []internalstorage.RollbackValue{
			internalstorage.AcceptedRoundRollback{Round: oldAcceptedRound},
		}, "storage error while trying to write log entries")
		accepted = paxosmsg.Accepted{N: accsync.N, AcceptedIdx: acceptedIdx}
	} else {
		acceptedIdx, err := r.storage.AppendOnPrefix(accsync.SyncIdx, accsync.Suffix)
		r.storage.RollbackIfErr(err, []internalstorage.RollbackValue{
			internalstorage.DecidedIdxRollback{Idx: oldDecidedIdx},
			internalstorage.AcceptedRoundRollback{Round: oldAcceptedRound},
		}, "storage error while trying to write log entries")
		accepted = paxosmsg.Accepted{N: accsync.N, AcceptedIdx: acceptedIdx}
	}

	r.state = State{Role: RoleFollower, Phase: PhaseAccept}
	r.currentSeqNum = accsync.SeqNum

	outgoingID := r.outgoing.Push(paxosmsg.NewAccepted[T, S](r.pid, from, accepted))
	r.latestAcceptedMeta = &acceptedMeta{round: accsync.N, outgoingID: outgoingID}

	if accsync.StopSign != nil {
		existing, err := r.storage.GetStopSign()
		if err != nil {
			r.fatal(err, "storage error while trying to read stopsign")
		}
		if existing == nil || !existing.Decided {
			r.acceptStopSign(*accsync.StopSign)
		}
		r.outgoing.Push(paxosmsg.NewAcceptedStopSign[T, S](r.pid, from, paxosmsg.AcceptedStopSign{N: accsync.N}))
	} else {
		r.forwardPendingProposals()
	}

	r.metrics.ObserveMessage("accept_sync", "accepted")
	r.refreshLogGauges()
}

// forwardPendingProposals takes ownership of pending_proposals and, if
// non-empty, dispatches them via ForwardProposals (spec §4.3, supplemented
// feature SPEC_FULL.md §12.4: the empty-slice guard avoids a spurious
// zero-length dispatch to the leader-forwarding collaborator).
func (r *Replica[T, S]) forwardPendingProposals() {
	proposals := r.pendingProposals
	r.pendingProposals = nil
	if len(proposals) > 0 && r.ForwardProposals != nil {
		r.ForwardProposals(proposals)
	}
}

// reconnected signals that a fresh Prepare/AcceptSync from peerPid is
// needed; this package only guarantees no further commits happen in the
// current sequence after the signal (spec §4.3, §7).
func (r *Replica[T, S]) reconnected(peerPid ballot.NodeID) {
	if r.OnReconnected != nil {
		r.OnReconnected(peerPid)
	}
}

// HandleAcceptDecide implements spec §4.3 handle_acceptdecide.
func (r *Replica[T, S]) HandleAcceptDecide(acc paxosmsg.AcceptDecide[T]) {
	if !(r.expectPromise().Equal(acc.N) && r.state == (State{Role: RoleFollower, Phase: PhaseAccept})) {
		r.metrics.ObserveMessage("accept_decide", "dropped")
		return
	}

	status := r.currentSeqNum.CheckMsgStatus(acc.SeqNum)
	oldDecidedIdx, err := r.storage.GetDecidedIdx()
	if err != nil {
		r.fatal(err, "storage error while trying to read decided index")
	}

	var oldAcceptedRound *ballot.Ballot
	switch status {
	case seqnum.First:
		old, err := r.storage.GetAcceptedRound()
		if err != nil {
			r.fatal(err, "storage error while trying to read accepted round")
		}
		if err := r.storage.SetAcceptedRound(acc.N); err != nil {
			r.fatal(err, "storage error while trying to write accepted round")
		}
		r.forwardPendingProposals()
		r.currentSeqNum = acc.SeqNum
		oldAcceptedRound = &old
	case seqnum.Expected:
		r.currentSeqNum = acc.SeqNum
	case seqnum.DroppedPreceding:
		r.reconnected(acc.N.Pid)
		r.metrics.ObserveMessage("accept_decide", "dropped")
		return
	case seqnum.Outdated:
		r.metrics.ObserveMessage("accept_decide", "dropped")
		return
	}

	if acc.DecidedIdx > oldDecidedIdx {
		if err := r.storage.SetDecidedIdx(acc.DecidedIdx); err != nil {
			if oldAcceptedRound != nil {
				r.storage.SingleRollback(internalstorage.AcceptedRoundRollback{Round: *oldAcceptedRound})
			}
			r.fatal(err, "storage error while trying to write decided index")
		}
	}

	if err := r.acceptEntries(acc.N, acc.Entries); err != nil {
		if oldAcceptedRound != nil {
			r.storage.SingleRollback(internalstorage.AcceptedRoundRollback{Round: *oldAcceptedRound})
		}
		r.storage.SingleRollback(internalstorage.DecidedIdxRollback{Idx: oldDecidedIdx})
		r.fatal(err, "storage error while trying to write log entries")
	}

	r.metrics.ObserveMessage("accept_decide", "accepted")
	r.refreshLogGauges()
}

// HandleAcceptStopSign implements spec §4.3 handle_accept_stopsign.
func (r *Replica[T, S]) HandleAcceptStopSign(accSS paxosmsg.AcceptStopSign) {
	if !(r.expectPromise().Equal(accSS.N) && r.state == (State{Role: RoleFollower, Phase: PhaseAccept})) {
		r.metrics.ObserveMessage("accept_stop_sign", "dropped")
		return
	}

	switch r.currentSeqNum.CheckMsgStatus(accSS.SeqNum) {
	case seqnum.First:
		if err := r.storage.SetAcceptedRound(accSS.N); err != nil {
			r.fatal(err, "storage error while trying to write accepted round")
		}
		r.forwardPendingProposals()
		r.currentSeqNum = accSS.SeqNum
	case seqnum.Expected:
		r.currentSeqNum = accSS.SeqNum
	case seqnum.DroppedPreceding:
		r.reconnected(accSS.N.Pid)
		r.metrics.ObserveMessage("accept_stop_sign", "dropped")
		return
	case seqnum.Outdated:
		r.metrics.ObserveMessage("accept_stop_sign", "dropped")
		return
	}

	r.acceptStopSign(accSS.SS)
	r.outgoing.Push(paxosmsg.NewAcceptedStopSign[T, S](r.pid, r.leader.Pid, paxosmsg.AcceptedStopSign{N: accSS.N}))
	r.metrics.ObserveMessage("accept_stop_sign", "accepted")
	r.refreshLogGauges()
}

// HandleDecide implements spec §4.3 handle_decide.
func (r *Replica[T, S]) HandleDecide(dec paxosmsg.Decide) {
	if !(r.expectPromise().Equal(dec.N) && r.state.Phase == PhaseAccept) {
		r.metrics.ObserveMessage("decide", "dropped")
		return
	}

	switch r.currentSeqNum.CheckMsgStatus(dec.SeqNum) {
	case seqnum.First:
		r.logger.Warn("Decide cannot be the first message in a sequence", zap.Uint64("pid", r.pid))
		r.metrics.ObserveMessage("decide", "dropped")
		return
	case seqnum.Expected:
		r.currentSeqNum = dec.SeqNum
	case seqnum.DroppedPreceding:
		r.reconnected(dec.N.Pid)
		r.metrics.ObserveMessage("decide", "dropped")
		return
	case seqnum.Outdated:
		r.metrics.ObserveMessage("decide", "dropped")
		return
	}

	if err := r.storage.SetDecidedIdx(dec.DecidedIdx); err != nil {
		r.fatal(err, "storage error while trying to write decided index")
	}
	r.metrics.ObserveMessage("decide", "accepted")
	r.refreshLogGauges()
}

// HandleDecideStopSign implements spec §4.3 handle_decide_stopsign.
func (r *Replica[T, S]) HandleDecideStopSign(dec paxosmsg.DecideStopSign) {
	if !(r.expectPromise().Equal(dec.N) && r.state.Phase == PhaseAccept) {
		r.metrics.ObserveMessage("decide_stop_sign", "dropped")
		return
	}

	switch r.currentSeqNum.CheckMsgStatus(dec.SeqNum) {
	case seqnum.First:
		r.logger.Warn("DecideStopSign cannot be the first message in a sequence", zap.Uint64("pid", r.pid))
		r.metrics.ObserveMessage("decide_stop_sign", "dropped")
		return
	case seqnum.Expected:
		r.currentSeqNum = dec.SeqNum
	case seqnum.DroppedPreceding:
		r.reconnected(dec.N.Pid)
		r.metrics.ObserveMessage("decide_stop_sign", "dropped")
		return
	case seqnum.Outdated:
		r.metrics.ObserveMessage("decide_stop_sign", "dropped")
		return
	}

	ssEntry, err := r.storage.GetStopSign()
	if err != nil {
		r.fatal(err, "storage error while trying to read stopsign")
	}
	if ssEntry == nil {
		panic("no stopsign found when deciding")
	}
	ssEntry.Decided = true

	logLen, err := r.storage.GetLogLen()
	if err != nil {
		r.fatal(err, "storage error while trying to read log length")
	}
	oldDecidedIdx, err := r.storage.GetDecidedIdx()
	if err != nil {
		r.fatal(err, "storage error while trying to read decided index")
	}
	if err := r.storage.SetDecidedIdx(logLen + 1); err != nil {
		r.fatal(err, "storage error while trying to write decided index")
	}

	err = r.storage.SetStopSign(*ssEntry)
	r.storage.RollbackIfErr(err, []internalstorage.RollbackValue{
		internalstorage.DecidedIdxRollback{Idx: oldDecidedIdx},
	}, "storage error while trying to write stopsign")

	r.metrics.ObserveMessage("decide_stop_sign", "accepted")
	r.refreshLogGauges()
}

// TryTrim exposes InternalStorage.TryTrim for callers that administer
// compaction directly (spec §4.1); not part of the inbound message
// protocol itself.
func (r *Replica[T, S]) TryTrim(idx uint64) error {
	return r.storage.TryTrim(idx)
}

// TrySnapshot exposes InternalStorage.TrySnapshot for callers that
// administer compaction directly (spec §4.1).
func (r *Replica[T, S]) TrySnapshot(idx *uint64) error {
	return r.storage.TrySnapshot(idx)
}

// LogLen returns the current virtual log length.
func (r *Replica[T, S]) LogLen() (uint64, error) {
	return r.storage.GetLogLen()
}

// DecidedIdx returns the current decided index.
func (r *Replica[T, S]) DecidedIdx() (uint64, error) {
	return r.storage.GetDecidedIdx()
}

// CompactedIdx returns the current compacted index.
func (r *Replica[T, S]) CompactedIdx() (uint64, error) {
	return r.storage.GetCompactedIdx()
}

// Read exposes InternalStorage.Read for inspecting the spliced log
// (compacted-prefix placeholder, decided/undecided entries, terminal
// StopSign) in tests and the demo's final report.
func (r *Replica[T, S]) Read(fromIncl, toExcl uint64) ([]storage.LogEntry[T, S], bool, error) {
	return r.storage.Read(fromIncl, toExcl)
}

// acceptStopSign installs ss as the replica's StopSign, not yet decided.
func (r *Replica[T, S]) acceptStopSign(ss storage.StopSign) {
	if err := r.storage.SetStopSign(storage.StopSignEntry{StopSign: ss, Decided: false}); err != nil {
		r.fatal(err, "storage error while trying to write stopsign")
	}
}

// acceptEntries appends entries and either mutates the latest queued
// Accepted for round n in place (coalescing, spec §4.3/§9) or queues a new
// one.
func (r *Replica[T, S]) acceptEntries(n ballot.Ballot, entries []T) error {
	acceptedIdx, err := r.storage.AppendEntries(entries)
	if err != nil {
		return err
	}
	if r.latestAcceptedMeta != nil && r.latestAcceptedMeta.round.Equal(n) {
		env := r.outgoing.At(r.latestAcceptedMeta.outgoingID)
		if env.Kind != paxosmsg.OutAccepted {
			panic(fmt.Sprintf("cached outgoing index does not hold an Accepted message: %+v", env))
		}
		env.Accepted.AcceptedIdx = acceptedIdx
		return nil
	}
	accepted := paxosmsg.Accepted{N: n, AcceptedIdx: acceptedIdx}
	outgoingID := r.outgoing.Push(paxosmsg.NewAccepted[T, S](r.pid, r.leader.Pid, accepted))
	r.latestAcceptedMeta = &acceptedMeta{round: n, outgoingID: outgoingID}
	return nil
}
