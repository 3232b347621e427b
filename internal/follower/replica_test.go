package follower_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/follower"
	"github.com/senutpal/seqpaxos/internal/internalstorage"
	"github.com/senutpal/seqpaxos/internal/memstorage"
	"github.com/senutpal/seqpaxos/internal/paxosmsg"
	"github.com/senutpal/seqpaxos/internal/seqnum"
	"github.com/senutpal/seqpaxos/internal/storage"
)

type noSnap = storage.NoSnapshotCodec[string]

func newReplica(t *testing.T, pid ballot.NodeID) *follower.Replica[string, storage.NoSnapshot] {
	t.Helper()
	port := memstorage.New[string, storage.NoSnapshot]()
	st := internalstorage.New[string, storage.NoSnapshot](port, noSnap{}, nil)
	return follower.New[string, storage.NoSnapshot](pid, st, nil, nil)
}

const leaderPid ballot.NodeID = 100

func TestHandlePrepareEntersPreparePhaseAndPromises(t *testing.T) {
	r := newReplica(t, 1)
	n := ballot.Ballot{N: 1, Pid: leaderPid}

	r.HandlePrepare(paxosmsg.Prepare{N: n}, leaderPid)

	assert.Equal(t, follower.State{Role: follower.RoleFollower, Phase: follower.PhasePrepare}, r.State())
	out := r.DrainOutgoing()
	require.Len(t, out, 1)
	assert.Equal(t, paxosmsg.OutPromise, out[0].Kind)
	assert.True(t, out[0].Promise.N.Equal(n))
}

func TestHandlePrepareDropsStaleRound(t *testing.T) {
	r := newReplica(t, 1)
	r.HandlePrepare(paxosmsg.Prepare{N: ballot.Ballot{N: 5, Pid: leaderPid}}, leaderPid)
	r.DrainOutgoing()

	r.HandlePrepare(paxosmsg.Prepare{N: ballot.Ballot{N: 3, Pid: leaderPid}}, leaderPid)
	assert.Empty(t, r.DrainOutgoing())
}

func TestAcceptSyncAppendsSuffixAndAcks(t *testing.T) {
	r := newReplica(t, 1)
	n := ballot.Ballot{N: 1, Pid: leaderPid}
	r.HandlePrepare(paxosmsg.Prepare{N: n}, leaderPid)
	r.DrainOutgoing()

	r.HandleAcceptSync(paxosmsg.AcceptSync[string, storage.NoSnapshot]{
		N:      n,
		Suffix: []string{"a", "b"},
		SeqNum: seqnum.SequenceNumber{Session: 1, Counter: 1},
	}, leaderPid)

	assert.Equal(t, follower.State{Role: follower.RoleFollower, Phase: follower.PhaseAccept}, r.State())
	out := r.DrainOutgoing()
	require.Len(t, out, 1)
	assert.Equal(t, paxosmsg.OutAccepted, out[0].Kind)
	assert.Equal(t, uint64(2), out[0].Accepted.AcceptedIdx)

	logLen, err := r.LogLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), logLen)
}

func acceptSyncedReplica(t *testing.T) (*follower.Replica[string, storage.NoSnapshot], ballot.Ballot) {
	t.Helper()
	r := newReplica(t, 1)
	n := ballot.Ballot{N: 1, Pid: leaderPid}
	r.HandlePrepare(paxosmsg.Prepare{N: n}, leaderPid)
	r.DrainOutgoing()
	r.HandleAcceptSync(paxosmsg.AcceptSync[string, storage.NoSnapshot]{
		N:      n,
		SeqNum: seqnum.SequenceNumber{Session: 1, Counter: 1},
	}, leaderPid)
	r.DrainOutgoing()
	return r, n
}

func TestAcceptDecideAppendsAndAdvancesDecidedIdx(t *testing.T) {
	r, n := acceptSyncedReplica(t)

	r.HandleAcceptDecide(paxosmsg.AcceptDecide[string]{
		N:          n,
		SeqNum:     seqnum.SequenceNumber{Session: 1, Counter: 2},
		DecidedIdx: 1,
		Entries:    []string{"x"},
	})

	logLen, err := r.LogLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), logLen)

	decidedIdx, err := r.DecidedIdx()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), decidedIdx)

	out := r.DrainOutgoing()
	require.Len(t, out, 1)
	assert.Equal(t, paxosmsg.OutAccepted, out[0].Kind)
}

func TestAcceptDecideCoalescesRepeatedAcceptedIntoOneMessage(t *testing.T) {
	r, n := acceptSyncedReplica(t)
	seq := seqnum.SequenceNumber{Session: 1, Counter: 2}

	r.HandleAcceptDecide(paxosmsg.AcceptDecide[string]{N: n, SeqNum: seq, Entries: []string{"x"}})
	seq.Counter++
	r.HandleAcceptDecide(paxosmsg.AcceptDecide[string]{N: n, SeqNum: seq, Entries: []string{"y"}})

	out := r.DrainOutgoing()
	require.Len(t, out, 1, "two AcceptDecide replies in the same round must coalesce into one Accepted")
	assert.Equal(t, uint64(2), out[0].Accepted.AcceptedIdx)
}

func TestDecideAdvancesDecidedIdxWithoutNewEntries(t *testing.T) {
	r, n := acceptSyncedReplica(t)
	r.HandleAcceptDecide(paxosmsg.AcceptDecide[string]{
		N:       n,
		SeqNum:  seqnum.SequenceNumber{Session: 1, Counter: 2},
		Entries: []string{"x", "y"},
	})
	r.DrainOutgoing()

	r.HandleDecide(paxosmsg.Decide{N: n, SeqNum: seqnum.SequenceNumber{Session: 1, Counter: 3}, DecidedIdx: 2})

	decidedIdx, err := r.DecidedIdx()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), decidedIdx)
}

func TestDroppedPrecedingTriggersReconnect(t *testing.T) {
	r, n := acceptSyncedReplica(t)

	var reconnectedFrom ballot.NodeID
	r.OnReconnected = func(peerPid ballot.NodeID) { reconnectedFrom = peerPid }

	r.HandleAcceptDecide(paxosmsg.AcceptDecide[string]{
		N:       n,
		SeqNum:  seqnum.SequenceNumber{Session: 1, Counter: 4},
		Entries: []string{"x"},
	})

	assert.Equal(t, leaderPid, reconnectedFrom)
	assert.Empty(t, r.DrainOutgoing(), "a dropped-preceding message must not be applied")

	logLen, err := r.LogLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), logLen)
}

func TestOutdatedSeqNumIsIgnored(t *testing.T) {
	r, n := acceptSyncedReplica(t)
	r.HandleAcceptDecide(paxosmsg.AcceptDecide[string]{N: n, SeqNum: seqnum.SequenceNumber{Session: 1, Counter: 2}, Entries: []string{"x"}})
	r.DrainOutgoing()

	r.HandleAcceptDecide(paxosmsg.AcceptDecide[string]{N: n, SeqNum: seqnum.SequenceNumber{Session: 1, Counter: 2}, Entries: []string{"replayed"}})

	assert.Empty(t, r.DrainOutgoing())
	logLen, err := r.LogLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), logLen)
}

func TestStopSignAcceptAndDecideCycle(t *testing.T) {
	r, n := acceptSyncedReplica(t)
	ss := storage.StopSign{ConfigID: 2, Nodes: []ballot.NodeID{1, 2, 3}}

	r.HandleAcceptStopSign(paxosmsg.AcceptStopSign{N: n, SeqNum: seqnum.SequenceNumber{Session: 1, Counter: 2}, SS: ss})
	out := r.DrainOutgoing()
	require.Len(t, out, 1)
	assert.Equal(t, paxosmsg.OutAcceptedStopSign, out[0].Kind)

	r.HandleDecideStopSign(paxosmsg.DecideStopSign{N: n, SeqNum: seqnum.SequenceNumber{Session: 1, Counter: 3}})

	entries, ok, err := r.Read(0, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, storage.LogEntryStopSign, entries[0].Kind)
	assert.True(t, entries[0].StopSignValue.Equal(ss))
}

func TestDispatchRoutesAndDrains(t *testing.T) {
	r := newReplica(t, 1)
	n := ballot.Ballot{N: 1, Pid: leaderPid}

	out := r.Dispatch(paxosmsg.FramePrepare[string, storage.NoSnapshot](leaderPid, 1, paxosmsg.Prepare{N: n}))
	require.Len(t, out, 1)
	assert.Equal(t, paxosmsg.MsgPromise, out[0].Kind)
}
