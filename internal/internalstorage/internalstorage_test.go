package internalstorage_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/seqpaxos/internal/internalstorage"
	"github.com/senutpal/seqpaxos/internal/memstorage"
	"github.com/senutpal/seqpaxos/internal/storage"
)

type joinCodec struct{}

func (joinCodec) CreateSnapshot(entries []string) string {
	out := ""
	for i, e := range entries {
		if i > 0 {
			out += ","
		}
		out += e
	}
	return out
}

func (joinCodec) MergeSnapshot(base, delta string) string {
	if base == "" {
		return delta
	}
	if delta == "" {
		return base
	}
	return base + "," + delta
}

func (joinCodec) UseSnapshots() bool { return true }

func newTestStorage() *internalstorage.InternalStorage[string, string] {
	return internalstorage.New[string, string](memstorage.New[string, string](), joinCodec{}, nil)
}

func TestAppendEntriesTracksVirtualLen(t *testing.T) {
	s := newTestStorage()
	n, err := s.AppendEntries([]string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	logLen, err := s.GetLogLen()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), logLen)
}

func TestReadSplicesCompactedPlaceholderAndEntries(t *testing.T) {
	s := newTestStorage()
	_, err := s.AppendEntries([]string{"a", "b", "c", "d"})
	require.NoError(t, err)
	require.NoError(t, s.SetDecidedIdx(4))

	require.NoError(t, s.SetSnapshot(2, "a,b"))

	entries, ok, err := s.Read(0, 4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 3)
	assert.Equal(t, storage.LogEntrySnapshotted, entries[0].Kind)
	assert.Equal(t, "a,b", entries[0].SnapshotValue)
	assert.Equal(t, storage.LogEntryDecided, entries[1].Kind)
	assert.Equal(t, "c", entries[1].Value)
	assert.Equal(t, storage.LogEntryDecided, entries[2].Kind)
	assert.Equal(t, "d", entries[2].Value)
}

func TestReadMarksUndecidedEntries(t *testing.T) {
	s := newTestStorage()
	_, err := s.AppendEntries([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, s.SetDecidedIdx(0))

	entries, ok, err := s.Read(0, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 3)
	assert.Equal(t, storage.LogEntryDecided, entries[0].Kind)
	assert.Equal(t, storage.LogEntryUndecided, entries[1].Kind)
	assert.Equal(t, storage.LogEntryUndecided, entries[2].Kind)
}

func TestReadSplicesTerminalStopSign(t *testing.T) {
	s := newTestStorage()
	_, err := s.AppendEntries([]string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, s.SetDecidedIdx(2))
	ss := storage.StopSign{ConfigID: 1, Nodes: []uint64{1, 2, 3}}
	require.NoError(t, s.SetStopSign(storage.StopSignEntry{StopSign: ss, Decided: true}))

	entries, ok, err := s.Read(0, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 3)
	assert.Equal(t, storage.LogEntryStopSign, entries[2].Kind)
	assert.True(t, entries[2].StopSignValue.Equal(ss))
}

func TestReadOutOfBoundsReturnsFalse(t *testing.T) {
	s := newTestStorage()
	_, err := s.AppendEntries([]string{"a"})
	require.NoError(t, err)

	_, ok, err := s.Read(0, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadDecidedSuffixStopsAtDecidedIdx(t *testing.T) {
	s := newTestStorage()
	_, err := s.AppendEntries([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, s.SetDecidedIdx(2))

	entries, ok, err := s.ReadDecidedSuffix(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, entries, 2)

	_, ok, err = s.ReadDecidedSuffix(2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryTrimRejectsPastDecidedIdx(t *testing.T) {
	s := newTestStorage()
	_, err := s.AppendEntries([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, s.SetDecidedIdx(1))

	err = s.TryTrim(2)
	var compactionErr *internalstorage.CompactionErr
	require.True(t, errors.As(err, &compactionErr))
	assert.Equal(t, uint64(1), compactionErr.DecidedIdx)
}

func TestTryTrimAdvancesCompactedIdx(t *testing.T) {
	s := newTestStorage()
	_, err := s.AppendEntries([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, s.SetDecidedIdx(3))

	require.NoError(t, s.TryTrim(2))
	compactedIdx, err := s.GetCompactedIdx()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), compactedIdx)

	suffix, err := s.GetSuffix(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, suffix)
}

func TestTrySnapshotDefaultsToDecidedIdx(t *testing.T) {
	s := newTestStorage()
	_, err := s.AppendEntries([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.NoError(t, s.SetDecidedIdx(2))

	require.NoError(t, s.TrySnapshot(nil))
	compactedIdx, err := s.GetCompactedIdx()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), compactedIdx)
}

// failOnSetSnapshotPort wraps a Memory port and fails the physical
// SetSnapshot call, letting tests assert SetSnapshot's rollback restores
// the prior compacted_idx.
type failOnSetSnapshotPort struct {
	*memstorage.Memory[string, string]
}

func (p *failOnSetSnapshotPort) SetSnapshot(snap *string) error {
	return errors.New("injected snapshot write failure")
}

func TestSetSnapshotRollsBackCompactedIdxOnFailure(t *testing.T) {
	port := &failOnSetSnapshotPort{Memory: memstorage.New[string, string]()}
	s := internalstorage.New[string, string](port, joinCodec{}, nil)
	_, err := s.AppendEntries([]string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, s.SetDecidedIdx(2))

	err = s.SetSnapshot(1, "a")
	require.Error(t, err)

	compactedIdx, cErr := s.GetCompactedIdx()
	require.NoError(t, cErr)
	assert.Equal(t, uint64(0), compactedIdx)
}
