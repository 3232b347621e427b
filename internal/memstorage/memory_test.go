package memstorage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/memstorage"
	"github.com/senutpal/seqpaxos/internal/storage"
)

func TestAppendAndRead(t *testing.T) {
	m := memstorage.New[string, string]()

	n, err := m.AppendEntries([]string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	entries, err := m.GetEntries(0, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, entries)

	suffix, err := m.GetSuffix(1)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, suffix)
}

func TestAppendOnPrefixTruncates(t *testing.T) {
	m := memstorage.New[string, string]()
	_, err := m.AppendEntries([]string{"a", "b", "c", "d"})
	require.NoError(t, err)

	n, err := m.AppendOnPrefix(2, []string{"x", "y"})
	require.NoError(t, err)
	require.Equal(t, uint64(4), n)

	entries, err := m.GetEntries(0, 4)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "x", "y"}, entries)
}

func TestTrimDropsPrefix(t *testing.T) {
	m := memstorage.New[string, string]()
	_, err := m.AppendEntries([]string{"a", "b", "c"})
	require.NoError(t, err)

	require.NoError(t, m.Trim(2))
	logLen, err := m.GetLogLen()
	require.NoError(t, err)
	require.Equal(t, uint64(1), logLen)

	entries, err := m.GetEntries(0, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, entries)
}

func TestDefensiveCopyOnSnapshot(t *testing.T) {
	m := memstorage.New[string, string]()

	snap := "snapshot-v1"
	require.NoError(t, m.SetSnapshot(&snap))
	snap = "mutated after set"

	got, err := m.GetSnapshot()
	require.NoError(t, err)
	require.Equal(t, "snapshot-v1", *got)
	*got = "mutated after get"

	got2, err := m.GetSnapshot()
	require.NoError(t, err)
	require.Equal(t, "snapshot-v1", *got2)
}

func TestDefensiveCopyOnStopSign(t *testing.T) {
	m := memstorage.New[string, string]()

	ss := storage.StopSignEntry{StopSign: storage.StopSign{ConfigID: 7, Nodes: []ballot.NodeID{1, 2, 3}}}
	require.NoError(t, m.SetStopSign(&ss))
	ss.StopSign.ConfigID = 99

	got, err := m.GetStopSign()
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.StopSign.ConfigID)
}
