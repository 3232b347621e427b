package seqnum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/senutpal/seqpaxos/internal/seqnum"
)

func TestCheckMsgStatus(t *testing.T) {
	cases := []struct {
		name     string
		cur      seqnum.SequenceNumber
		incoming seqnum.SequenceNumber
		want     seqnum.Status
	}{
		{"first message of first session", seqnum.SequenceNumber{}, seqnum.SequenceNumber{Session: 1, Counter: 1}, seqnum.First},
		{"new session supersedes old", seqnum.SequenceNumber{Session: 1, Counter: 5}, seqnum.SequenceNumber{Session: 2, Counter: 1}, seqnum.First},
		{"expected next counter", seqnum.SequenceNumber{Session: 1, Counter: 1}, seqnum.SequenceNumber{Session: 1, Counter: 2}, seqnum.Expected},
		{"dropped a counter", seqnum.SequenceNumber{Session: 1, Counter: 1}, seqnum.SequenceNumber{Session: 1, Counter: 3}, seqnum.DroppedPreceding},
		{"older session is outdated", seqnum.SequenceNumber{Session: 2, Counter: 1}, seqnum.SequenceNumber{Session: 1, Counter: 99}, seqnum.Outdated},
		{"replayed counter is outdated", seqnum.SequenceNumber{Session: 1, Counter: 2}, seqnum.SequenceNumber{Session: 1, Counter: 2}, seqnum.Outdated},
		{"replayed earlier counter is outdated", seqnum.SequenceNumber{Session: 1, Counter: 5}, seqnum.SequenceNumber{Session: 1, Counter: 2}, seqnum.Outdated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cur.CheckMsgStatus(tc.incoming))
		})
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "First", seqnum.First.String())
	assert.Equal(t, "Expected", seqnum.Expected.String())
	assert.Equal(t, "DroppedPreceding", seqnum.DroppedPreceding.String())
	assert.Equal(t, "Outdated", seqnum.Outdated.String())
}
