package demoharness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/seqpaxos/internal/demoharness"
)

func TestScenarioCatchUpAndSteadyState(t *testing.T) {
	cluster := demoharness.NewCluster(3, nil, nil)
	defer cluster.Stop()

	scenario := demoharness.NewScenario(cluster)

	promises := scenario.Prepare()
	require.Equal(t, 3, promises)

	accepted := scenario.CatchUp(1, []demoharness.Entry{"alpha", "bravo"})
	require.Equal(t, 3, accepted)

	for _, h := range cluster.Hosts {
		logLen, err := h.Replica().LogLen()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), logLen)
	}

	accepted = scenario.AcceptDecide(2, []demoharness.Entry{"charlie"})
	require.Equal(t, 3, accepted)

	for _, h := range cluster.Hosts {
		logLen, err := h.Replica().LogLen()
		require.NoError(t, err)
		assert.Equal(t, uint64(3), logLen)

		decidedIdx, err := h.Replica().DecidedIdx()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), decidedIdx)
	}
}
