package demoharness

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/metrics"
	"github.com/senutpal/seqpaxos/internal/transport"
)

// leaderPid is the scripted driver's own node id, kept distinct from
// every follower host id so Ballot/SequenceNumber fields attribute
// messages to a real, addressable sender.
const leaderPid ballot.NodeID = 1000

// Cluster wires N follower hosts onto one transport.Network and exposes a
// scripted leader endpoint used by Scenario to drive them.
type Cluster struct {
	Net        *transport.Network[Entry, Snapshot]
	Hosts      []*Host
	leaderNode *transport.Node[Entry, Snapshot]
	logger     *zap.Logger
}

// NewCluster builds n hosts (ids 1..n), starts their receive loops, and
// registers the scripted leader's own endpoint on the same network. Each
// host gets its own metrics.Set registered against reg under its own pid
// label, so a scrape across the cluster can be split out per node; reg
// may be nil to skip metrics registration entirely.
func NewCluster(n int, logger *zap.Logger, reg prometheus.Registerer) *Cluster {
	if logger == nil {
		logger = zap.NewNop()
	}
	net := transport.NewNetwork[Entry, Snapshot]()
	c := &Cluster{Net: net, logger: logger}
	for i := 1; i <= n; i++ {
		pid := ballot.NodeID(i)
		h := NewHost(pid, net, logger, metrics.New(reg, uint64(pid)))
		c.Hosts = append(c.Hosts, h)
		h.Start()
	}
	c.leaderNode = net.AddNode(leaderPid)
	return c
}

// Stop halts every host's receive loop.
func (c *Cluster) Stop() {
	for _, h := range c.Hosts {
		h.Stop()
	}
}

// Host returns the host with the given id, or nil.
func (c *Cluster) Host(id ballot.NodeID) *Host {
	for _, h := range c.Hosts {
		if h.ID() == id {
			return h
		}
	}
	return nil
}

// drainReplies waits up to timeout for up to count reply frames addressed
// to the leader, returning however many actually arrived.
func (c *Cluster) drainReplies(count int, timeout time.Duration) int {
	seen := 0
	for seen < count {
		if _, err := c.leaderNode.ReceiveTimeout(timeout); err != nil {
			return seen
		}
		seen++
	}
	return seen
}
