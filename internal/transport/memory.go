package transport

import (
	"sync"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/paxosmsg"
)

// Network is the shared registry of node inboxes, the generalized form of
// the teacher's Network factory (internal/transport/memory.go comments).
type Network[T any, S any] struct {
	mu    sync.RWMutex
	nodes map[ballot.NodeID]*Node[T, S]
}

// NewNetwork returns an empty Network.
func NewNetwork[T any, S any]() *Network[T, S] {
	return &Network[T, S]{nodes: make(map[ballot.NodeID]*Node[T, S])}
}

// AddNode registers id and returns its Node endpoint.
func (net *Network[T, S]) AddNode(id ballot.NodeID) *Node[T, S] {
	net.mu.Lock()
	defer net.mu.Unlock()
	n := &Node[T, S]{id: id, inbox: make(chan paxosmsg.Frame[T, S], inboxSize), network: net}
	net.nodes[id] = n
	return n
}

func (net *Network[T, S]) lookup(id ballot.NodeID) (*Node[T, S], bool) {
	net.mu.RLock()
	defer net.mu.RUnlock()
	n, ok := net.nodes[id]
	return n, ok
}

// peers returns every registered node id except self.
func (net *Network[T, S]) peers(self ballot.NodeID) []ballot.NodeID {
	net.mu.RLock()
	defer net.mu.RUnlock()
	out := make([]ballot.NodeID, 0, len(net.nodes))
	for id := range net.nodes {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}
