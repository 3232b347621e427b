// Package transport is an in-process message bus connecting replicas in
// cmd/demo: every node runs in the same goroutine-per-node process and
// communicates over buffered channels rather than a real network.
//
// Adapted from the teacher's internal/transport/transport.go, which only
// sketches (in comments) a Transport interface and a channel-based
// Network/MemoryTransport pair. This package supplies the real
// implementation the teacher's comments describe, generalized from the
// teacher's untyped Message envelope to paxosmsg.Frame[T, S], and from
// its string node ids to ballot.NodeID.
package transport

import (
	"fmt"
	"time"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/paxosmsg"
)

// ErrTimeout is returned by ReceiveTimeout when no message arrives in time.
var ErrTimeout = fmt.Errorf("transport: receive timed out")

// ErrUnknownNode is returned by Send/Broadcast when the destination has no
// registered inbox.
var ErrUnknownNode = fmt.Errorf("transport: unknown destination node")

// inboxSize bounds how many undelivered envelopes queue per node before
// Send starts dropping, matching the teacher's "paxos assumes an async,
// lossy network" framing: a full inbox is treated the same as a lost
// message, not a blocking condition.
const inboxSize = 256

// Node is one participant's channel endpoint in a Network.
type Node[T any, S any] struct {
	id      ballot.NodeID
	inbox   chan paxosmsg.Frame[T, S]
	network *Network[T, S]
}

// Send enqueues f on the destination's inbox. A full inbox drops the
// message silently rather than blocking the sender.
func (n *Node[T, S]) Send(f paxosmsg.Frame[T, S]) error {
	dest, ok := n.network.lookup(f.To)
	if !ok {
		return ErrUnknownNode
	}
	select {
	case dest.inbox <- f:
		return nil
	default:
		return nil
	}
}

// Broadcast sends f to every other node in the network, overwriting its To
// field per destination.
func (n *Node[T, S]) Broadcast(f paxosmsg.Frame[T, S]) error {
	for _, id := range n.network.peers(n.id) {
		f.To = id
		if err := n.Send(f); err != nil {
			return err
		}
	}
	return nil
}

// Receive blocks until a message arrives.
func (n *Node[T, S]) Receive() paxosmsg.Frame[T, S] {
	return <-n.inbox
}

// ReceiveTimeout is Receive bounded by timeout.
func (n *Node[T, S]) ReceiveTimeout(timeout time.Duration) (paxosmsg.Frame[T, S], error) {
	select {
	case f := <-n.inbox:
		return f, nil
	case <-time.After(timeout):
		var zero paxosmsg.Frame[T, S]
		return zero, ErrTimeout
	}
}

// ID returns this node's identity.
func (n *Node[T, S]) ID() ballot.NodeID {
	return n.id
}
