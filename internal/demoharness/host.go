package demoharness

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/follower"
	"github.com/senutpal/seqpaxos/internal/internalstorage"
	"github.com/senutpal/seqpaxos/internal/memstorage"
	"github.com/senutpal/seqpaxos/internal/metrics"
	"github.com/senutpal/seqpaxos/internal/transport"
)

// Host is one cluster member: a follower.Replica driven by messages off
// its transport.Node inbox. The Start/Stop/receive-loop shape is carried
// over from the teacher's internal/node/node.go Node type.
type Host struct {
	id      ballot.NodeID
	replica *follower.Replica[Entry, Snapshot]
	node    *transport.Node[Entry, Snapshot]
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewHost builds a fresh replica over in-memory storage and registers it
// on net under id.
func NewHost(id ballot.NodeID, net *transport.Network[Entry, Snapshot], logger *zap.Logger, reg *metrics.Set) *Host {
	port := memstorage.New[Entry, Snapshot]()
	st := internalstorage.New[Entry, Snapshot](port, Codec{}, logger)
	r := follower.New[Entry, Snapshot](id, st, logger, reg)
	node := net.AddNode(id)
	r.ForwardProposals = func(proposals []Entry) {
		logger.Info("pending proposals would be forwarded to leader", zap.Uint64("pid", id), zap.Int("count", len(proposals)))
	}
	r.OnReconnected = func(peerPid ballot.NodeID) {
		logger.Warn("reconnect required: dropped predecessor message detected", zap.Uint64("pid", id), zap.Uint64("leader", peerPid))
	}
	return &Host{id: id, replica: r, node: node, logger: logger}
}

// ID returns this host's node id.
func (h *Host) ID() ballot.NodeID {
	return h.id
}

// Replica exposes the underlying state machine for direct inspection in
// tests and the demo's final report.
func (h *Host) Replica() *follower.Replica[Entry, Snapshot] {
	return h.replica
}

// Start begins the receive loop: every inbound frame is dispatched to the
// replica, and every frame the replica emits in response is sent back out
// over the network.
func (h *Host) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	h.stopCh = make(chan struct{})
	h.wg.Add(1)
	go h.loop()
}

func (h *Host) loop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.stopCh:
			return
		default:
			f, err := h.node.ReceiveTimeout(50 * time.Millisecond)
			if err == transport.ErrTimeout {
				continue
			}
			out := h.replica.Dispatch(f)
			for _, reply := range out {
				if sendErr := h.node.Send(reply); sendErr != nil {
					h.logger.Warn("failed to send reply", zap.Error(sendErr))
				}
			}
		}
	}
}

// Stop halts the receive loop and waits for it to exit.
func (h *Host) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.stopCh)
	h.mu.Unlock()
	h.wg.Wait()
}
