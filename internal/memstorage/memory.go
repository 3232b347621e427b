// Package memstorage is an in-memory storage.Port[T, S], for tests and
// cmd/demo. Nothing here is persisted to disk.
//
// Adapted from the teacher's internal/storage/memory.go MemoryStorage,
// which holds a single promised/accepted proposal triple behind a
// sync.RWMutex with defensive copying on every Save/Load. This generalizes
// that single-slot shape into a full physical log (entries, compacted
// index, snapshot slot, stop sign) addressed by storage.Port's physical
// indices, keeping the teacher's locking and defensive-copy discipline.
package memstorage

import (
	"sync"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/storage"
)

// Memory is a storage.Port[T, S] backed by Go slices and a mutex. The zero
// value is not usable; construct with New.
type Memory[T any, S any] struct {
	mu sync.RWMutex

	promise       ballot.Ballot
	decidedIdx    uint64
	acceptedRound ballot.Ballot
	entries       []T
	compactedIdx  uint64
	stopSign      *storage.StopSignEntry
	snapshot      *S
}

// New returns an empty Memory store.
func New[T any, S any]() *Memory[T, S] {
	return &Memory[T, S]{}
}

func (m *Memory[T, S]) AppendEntry(e T) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return uint64(len(m.entries)), nil
}

func (m *Memory[T, S]) AppendEntries(es []T) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, es...)
	return uint64(len(m.entries)), nil
}

// AppendOnPrefix truncates the log to fromReal entries, then appends es.
// fromReal beyond the current length is treated as the current length
// (nothing to truncate), matching the Rust reference's saturating split.
func (m *Memory[T, S]) AppendOnPrefix(fromReal uint64, es []T) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fromReal > uint64(len(m.entries)) {
		fromReal = uint64(len(m.entries))
	}
	kept := make([]T, fromReal, fromReal+uint64(len(es)))
	copy(kept, m.entries[:fromReal])
	m.entries = append(kept, es...)
	return uint64(len(m.entries)), nil
}

func (m *Memory[T, S]) SetPromise(n ballot.Ballot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promise = n
	return nil
}

func (m *Memory[T, S]) GetPromise() (ballot.Ballot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.promise, nil
}

func (m *Memory[T, S]) SetDecidedIdx(idx uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decidedIdx = idx
	return nil
}

func (m *Memory[T, S]) GetDecidedIdx() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decidedIdx, nil
}

func (m *Memory[T, S]) SetAcceptedRound(n ballot.Ballot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acceptedRound = n
	return nil
}

func (m *Memory[T, S]) GetAcceptedRound() (ballot.Ballot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.acceptedRound, nil
}

// GetEntries returns a defensive copy of [fromReal, toReal); an interval
// not fully present yields an empty slice rather than a partial one.
func (m *Memory[T, S]) GetEntries(fromReal, toReal uint64) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if toReal > uint64(len(m.entries)) || fromReal > toReal {
		return []T{}, nil
	}
	out := make([]T, toReal-fromReal)
	copy(out, m.entries[fromReal:toReal])
	return out, nil
}

func (m *Memory[T, S]) GetLogLen() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.entries)), nil
}

func (m *Memory[T, S]) GetSuffix(fromReal uint64) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if fromReal > uint64(len(m.entries)) {
		return []T{}, nil
	}
	out := make([]T, uint64(len(m.entries))-fromReal)
	copy(out, m.entries[fromReal:])
	return out, nil
}

func (m *Memory[T, S]) SetStopSign(s *storage.StopSignEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s == nil {
		m.stopSign = nil
		return nil
	}
	cp := *s
	m.stopSign = &cp
	return nil
}

func (m *Memory[T, S]) GetStopSign() (*storage.StopSignEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopSign == nil {
		return nil, nil
	}
	cp := *m.stopSign
	return &cp, nil
}

func (m *Memory[T, S]) Trim(n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > uint64(len(m.entries)) {
		n = uint64(len(m.entries))
	}
	kept := make([]T, uint64(len(m.entries))-n)
	copy(kept, m.entries[n:])
	m.entries = kept
	return nil
}

func (m *Memory[T, S]) SetCompactedIdx(idx uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compactedIdx = idx
	return nil
}

func (m *Memory[T, S]) GetCompactedIdx() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.compactedIdx, nil
}

func (m *Memory[T, S]) SetSnapshot(snap *S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap == nil {
		m.snapshot = nil
		return nil
	}
	cp := *snap
	m.snapshot = &cp
	return nil
}

func (m *Memory[T, S]) GetSnapshot() (*S, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return nil, nil
	}
	cp := *m.snapshot
	return &cp, nil
}

var _ storage.Port[int, int] = (*Memory[int, int])(nil)
