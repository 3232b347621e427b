// Package internalstorage virtualizes a monotonic log over a
// storage.Port backing store that may be periodically compacted (spec
// §4.1). It is the sole translator between virtual indices (stable,
// monotonic, the only indices the Paxos protocol ever sees) and real
// physical indices (shift-left on compaction).
//
// There is no teacher precedent for this component: senutpal-quorum's
// Storage interface (internal/storage/storage.go) is a TODO-only comment
// sketch of a single-slot acceptor's durable cells, with no compaction, no
// log, and no virtual/real translation. This package is built fresh from
// spec.md §4.1 and is a direct structural port of
// original_source/omnipaxos/src/storage.rs's InternalStorage<I, T>, adapted
// to Go generics (T the entry type, S its snapshot type) and to returning
// errors instead of Rust's StorageResult.
package internalstorage

import (
	"go.uber.org/zap"

	"github.com/senutpal/seqpaxos/internal/ballot"
	"github.com/senutpal/seqpaxos/internal/storage"
)

// InternalStorage wraps a storage.Port[T, S] and a storage.SnapshotCodec[T, S],
// presenting a stable virtual log to the replica.
type InternalStorage[T any, S any] struct {
	port   storage.Port[T, S]
	codec  storage.SnapshotCodec[T, S]
	logger *zap.Logger
}

// New wraps port behind the virtual-index translation, using codec to
// create/merge snapshots. A nil logger defaults to a no-op logger.
func New[T any, S any](port storage.Port[T, S], codec storage.SnapshotCodec[T, S], logger *zap.Logger) *InternalStorage[T, S] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InternalStorage[T, S]{port: port, codec: codec, logger: logger}
}

// AppendEntry appends a single entry and returns the new virtual log length.
func (s *InternalStorage[T, S]) AppendEntry(e T) (uint64, error) {
	compactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return 0, err
	}
	real, err := s.port.AppendEntry(e)
	if err != nil {
		return 0, err
	}
	return real + compactedIdx, nil
}

// AppendEntries appends entries and returns the new virtual log length.
func (s *InternalStorage[T, S]) AppendEntries(entries []T) (uint64, error) {
	compactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return 0, err
	}
	real, err := s.port.AppendEntries(entries)
	if err != nil {
		return 0, err
	}
	return real + compactedIdx, nil
}

// AppendOnPrefix truncates the suffix starting at fromVirtualIdx and
// appends entries, returning the new virtual log length. fromVirtualIdx
// must be >= compacted_idx: a truncation point inside the compacted prefix
// is a protocol bug in the caller, not a recoverable condition here.
func (s *InternalStorage[T, S]) AppendOnPrefix(fromVirtualIdx uint64, entries []T) (uint64, error) {
	compactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return 0, err
	}
	real, err := s.port.AppendOnPrefix(fromVirtualIdx-compactedIdx, entries)
	if err != nil {
		return 0, err
	}
	return real + compactedIdx, nil
}

// AppendOnDecidedPrefix is AppendOnPrefix using the current decided_idx as
// the truncation point.
func (s *InternalStorage[T, S]) AppendOnDecidedPrefix(entries []T) (uint64, error) {
	decidedIdx, err := s.port.GetDecidedIdx()
	if err != nil {
		return 0, err
	}
	return s.AppendOnPrefix(decidedIdx, entries)
}

func (s *InternalStorage[T, S]) SetPromise(n ballot.Ballot) error {
	return s.port.SetPromise(n)
}

func (s *InternalStorage[T, S]) GetPromise() (ballot.Ballot, error) {
	return s.port.GetPromise()
}

func (s *InternalStorage[T, S]) SetDecidedIdx(idx uint64) error {
	return s.port.SetDecidedIdx(idx)
}

func (s *InternalStorage[T, S]) GetDecidedIdx() (uint64, error) {
	return s.port.GetDecidedIdx()
}

func (s *InternalStorage[T, S]) SetAcceptedRound(n ballot.Ballot) error {
	return s.port.SetAcceptedRound(n)
}

func (s *InternalStorage[T, S]) GetAcceptedRound() (ballot.Ballot, error) {
	return s.port.GetAcceptedRound()
}

// saturatingSub returns a-b, or 0 if b > a. Used only where the caller may
// legitimately pass an interval endpoint that straddles the compacted
// prefix; never in append paths (spec §9 Design Notes).
func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// GetEntries returns the entries in virtual range [from, to). Any part of
// the interval below compacted_idx is silently clipped, matching the
// Rust reference's `from - compacted_idx.min(from)` saturating
// translation.
func (s *InternalStorage[T, S]) GetEntries(from, to uint64) ([]T, error) {
	compactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return nil, err
	}
	return s.port.GetEntries(saturatingSub(from, compactedIdx), saturatingSub(to, compactedIdx))
}

// GetLogLen returns the virtual log length: compacted_idx + real_log_len.
func (s *InternalStorage[T, S]) GetLogLen() (uint64, error) {
	compactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return 0, err
	}
	real, err := s.port.GetLogLen()
	if err != nil {
		return 0, err
	}
	return compactedIdx + real, nil
}

// GetSuffix returns the entries from virtual index from to the end of the
// log.
func (s *InternalStorage[T, S]) GetSuffix(from uint64) ([]T, error) {
	compactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return nil, err
	}
	return s.port.GetSuffix(saturatingSub(from, compactedIdx))
}

func (s *InternalStorage[T, S]) SetStopSign(entry storage.StopSignEntry) error {
	return s.port.SetStopSign(&entry)
}

func (s *InternalStorage[T, S]) GetStopSign() (*storage.StopSignEntry, error) {
	return s.port.GetStopSign()
}

func (s *InternalStorage[T, S]) GetCompactedIdx() (uint64, error) {
	return s.port.GetCompactedIdx()
}

// UseSnapshots reports whether the configured codec supports snapshotting
// T at all.
func (s *InternalStorage[T, S]) UseSnapshots() bool {
	return s.codec.UseSnapshots()
}
