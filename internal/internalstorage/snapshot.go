package internalstorage

import (
	"fmt"

	"github.com/senutpal/seqpaxos/internal/storage"
)

// CompactionErr is returned by TryTrim/TrySnapshot when asked to compact
// past the decided prefix. It is recoverable: surfaced to the caller, never
// treated as a fatal storage error (spec §7).
type CompactionErr struct {
	DecidedIdx uint64
}

func (e *CompactionErr) Error() string {
	return fmt.Sprintf("undecided index: compaction requested past decided_idx=%d", e.DecidedIdx)
}

// CreateSnapshot reads entries [0, upTo) in virtual space, builds a fresh
// snapshot via the configured codec, and merges it onto any pre-existing
// snapshot.
func (s *InternalStorage[T, S]) CreateSnapshot(upTo uint64) (S, error) {
	var zero S
	compactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return zero, err
	}
	entries, err := s.port.GetEntries(0, saturatingSub(upTo, compactedIdx))
	if err != nil {
		return zero, err
	}
	delta := s.codec.CreateSnapshot(entries)
	existing, err := s.port.GetSnapshot()
	if err != nil {
		return zero, err
	}
	if existing != nil {
		return s.codec.MergeSnapshot(*existing, delta), nil
	}
	return delta, nil
}

// CreateDiffSnapshot returns Complete(CreateSnapshot(to)) when the compacted
// prefix already covers from (nothing below from is physically available
// anymore), otherwise Delta(codec.CreateSnapshot(entries[from:to])). Per
// spec §4.1's invariant: the result is Complete iff compacted_idx >= from
// at call time.
func (s *InternalStorage[T, S]) CreateDiffSnapshot(from, to uint64) (storage.SnapshotType[S], error) {
	compactedIdx, err := s.GetCompactedIdx()
	if err != nil {
		return storage.SnapshotType[S]{}, err
	}
	if compactedIdx >= from {
		snap, err := s.CreateSnapshot(to)
		if err != nil {
			return storage.SnapshotType[S]{}, err
		}
		return storage.Complete(snap), nil
	}
	diffEntries, err := s.GetEntries(from, to)
	if err != nil {
		return storage.SnapshotType[S]{}, err
	}
	return storage.Delta(s.codec.CreateSnapshot(diffEntries)), nil
}

// SetSnapshot installs snapshot as the compacted prefix up to idx,
// atomic-with-rollback: (a) set compacted_idx = idx, (b) set the snapshot
// slot, (c) trim the physical log by idx - old_compacted_idx. Any failing
// step restores the prior compacted_idx and, for a (c) failure, the prior
// snapshot too. A no-op when idx <= the current compacted_idx.
func (s *InternalStorage[T, S]) SetSnapshot(idx uint64, snapshot S) error {
	oldCompactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return err
	}
	if idx <= oldCompactedIdx {
		return nil
	}
	oldSnapshot, err := s.port.GetSnapshot()
	if err != nil {
		return err
	}
	if err := s.port.SetCompactedIdx(idx); err != nil {
		return err
	}
	if err := s.port.SetSnapshot(&snapshot); err != nil {
		if rerr := s.port.SetCompactedIdx(oldCompactedIdx); rerr != nil {
			return rerr
		}
		return err
	}
	if err := s.port.Trim(idx - oldCompactedIdx); err != nil {
		if rerr := s.port.SetCompactedIdx(oldCompactedIdx); rerr != nil {
			return rerr
		}
		if rerr := s.port.SetSnapshot(oldSnapshot); rerr != nil {
			return rerr
		}
		return err
	}
	return nil
}

// MergeSnapshot loads (or, if none exists, synthesizes over the full log)
// the current snapshot, merges delta into it, then installs the result via
// SetSnapshot.
func (s *InternalStorage[T, S]) MergeSnapshot(idx uint64, delta S) error {
	logLen, err := s.GetLogLen()
	if err != nil {
		return err
	}
	existing, err := s.port.GetSnapshot()
	if err != nil {
		return err
	}
	var base S
	if existing != nil {
		base = *existing
	} else {
		base, err = s.CreateSnapshot(logLen)
		if err != nil {
			return err
		}
	}
	merged := s.codec.MergeSnapshot(base, delta)
	return s.SetSnapshot(idx, merged)
}

// TryTrim is a no-op when idx <= compacted_idx, fails with CompactionErr
// when idx > decided_idx, and otherwise advances compacted_idx and
// physically trims, rolling compacted_idx back if the trim fails.
func (s *InternalStorage[T, S]) TryTrim(idx uint64) error {
	compactedIdx, err := s.port.GetCompactedIdx()
	if err != nil {
		return err
	}
	if idx <= compactedIdx {
		return nil
	}
	decidedIdx, err := s.port.GetDecidedIdx()
	if err != nil {
		return err
	}
	if idx > decidedIdx {
		return &CompactionErr{DecidedIdx: decidedIdx}
	}
	if err := s.port.SetCompactedIdx(idx); err != nil {
		return err
	}
	if err := s.port.Trim(idx - compactedIdx); err != nil {
		if rerr := s.port.SetCompactedIdx(compactedIdx); rerr != nil {
			return rerr
		}
		return err
	}
	return nil
}

// TrySnapshot creates and installs a snapshot at idx (defaulting to
// decided_idx when idx is nil), failing with CompactionErr when idx exceeds
// decided_idx. A no-op when the target does not advance past compacted_idx.
func (s *InternalStorage[T, S]) TrySnapshot(idx *uint64) error {
	decidedIdx, err := s.GetDecidedIdx()
	if err != nil {
		return err
	}
	target := decidedIdx
	if idx != nil {
		if *idx > decidedIdx {
			return &CompactionErr{DecidedIdx: decidedIdx}
		}
		target = *idx
	}
	compactedIdx, err := s.GetCompactedIdx()
	if err != nil {
		return err
	}
	if target > compactedIdx {
		snap, err := s.CreateSnapshot(target)
		if err != nil {
			return err
		}
		if err := s.SetSnapshot(target, snap); err != nil {
			return err
		}
	}
	return nil
}
