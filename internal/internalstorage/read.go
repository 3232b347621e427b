package internalstorage

import (
	"github.com/senutpal/seqpaxos/internal/storage"
)

// indexEntryKind classifies a single virtual index as it straddles the
// compacted prefix, the live entry range, or the terminal StopSign slot.
// Carried over from original_source/omnipaxos/src/storage.rs's IndexEntry
// (supplemented feature, see SPEC_FULL.md §12.2): the distilled spec
// describes Read's splicing behavior but not this intermediate
// classification, which is exactly how the reference implementation keeps
// Read's branching tractable.
type indexEntryKind int

const (
	indexCompacted indexEntryKind = iota
	indexEntry
	indexStopSign
	indexOutOfBounds
)

type indexEntryClass struct {
	kind     indexEntryKind
	stopSign storage.StopSign
}

func (s *InternalStorage[T, S]) classifyIndex(idx, compactedIdx, virtualLogLen uint64) (indexEntryClass, error) {
	switch {
	case idx < compactedIdx:
		return indexEntryClass{kind: indexCompacted}, nil
	case idx < virtualLogLen:
		return indexEntryClass{kind: indexEntry}, nil
	case idx == virtualLogLen:
		ss, err := s.GetStopSign()
		if err != nil {
			return indexEntryClass{}, err
		}
		if ss != nil && ss.Decided {
			return indexEntryClass{kind: indexStopSign, stopSign: ss.StopSign}, nil
		}
		return indexEntryClass{kind: indexOutOfBounds}, nil
	default:
		return indexEntryClass{kind: indexOutOfBounds}, nil
	}
}

func (s *InternalStorage[T, S]) compactedPlaceholder(compactedIdx uint64) (storage.LogEntry[T, S], error) {
	snap, err := s.port.GetSnapshot()
	if err != nil {
		return storage.LogEntry[T, S]{}, err
	}
	if snap != nil {
		return storage.Snapshotted[T, S](compactedIdx, *snap), nil
	}
	return storage.Trimmed[T, S](compactedIdx), nil
}

// readRealRange reads the real-index half-open range [fromReal, toReal)
// and annotates each entry Decided or Undecided against decidedIdx
// (expressed in virtual space; entries are offset by compactedIdx).
func (s *InternalStorage[T, S]) readRealRange(fromReal, toReal, compactedIdx, decidedIdx uint64) ([]storage.LogEntry[T, S], error) {
	entries, err := s.port.GetEntries(fromReal, toReal)
	if err != nil {
		return nil, err
	}
	out := make([]storage.LogEntry[T, S], 0, len(entries))
	for i, e := range entries {
		logIdx := fromReal + uint64(i) + compactedIdx
		if logIdx > decidedIdx {
			out = append(out, storage.Undecided[T, S](e))
		} else {
			out = append(out, storage.Decided[T, S](e))
		}
	}
	return out, nil
}

// Read returns the log entries in the virtual half-open range
// [fromIncl, toExcl), splicing in a compacted-prefix placeholder and/or a
// terminal StopSign as needed (spec §4.1). It returns (nil, false, nil)
// when fromIncl is out of bounds.
func (s *InternalStorage[T, S]) Read(fromIncl, toExcl uint64) ([]storage.LogEntry[T, S], bool, error) {
	if toExcl == 0 {
		return nil, false, nil
	}
	virtualLogLen, err := s.GetLogLen()
	if err != nil {
		return nil, false, err
	}
	compactedIdx, err := s.GetCompactedIdx()
	if err != nil {
		return nil, false, err
	}

	toClass, err := s.classifyIndex(toExcl-1, compactedIdx, virtualLogLen)
	if err != nil {
		return nil, false, err
	}
	if toClass.kind == indexCompacted {
		e, err := s.compactedPlaceholder(compactedIdx)
		if err != nil {
			return nil, false, err
		}
		return []storage.LogEntry[T, S]{e}, true, nil
	}
	if toClass.kind == indexOutOfBounds {
		return nil, false, nil
	}
	fromClass, err := s.classifyIndex(fromIncl, compactedIdx, virtualLogLen)
	if err != nil {
		return nil, false, err
	}
	if fromClass.kind == indexOutOfBounds {
		return nil, false, nil
	}
	decidedIdx, err := s.GetDecidedIdx()
	if err != nil {
		return nil, false, err
	}

	switch {
	case fromClass.kind == indexEntry && toClass.kind == indexEntry:
		entries, err := s.readRealRange(fromIncl-compactedIdx, toExcl-compactedIdx, compactedIdx, decidedIdx)
		if err != nil {
			return nil, false, err
		}
		return entries, true, nil

	case fromClass.kind == indexEntry && toClass.kind == indexStopSign:
		entries, err := s.readRealRange(fromIncl-compactedIdx, toExcl-compactedIdx-1, compactedIdx, decidedIdx)
		if err != nil {
			return nil, false, err
		}
		entries = append(entries, storage.StopSignLogEntry[T, S](toClass.stopSign))
		return entries, true, nil

	case fromClass.kind == indexCompacted && toClass.kind == indexEntry:
		placeholder, err := s.compactedPlaceholder(compactedIdx)
		if err != nil {
			return nil, false, err
		}
		entries, err := s.readRealRange(0, toExcl-compactedIdx, compactedIdx, decidedIdx)
		if err != nil {
			return nil, false, err
		}
		return append([]storage.LogEntry[T, S]{placeholder}, entries...), true, nil

	case fromClass.kind == indexCompacted && toClass.kind == indexStopSign:
		placeholder, err := s.compactedPlaceholder(compactedIdx)
		if err != nil {
			return nil, false, err
		}
		entries, err := s.readRealRange(0, toExcl-compactedIdx-1, compactedIdx, decidedIdx)
		if err != nil {
			return nil, false, err
		}
		result := append([]storage.LogEntry[T, S]{placeholder}, entries...)
		result = append(result, storage.StopSignLogEntry[T, S](toClass.stopSign))
		return result, true, nil

	case fromClass.kind == indexStopSign && toClass.kind == indexStopSign:
		return []storage.LogEntry[T, S]{storage.StopSignLogEntry[T, S](fromClass.stopSign)}, true, nil

	default:
		panic("unexpected read combination")
	}
}

// ReadFrom reads the virtual range [from, end), where end is the log
// length plus one more slot iff a decided StopSign occupies it (the
// Unbounded end bound from spec §4.1).
func (s *InternalStorage[T, S]) ReadFrom(from uint64) ([]storage.LogEntry[T, S], bool, error) {
	virtualLogLen, err := s.GetLogLen()
	if err != nil {
		return nil, false, err
	}
	to := virtualLogLen
	ss, err := s.GetStopSign()
	if err != nil {
		return nil, false, err
	}
	if ss != nil && ss.Decided {
		to = virtualLogLen + 1
	}
	return s.Read(from, to)
}

// ReadDecidedSuffix reads all decided entries from virtual index from.
// Returns (nil, false, nil) when from >= decided_idx.
func (s *InternalStorage[T, S]) ReadDecidedSuffix(from uint64) ([]storage.LogEntry[T, S], bool, error) {
	decidedIdx, err := s.GetDecidedIdx()
	if err != nil {
		return nil, false, err
	}
	if from >= decidedIdx {
		return nil, false, nil
	}
	return s.Read(from, decidedIdx)
}
