// Package storage defines the data model and the host-provided storage
// port (spec §3, §6.1) that internalstorage.InternalStorage virtualizes.
//
// Grounded on the teacher's internal/storage/storage.go and
// internal/storage/memory.go, which sketch (in comments only, for
// storage.go) and partially implement (for memory.go) a single-slot
// acceptor's durable state: HighestPromised, AcceptedProposal,
// AcceptedValue. This package generalizes that to a full replicated log
// with compaction, matching original_source/omnipaxos/src/storage.rs's
// Storage<T> trait.
package storage

import "github.com/senutpal/seqpaxos/internal/ballot"

// SnapshotCodec captures how a user's entry type T produces and merges
// snapshots of type S. This is the Go rendering of the Rust
// `Snapshot<T>: Create(entries) -> Self, Merge(delta), UseSnapshots() -> bool`
// trait: Go generics have no associated static functions, so the
// create/merge operations are supplied as a caller-provided strategy value
// instead of being dispatched through the type parameter S itself.
type SnapshotCodec[T any, S any] interface {
	// CreateSnapshot builds a fresh snapshot from entries.
	CreateSnapshot(entries []T) S
	// MergeSnapshot folds delta into base and returns the result. base is
	// never mutated in place so that callers holding a reference to the
	// pre-merge snapshot are unaffected.
	MergeSnapshot(base, delta S) S
	// UseSnapshots reports whether T supports snapshotting at all. When
	// false, follower.HandlePrepare never builds a diff snapshot for its
	// Promise. internalstorage's TrySnapshot, CreateSnapshot,
	// CreateDiffSnapshot and MergeSnapshot do not consult it and call
	// CreateSnapshot/MergeSnapshot whenever they are invoked.
	UseSnapshots() bool
}

// NoSnapshot is the snapshot payload for entry types that opt out of
// snapshotting. Ported from original_source/omnipaxos/src/storage.rs's
// NoSnapshot placeholder (lines 166-183): Create/Merge panic if ever
// called, and UseSnapshots is permanently false.
type NoSnapshot struct{}

// NoSnapshotCodec is the SnapshotCodec[T, NoSnapshot] for entry types T
// that never snapshot.
type NoSnapshotCodec[T any] struct{}

func (NoSnapshotCodec[T]) CreateSnapshot(_ []T) NoSnapshot {
	panic("NoSnapshot should not be created")
}

func (NoSnapshotCodec[T]) MergeSnapshot(_, _ NoSnapshot) NoSnapshot {
	panic("NoSnapshot should not be merged")
}

func (NoSnapshotCodec[T]) UseSnapshots() bool {
	return false
}

// StopSign marks the end of a configuration and transfers authority to a
// successor configuration (reconfiguration). Equality is over
// (ConfigID, Nodes) only; Metadata does not participate.
type StopSign struct {
	ConfigID uint64
	Nodes    []ballot.NodeID
	Metadata []byte
}

// Equal reports whether two StopSigns describe the same configuration
// change, ignoring Metadata.
func (s StopSign) Equal(other StopSign) bool {
	if s.ConfigID != other.ConfigID || len(s.Nodes) != len(other.Nodes) {
		return false
	}
	for i, n := range s.Nodes {
		if other.Nodes[i] != n {
			return false
		}
	}
	return true
}

// StopSignEntry pairs a StopSign with whether it has been decided.
type StopSignEntry struct {
	StopSign StopSign
	Decided  bool
}

// SnapshotKind discriminates SnapshotType's two variants.
type SnapshotKind int

const (
	// SnapshotComplete carries a full snapshot of the log up to some index.
	SnapshotComplete SnapshotKind = iota
	// SnapshotDelta carries only the changes since an earlier snapshot.
	SnapshotDelta
)

// SnapshotType is the Complete(S) | Delta(S) variant from spec §3.
type SnapshotType[S any] struct {
	Kind     SnapshotKind
	Snapshot S
}

// Complete builds a SnapshotType in the Complete variant.
func Complete[S any](s S) SnapshotType[S] {
	return SnapshotType[S]{Kind: SnapshotComplete, Snapshot: s}
}

// Delta builds a SnapshotType in the Delta variant.
func Delta[S any](s S) SnapshotType[S] {
	return SnapshotType[S]{Kind: SnapshotDelta, Snapshot: s}
}

// IsComplete reports whether t is the Complete variant.
func (t SnapshotType[S]) IsComplete() bool {
	return t.Kind == SnapshotComplete
}

// LogEntryKind discriminates LogEntry's five variants.
type LogEntryKind int

const (
	LogEntryDecided LogEntryKind = iota
	LogEntryUndecided
	LogEntryStopSign
	LogEntrySnapshotted
	LogEntryTrimmed
)

// LogEntry is the uniform sequence element Read splices together from
// decided/undecided entries, a possible compacted-prefix placeholder, and a
// possible terminal StopSign (spec §3, §4.1).
type LogEntry[T any, S any] struct {
	Kind LogEntryKind
	// Value holds the payload for Decided/Undecided.
	Value T
	// StopSignValue holds the payload for LogEntryStopSign.
	StopSignValue StopSign
	// CompactedIdx holds the payload for Snapshotted/Trimmed.
	CompactedIdx uint64
	// SnapshotValue holds the payload for LogEntrySnapshotted.
	SnapshotValue S
}

func Decided[T any, S any](v T) LogEntry[T, S] {
	return LogEntry[T, S]{Kind: LogEntryDecided, Value: v}
}

func Undecided[T any, S any](v T) LogEntry[T, S] {
	return LogEntry[T, S]{Kind: LogEntryUndecided, Value: v}
}

func StopSignLogEntry[T any, S any](ss StopSign) LogEntry[T, S] {
	return LogEntry[T, S]{Kind: LogEntryStopSign, StopSignValue: ss}
}

func Snapshotted[T any, S any](idx uint64, snap S) LogEntry[T, S] {
	return LogEntry[T, S]{Kind: LogEntrySnapshotted, CompactedIdx: idx, SnapshotValue: snap}
}

func Trimmed[T any, S any](idx uint64) LogEntry[T, S] {
	return LogEntry[T, S]{Kind: LogEntryTrimmed, CompactedIdx: idx}
}
