package storage

import "github.com/senutpal/seqpaxos/internal/ballot"

// Port is the narrow contract a host must provide to back a replica's log
// (spec §6.1). It operates entirely on physical (real) indices; the
// virtual/real translation lives in internalstorage, one layer up. Any
// operation may fail; a failure is fatal to the owning replica (spec §7).
//
// Grounded on the teacher's storage.Storage interface (sketched only in
// comments in internal/storage/storage.go) and on
// original_source/omnipaxos/src/storage.rs's Storage<T> trait, which this
// mirrors method-for-method.
type Port[T any, S any] interface {
	// AppendEntry appends a single entry and returns the new physical log length.
	AppendEntry(e T) (uint64, error)
	// AppendEntries appends entries and returns the new physical log length.
	AppendEntries(es []T) (uint64, error)
	// AppendOnPrefix truncates the log to fromReal then appends es,
	// returning the new physical log length.
	AppendOnPrefix(fromReal uint64, es []T) (uint64, error)

	SetPromise(n ballot.Ballot) error
	GetPromise() (ballot.Ballot, error)

	SetDecidedIdx(idx uint64) error
	GetDecidedIdx() (uint64, error)

	SetAcceptedRound(n ballot.Ballot) error
	GetAcceptedRound() (ballot.Ballot, error)

	// GetEntries returns the entries in [fromReal, toReal). If the interval
	// is not fully present, it returns an empty slice rather than a partial
	// one.
	GetEntries(fromReal, toReal uint64) ([]T, error)
	// GetLogLen returns the current physical log length.
	GetLogLen() (uint64, error)
	// GetSuffix returns the entries from fromReal to the end of the
	// physical log. As with GetEntries, a not-fully-present interval yields
	// an empty slice.
	GetSuffix(fromReal uint64) ([]T, error)

	SetStopSign(s *StopSignEntry) error
	GetStopSign() (*StopSignEntry, error)

	// Trim drops the first n physical entries.
	Trim(n uint64) error

	SetCompactedIdx(idx uint64) error
	GetCompactedIdx() (uint64, error)

	SetSnapshot(snap *S) error
	GetSnapshot() (*S, error)
}
