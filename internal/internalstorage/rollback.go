package internalstorage

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/senutpal/seqpaxos/internal/ballot"
)

// RollbackValue is a scalar previously written by a multi-step storage
// write, ready to be restored if a later step in the same write fails.
// Ported from original_source/omnipaxos/src/storage.rs's RollbackValue enum
// (lines 187-190).
type RollbackValue interface {
	isRollbackValue()
}

// DecidedIdxRollback restores the decided index.
type DecidedIdxRollback struct{ Idx uint64 }

func (DecidedIdxRollback) isRollbackValue() {}

// AcceptedRoundRollback restores the accepted round.
type AcceptedRoundRollback struct{ Round ballot.Ballot }

func (AcceptedRoundRollback) isRollbackValue() {}

// SingleRollback replays one previously-written scalar. A failure here is
// unrecoverable (best-effort rollback failed) and panics immediately, per
// spec §7 ("Storage rollbacks are best-effort: if a rollback write itself
// fails, the replica aborts immediately").
func (s *InternalStorage[T, S]) SingleRollback(v RollbackValue) {
	switch rv := v.(type) {
	case DecidedIdxRollback:
		if err := s.SetDecidedIdx(rv.Idx); err != nil {
			s.logger.Error("storage error while rolling back decided_idx", zap.Error(err))
			panic(fmt.Sprintf("storage error while trying to write decided_idx: %s", err))
		}
	case AcceptedRoundRollback:
		if err := s.SetAcceptedRound(rv.Round); err != nil {
			s.logger.Error("storage error while rolling back accepted_round", zap.Error(err))
			panic(fmt.Sprintf("storage error while trying to write accepted_round: %s", err))
		}
	default:
		panic("unknown RollbackValue kind")
	}
}

// Rollback replays a sequence of previously-written scalars, in the order
// given. Callers must pass values in reverse of write order (the
// most-recently-written cell first) per spec §4.1.
func (s *InternalStorage[T, S]) Rollback(values []RollbackValue) {
	for _, v := range values {
		s.SingleRollback(v)
	}
}

// RollbackIfErr is the fatal-path helper used throughout follower handlers:
// if err is non-nil, it replays values (most-recent-write first) then
// panics with msg and err. Ported from original_source's
// rollback_if_err (storage.rs lines 237-249).
func (s *InternalStorage[T, S]) RollbackIfErr(err error, values []RollbackValue, msg string) {
	if err == nil {
		return
	}
	s.logger.Error(msg, zap.Error(err), zap.Int("rollback_steps", len(values)))
	s.Rollback(values)
	panic(fmt.Sprintf("%s: %s", msg, err))
}
