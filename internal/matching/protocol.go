// Package matching turns swipes into matches.
//
// Every pair of users moves forward through
//
//	no-interaction -> A-likes-B -> mutual-like -> matched
//
// and never back: there is no unlike and no unmatch. A match is created by
// whichever like arrives second, exactly once per unordered pair.
package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/oggyb/tubematch/internal/db"
)

var (
	ErrSelfLike     = errors.New("cannot swipe on yourself")
	ErrUserNotFound = errors.New("user not found")
)

// Store is the persistence port the protocol runs against.
type Store interface {
	// Atomically runs fn inside one transaction. Implementations must
	// serialize concurrent calls for the same unordered pair {a, b}.
	Atomically(ctx context.Context, a, b uint64, fn func(tx Store) error) error

	UserExists(ctx context.Context, userID uint64) (bool, error)
	UpsertLike(ctx context.Context, actorID, targetID uint64, liked bool) error
	// FindReciprocalLike reports whether targetID has liked actorID.
	FindReciprocalLike(ctx context.Context, actorID, targetID uint64) (bool, error)
	// InsertMatchIfAbsent returns the match for {a, b}, creating it when
	// none exists. created is false when the pair had already matched.
	InsertMatchIfAbsent(ctx context.Context, a, b uint64) (m db.Match, created bool, err error)
	ListMatchesFor(ctx context.Context, userID uint64) ([]db.Match, error)
}

// Result is what a swipe tells the caller.
type Result struct {
	Matched bool
	MatchID string
	// NewMatch is true only for the swipe that created the match.
	NewMatch bool
}

type Protocol struct {
	store Store
}

func NewProtocol(store Store) *Protocol {
	return &Protocol{store: store}
}

// RecordLike writes actor's decision about target and, for a like, forms a
// match when target already liked actor back.
//
// The ledger write and the match insert share one transaction: either both
// land or neither does.
func (p *Protocol) RecordLike(ctx context.Context, actorID, targetID uint64, liked bool) (Result, error) {
	if actorID == targetID {
		return Result{}, ErrSelfLike
	}

	var res Result
	err := p.store.Atomically(ctx, actorID, targetID, func(tx Store) error {
		res = Result{}

		ok, err := tx.UserExists(ctx, targetID)
		if err != nil {
			return fmt.Errorf("lookup target: %w", err)
		}
		if !ok {
			return ErrUserNotFound
		}

		if err := tx.UpsertLike(ctx, actorID, targetID, liked); err != nil {
			return fmt.Errorf("upsert like: %w", err)
		}
		if !liked {
			return nil
		}

		mutual, err := tx.FindReciprocalLike(ctx, actorID, targetID)
		if err != nil {
			return fmt.Errorf("find reciprocal like: %w", err)
		}
		if !mutual {
			return nil
		}

		m, created, err := tx.InsertMatchIfAbsent(ctx, actorID, targetID)
		if err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
		res = Result{Matched: true, MatchID: m.ID, NewMatch: created}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Matches lists userID's matches, newest first.
func (p *Protocol) Matches(ctx context.Context, userID uint64) ([]db.Match, error) {
	return p.store.ListMatchesFor(ctx, userID)
}
