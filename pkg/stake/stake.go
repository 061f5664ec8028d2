// Package stake implements the split/requeue engine: carving caller-declared
// sub-ranges out of queue ranges and handing the carved-out token ids to a
// staking balance ledger, all-or-nothing. Validation runs fully before any
// mutation, producing a plan; the mutation pass can't fail, so there's no
// rollback machinery.
package stake

import (
	"fmt"
	"sort"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/queue"
)

// BalanceLedger is the staking-side collaborator. It's independent storage
// from the range ledger, addressed by owner and token id. The engine only
// calls Stake after full validation, so implementations should not fail on
// tokens the engine hands them.
type BalanceLedger interface {
	// Stake records the tokens as staked by the owner.
	Stake(owner api.Owner, tokens []api.TokenID) error

	// Unstake removes the tokens, which must be staked by the owner.
	Unstake(owner api.Owner, tokens []api.TokenID) error

	// Staked returns the owner's staked tokens, ascending.
	Staked(owner api.Owner) []api.TokenID

	// IsStaked returns true if the owner has the token staked.
	IsStaked(owner api.Owner, token api.TokenID) bool

	// Owners returns every owner with staked tokens.
	Owners() []api.Owner
}

// RangeRequest declares how one queue range should be partitioned: Requeue
// spans stay in the owner's queue, Split spans leave it for the staking
// ledger. Together, in ascending order, the spans must tile the queue range
// exactly: no gap, no overlap, interleaved between the two kinds however the
// caller likes.
type RangeRequest struct {
	ID      api.RangeID
	Requeue []api.Span
	Split   []api.Span
}

// Engine mutates the owner's queue through the queue manager and forwards
// extracted ids to the balance ledger.
type Engine struct {
	queues *queue.Manager
	ledger BalanceLedger
}

func New(queues *queue.Manager, ledger BalanceLedger) *Engine {
	return &Engine{
		queues: queues,
		ledger: ledger,
	}
}

// step is one planned tile of a parent range, in order.
type step struct {
	span  api.Span
	split bool
}

type plan struct {
	parent api.RangeID
	steps  []step
}

// Stake partitions the named queue ranges between "still owned, unstaked"
// and "now staked". Either the whole request applies or none of it does.
func (e *Engine) Stake(owner api.Owner, reqs []RangeRequest) error {
	plans, err := e.validate(owner, reqs)
	if err != nil {
		return err
	}

	e.apply(owner, plans)
	return nil
}

// StakeBatch is Stake with the request as parallel arrays, the shape callers
// on the wire tend to supply. The arrays must line up.
func (e *Engine) StakeBatch(owner api.Owner, ids []api.RangeID, requeue [][]api.Span, split [][]api.Span) error {
	if len(ids) == 0 {
		return api.ErrDequeueRequestEmpty
	}
	if len(requeue) != len(ids) || len(split) != len(ids) {
		return fmt.Errorf("%w: %d ids, %d requeue lists, %d split lists",
			api.ErrArrayLengthMismatch, len(ids), len(requeue), len(split))
	}

	reqs := make([]RangeRequest, len(ids))
	for i, id := range ids {
		reqs[i] = RangeRequest{ID: id, Requeue: requeue[i], Split: split[i]}
	}

	return e.Stake(owner, reqs)
}

// validate checks the whole request against the owner's queue and returns
// the mutation plan. Nothing is written here.
func (e *Engine) validate(owner api.Owner, reqs []RangeRequest) ([]plan, error) {
	if len(reqs) == 0 {
		return nil, api.ErrSplitRequestEmpty
	}

	q, ok := e.queues.List(owner)
	if !ok {
		return nil, fmt.Errorf("%w: owner %s", api.ErrQueueEmpty, owner)
	}

	plans := make([]plan, 0, len(reqs))
	seen := map[api.RangeID]bool{}

	for _, req := range reqs {
		parent, ok := q.Get(req.ID)
		if !ok || seen[req.ID] {
			return nil, fmt.Errorf("%w: queue range %d for owner %s", api.ErrTokenNotFound, req.ID, owner)
		}
		seen[req.ID] = true

		if len(req.Requeue) == 0 && len(req.Split) == 0 {
			return nil, fmt.Errorf("%w: queue range %d", api.ErrDequeueRequestRangeEmpty, req.ID)
		}

		bounds := parent.Span()
		if err := checkBounds(req.Requeue, bounds, api.ErrRangeOutOfBounds); err != nil {
			return nil, err
		}
		if err := checkBounds(req.Split, bounds, api.ErrSubRangeOutOfBounds); err != nil {
			return nil, err
		}

		steps, err := tile(req, bounds)
		if err != nil {
			return nil, err
		}

		plans = append(plans, plan{parent: req.ID, steps: steps})
	}

	return plans, nil
}

func checkBounds(spans []api.Span, bounds api.Span, sentinel error) error {
	for _, s := range spans {
		if s.Start > s.End {
			return fmt.Errorf("%w: %s", api.ErrInvalidRange, s)
		}
		if s.Start < bounds.Start || s.End > bounds.End {
			return fmt.Errorf("%w: %s outside queue range %s", sentinel, s, bounds)
		}
	}
	return nil
}

// tile merges the two declared span lists into one ordered sequence and
// checks that it covers the parent exactly: the first span starts at the
// parent's start, each span starts right after the previous one ends, and
// the last span ends at the parent's end.
func tile(req RangeRequest, bounds api.Span) ([]step, error) {
	steps := make([]step, 0, len(req.Requeue)+len(req.Split))
	cursor := bounds.Start
	i, j := 0, 0

	for i < len(req.Requeue) || j < len(req.Split) {
		switch {
		case i < len(req.Requeue) && req.Requeue[i].Start == cursor:
			steps = append(steps, step{span: req.Requeue[i]})
			cursor = req.Requeue[i].End + 1
			i++

		case j < len(req.Split) && req.Split[j].Start == cursor:
			steps = append(steps, step{span: req.Split[j], split: true})
			cursor = req.Split[j].End + 1
			j++

		default:
			// Neither list continues the tiling at the cursor. Blame
			// whichever kind's next span comes first.
			if j >= len(req.Split) || (i < len(req.Requeue) && req.Requeue[i].Start <= req.Split[j].Start) {
				return nil, fmt.Errorf("%w: expected a span at %d in queue range %s, next requeue span is %s",
					api.ErrRangesNotSequential, cursor, bounds, req.Requeue[i])
			}
			return nil, fmt.Errorf("%w: expected a span at %d in queue range %s, next split span is %s",
				api.ErrSubRangesNotSequential, cursor, bounds, req.Split[j])
		}
	}

	if cursor != bounds.End+1 {
		return nil, fmt.Errorf("%w: tiling of queue range %s stops at %d",
			api.ErrRangesNotSequential, bounds, cursor)
	}

	return steps, nil
}

// apply executes a validated plan: remove each parent, re-link its requeue
// fragments in their original position and order, and forward the split
// fragments' ids to the balance ledger. This must not fail.
func (e *Engine) apply(owner api.Owner, plans []plan) {
	q, _ := e.queues.List(owner)
	var staked []api.TokenID

	for _, p := range plans {
		parent, ok := q.Get(p.parent)
		if !ok {
			panic(fmt.Sprintf("validated queue range %d vanished", p.parent))
		}

		prev := parent.Prev
		if err := q.Remove(p.parent); err != nil {
			panic(fmt.Sprintf("removing queue range %d: %v", p.parent, err))
		}

		for _, st := range p.steps {
			if st.split {
				for t := st.span.Start; t <= st.span.End; t++ {
					staked = append(staked, t)
				}
				continue
			}

			// Consecutive requeue fragments are newly adjacent once the
			// split fragments between them are gone; fold them into the
			// previous range rather than linking a new one.
			if pr, ok := q.Get(prev); ok && pr.End()+1 == st.span.Start {
				if err := q.Extend(prev, st.span.Size()); err != nil {
					panic(fmt.Sprintf("extending range %d: %v", prev, err))
				}
				continue
			}

			id, err := q.InsertAfter(prev, st.span.Start, st.span.Size(), owner)
			if err != nil {
				panic(fmt.Sprintf("requeueing %s: %v", st.span, err))
			}
			prev = id
		}
	}

	if len(staked) > 0 {
		if err := e.ledger.Stake(owner, staked); err != nil {
			// The ledger was handed ids we just removed from the queue, so
			// by the global ownership invariant it can't already hold them.
			panic(fmt.Sprintf("balance ledger rejected validated stake: %v", err))
		}
	}
}

// Unstake removes previously staked tokens from the balance ledger and
// re-inserts them into the owner's queue, merging with adjacent ranges
// exactly as mint does.
func (e *Engine) Unstake(owner api.Owner, tokens []api.TokenID) error {
	if len(tokens) == 0 {
		return api.ErrDequeueRequestEmpty
	}

	sorted := make([]api.TokenID, len(tokens))
	copy(sorted, tokens)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for i, t := range sorted {
		if i > 0 && sorted[i-1] == t {
			return fmt.Errorf("%w: duplicate token %d", api.ErrInvalidRange, t)
		}
		if !e.ledger.IsStaked(owner, t) {
			return fmt.Errorf("%w: token %d is not staked by %s", api.ErrTokenNotFound, t, owner)
		}
	}

	if err := e.ledger.Unstake(owner, sorted); err != nil {
		return err
	}

	// Coalesce into maximal runs before re-queueing.
	runStart := sorted[0]
	runLen := uint64(1)
	for _, t := range sorted[1:] {
		if t == runStart+api.TokenID(runLen) {
			runLen++
			continue
		}
		if err := e.queues.Insert(owner, runStart, runLen); err != nil {
			panic(fmt.Sprintf("requeueing unstaked run [%d, %d]: %v", runStart, runStart+api.TokenID(runLen)-1, err))
		}
		runStart = t
		runLen = 1
	}
	if err := e.queues.Insert(owner, runStart, runLen); err != nil {
		panic(fmt.Sprintf("requeueing unstaked run [%d, %d]: %v", runStart, runStart+api.TokenID(runLen)-1, err))
	}

	return nil
}
