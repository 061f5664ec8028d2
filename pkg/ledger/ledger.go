// Package ledger is the top-level facade: one mutex around the queue manager
// and the stake engine, so every external call is a serialized state
// transition which either fully commits or fully fails, plus checkpointing
// through a Persister.
package ledger

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/lthibault/jitterbug"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/codec"
	"github.com/glyphlabs/ledger/pkg/config"
	"github.com/glyphlabs/ledger/pkg/persister"
	"github.com/glyphlabs/ledger/pkg/queue"
	"github.com/glyphlabs/ledger/pkg/rangelist"
	"github.com/glyphlabs/ledger/pkg/stake"
)

type Ledger struct {
	cfg    config.Config
	pers   persister.Persister
	queues *queue.Manager
	staker *stake.Engine
	bal    stake.BalanceLedger

	// Guards everything. Mutations are single-threaded by design; there is
	// no partial application to protect against, only interleaving.
	mu sync.Mutex
}

// New restores a ledger from the persister, or bootstraps an empty one if
// nothing is stored yet.
func New(cfg config.Config, pers persister.Persister, bal stake.BalanceLedger) (*Ledger, error) {
	l := &Ledger{
		cfg:    cfg,
		pers:   pers,
		queues: queue.New(),
		bal:    bal,
	}
	l.staker = stake.New(l.queues, bal)

	snap, err := pers.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if snap == nil {
		return l, nil
	}

	if err := l.restore(snap); err != nil {
		return nil, err
	}

	log.Printf("restored %d queues and %d staked holdings from store", len(snap.Queues), len(snap.Staked))
	return l, nil
}

func (l *Ledger) restore(snap *persister.Snapshot) error {
	l.queues.RestoreCounters(snap.NextToken, snap.Minted, snap.Burned)

	for _, oq := range snap.Queues {
		head, tail, size, next := codec.UnpackQueueMeta(oq.Meta)

		if uint64(len(oq.Nodes)) != size {
			return fmt.Errorf("%w: queue for %s has %d nodes, meta says %d",
				api.ErrInvalidRange, oq.Owner, len(oq.Nodes), size)
		}
		if err := checkEnds(oq, head, tail); err != nil {
			return err
		}

		ranges := make([]rangelist.Range, len(oq.Nodes))
		for i, n := range oq.Nodes {
			owner, start, sz, staked := codec.UnpackRange(n.Word)
			if owner != oq.Owner || staked {
				return fmt.Errorf("%w: node %d in queue for %s is mispacked",
					api.ErrInvalidRange, n.ID, oq.Owner)
			}
			ranges[i] = rangelist.Range{ID: n.ID, Start: start, Size: sz, Owner: owner}
		}

		if err := l.queues.RestoreQueue(oq.Owner, next, ranges); err != nil {
			return err
		}
	}

	for _, os := range snap.Staked {
		for _, w := range os.Words {
			owner, start, sz, staked := codec.UnpackRange(w)
			if owner != os.Owner || !staked {
				return fmt.Errorf("%w: staked word for %s is mispacked", api.ErrInvalidRange, os.Owner)
			}

			tokens := make([]api.TokenID, sz)
			for i := range tokens {
				tokens[i] = start + api.TokenID(i)
			}
			if err := l.bal.Stake(owner, tokens); err != nil {
				return fmt.Errorf("restoring staked holdings for %s: %w", owner, err)
			}
		}
	}

	return nil
}

func checkEnds(oq persister.OwnerQueue, head, tail api.RangeID) error {
	var wantHead, wantTail api.RangeID
	if len(oq.Nodes) > 0 {
		wantHead = oq.Nodes[0].ID
		wantTail = oq.Nodes[len(oq.Nodes)-1].ID
	}

	if head != wantHead || tail != wantTail {
		return fmt.Errorf("%w: queue for %s has ends %d/%d, meta says %d/%d",
			api.ErrInvalidRange, oq.Owner, wantHead, wantTail, head, tail)
	}
	return nil
}

// Mint allocates n fresh units to the owner.
func (l *Ledger) Mint(owner api.Owner, n uint64) (api.Span, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Mint(owner, n)
}

// Burn reclaims n units from the owner, most recently minted first.
func (l *Ledger) Burn(owner api.Owner, n uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Burn(owner, n)
}

// Stake partitions the named queue ranges between requeued and staked spans.
func (l *Ledger) Stake(owner api.Owner, reqs []stake.RangeRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.staker.Stake(owner, reqs)
}

// StakeBatch is Stake, with the request as parallel arrays.
func (l *Ledger) StakeBatch(owner api.Owner, ids []api.RangeID, requeue, split [][]api.Span) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.staker.StakeBatch(owner, ids, requeue, split)
}

// Unstake returns previously staked tokens to the owner's queue.
func (l *Ledger) Unstake(owner api.Owner, tokens []api.TokenID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.staker.Unstake(owner, tokens)
}

// Ranges returns the owner's queued holdings as inclusive spans.
func (l *Ledger) Ranges(owner api.Owner) []api.Span {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Ranges(owner)
}

// Balance returns the owner's queued (unstaked) unit count.
func (l *Ledger) Balance(owner api.Owner) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Balance(owner)
}

// Holds returns true if the owner's queue contains the token.
func (l *Ledger) Holds(owner api.Owner, token api.TokenID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Holds(owner, token)
}

// Staked returns the owner's staked tokens, ascending.
func (l *Ledger) Staked(owner api.Owner) []api.TokenID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bal.Staked(owner)
}

// Owners returns every owner known to the queue manager, sorted.
func (l *Ledger) Owners() []api.Owner {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Owners()
}

// Checkpoint snapshots the whole ledger to the persister.
func (l *Ledger) Checkpoint() error {
	l.mu.Lock()
	snap, err := l.snapshot()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	return l.pers.PutSnapshot(snap)
}

// snapshot packs the live state into persisted form. Callers hold mu.
func (l *Ledger) snapshot() (*persister.Snapshot, error) {
	snap := &persister.Snapshot{
		NextToken: l.queues.NextToken(),
		Minted:    l.queues.Minted(),
		Burned:    l.queues.Burned(),
	}

	for _, owner := range l.queues.Owners() {
		q, _ := l.queues.List(owner)
		ranges := q.All()

		oq := persister.OwnerQueue{
			Owner: owner,
			Meta:  codec.PackQueueMeta(q.Head(), q.Tail(), uint64(q.Len()), q.NextRangeID()),
			Nodes: make([]persister.Node, len(ranges)),
		}

		for i, r := range ranges {
			w, err := codec.PackRange(r.Owner, r.Start, r.Size, false)
			if err != nil {
				return nil, fmt.Errorf("packing range %d for %s: %w", r.ID, owner, err)
			}
			oq.Nodes[i] = persister.Node{ID: r.ID, Word: w}
		}

		snap.Queues = append(snap.Queues, oq)
	}

	for _, owner := range l.bal.Owners() {
		os := persister.OwnerStake{Owner: owner}

		for _, run := range coalesce(l.bal.Staked(owner)) {
			w, err := codec.PackRange(owner, run.Start, run.Size(), true)
			if err != nil {
				return nil, fmt.Errorf("packing staked run %s for %s: %w", run, owner, err)
			}
			os.Words = append(os.Words, w)
		}

		snap.Staked = append(snap.Staked, os)
	}

	return snap, nil
}

// coalesce turns an ascending token list into maximal inclusive runs.
func coalesce(tokens []api.TokenID) []api.Span {
	var out []api.Span
	for _, t := range tokens {
		if n := len(out); n > 0 && out[n-1].End+1 == t {
			out[n-1].End = t
			continue
		}
		out = append(out, api.Span{Start: t, End: t})
	}
	return out
}

// Run checkpoints the ledger on a jittered ticker until the context is
// cancelled. This is the only background task; it never mutates state.
func (l *Ledger) Run(ctx context.Context) {
	ticker := jitterbug.New(l.cfg.CheckpointInterval, &jitterbug.Norm{Stdev: l.cfg.CheckpointJitter})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One last checkpoint on the way out, so a clean shutdown never
			// loses state.
			if err := l.Checkpoint(); err != nil {
				log.Printf("final checkpoint failed: %v", err)
			}
			return

		case <-ticker.C:
			if err := l.Checkpoint(); err != nil {
				log.Printf("checkpoint failed: %v", err)
			}
		}
	}
}
