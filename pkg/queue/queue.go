// Package queue maps mint and burn of whole units onto range-list operations,
// one list per owner, keeping the merge invariant: no two adjacent ranges are
// ever left unmerged, because adjacency is checked eagerly at the insertion
// points rather than by any deferred compaction.
package queue

import (
	"fmt"
	"sort"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/rangelist"
)

// Manager owns every per-owner queue plus the global token id counter.
// Token ids start at 1 and are never reused, even after burn; burn shrinks
// ownership but does not recycle the numeric space.
type Manager struct {
	queues    map[api.Owner]*rangelist.List
	nextToken api.TokenID
	minted    uint64
	burned    uint64
}

func New() *Manager {
	return &Manager{
		queues:    map[api.Owner]*rangelist.List{},
		nextToken: 1,
	}
}

// List returns the given owner's queue for reading. Queues are created
// implicitly on first mint and never destroyed, only drained, so this can
// return false for owners which have never minted.
func (m *Manager) List(owner api.Owner) (*rangelist.List, bool) {
	q, ok := m.queues[owner]
	return q, ok
}

func (m *Manager) ensure(owner api.Owner) *rangelist.List {
	q, ok := m.queues[owner]
	if !ok {
		q = rangelist.New()
		m.queues[owner] = q
	}
	return q
}

// Mint allocates n fresh consecutive token ids and queues them for the
// owner, returning the span minted. When the owner's tail range ends right
// where the new ids begin (the dominant case: repeated mints to one owner
// with nothing between), the tail is extended in place instead of linking a
// new range.
func (m *Manager) Mint(owner api.Owner, n uint64) (api.Span, error) {
	if owner.IsZero() {
		return api.Span{}, fmt.Errorf("%w: zero owner", api.ErrInvalidRange)
	}
	if n == 0 {
		return api.Span{}, fmt.Errorf("%w: mint of zero units", api.ErrInvalidRange)
	}

	start := m.nextToken
	q := m.ensure(owner)

	if tail, ok := q.Get(q.Tail()); ok && tail.End()+1 == start {
		if err := q.Extend(tail.ID, n); err != nil {
			return api.Span{}, err
		}
	} else {
		if _, err := q.Append(start, n, owner); err != nil {
			return api.Span{}, err
		}
	}

	m.nextToken += api.TokenID(n)
	m.minted += n
	return api.Span{Start: start, End: start + api.TokenID(n) - 1}, nil
}

// Burn reclaims n units from the most recently minted end of the owner's
// queue, truncating or removing tail ranges until done. Fails up front,
// leaving the queue untouched, if the owner has fewer than n units queued.
func (m *Manager) Burn(owner api.Owner, n uint64) error {
	if n == 0 {
		return fmt.Errorf("%w: burn of zero units", api.ErrInvalidRange)
	}

	q, ok := m.queues[owner]
	if !ok || q.TotalSize() < n {
		var have uint64
		if ok {
			have = q.TotalSize()
		}
		return fmt.Errorf("%w: owner %s has %d units, burn wants %d", api.ErrInsufficientBalance, owner, have, n)
	}

	remaining := n
	for remaining > 0 {
		tail, ok := q.Get(q.Tail())
		if !ok {
			panic(fmt.Sprintf("queue for %s drained with %d units left to burn", owner, remaining))
		}

		if tail.Size <= remaining {
			if err := q.Remove(tail.ID); err != nil {
				panic(fmt.Sprintf("removing tail %d: %v", tail.ID, err))
			}
			remaining -= tail.Size
		} else {
			if err := q.Truncate(tail.ID, remaining); err != nil {
				panic(fmt.Sprintf("truncating tail %d: %v", tail.ID, err))
			}
			remaining = 0
		}
	}

	m.burned += n
	return nil
}

// Insert re-queues a span of tokens for the owner, in start order, merging
// with the previous and/or next range when the span is exactly adjacent.
// This is the insertion point for unstake and for requeue fragments. The
// span must not overlap anything already queued.
func (m *Manager) Insert(owner api.Owner, start api.TokenID, size uint64) error {
	if owner.IsZero() || size == 0 {
		return fmt.Errorf("%w: insert of %d units for %s", api.ErrInvalidRange, size, owner)
	}

	q := m.ensure(owner)
	end := start + api.TokenID(size) - 1

	// Find the first range past the new span, and its predecessor.
	var prev, next rangelist.Range
	var hasPrev, hasNext bool
	for _, r := range q.All() {
		if r.Start > start {
			next, hasNext = r, true
			break
		}
		prev, hasPrev = r, true
	}

	if hasPrev && prev.End() >= start {
		return fmt.Errorf("%w: [%d, %d] overlaps %s", api.ErrInvalidRange, start, end, prev)
	}
	if hasNext && next.Start <= end {
		return fmt.Errorf("%w: [%d, %d] overlaps %s", api.ErrInvalidRange, start, end, next)
	}

	mergePrev := hasPrev && prev.End()+1 == start
	mergeNext := hasNext && end+1 == next.Start

	switch {
	case mergePrev && mergeNext:
		// The span exactly bridges its neighbors. Fold everything into the
		// previous range.
		if err := q.Extend(prev.ID, size+next.Size); err != nil {
			return err
		}
		if err := q.Remove(next.ID); err != nil {
			panic(fmt.Sprintf("removing bridged range %d: %v", next.ID, err))
		}

	case mergePrev:
		if err := q.Extend(prev.ID, size); err != nil {
			return err
		}

	case mergeNext:
		// The list can only grow ranges from the high end, so replace the
		// next range with one which starts earlier.
		if err := q.Remove(next.ID); err != nil {
			panic(fmt.Sprintf("replacing range %d: %v", next.ID, err))
		}
		if _, err := q.InsertAfter(prev.ID, start, size+next.Size, owner); err != nil {
			return err
		}

	default:
		if _, err := q.InsertAfter(prev.ID, start, size, owner); err != nil {
			return err
		}
	}

	return nil
}

// Ranges returns the owner's holdings as inclusive (start, end) spans, in
// queue order.
func (m *Manager) Ranges(owner api.Owner) []api.Span {
	q, ok := m.queues[owner]
	if !ok {
		return nil
	}

	rs := q.All()
	out := make([]api.Span, len(rs))
	for i, r := range rs {
		out[i] = r.Span()
	}
	return out
}

// Holds returns true if the owner's queue contains the given token. This is
// O(range count), which stays small under eager merging.
func (m *Manager) Holds(owner api.Owner, token api.TokenID) bool {
	q, ok := m.queues[owner]
	if !ok {
		return false
	}
	_, found := q.FindByToken(token)
	return found
}

// Balance returns the owner's total queued unit count.
func (m *Manager) Balance(owner api.Owner) uint64 {
	q, ok := m.queues[owner]
	if !ok {
		return 0
	}
	return q.TotalSize()
}

// Owners returns every owner with a queue (drained or not), sorted, so that
// snapshots come out deterministic.
func (m *Manager) Owners() []api.Owner {
	out := make([]api.Owner, 0, len(m.queues))
	for o := range m.queues {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// NextToken returns the id the next mint will start at.
func (m *Manager) NextToken() api.TokenID {
	return m.nextToken
}

// Minted returns the total units ever minted.
func (m *Manager) Minted() uint64 {
	return m.minted
}

// Burned returns the total units ever burned.
func (m *Manager) Burned() uint64 {
	return m.burned
}

// RestoreQueue installs a queue rebuilt from persisted state. Only the
// persistence path should call this.
func (m *Manager) RestoreQueue(owner api.Owner, next api.RangeID, ranges []rangelist.Range) error {
	if owner.IsZero() {
		return fmt.Errorf("%w: zero owner", api.ErrInvalidRange)
	}

	q, err := rangelist.Restore(next, ranges)
	if err != nil {
		return fmt.Errorf("restoring queue for %s: %w", owner, err)
	}

	m.queues[owner] = q
	return nil
}

// RestoreCounters installs the global counters from persisted state. Only
// the persistence path should call this.
func (m *Manager) RestoreCounters(next api.TokenID, minted, burned uint64) {
	if next == api.ZeroToken {
		next = 1
	}
	m.nextToken = next
	m.minted = minted
	m.burned = burned
}
