// Package rangelist implements a doubly-linked list of numbered token ranges
// over an arena of nodes indexed by RangeID. One list holds one owner's
// queue. This is the only package which may touch prev/next pointers; the
// queue manager and the stake engine mutate lists exclusively through these
// operations.
package rangelist

import (
	"fmt"

	"github.com/glyphlabs/ledger/pkg/api"
)

// Range is a read-only snapshot of one node. Mutating it has no effect on
// the list.
type Range struct {
	ID    api.RangeID
	Start api.TokenID // inclusive
	Size  uint64      // number of consecutive tokens, >= 1
	Owner api.Owner
	Prev  api.RangeID
	Next  api.RangeID
}

// End returns the last token id in the range, inclusive.
func (r Range) End() api.TokenID {
	return r.Start + api.TokenID(r.Size) - 1
}

// Span returns the range as an inclusive span.
func (r Range) Span() api.Span {
	return api.Span{Start: r.Start, End: r.End()}
}

// String returns a string like: R3{[100, 135] o=ab..}
func (r Range) String() string {
	return fmt.Sprintf("R%d{%s o=%s}", r.ID, r.Span(), r.Owner)
}

type node struct {
	start api.TokenID
	size  uint64
	owner api.Owner
	prev  api.RangeID
	next  api.RangeID
}

// List is a doubly-linked list of ranges. The zero value is not usable; call
// New. Nodes are kept in strictly ascending start order with no overlap by
// the callers (the queue manager checks adjacency at its insertion points);
// the list itself only maintains the linkage.
type List struct {
	nodes map[api.RangeID]*node
	head  api.RangeID
	tail  api.RangeID
	size  int

	// Next id to allocate. Never decremented, never reused, and preserved
	// across Init, so a stale RangeID can't come back to life.
	nextID api.RangeID
}

func New() *List {
	return &List{
		nodes:  map[api.RangeID]*node{},
		nextID: 1,
	}
}

// Init resets the list to empty, preserving the range id counter.
func (l *List) Init() {
	l.nodes = map[api.RangeID]*node{}
	l.head = api.ZeroRange
	l.tail = api.ZeroRange
	l.size = 0
}

// Empty returns true if the list has no ranges.
func (l *List) Empty() bool {
	return l.head == api.ZeroRange
}

// Len returns the number of ranges currently linked. Not the token count.
func (l *List) Len() int {
	return l.size
}

// Head returns the id of the first range, or ZeroRange.
func (l *List) Head() api.RangeID {
	return l.head
}

// Tail returns the id of the last range, or ZeroRange.
func (l *List) Tail() api.RangeID {
	return l.tail
}

// NextRangeID returns the id which the next allocation will use.
func (l *List) NextRangeID() api.RangeID {
	return l.nextID
}

func (l *List) alloc() api.RangeID {
	id := l.nextID
	l.nextID++
	return id
}

func validate(start api.TokenID, size uint64, owner api.Owner) error {
	if size == 0 {
		return fmt.Errorf("%w: zero size at start %d", api.ErrInvalidRange, start)
	}
	if owner.IsZero() {
		return fmt.Errorf("%w: zero owner at start %d", api.ErrInvalidRange, start)
	}
	return nil
}

// Append allocates a new range and links it at the tail.
func (l *List) Append(start api.TokenID, size uint64, owner api.Owner) (api.RangeID, error) {
	if err := validate(start, size, owner); err != nil {
		return api.ZeroRange, err
	}

	id := l.alloc()
	l.nodes[id] = &node{start: start, size: size, owner: owner, prev: l.tail}

	if l.tail != api.ZeroRange {
		l.nodes[l.tail].next = id
	} else {
		l.head = id
	}

	l.tail = id
	l.size++
	return id, nil
}

// Prepend allocates a new range and links it at the head.
func (l *List) Prepend(start api.TokenID, size uint64, owner api.Owner) (api.RangeID, error) {
	if err := validate(start, size, owner); err != nil {
		return api.ZeroRange, err
	}

	id := l.alloc()
	l.nodes[id] = &node{start: start, size: size, owner: owner, next: l.head}

	if l.head != api.ZeroRange {
		l.nodes[l.head].prev = id
	} else {
		l.tail = id
	}

	l.head = id
	l.size++
	return id, nil
}

// InsertAfter allocates a new range and links it immediately after the given
// range. ZeroRange means insert at the head. This is a raw linkage
// primitive: it does not merge, and it trusts the caller to preserve the
// ascending-start invariant.
func (l *List) InsertAfter(after api.RangeID, start api.TokenID, size uint64, owner api.Owner) (api.RangeID, error) {
	if after == api.ZeroRange {
		return l.Prepend(start, size, owner)
	}

	prev, ok := l.nodes[after]
	if !ok {
		return api.ZeroRange, fmt.Errorf("%w: %d", api.ErrRangeNotFound, after)
	}

	if err := validate(start, size, owner); err != nil {
		return api.ZeroRange, err
	}

	id := l.alloc()
	l.nodes[id] = &node{start: start, size: size, owner: owner, prev: after, next: prev.next}

	if prev.next != api.ZeroRange {
		l.nodes[prev.next].prev = id
	} else {
		l.tail = id
	}

	prev.next = id
	l.size++
	return id, nil
}

// Remove unlinks the given range from wherever it sits, re-linking its
// neighbors. Removing the only range clears both head and tail.
func (l *List) Remove(id api.RangeID) error {
	n, ok := l.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", api.ErrRangeNotFound, id)
	}

	l.unlink(id, n)
	return nil
}

func (l *List) unlink(id api.RangeID, n *node) {
	if n.prev != api.ZeroRange {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}

	if n.next != api.ZeroRange {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}

	delete(l.nodes, id)
	l.size--
}

// Split divides a range at the given token, which is consumed: the left part
// keeps [start, token), the right part keeps (token, start+size). Empty
// parts are omitted rather than linked as zero-size ranges, so splitting a
// single-token range at its only token removes the range outright. The token
// must be within the range.
func (l *List) Split(id api.RangeID, token api.TokenID) error {
	n, ok := l.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", api.ErrRangeNotFound, id)
	}

	end := n.start + api.TokenID(n.size) // exclusive
	if token < n.start || token >= end {
		return fmt.Errorf("%w: token %d outside [%d, %d)", api.ErrInvalidRange, token, n.start, end)
	}

	leftSize := uint64(token - n.start)
	rightSize := uint64(end-token) - 1

	switch {
	case leftSize == 0 && rightSize == 0:
		// Degenerate single-token range. One range destroyed, none created.
		l.unlink(id, n)

	case leftSize == 0:
		n.start = token + 1
		n.size = rightSize

	case rightSize == 0:
		n.size = leftSize

	default:
		n.size = leftSize
		if _, err := l.InsertAfter(id, token+1, rightSize, n.owner); err != nil {
			panic(fmt.Sprintf("relinking split remainder of %d: %v", id, err))
		}
	}

	return nil
}

// Extend grows the range's size in place by n tokens.
func (l *List) Extend(id api.RangeID, n uint64) error {
	nd, ok := l.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", api.ErrRangeNotFound, id)
	}
	if n == 0 {
		return fmt.Errorf("%w: zero extension", api.ErrInvalidRange)
	}
	if nd.size+n < nd.size {
		return fmt.Errorf("%w: size %d + %d", api.ErrFieldOverflow, nd.size, n)
	}

	nd.size += n
	return nil
}

// Truncate shrinks the range's size in place by n tokens, dropping them from
// the high end. Dropping every token is not allowed; remove the range
// instead.
func (l *List) Truncate(id api.RangeID, n uint64) error {
	nd, ok := l.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %d", api.ErrRangeNotFound, id)
	}
	if n == 0 || n >= nd.size {
		return fmt.Errorf("%w: truncate %d of %d tokens", api.ErrInvalidRange, n, nd.size)
	}

	nd.size -= n
	return nil
}

// Get returns a snapshot of the given range.
func (l *List) Get(id api.RangeID) (Range, bool) {
	n, ok := l.nodes[id]
	if !ok {
		return Range{}, false
	}
	return l.snapshot(id, n), true
}

func (l *List) snapshot(id api.RangeID, n *node) Range {
	return Range{ID: id, Start: n.start, Size: n.size, Owner: n.owner, Prev: n.prev, Next: n.next}
}

// FindByStart returns the id of the range starting at exactly the given
// token. Linear scan from the head; owner queues stay small because merging
// is eager.
func (l *List) FindByStart(start api.TokenID) (api.RangeID, bool) {
	for id := l.head; id != api.ZeroRange; id = l.nodes[id].next {
		if l.nodes[id].start == start {
			return id, true
		}
	}
	return api.ZeroRange, false
}

// FindByToken returns the id of the range containing the given token.
// Linear scan from the head.
func (l *List) FindByToken(token api.TokenID) (api.RangeID, bool) {
	for id := l.head; id != api.ZeroRange; id = l.nodes[id].next {
		n := l.nodes[id]
		if token >= n.start && token < n.start+api.TokenID(n.size) {
			return id, true
		}
	}
	return api.ZeroRange, false
}

// Front returns a snapshot of the head range.
func (l *List) Front() (Range, bool) {
	if l.head == api.ZeroRange {
		return Range{}, false
	}
	return l.snapshot(l.head, l.nodes[l.head]), true
}

// PopFront removes the head range and returns its snapshot.
func (l *List) PopFront() (Range, error) {
	if l.head == api.ZeroRange {
		return Range{}, api.ErrQueueEmpty
	}

	id := l.head
	n := l.nodes[id]
	r := l.snapshot(id, n)
	l.unlink(id, n)
	return r, nil
}

// All returns snapshots of every range, head to tail.
func (l *List) All() []Range {
	out := make([]Range, 0, l.size)
	for id := l.head; id != api.ZeroRange; id = l.nodes[id].next {
		out = append(out, l.snapshot(id, l.nodes[id]))
	}
	return out
}

// Tokens materializes every token id in the list, head to tail. This is
// O(total token count), not O(range count); don't call it anywhere that
// matters.
func (l *List) Tokens() []api.TokenID {
	var out []api.TokenID
	for id := l.head; id != api.ZeroRange; id = l.nodes[id].next {
		n := l.nodes[id]
		for t := n.start; t < n.start+api.TokenID(n.size); t++ {
			out = append(out, t)
		}
	}
	return out
}

// TotalSize returns the number of tokens across all ranges.
func (l *List) TotalSize() uint64 {
	var total uint64
	for id := l.head; id != api.ZeroRange; id = l.nodes[id].next {
		total += l.nodes[id].size
	}
	return total
}

// Restore rebuilds a list from persisted state. The ranges must be given in
// head-to-tail order; linkage is rebuilt from that order and verified
// against the stored ids. The id counter must be past every stored id.
func Restore(next api.RangeID, ranges []Range) (*List, error) {
	l := New()
	if next > l.nextID {
		l.nextID = next
	}

	var prev api.RangeID
	for i, r := range ranges {
		if err := validate(r.Start, r.Size, r.Owner); err != nil {
			return nil, err
		}
		if r.ID == api.ZeroRange || r.ID >= next {
			return nil, fmt.Errorf("%w: stored range id %d vs counter %d", api.ErrInvalidRange, r.ID, next)
		}
		if _, ok := l.nodes[r.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate stored range id %d", api.ErrInvalidRange, r.ID)
		}
		if i > 0 && r.Start <= ranges[i-1].End() {
			return nil, fmt.Errorf("%w: stored range %d not in ascending order", api.ErrInvalidRange, r.ID)
		}

		l.nodes[r.ID] = &node{start: r.Start, size: r.Size, owner: r.Owner, prev: prev}
		if prev != api.ZeroRange {
			l.nodes[prev].next = r.ID
		} else {
			l.head = r.ID
		}
		prev = r.ID
		l.size++
	}
	l.tail = prev

	return l, nil
}
