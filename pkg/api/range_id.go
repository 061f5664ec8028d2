package api

import "fmt"

// RangeID is the identity of a range node within one owner's queue. They're
// allocated from a per-queue counter and never reused, even after the node is
// removed, so a stale id can never alias a live node.
type RangeID uint64

// ZeroRange is not a valid RangeID. It's used as the "none" value for the
// head, tail, prev, and next pointers.
const ZeroRange RangeID = 0

func (id RangeID) String() string {
	return fmt.Sprintf("%d", id)
}
