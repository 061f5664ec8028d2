package codec

import (
	"fmt"
	"math"

	"github.com/glyphlabs/ledger/pkg/api"
)

// Queue metadata word layout: head, tail, size, and the next-range-id
// counter. One 64-bit limb each.
const (
	metaHead = iota
	metaTail
	metaSize
	metaNext
)

// PackQueueMeta encodes a queue's head/tail pointers, range count, and
// next-range-id counter into a single word.
func PackQueueMeta(head, tail api.RangeID, size uint64, next api.RangeID) Word {
	return Word{uint64(head), uint64(tail), size, uint64(next)}
}

// UnpackQueueMeta is the inverse of PackQueueMeta.
func UnpackQueueMeta(w Word) (head, tail api.RangeID, size uint64, next api.RangeID) {
	return api.RangeID(w[metaHead]), api.RangeID(w[metaTail]), w[metaSize], api.RangeID(w[metaNext])
}

// IncQueueSize returns the word with the size field incremented. Overflow is
// an error, never a wrap.
func IncQueueSize(w Word) (Word, error) {
	if w[metaSize] == math.MaxUint64 {
		return w, fmt.Errorf("%w: queue size", api.ErrFieldOverflow)
	}
	w[metaSize]++
	return w, nil
}

// DecQueueSize returns the word with the size field decremented. Underflow is
// an error, never a wrap.
func DecQueueSize(w Word) (Word, error) {
	if w[metaSize] == 0 {
		return w, fmt.Errorf("%w: queue size underflow", api.ErrFieldOverflow)
	}
	w[metaSize]--
	return w, nil
}

// AllocRangeID returns the next range id from the counter, and the word with
// the counter advanced past it.
func AllocRangeID(w Word) (Word, api.RangeID, error) {
	id := api.RangeID(w[metaNext])
	if w[metaNext] == math.MaxUint64 {
		return w, api.ZeroRange, fmt.Errorf("%w: range id counter", api.ErrFieldOverflow)
	}
	w[metaNext]++
	return w, id, nil
}
