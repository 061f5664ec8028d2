package api

import "errors"

// Every failure rejects the whole requested operation; nothing is partially
// applied. Callers get one of these sentinels, wrapped (via %w) with the
// offending ids and bounds so they can see exactly what was malformed. These
// are all caller errors. Internal pointer inconsistency is a bug, and panics.
var (
	// ErrInvalidRange indicates a zero-length or otherwise malformed range,
	// span, or split point.
	ErrInvalidRange = errors.New("invalid range")

	// ErrRangeNotFound indicates a stale or absent RangeID.
	ErrRangeNotFound = errors.New("range not found")

	// ErrTokenNotFound indicates a token id which is not held where the
	// operation requires it to be.
	ErrTokenNotFound = errors.New("token not found")

	// ErrQueueEmpty indicates an operation which requires at least one range.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrInsufficientBalance indicates a burn of more units than the owner
	// has queued.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotOwner indicates a token held by somebody else.
	ErrNotOwner = errors.New("not the owner")

	// ErrSplitRequestEmpty indicates a stake request with no ranges at all.
	ErrSplitRequestEmpty = errors.New("split request is empty")

	// ErrDequeueRequestEmpty indicates an empty batch request.
	ErrDequeueRequestEmpty = errors.New("dequeue request is empty")

	// ErrDequeueRequestRangeEmpty indicates a stake request naming a queue
	// range but declaring no sub-ranges for it.
	ErrDequeueRequestRangeEmpty = errors.New("dequeue request range is empty")

	// ErrArrayLengthMismatch indicates parallel request arrays of differing
	// lengths.
	ErrArrayLengthMismatch = errors.New("array length mismatch")

	// ErrRangeOutOfBounds indicates a requeue sub-range not contained in its
	// parent queue range.
	ErrRangeOutOfBounds = errors.New("range out of bounds")

	// ErrSubRangeOutOfBounds indicates a split sub-range not contained in its
	// parent queue range.
	ErrSubRangeOutOfBounds = errors.New("sub-range out of bounds")

	// ErrRangesNotSequential indicates requeue sub-ranges which don't tile
	// their parent: a gap, an overlap, or misordering.
	ErrRangesNotSequential = errors.New("ranges not sequential")

	// ErrSubRangesNotSequential is ErrRangesNotSequential for split
	// sub-ranges.
	ErrSubRangesNotSequential = errors.New("sub-ranges not sequential")

	// ErrFieldOverflow indicates a value too wide for its packed field, or a
	// counter which would wrap.
	ErrFieldOverflow = errors.New("field overflow")
)
