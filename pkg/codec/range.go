package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/glyphlabs/ledger/pkg/api"
)

// Range word layout, from bit zero: owner (160 bits), start id (40 bits),
// size (55 bits), staked flag (1 bit). 256 bits total, no spare.
const (
	ownerBits = 160
	startBits = 40
	sizeBits  = 55

	startOff  = ownerBits
	sizeOff   = startOff + startBits
	stakedOff = sizeOff + sizeBits
)

// MaxStartID is the largest token id which fits the start field.
const MaxStartID = api.TokenID(1<<startBits - 1)

// MaxRangeSize is the largest range size which fits the size field.
const MaxRangeSize = uint64(1<<sizeBits - 1)

// PackRange encodes one range node into a single word. The owner must not be
// the null owner, and the start and size must fit their field widths.
func PackRange(owner api.Owner, start api.TokenID, size uint64, staked bool) (Word, error) {
	var w Word

	if owner.IsZero() {
		return w, fmt.Errorf("%w: zero owner", api.ErrInvalidRange)
	}
	if size == 0 {
		return w, fmt.Errorf("%w: zero size", api.ErrInvalidRange)
	}
	if start > MaxStartID {
		return w, fmt.Errorf("%w: start id %d wider than %d bits", api.ErrFieldOverflow, start, startBits)
	}
	if size > MaxRangeSize {
		return w, fmt.Errorf("%w: size %d wider than %d bits", api.ErrFieldOverflow, size, sizeBits)
	}

	w.setBits(0, 64, binary.LittleEndian.Uint64(owner[0:8]))
	w.setBits(64, 64, binary.LittleEndian.Uint64(owner[8:16]))
	w.setBits(128, 32, uint64(binary.LittleEndian.Uint32(owner[16:20])))

	w.setBits(startOff, startBits, uint64(start))
	w.setBits(sizeOff, sizeBits, size)
	if staked {
		w.setBits(stakedOff, 1, 1)
	}

	return w, nil
}

// UnpackRange is the lossless inverse of PackRange.
func UnpackRange(w Word) (owner api.Owner, start api.TokenID, size uint64, staked bool) {
	binary.LittleEndian.PutUint64(owner[0:8], w.bits(0, 64))
	binary.LittleEndian.PutUint64(owner[8:16], w.bits(64, 64))
	binary.LittleEndian.PutUint32(owner[16:20], uint32(w.bits(128, 32)))

	start = api.TokenID(w.bits(startOff, startBits))
	size = w.bits(sizeOff, sizeBits)
	staked = w.bits(stakedOff, 1) == 1

	return owner, start, size, staked
}
