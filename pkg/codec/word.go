// Package codec packs range and queue metadata into fixed-size 256-bit words.
// These are pure functions; the stateful packages use them to serialize their
// nodes into the persisted snapshot format. Encoding must round-trip exactly
// for every in-width value, and out-of-width values must fail rather than
// truncate.
package codec

import "encoding/binary"

// Word is a 256-bit storage word, as four little-endian uint64 limbs. Bit i
// of the word is bit i%64 of limb i/64.
type Word [4]uint64

// WordSize is the serialized size of a Word, in bytes.
const WordSize = 32

// Bytes returns the word as 32 bytes, limbs in order, each little-endian.
func (w Word) Bytes() [WordSize]byte {
	var b [WordSize]byte
	for i, limb := range w {
		binary.LittleEndian.PutUint64(b[i*8:], limb)
	}
	return b
}

// WordFromBytes is the inverse of Bytes.
func WordFromBytes(b [WordSize]byte) Word {
	var w Word
	for i := range w {
		w[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return w
}

// setBits writes the low `width` bits of v at bit offset off. The field may
// straddle two limbs, but not more (width <= 64). The field must be zero
// before writing.
func (w *Word) setBits(off, width uint, v uint64) {
	if width < 64 {
		v &= (1 << width) - 1
	}

	limb := off / 64
	bit := off % 64

	w[limb] |= v << bit
	if bit+width > 64 {
		w[limb+1] |= v >> (64 - bit)
	}
}

// bits reads the `width`-bit field at bit offset off.
func (w Word) bits(off, width uint) uint64 {
	limb := off / 64
	bit := off % 64

	v := w[limb] >> bit
	if bit+width > 64 {
		v |= w[limb+1] << (64 - bit)
	}

	if width < 64 {
		v &= (1 << width) - 1
	}
	return v
}
