package persister

import (
	"encoding/binary"
	"fmt"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/codec"
	"github.com/klauspost/compress/s2"
)

// Blob formats: a 4-byte magic (which doubles as a version tag), fixed-width
// little-endian fields, then s2 compression over the whole thing. Queue
// blobs dominate the stored size, and packed words full of small integers
// compress well.
var (
	magicQueue = [4]byte{'G', 'L', 'Q', '1'}
	magicStake = [4]byte{'G', 'L', 'S', '1'}
	magicMeta  = [4]byte{'G', 'L', 'M', '1'}
)

// EncodeOwnerQueue serializes one owner's queue to a compressed blob.
func EncodeOwnerQueue(oq OwnerQueue) []byte {
	raw := make([]byte, 0, 4+codec.WordSize+4+len(oq.Nodes)*(8+codec.WordSize))
	raw = append(raw, magicQueue[:]...)

	meta := oq.Meta.Bytes()
	raw = append(raw, meta[:]...)

	raw = binary.LittleEndian.AppendUint32(raw, uint32(len(oq.Nodes)))
	for _, n := range oq.Nodes {
		raw = binary.LittleEndian.AppendUint64(raw, uint64(n.ID))
		w := n.Word.Bytes()
		raw = append(raw, w[:]...)
	}

	return s2.Encode(nil, raw)
}

// DecodeOwnerQueue is the inverse of EncodeOwnerQueue. The owner comes from
// the storage key, not the blob.
func DecodeOwnerQueue(owner api.Owner, blob []byte) (OwnerQueue, error) {
	oq := OwnerQueue{Owner: owner}

	raw, err := s2.Decode(nil, blob)
	if err != nil {
		return oq, fmt.Errorf("decompressing queue blob for %s: %w", owner, err)
	}

	if len(raw) < 4+codec.WordSize+4 || [4]byte(raw[:4]) != magicQueue {
		return oq, fmt.Errorf("%w: bad queue blob for %s", api.ErrInvalidRange, owner)
	}
	raw = raw[4:]

	oq.Meta = codec.WordFromBytes([codec.WordSize]byte(raw[:codec.WordSize]))
	raw = raw[codec.WordSize:]

	count := binary.LittleEndian.Uint32(raw)
	raw = raw[4:]

	if uint64(len(raw)) != uint64(count)*(8+codec.WordSize) {
		return oq, fmt.Errorf("%w: queue blob for %s has %d trailing bytes for %d nodes",
			api.ErrInvalidRange, owner, len(raw), count)
	}

	oq.Nodes = make([]Node, count)
	for i := range oq.Nodes {
		oq.Nodes[i].ID = api.RangeID(binary.LittleEndian.Uint64(raw))
		raw = raw[8:]
		oq.Nodes[i].Word = codec.WordFromBytes([codec.WordSize]byte(raw[:codec.WordSize]))
		raw = raw[codec.WordSize:]
	}

	return oq, nil
}

// EncodeOwnerStake serializes one owner's staked runs to a compressed blob.
func EncodeOwnerStake(os OwnerStake) []byte {
	raw := make([]byte, 0, 4+4+len(os.Words)*codec.WordSize)
	raw = append(raw, magicStake[:]...)

	raw = binary.LittleEndian.AppendUint32(raw, uint32(len(os.Words)))
	for _, w := range os.Words {
		b := w.Bytes()
		raw = append(raw, b[:]...)
	}

	return s2.Encode(nil, raw)
}

// DecodeOwnerStake is the inverse of EncodeOwnerStake.
func DecodeOwnerStake(owner api.Owner, blob []byte) (OwnerStake, error) {
	os := OwnerStake{Owner: owner}

	raw, err := s2.Decode(nil, blob)
	if err != nil {
		return os, fmt.Errorf("decompressing stake blob for %s: %w", owner, err)
	}

	if len(raw) < 4+4 || [4]byte(raw[:4]) != magicStake {
		return os, fmt.Errorf("%w: bad stake blob for %s", api.ErrInvalidRange, owner)
	}
	raw = raw[4:]

	count := binary.LittleEndian.Uint32(raw)
	raw = raw[4:]

	if uint64(len(raw)) != uint64(count)*codec.WordSize {
		return os, fmt.Errorf("%w: stake blob for %s has %d trailing bytes for %d words",
			api.ErrInvalidRange, owner, len(raw), count)
	}

	os.Words = make([]codec.Word, count)
	for i := range os.Words {
		os.Words[i] = codec.WordFromBytes([codec.WordSize]byte(raw[:codec.WordSize]))
		raw = raw[codec.WordSize:]
	}

	return os, nil
}

// EncodeMeta serializes the global counters.
func EncodeMeta(s *Snapshot) []byte {
	raw := make([]byte, 0, 4+8*3)
	raw = append(raw, magicMeta[:]...)
	raw = binary.LittleEndian.AppendUint64(raw, uint64(s.NextToken))
	raw = binary.LittleEndian.AppendUint64(raw, s.Minted)
	raw = binary.LittleEndian.AppendUint64(raw, s.Burned)
	return raw
}

// DecodeMeta fills the global counters from a meta blob.
func DecodeMeta(blob []byte, s *Snapshot) error {
	if len(blob) != 4+8*3 || [4]byte(blob[:4]) != magicMeta {
		return fmt.Errorf("%w: bad meta blob", api.ErrInvalidRange)
	}

	s.NextToken = api.TokenID(binary.LittleEndian.Uint64(blob[4:]))
	s.Minted = binary.LittleEndian.Uint64(blob[12:])
	s.Burned = binary.LittleEndian.Uint64(blob[20:])
	return nil
}
