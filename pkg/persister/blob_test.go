package persister

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/codec"
)

func owner(b byte) api.Owner {
	var o api.Owner
	o[19] = b
	return o
}

func word(t *testing.T, o api.Owner, start api.TokenID, size uint64, staked bool) codec.Word {
	t.Helper()
	w, err := codec.PackRange(o, start, size, staked)
	require.NoError(t, err)
	return w
}

func TestOwnerQueueBlobRoundTrip(t *testing.T) {
	alice := owner(1)

	oq := OwnerQueue{
		Owner: alice,
		Meta:  codec.PackQueueMeta(1, 3, 2, 4),
		Nodes: []Node{
			{ID: 1, Word: word(t, alice, 1, 100, false)},
			{ID: 3, Word: word(t, alice, 121, 35, false)},
		},
	}

	got, err := DecodeOwnerQueue(alice, EncodeOwnerQueue(oq))
	require.NoError(t, err)

	if diff := cmp.Diff(oq, got); diff != "" {
		t.Errorf("unexpected queue after round trip: %s", diff)
	}
}

func TestOwnerQueueBlobEmpty(t *testing.T) {
	alice := owner(1)

	// A drained queue persists as meta only; the id counter survives.
	oq := OwnerQueue{
		Owner: alice,
		Meta:  codec.PackQueueMeta(0, 0, 0, 9),
	}

	got, err := DecodeOwnerQueue(alice, EncodeOwnerQueue(oq))
	require.NoError(t, err)
	assert.Equal(t, oq.Meta, got.Meta)
	assert.Empty(t, got.Nodes)
}

func TestOwnerQueueBlobRejectsGarbage(t *testing.T) {
	alice := owner(1)

	_, err := DecodeOwnerQueue(alice, []byte("not a blob"))
	assert.Error(t, err)

	oq := OwnerQueue{Owner: alice, Meta: codec.PackQueueMeta(0, 0, 0, 1)}
	blob := EncodeOwnerQueue(oq)

	// Valid compression around a truncated payload.
	raw := append([]byte{}, blob...)
	_, err = DecodeOwnerQueue(alice, raw[:len(raw)-1])
	assert.Error(t, err)

	_, err = DecodeOwnerStake(alice, blob)
	assert.True(t, errors.Is(err, api.ErrInvalidRange), "got %v", err)
}

func TestOwnerStakeBlobRoundTrip(t *testing.T) {
	alice := owner(1)

	os := OwnerStake{
		Owner: alice,
		Words: []codec.Word{
			word(t, alice, 2, 1, true),
			word(t, alice, 81, 31, true),
		},
	}

	got, err := DecodeOwnerStake(alice, EncodeOwnerStake(os))
	require.NoError(t, err)

	if diff := cmp.Diff(os, got); diff != "" {
		t.Errorf("unexpected stake after round trip: %s", diff)
	}
}

func TestMetaBlobRoundTrip(t *testing.T) {
	s := &Snapshot{NextToken: 156, Minted: 155, Burned: 40}

	var got Snapshot
	require.NoError(t, DecodeMeta(EncodeMeta(s), &got))
	assert.Equal(t, s.NextToken, got.NextToken)
	assert.Equal(t, s.Minted, got.Minted)
	assert.Equal(t, s.Burned, got.Burned)

	assert.Error(t, DecodeMeta([]byte("nope"), &got))
}
