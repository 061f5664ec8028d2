// Package persister defines the snapshot format for ledger state, and the
// interface which stores snapshots. Snapshots carry the global counters plus
// every owner queue and staked holding, with nodes encoded as packed words.
package persister

import (
	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/codec"
)

// Node is one persisted range node. Prev/next linkage isn't stored; nodes
// are kept in head-to-tail order and re-linked on restore.
type Node struct {
	ID   api.RangeID
	Word codec.Word
}

// OwnerQueue is one owner's whole queue: the packed metadata word plus the
// nodes in queue order.
type OwnerQueue struct {
	Owner api.Owner
	Meta  codec.Word
	Nodes []Node
}

// OwnerStake is one owner's staked holdings, coalesced into runs, each
// packed as a range word with the staked flag set.
type OwnerStake struct {
	Owner api.Owner
	Words []codec.Word
}

// Snapshot is the full persisted state of a ledger at one point in time.
type Snapshot struct {
	NextToken api.TokenID
	Minted    uint64
	Burned    uint64
	Queues    []OwnerQueue
	Staked    []OwnerStake
}

// Persister stores and retrieves ledger snapshots.
type Persister interface {

	// GetSnapshot returns the latest snapshot, or nil if nothing has been
	// stored yet. It's called once, at ledger startup.
	GetSnapshot() (*Snapshot, error)

	// PutSnapshot replaces the stored snapshot. Implementations must be
	// transactional, so either the whole snapshot is stored or none of it.
	PutSnapshot(*Snapshot) error
}
