// Package consul persists ledger snapshots to the Consul KV store: one key
// per owner queue, one per owner's staked holdings, and one meta key, all
// written in a single transaction with check-and-set on the meta key so that
// two controllers can't clobber each other.
package consul

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/persister"
	capi "github.com/hashicorp/consul/api"
)

type Persister struct {
	kv     *capi.KV
	prefix string

	// ModifyIndex of the meta key as of the last read or write, for CAS.
	metaIndex uint64
	sync.Mutex
}

func New(client *capi.Client, prefix string) *Persister {
	return &Persister{
		kv:     client.KV(),
		prefix: strings.TrimSuffix(prefix, "/"),
	}
}

func (cp *Persister) metaKey() string {
	return cp.prefix + "/meta"
}

func (cp *Persister) queuePrefix() string {
	return cp.prefix + "/queues/"
}

func (cp *Persister) stakePrefix() string {
	return cp.prefix + "/staked/"
}

func (cp *Persister) GetSnapshot() (*persister.Snapshot, error) {
	cp.Lock()
	defer cp.Unlock()

	pair, _, err := cp.kv.Get(cp.metaKey(), nil)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		// Nothing stored yet; the ledger bootstraps from scratch.
		return nil, nil
	}

	s := &persister.Snapshot{}
	if err := persister.DecodeMeta(pair.Value, s); err != nil {
		return nil, err
	}
	cp.metaIndex = pair.ModifyIndex

	pairs, _, err := cp.kv.List(cp.queuePrefix(), nil)
	if err != nil {
		return nil, err
	}
	for _, kv := range pairs {
		owner, err := ownerFromKey(kv.Key)
		if err != nil {
			log.Printf("WARN: skipping invalid Consul key: %s", kv.Key)
			continue
		}

		oq, err := persister.DecodeOwnerQueue(owner, kv.Value)
		if err != nil {
			return nil, err
		}
		s.Queues = append(s.Queues, oq)
	}

	pairs, _, err = cp.kv.List(cp.stakePrefix(), nil)
	if err != nil {
		return nil, err
	}
	for _, kv := range pairs {
		owner, err := ownerFromKey(kv.Key)
		if err != nil {
			log.Printf("WARN: skipping invalid Consul key: %s", kv.Key)
			continue
		}

		os, err := persister.DecodeOwnerStake(owner, kv.Value)
		if err != nil {
			return nil, err
		}
		s.Staked = append(s.Staked, os)
	}

	return s, nil
}

func (cp *Persister) PutSnapshot(s *persister.Snapshot) error {
	cp.Lock()
	defer cp.Unlock()

	// Encode every blob up front, concurrently; the txn itself has to be one
	// call.
	qblobs := make([][]byte, len(s.Queues))
	sblobs := make([][]byte, len(s.Staked))

	g := errgroup.Group{}
	for i := range s.Queues {
		i := i
		g.Go(func() error {
			qblobs[i] = persister.EncodeOwnerQueue(s.Queues[i])
			return nil
		})
	}
	for i := range s.Staked {
		i := i
		g.Go(func() error {
			sblobs[i] = persister.EncodeOwnerStake(s.Staked[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ops := capi.KVTxnOps{
		// Drop stale per-owner keys first; the sets below re-create the live
		// ones within the same txn.
		&capi.KVTxnOp{Verb: capi.KVDeleteTree, Key: cp.queuePrefix()},
		&capi.KVTxnOp{Verb: capi.KVDeleteTree, Key: cp.stakePrefix()},
		&capi.KVTxnOp{
			Verb:  capi.KVCAS,
			Key:   cp.metaKey(),
			Value: persister.EncodeMeta(s),
			Index: cp.metaIndex,
		},
	}

	for i, oq := range s.Queues {
		ops = append(ops, &capi.KVTxnOp{
			Verb:  capi.KVSet,
			Key:   cp.queuePrefix() + oq.Owner.String(),
			Value: qblobs[i],
		})
	}
	for i, os := range s.Staked {
		ops = append(ops, &capi.KVTxnOp{
			Verb:  capi.KVSet,
			Key:   cp.stakePrefix() + os.Owner.String(),
			Value: sblobs[i],
		})
	}

	ok, res, _, err := cp.kv.Txn(ops, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("snapshot txn rejected; meta key was modified concurrently")
	}

	for _, r := range res.Results {
		if r.Key == cp.metaKey() {
			cp.metaIndex = r.ModifyIndex
		}
	}

	return nil
}

func ownerFromKey(key string) (api.Owner, error) {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return api.ZeroOwner, fmt.Errorf("no separator in key: %s", key)
	}
	return api.OwnerFromHex(key[i+1:])
}
