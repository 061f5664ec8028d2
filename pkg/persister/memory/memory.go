// Package memory is an in-memory Persister, for tests and embedders which
// don't want durable state. It round-trips through the same blob encoding
// as the durable persisters, so it exercises the real serialization path.
package memory

import (
	"sync"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/persister"
)

type Persister struct {
	mu     sync.Mutex
	meta   []byte
	queues map[api.Owner][]byte
	staked map[api.Owner][]byte

	// PutCount is incremented on every successful PutSnapshot. Tests use it
	// to observe checkpointing.
	PutCount int
}

func New() *Persister {
	return &Persister{}
}

func (p *Persister) GetSnapshot() (*persister.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.meta == nil {
		return nil, nil
	}

	s := &persister.Snapshot{}
	if err := persister.DecodeMeta(p.meta, s); err != nil {
		return nil, err
	}

	for owner, blob := range p.queues {
		oq, err := persister.DecodeOwnerQueue(owner, blob)
		if err != nil {
			return nil, err
		}
		s.Queues = append(s.Queues, oq)
	}

	for owner, blob := range p.staked {
		os, err := persister.DecodeOwnerStake(owner, blob)
		if err != nil {
			return nil, err
		}
		s.Staked = append(s.Staked, os)
	}

	return s, nil
}

func (p *Persister) PutSnapshot(s *persister.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.meta = persister.EncodeMeta(s)
	p.queues = map[api.Owner][]byte{}
	p.staked = map[api.Owner][]byte{}

	for _, oq := range s.Queues {
		p.queues[oq.Owner] = persister.EncodeOwnerQueue(oq)
	}

	for _, os := range s.Staked {
		p.staked[os.Owner] = persister.EncodeOwnerStake(os)
	}

	p.PutCount++
	return nil
}
