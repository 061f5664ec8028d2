// Package memledger is an in-memory staking balance ledger, suitable for
// tests and for embedders which keep staking state in process.
package memledger

import (
	"fmt"
	"sort"

	"github.com/glyphlabs/ledger/pkg/api"
)

// Ledger tracks which owner has each token staked. Independent storage from
// the range ledger.
type Ledger struct {
	tokens map[api.TokenID]api.Owner
}

func New() *Ledger {
	return &Ledger{
		tokens: map[api.TokenID]api.Owner{},
	}
}

func (l *Ledger) Stake(owner api.Owner, tokens []api.TokenID) error {
	for _, t := range tokens {
		if holder, ok := l.tokens[t]; ok {
			return fmt.Errorf("%w: token %d is already staked by %s", api.ErrInvalidRange, t, holder)
		}
	}

	for _, t := range tokens {
		l.tokens[t] = owner
	}

	return nil
}

func (l *Ledger) Unstake(owner api.Owner, tokens []api.TokenID) error {
	for _, t := range tokens {
		holder, ok := l.tokens[t]
		if !ok {
			return fmt.Errorf("%w: token %d is not staked", api.ErrTokenNotFound, t)
		}
		if holder != owner {
			return fmt.Errorf("%w: token %d is staked by %s, not %s", api.ErrNotOwner, t, holder, owner)
		}
	}

	for _, t := range tokens {
		delete(l.tokens, t)
	}

	return nil
}

func (l *Ledger) Staked(owner api.Owner) []api.TokenID {
	var out []api.TokenID
	for t, holder := range l.tokens {
		if holder == owner {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l *Ledger) IsStaked(owner api.Owner, token api.TokenID) bool {
	holder, ok := l.tokens[token]
	return ok && holder == owner
}

func (l *Ledger) Owners() []api.Owner {
	seen := map[api.Owner]bool{}
	var out []api.Owner
	for _, holder := range l.tokens {
		if !seen[holder] {
			seen[holder] = true
			out = append(out, holder)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Total returns the number of tokens staked across all owners.
func (l *Ledger) Total() uint64 {
	return uint64(len(l.tokens))
}
