package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphlabs/ledger/pkg/api"
	"github.com/glyphlabs/ledger/pkg/config"
	"github.com/glyphlabs/ledger/pkg/persister/memory"
	"github.com/glyphlabs/ledger/pkg/stake"
	"github.com/glyphlabs/ledger/pkg/stake/memledger"
)

func owner(b byte) api.Owner {
	var o api.Owner
	o[19] = b
	return o
}

func TestMintBurnStake(t *testing.T) {
	l, err := New(config.Default(), memory.New(), memledger.New())
	require.NoError(t, err)

	alice := owner(1)
	bob := owner(2)

	s, err := l.Mint(alice, 100)
	require.NoError(t, err)
	assert.Equal(t, api.Span{Start: 1, End: 100}, s)

	_, err = l.Mint(bob, 20)
	require.NoError(t, err)
	_, err = l.Mint(alice, 35)
	require.NoError(t, err)

	if diff := cmp.Diff([]api.Span{
		{Start: 1, End: 100},
		{Start: 121, End: 155},
	}, l.Ranges(alice)); diff != "" {
		t.Errorf("unexpected ranges: %s", diff)
	}

	head := mustRangeID(t, l, alice, 1)
	require.NoError(t, l.Stake(alice, []stake.RangeRequest{{
		ID:      head,
		Requeue: []api.Span{{Start: 1, End: 50}},
		Split:   []api.Span{{Start: 51, End: 100}},
	}}))

	assert.Equal(t, uint64(85), l.Balance(alice))
	assert.True(t, l.Holds(alice, 50))
	assert.False(t, l.Holds(alice, 51))
	assert.Equal(t, 50, len(l.Staked(alice)))

	require.NoError(t, l.Unstake(alice, l.Staked(alice)))
	assert.Equal(t, uint64(135), l.Balance(alice))

	require.NoError(t, l.Burn(alice, 35))
	if diff := cmp.Diff([]api.Span{{Start: 1, End: 100}}, l.Ranges(alice)); diff != "" {
		t.Errorf("unexpected ranges after burn: %s", diff)
	}
}

// mustRangeID resolves the queue range containing the given token.
func mustRangeID(t *testing.T, l *Ledger, o api.Owner, token api.TokenID) api.RangeID {
	t.Helper()

	q, ok := l.queues.List(o)
	require.True(t, ok)
	id, ok := q.FindByToken(token)
	require.True(t, ok)
	return id
}

func TestCheckpointRestore(t *testing.T) {
	pers := memory.New()

	l, err := New(config.Default(), pers, memledger.New())
	require.NoError(t, err)

	alice := owner(1)
	bob := owner(2)

	l.Mint(alice, 100)
	l.Mint(bob, 20)
	l.Mint(alice, 35)

	head := mustRangeID(t, l, alice, 1)
	require.NoError(t, l.Stake(alice, []stake.RangeRequest{{
		ID:      head,
		Requeue: []api.Span{{Start: 1, End: 50}},
		Split:   []api.Span{{Start: 51, End: 100}},
	}}))
	require.NoError(t, l.Burn(bob, 5))

	require.NoError(t, l.Checkpoint())

	// A second ledger over the same persister comes up identical.
	l2, err := New(config.Default(), pers, memledger.New())
	require.NoError(t, err)

	for _, o := range []api.Owner{alice, bob} {
		if diff := cmp.Diff(l.Ranges(o), l2.Ranges(o)); diff != "" {
			t.Errorf("unexpected ranges for %s: %s", o, diff)
		}
		assert.Equal(t, l.Balance(o), l2.Balance(o))
		assert.Equal(t, l.Staked(o), l2.Staked(o))
	}

	// Counters survive, so new mints don't reuse token ids.
	s, err := l2.Mint(bob, 10)
	require.NoError(t, err)
	assert.Equal(t, api.Span{Start: 156, End: 165}, s)

	// Range id counters survive too; stake against the restored queue.
	head = mustRangeID(t, l2, alice, 1)
	require.NoError(t, l2.Stake(alice, []stake.RangeRequest{{
		ID:    head,
		Split: []api.Span{{Start: 1, End: 50}},
	}}))
	assert.Equal(t, uint64(35), l2.Balance(alice))
}

func TestRestoreEmptyStore(t *testing.T) {
	l, err := New(config.Default(), memory.New(), memledger.New())
	require.NoError(t, err)

	s, err := l.Mint(owner(1), 5)
	require.NoError(t, err)
	assert.Equal(t, api.Span{Start: 1, End: 5}, s)
}

func TestRunCheckpointsOnShutdown(t *testing.T) {
	pers := memory.New()

	cfg := config.Default()
	cfg.CheckpointInterval = time.Hour // only the shutdown checkpoint fires
	cfg.CheckpointJitter = time.Second

	l, err := New(cfg, pers, memledger.New())
	require.NoError(t, err)

	l.Mint(owner(1), 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	cancel()
	<-done

	assert.Equal(t, 1, pers.PutCount)

	l2, err := New(cfg, pers, memledger.New())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), l2.Balance(owner(1)))
}
