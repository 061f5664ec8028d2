package rangelist

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphlabs/ledger/pkg/api"
)

func owner(b byte) api.Owner {
	var o api.Owner
	o[19] = b
	return o
}

// spans flattens a list to inclusive spans for easy comparison.
func spans(l *List) []api.Span {
	rs := l.All()
	var out []api.Span
	for _, r := range rs {
		out = append(out, r.Span())
	}
	return out
}

func TestAppendPrepend(t *testing.T) {
	l := New()
	assert.True(t, l.Empty())
	assert.Equal(t, 0, l.Len())

	a, err := l.Append(100, 10, owner(1))
	require.NoError(t, err)
	b, err := l.Append(200, 5, owner(1))
	require.NoError(t, err)
	c, err := l.Prepend(1, 50, owner(1))
	require.NoError(t, err)

	assert.Equal(t, c, l.Head())
	assert.Equal(t, b, l.Tail())
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, uint64(65), l.TotalSize())

	if diff := cmp.Diff([]api.Span{
		{Start: 1, End: 50},
		{Start: 100, End: 109},
		{Start: 200, End: 204},
	}, spans(l)); diff != "" {
		t.Errorf("unexpected spans: %s", diff)
	}

	// Linkage is consistent both ways.
	ra, _ := l.Get(a)
	assert.Equal(t, c, ra.Prev)
	assert.Equal(t, b, ra.Next)
}

func TestAppendInvalid(t *testing.T) {
	l := New()

	_, err := l.Append(1, 0, owner(1))
	assert.True(t, errors.Is(err, api.ErrInvalidRange), "got %v", err)

	_, err = l.Append(1, 10, api.ZeroOwner)
	assert.True(t, errors.Is(err, api.ErrInvalidRange), "got %v", err)

	assert.True(t, l.Empty())
}

func TestRemove(t *testing.T) {
	examples := []struct {
		name   string
		remove int // index of range to remove (0=head, 1=mid, 2=tail)
		want   []api.Span
	}{
		{
			name:   "head",
			remove: 0,
			want:   []api.Span{{Start: 20, End: 29}, {Start: 40, End: 49}},
		},
		{
			name:   "interior",
			remove: 1,
			want:   []api.Span{{Start: 1, End: 10}, {Start: 40, End: 49}},
		},
		{
			name:   "tail",
			remove: 2,
			want:   []api.Span{{Start: 1, End: 10}, {Start: 20, End: 29}},
		},
	}

	for _, ex := range examples {
		l := New()
		ids := make([]api.RangeID, 3)
		for i, s := range []api.TokenID{1, 20, 40} {
			id, err := l.Append(s, 10, owner(1))
			require.NoError(t, err, ex.name)
			ids[i] = id
		}

		require.NoError(t, l.Remove(ids[ex.remove]), ex.name)
		assert.Equal(t, 2, l.Len(), ex.name)

		if diff := cmp.Diff(ex.want, spans(l)); diff != "" {
			t.Errorf("%s: unexpected spans: %s", ex.name, diff)
		}

		// Removed ids are stale forever.
		err := l.Remove(ids[ex.remove])
		assert.True(t, errors.Is(err, api.ErrRangeNotFound), "%s: got %v", ex.name, err)
	}
}

func TestRemoveOnlyRange(t *testing.T) {
	l := New()
	id, err := l.Append(1, 10, owner(1))
	require.NoError(t, err)

	require.NoError(t, l.Remove(id))
	assert.True(t, l.Empty())
	assert.Equal(t, api.ZeroRange, l.Head())
	assert.Equal(t, api.ZeroRange, l.Tail())

	// The counter doesn't rewind.
	id2, err := l.Append(1, 10, owner(1))
	require.NoError(t, err)
	assert.Greater(t, id2, id)
}

func TestSplit(t *testing.T) {
	examples := []struct {
		name    string
		start   api.TokenID
		size    uint64
		token   api.TokenID
		want    []api.Span
		wantLen int
		err     error
	}{
		{
			name:    "interior",
			start:   1,
			size:    10,
			token:   5,
			want:    []api.Span{{Start: 1, End: 4}, {Start: 6, End: 10}},
			wantLen: 2,
		},
		{
			name:    "first token",
			start:   1,
			size:    10,
			token:   1,
			want:    []api.Span{{Start: 2, End: 10}},
			wantLen: 1,
		},
		{
			name:    "last token",
			start:   1,
			size:    10,
			token:   10,
			want:    []api.Span{{Start: 1, End: 9}},
			wantLen: 1,
		},
		{
			name:    "single token range",
			start:   7,
			size:    1,
			token:   7,
			want:    nil,
			wantLen: 0,
		},
		{
			name:  "before range",
			start: 5,
			size:  10,
			token: 4,
			err:   api.ErrInvalidRange,
		},
		{
			name:  "after range",
			start: 5,
			size:  10,
			token: 15,
			err:   api.ErrInvalidRange,
		},
	}

	for _, ex := range examples {
		l := New()
		id, err := l.Append(ex.start, ex.size, owner(1))
		require.NoError(t, err, ex.name)

		err = l.Split(id, ex.token)
		if ex.err != nil {
			assert.True(t, errors.Is(err, ex.err), "%s: got %v", ex.name, err)
			assert.Equal(t, 1, l.Len(), ex.name)
			continue
		}

		require.NoError(t, err, ex.name)
		assert.Equal(t, ex.wantLen, l.Len(), ex.name)

		if diff := cmp.Diff(ex.want, spans(l)); diff != "" {
			t.Errorf("%s: unexpected spans: %s", ex.name, diff)
		}
	}
}

func TestSplitRelinks(t *testing.T) {
	// Splitting an interior range must leave the neighbors linked to the
	// fragments, in order.
	l := New()
	_, err := l.Append(1, 10, owner(1))
	require.NoError(t, err)
	mid, err := l.Append(20, 10, owner(1))
	require.NoError(t, err)
	_, err = l.Append(40, 10, owner(1))
	require.NoError(t, err)

	require.NoError(t, l.Split(mid, 25))

	if diff := cmp.Diff([]api.Span{
		{Start: 1, End: 10},
		{Start: 20, End: 24},
		{Start: 26, End: 29},
		{Start: 40, End: 49},
	}, spans(l)); diff != "" {
		t.Errorf("unexpected spans: %s", diff)
	}
	assert.Equal(t, 4, l.Len())

	// Splitting a head-edge token rewrites the head node in place.
	head := l.Head()
	require.NoError(t, l.Split(head, 1))
	first, ok := l.Front()
	require.True(t, ok)
	assert.Equal(t, api.TokenID(2), first.Start)
}

func TestExtendTruncate(t *testing.T) {
	l := New()
	id, err := l.Append(1, 10, owner(1))
	require.NoError(t, err)

	require.NoError(t, l.Extend(id, 5))
	r, _ := l.Get(id)
	assert.Equal(t, uint64(15), r.Size)

	require.NoError(t, l.Truncate(id, 14))
	r, _ = l.Get(id)
	assert.Equal(t, uint64(1), r.Size)

	// Truncating to nothing isn't allowed; that's a Remove.
	err = l.Truncate(id, 1)
	assert.True(t, errors.Is(err, api.ErrInvalidRange), "got %v", err)

	err = l.Extend(999, 1)
	assert.True(t, errors.Is(err, api.ErrRangeNotFound), "got %v", err)
}

func TestFind(t *testing.T) {
	l := New()
	a, _ := l.Append(1, 10, owner(1))
	b, _ := l.Append(20, 10, owner(1))

	id, ok := l.FindByStart(20)
	assert.True(t, ok)
	assert.Equal(t, b, id)

	_, ok = l.FindByStart(21)
	assert.False(t, ok)

	id, ok = l.FindByToken(10)
	assert.True(t, ok)
	assert.Equal(t, a, id)

	_, ok = l.FindByToken(15)
	assert.False(t, ok)
}

func TestFrontPop(t *testing.T) {
	l := New()

	_, ok := l.Front()
	assert.False(t, ok)

	_, err := l.PopFront()
	assert.True(t, errors.Is(err, api.ErrQueueEmpty), "got %v", err)

	l.Append(1, 10, owner(1))
	l.Append(20, 5, owner(1))

	r, ok := l.Front()
	assert.True(t, ok)
	assert.Equal(t, api.TokenID(1), r.Start)

	r, err = l.PopFront()
	require.NoError(t, err)
	assert.Equal(t, api.TokenID(1), r.Start)
	assert.Equal(t, 1, l.Len())

	r, err = l.PopFront()
	require.NoError(t, err)
	assert.Equal(t, api.TokenID(20), r.Start)
	assert.True(t, l.Empty())
}

func TestTokens(t *testing.T) {
	l := New()
	l.Append(1, 3, owner(1))
	l.Append(10, 2, owner(1))

	assert.Equal(t, []api.TokenID{1, 2, 3, 10, 11}, l.Tokens())
}

func TestInitPreservesCounter(t *testing.T) {
	l := New()
	l.Append(1, 10, owner(1))
	l.Append(20, 10, owner(1))
	next := l.NextRangeID()

	l.Init()
	assert.True(t, l.Empty())
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, next, l.NextRangeID())

	id, err := l.Append(1, 10, owner(1))
	require.NoError(t, err)
	assert.Equal(t, next, id)
}

func TestRestore(t *testing.T) {
	l := New()
	l.Append(1, 10, owner(1))
	mid, _ := l.Append(20, 10, owner(1))
	l.Append(40, 10, owner(1))
	l.Remove(mid)

	l2, err := Restore(l.NextRangeID(), l.All())
	require.NoError(t, err)

	assert.Equal(t, l.Head(), l2.Head())
	assert.Equal(t, l.Tail(), l2.Tail())
	assert.Equal(t, l.NextRangeID(), l2.NextRangeID())

	if diff := cmp.Diff(l.All(), l2.All()); diff != "" {
		t.Errorf("unexpected ranges after restore: %s", diff)
	}
}

func TestRestoreRejectsCorruption(t *testing.T) {
	examples := []struct {
		name   string
		next   api.RangeID
		ranges []Range
	}{
		{
			name: "id past counter",
			next: 2,
			ranges: []Range{
				{ID: 5, Start: 1, Size: 10, Owner: owner(1)},
			},
		},
		{
			name: "duplicate id",
			next: 10,
			ranges: []Range{
				{ID: 1, Start: 1, Size: 10, Owner: owner(1)},
				{ID: 1, Start: 20, Size: 10, Owner: owner(1)},
			},
		},
		{
			name: "descending order",
			next: 10,
			ranges: []Range{
				{ID: 1, Start: 20, Size: 10, Owner: owner(1)},
				{ID: 2, Start: 1, Size: 10, Owner: owner(1)},
			},
		},
		{
			name: "overlap",
			next: 10,
			ranges: []Range{
				{ID: 1, Start: 1, Size: 10, Owner: owner(1)},
				{ID: 2, Start: 5, Size: 10, Owner: owner(1)},
			},
		},
	}

	for _, ex := range examples {
		_, err := Restore(ex.next, ex.ranges)
		assert.True(t, errors.Is(err, api.ErrInvalidRange), "%s: got %v", ex.name, err)
	}
}
