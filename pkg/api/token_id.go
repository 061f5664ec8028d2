package api

import "fmt"

// TokenID is the unique identity of a single glyph. IDs are allocated from a
// global monotonically increasing counter starting at 1, and are never reused
// once minted, even after burn.
type TokenID uint64

// ZeroToken is not a valid TokenID.
const ZeroToken TokenID = 0

func (id TokenID) String() string {
	return fmt.Sprintf("%d", id)
}
