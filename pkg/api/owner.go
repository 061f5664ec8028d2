package api

import (
	"encoding/hex"
	"fmt"
)

// Owner is the identity of a glyph holder. It's opaque to the ledger; in
// practice it's an account address.
type Owner [20]byte

// ZeroOwner is not a valid owner of any range.
var ZeroOwner Owner

func (o Owner) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero returns true for the null owner.
func (o Owner) IsZero() bool {
	return o == ZeroOwner
}

// OwnerFromHex parses a 40-char hex string (with or without an 0x prefix)
// into an Owner.
func OwnerFromHex(s string) (Owner, error) {
	var o Owner

	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return o, fmt.Errorf("invalid owner hex: %v", err)
	}
	if len(b) != len(o) {
		return o, fmt.Errorf("invalid owner length: want %d bytes, got %d", len(o), len(b))
	}

	copy(o[:], b)
	return o, nil
}
