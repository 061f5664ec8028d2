package api

import "fmt"

// Span is an inclusive run of token ids, [Start, End]. It's how callers
// describe sub-ranges in stake requests, and how the queue manager reports
// an owner's holdings.
type Span struct {
	Start TokenID // inclusive
	End   TokenID // inclusive
}

// Size returns the number of tokens in the span. Zero-size spans can't be
// expressed; a single token is {t, t}.
func (s Span) Size() uint64 {
	return uint64(s.End-s.Start) + 1
}

// Contains returns true if the given token is within the span.
func (s Span) Contains(t TokenID) bool {
	return t >= s.Start && t <= s.End
}

// String returns a string like: [3, 80]
func (s Span) String() string {
	return fmt.Sprintf("[%d, %d]", s.Start, s.End)
}
