package relay

import "strings"

// Accumulator collects partial reply text for one stream. It is not shared
// between requests.
type Accumulator struct {
	b      strings.Builder
	closed bool
}

// Append adds text unless the accumulator has been finalized.
func (a *Accumulator) Append(text string) {
	if a.closed {
		return
	}
	a.b.WriteString(text)
}

// Finalize stops further appends.
func (a *Accumulator) Finalize() {
	a.closed = true
}

// Finalized reports whether Finalize has been called.
func (a *Accumulator) Finalized() bool {
	return a.closed
}

// String returns the text collected so far.
func (a *Accumulator) String() string {
	return a.b.String()
}
