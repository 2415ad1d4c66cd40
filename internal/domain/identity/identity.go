// Package identity owns the total order on user identities.
//
// Pair keys for matches depend on every writer and reader agreeing on a
// single comparator. UUID backends disagree on ordering (byte-wise vs
// lexicographic vs version-aware), so the comparison lives here and nowhere
// else: byte-wise over the 16-byte value, which coincides with Postgres uuid
// ordering.
package identity

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Less reports whether a sorts before b under the canonical order.
func Less(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// Pair is a canonical unordered pair of identities: Low < High always.
type Pair struct {
	Low  uuid.UUID
	High uuid.UUID
}

// PairKey returns the canonical pair for two distinct identities.
func PairKey(a, b uuid.UUID) (Pair, error) {
	if a == uuid.Nil || b == uuid.Nil {
		return Pair{}, fmt.Errorf("pair key requires non-nil identities")
	}
	if a == b {
		return Pair{}, fmt.Errorf("pair key requires distinct identities")
	}
	if Less(b, a) {
		a, b = b, a
	}
	return Pair{Low: a, High: b}, nil
}

// Contains reports whether id is one of the pair's participants.
func (p Pair) Contains(id uuid.UUID) bool {
	return id == p.Low || id == p.High
}

// Other returns the opposite participant, or uuid.Nil when id is not part of
// the pair.
func (p Pair) Other(id uuid.UUID) uuid.UUID {
	switch id {
	case p.Low:
		return p.High
	case p.High:
		return p.Low
	default:
		return uuid.Nil
	}
}
