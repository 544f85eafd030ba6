// Package deck implements the navigable, filtered view over a loaded card
// set: an order (permutation/subset of card indices) plus a cursor. Deck
// values are immutable; transitions return a new Deck. The package never
// touches the label store.
package deck

import "math/rand"

// Deck is the ordered view over card indices with a navigation cursor.
// The zero value is an empty deck.
type Deck struct {
	// Order holds indices into the card store, in display order
	Order []int

	// Cursor is the position within Order; meaningless when Order is empty
	Cursor int
}

// SetOrder returns a deck over newOrder with the cursor reset to 0.
func SetOrder(newOrder []int) Deck {
	return Deck{Order: newOrder}
}

// Empty reports whether the deck has no navigable cards.
func (d Deck) Empty() bool {
	return len(d.Order) == 0
}

// Len returns the number of navigable cards.
func (d Deck) Len() int {
	return len(d.Order)
}

// Current returns the card index under the cursor, or false for an empty deck.
func (d Deck) Current() (int, bool) {
	if d.Empty() {
		return 0, false
	}
	return d.Order[d.Cursor], true
}

// Next advances the cursor with wraparound. No-op on an empty deck.
func (d Deck) Next() Deck {
	return d.step(1)
}

// Prev retreats the cursor with wraparound. No-op on an empty deck.
func (d Deck) Prev() Deck {
	return d.step(-1)
}

func (d Deck) step(delta int) Deck {
	n := len(d.Order)
	if n == 0 {
		return d
	}
	d.Cursor = (d.Cursor + delta + n) % n
	return d
}

// Shuffle returns a deck with the order uniformly permuted (Fisher-Yates)
// and the cursor reset to 0. Shuffling an empty deck is a no-op.
func (d Deck) Shuffle(rng *rand.Rand) Deck {
	if d.Empty() {
		return d
	}
	order := append([]int(nil), d.Order...)
	for i := len(order) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return Deck{Order: order}
}

// Reset returns the deck with the cursor moved back to the start.
func (d Deck) Reset() Deck {
	d.Cursor = 0
	return d
}
