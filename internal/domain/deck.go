package domain

import "math/rand"

// DeckSize is the number of cards in a single French deck.
const DeckSize = 52

// Deck is an ordered pile of cards drawn from the top. A deck is owned by one
// session and is never reshuffled once play starts.
type Deck struct {
	cards []Card
}

// NewDeck returns the 52 canonical cards in suit-major order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for r := Ace; r <= King; r++ {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// NewShuffledDeck returns a full deck in uniformly random order.
func NewShuffledDeck(rng *rand.Rand) *Deck {
	cards := NewDeck()
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return &Deck{cards: cards}
}

// NewStackedDeck returns a deck whose first card is drawn first.
func NewStackedDeck(cards ...Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// Draw removes and returns the top card. ok is false when the deck is empty.
func (d *Deck) Draw() (card Card, ok bool) {
	if d == nil {
		panic("domain: draw from nil deck")
	}
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card = d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Remaining returns how many cards are left.
func (d *Deck) Remaining() int {
	if d == nil {
		return 0
	}
	return len(d.cards)
}

// Empty reports whether no cards remain.
func (d *Deck) Empty() bool {
	return d.Remaining() == 0
}
