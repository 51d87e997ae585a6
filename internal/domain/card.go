package domain

import "strconv"

// Phase represents the lifecycle stage of a blackjack session.
type Phase string

const (
	// PhaseInProgress indicates the player may still act.
	PhaseInProgress Phase = "in_progress"
	// PhaseTerminal indicates the game has been resolved.
	PhaseTerminal Phase = "terminal"
)

// Suit is one of the four French suits.
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Suits lists the suits in deck construction order.
var Suits = [4]Suit{Spades, Hearts, Diamonds, Clubs}

// Rank is a card rank, 1 (Ace) through 13 (King).
type Rank int

const (
	Ace   Rank = 1
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
)

// String returns the rank label (A, 2..10, J, Q, K).
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		return strconv.Itoa(int(r))
	}
}

// Points is the rank's contribution to a hand before any ace downgrade.
func (r Rank) Points() int {
	switch {
	case r == Ace:
		return 11
	case r >= 10:
		return 10
	default:
		return int(r)
	}
}

// Card represents a standard playing card.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// String renders the card as rank followed by suit symbol, e.g. "10♦".
func (c Card) String() string {
	return c.Rank.String() + string(c.Suit)
}
