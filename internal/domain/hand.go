package domain

const (
	// BlackjackValue is the best possible hand total.
	BlackjackValue = 21
	// DealerStandValue is the total at which the house rule stops drawing.
	DealerStandValue = 17
)

// Hand is the ordered set of cards held by the player or the dealer.
// Hands only grow; the value is derived on every call.
type Hand []Card

// Value computes the hand total. Every ace counts 11 first and is downgraded
// to 1, one at a time, while the total exceeds 21. The result may still exceed
// 21; interpreting a bust is left to the caller.
func (h Hand) Value() int {
	total, _ := h.score()
	return total
}

// Soft reports whether at least one ace is still counted as 11.
func (h Hand) Soft() bool {
	_, highAces := h.score()
	return highAces > 0
}

func (h Hand) score() (total, highAces int) {
	for _, c := range h {
		if c.Rank == Ace {
			highAces++
		}
		total += c.Rank.Points()
	}
	for total > BlackjackValue && highAces > 0 {
		total -= 10
		highAces--
	}
	return total, highAces
}

// IsBust reports whether the hand exceeds 21.
func (h Hand) IsBust() bool {
	return h.Value() > BlackjackValue
}

// IsTwentyOne reports whether the hand totals exactly 21.
func (h Hand) IsTwentyOne() bool {
	return h.Value() == BlackjackValue
}

// BelowDealerStand reports whether the house rule would draw another card.
func (h Hand) BelowDealerStand() bool {
	return h.Value() < DealerStandValue
}

// Clone returns a copy that does not share backing storage.
func (h Hand) Clone() Hand {
	if h == nil {
		return Hand{}
	}
	out := make(Hand, len(h))
	copy(out, h)
	return out
}

// Strings renders each card, e.g. ["A♠", "K♦"].
func (h Hand) Strings() []string {
	out := make([]string, len(h))
	for i, c := range h {
		out[i] = c.String()
	}
	return out
}
