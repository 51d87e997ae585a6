package domain

// Outcome is the terminal result of a session.
type Outcome string

const (
	OutcomeNone       Outcome = ""
	OutcomePlayerBust Outcome = "player_bust"
	OutcomeDealerBust Outcome = "dealer_bust"
	OutcomePlayerWins Outcome = "player_wins"
	OutcomeDealerWins Outcome = "dealer_wins"
	OutcomePush       Outcome = "push"
)

// PlayerWon reports whether the outcome favours the player.
func (o Outcome) PlayerWon() bool {
	return o == OutcomePlayerWins || o == OutcomeDealerBust
}

// Resolve applies the standard settlement rule: a player bust loses first,
// then a dealer bust, then the higher total wins and equal totals push.
func Resolve(player, dealer int) Outcome {
	switch {
	case player > BlackjackValue:
		return OutcomePlayerBust
	case dealer > BlackjackValue:
		return OutcomeDealerBust
	case player > dealer:
		return OutcomePlayerWins
	case dealer > player:
		return OutcomeDealerWins
	default:
		return OutcomePush
	}
}

// ResolveClosest settles a forced termination: the total nearer to 21 wins,
// whether or not it is over. Equal distances push.
func ResolveClosest(player, dealer int) Outcome {
	pd, dd := distance(player), distance(dealer)
	switch {
	case pd < dd:
		return OutcomePlayerWins
	case dd < pd:
		return OutcomeDealerWins
	default:
		return OutcomePush
	}
}

func distance(v int) int {
	if v > BlackjackValue {
		return v - BlackjackValue
	}
	return BlackjackValue - v
}
