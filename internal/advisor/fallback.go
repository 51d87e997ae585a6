package advisor

import (
	"fmt"

	"blackjack/internal/domain"
)

// HouseDecision applies the fixed house rule: draw below 17, otherwise stop.
func HouseDecision(dealer domain.Hand) Decision {
	if dealer.BelowDealerStand() {
		return DecisionContinue
	}
	return DecisionStop
}

func houseNarrative(dealer domain.Hand, d Decision) string {
	v := dealer.Value()
	if d == DecisionContinue {
		return fmt.Sprintf("The dealer sits on %d and, by house rule, draws another card.", v)
	}
	return fmt.Sprintf("The dealer sits on %d and, by house rule, stands.", v)
}

// tableNarrative describes a decision without saying who made it.
func tableNarrative(dealer domain.Hand, d Decision) string {
	v := dealer.Value()
	if d == DecisionContinue {
		return fmt.Sprintf("The dealer sits on %d and takes another card.", v)
	}
	return fmt.Sprintf("The dealer sits on %d and stands.", v)
}

func houseAdvice(dealer domain.Hand, reason string) Advice {
	d := HouseDecision(dealer)
	return Advice{
		Narrative: houseNarrative(dealer, d),
		Decision:  d,
		Fallback:  true,
		Reason:    reason,
	}
}

func finalSummary(player, dealer domain.Hand, outcome domain.Outcome) string {
	p, d := player.Value(), dealer.Value()
	switch outcome {
	case domain.OutcomePlayerBust:
		return fmt.Sprintf("Player busts with %d. The house takes it (dealer shows %d).", p, d)
	case domain.OutcomeDealerBust:
		return fmt.Sprintf("Dealer busts with %d. Player wins holding %d.", d, p)
	case domain.OutcomePlayerWins:
		return fmt.Sprintf("Player wins %d to %d.", p, d)
	case domain.OutcomeDealerWins:
		return fmt.Sprintf("Dealer wins %d to %d.", d, p)
	case domain.OutcomePush:
		return fmt.Sprintf("Push at player %d, dealer %d.", p, d)
	default:
		return fmt.Sprintf("Game over: player %d, dealer %d.", p, d)
	}
}
