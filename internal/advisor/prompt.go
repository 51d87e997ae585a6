package advisor

import (
	"fmt"
	"strings"

	"blackjack/internal/domain"
	"blackjack/internal/ports"
)

const dealerPersona = "You are a charismatic casino blackjack dealer. " +
	"Reply with a JSON object only, no prose around it: " +
	`{"narrative": "<one or two sentences in character>", "decision": "continue" or "stop"}. ` +
	"\"continue\" means the dealer takes another card."

const finalPersona = "You are a charismatic casino blackjack dealer announcing the end of a hand. " +
	`Reply with a JSON object only: {"narrative": "<two sentences at most>"}.`

func describeHand(h domain.Hand) string {
	if len(h) == 0 {
		return "no cards"
	}
	return fmt.Sprintf("%s (value %d)", strings.Join(h.Strings(), " "), h.Value())
}

func consultPrompt(player, dealer domain.Hand) ports.Prompt {
	return ports.Prompt{
		System: dealerPersona,
		User: fmt.Sprintf("Player hand: %s.\nDealer hand: %s.\nShould the dealer take another card?",
			describeHand(player), describeHand(dealer)),
	}
}

func finalPrompt(player, dealer domain.Hand, outcome domain.Outcome) ports.Prompt {
	return ports.Prompt{
		System: finalPersona,
		User: fmt.Sprintf("Player hand: %s.\nDealer hand: %s.\nResult: %s.",
			describeHand(player), describeHand(dealer), strings.ReplaceAll(string(outcome), "_", " ")),
	}
}
