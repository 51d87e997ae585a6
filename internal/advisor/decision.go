package advisor

import (
	"strings"
	"unicode"
)

// Decision is the dealer's normalized choice.
type Decision string

const (
	DecisionContinue Decision = "continue"
	DecisionStop     Decision = "stop"
)

// continueTokens are the words or phrases that mean the dealer takes another
// card. Everything else reads as a stop.
var continueTokens = []string{
	"continue",
	"hit",
	"hits",
	"draw",
	"draws",
	"another card",
	"continuar",
	"pedir",
	"pido",
	"otra carta",
}

// NormalizeDecision maps free-form oracle text onto continue or stop.
// Matching is case-insensitive and word-bounded, so "white" is not a hit.
func NormalizeDecision(text string) Decision {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return DecisionStop
	}
	joined := " " + strings.Join(words, " ") + " "
	for _, tok := range continueTokens {
		if strings.Contains(joined, " "+tok+" ") {
			return DecisionContinue
		}
	}
	return DecisionStop
}
