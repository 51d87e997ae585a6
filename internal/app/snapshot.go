package app

import (
	"fmt"
	"strings"
	"time"

	"blackjack/internal/domain"
)

// HandView is the rendered form of a hand.
type HandView struct {
	Cards []string `json:"cards"`
	Value int      `json:"value"`
	Soft  bool     `json:"soft"`
}

// Snapshot is the uniform result of every session action.
type Snapshot struct {
	SessionID        string         `json:"session_id"`
	Variant          string         `json:"variant"`
	Player           HandView       `json:"player"`
	Dealer           HandView       `json:"dealer"`
	Phase            domain.Phase   `json:"phase"`
	Outcome          domain.Outcome `json:"outcome,omitempty"`
	Narrative        string         `json:"narrative"`
	Decision         *string        `json:"decision"`
	RemainingActions int            `json:"remaining_actions"`
	DeckRemaining    int            `json:"deck_remaining"`
	Message          string         `json:"message"`
}

// StatusSummary is a read-only view that does not count as activity.
type StatusSummary struct {
	SessionID        string         `json:"session_id"`
	Phase            domain.Phase   `json:"phase"`
	Outcome          domain.Outcome `json:"outcome,omitempty"`
	RemainingActions int            `json:"remaining_actions"`
	LastActivity     time.Time      `json:"last_activity"`
	ExpiresAt        time.Time      `json:"expires_at"`
}

func viewHand(h domain.Hand) HandView {
	return HandView{Cards: h.Strings(), Value: h.Value(), Soft: h.Soft()}
}

func snapshotOf(sess *domain.Session, message string) Snapshot {
	snap := Snapshot{
		SessionID:        sess.ID,
		Variant:          sess.Variant,
		Player:           viewHand(sess.Player),
		Dealer:           viewHand(sess.Dealer),
		Phase:            sess.Phase,
		Outcome:          sess.Outcome,
		Narrative:        sess.Narrative,
		RemainingActions: sess.RemainingActions(),
		DeckRemaining:    sess.Deck.Remaining(),
		Message:          message,
	}
	if sess.Decision != "" {
		d := sess.Decision
		snap.Decision = &d
	}
	if snap.Message == "" {
		snap.Message = statusMessage(sess)
	}
	return snap
}

func statusMessage(sess *domain.Session) string {
	switch {
	case sess.Finished():
		return fmt.Sprintf(msgGameOverFormat, strings.ReplaceAll(string(sess.Outcome), "_", " "))
	case sess.LimitReached():
		return msgLimitReached
	case sess.RemainingActions() == 1:
		return msgLastAction
	default:
		return msgYourMove
	}
}
