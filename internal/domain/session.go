package domain

import "time"

// ActionRecord is an immutable snapshot appended after every accepted action.
type ActionRecord struct {
	Seq         int       `json:"seq"`
	At          time.Time `json:"at"`
	Action      string    `json:"action"`
	PlayerHand  Hand      `json:"player_hand"`
	DealerHand  Hand      `json:"dealer_hand"`
	PlayerValue int       `json:"player_value"`
	DealerValue int       `json:"dealer_value"`
	Narrative   string    `json:"narrative"`
	Decision    string    `json:"decision,omitempty"`
	Phase       Phase     `json:"phase"`
	Outcome     Outcome   `json:"outcome,omitempty"`
}

// History retains the most recent records up to a fixed limit.
type History struct {
	limit   int
	records []ActionRecord
}

// NewHistory creates a history keeping at most limit records (minimum 1).
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit, records: make([]ActionRecord, 0, limit)}
}

// Append adds a record, dropping the oldest once the limit is exceeded.
func (h *History) Append(rec ActionRecord) {
	h.records = append(h.records, rec)
	if over := len(h.records) - h.limit; over > 0 {
		h.records = append(h.records[:0:0], h.records[over:]...)
	}
}

// Records returns a copy of the retained records, oldest first.
func (h *History) Records() []ActionRecord {
	out := make([]ActionRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int {
	return len(h.records)
}

// Session is the aggregate root for one addressable game.
type Session struct {
	ID        string
	Variant   string
	ActionCap int

	Deck   *Deck
	Player Hand
	Dealer Hand

	// Actions counts accepted actions, including the opening deal.
	Actions int
	History *History

	CreatedAt    time.Time
	LastActivity time.Time
	FinishedAt   time.Time

	Phase   Phase
	Outcome Outcome

	// Narrative and Decision hold the latest advisor output. Decision is
	// empty when the last action did not ask for one.
	Narrative string
	Decision  string
}

// NewSession creates an in-progress session around an already shuffled deck.
func NewSession(id, variant string, actionCap, historyLimit int, deck *Deck, now time.Time) *Session {
	return &Session{
		ID:           id,
		Variant:      variant,
		ActionCap:    actionCap,
		Deck:         deck,
		Player:       Hand{},
		Dealer:       Hand{},
		History:      NewHistory(historyLimit),
		CreatedAt:    now,
		LastActivity: now,
		Phase:        PhaseInProgress,
	}
}

// Touch records activity on the session.
func (s *Session) Touch(now time.Time) {
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

// DealPlayer draws one card into the player hand.
func (s *Session) DealPlayer(now time.Time) (Card, bool) {
	c, ok := s.Deck.Draw()
	if ok {
		s.Player = append(s.Player, c)
		s.Touch(now)
	}
	return c, ok
}

// DealDealer draws one card into the dealer hand.
func (s *Session) DealDealer(now time.Time) (Card, bool) {
	c, ok := s.Deck.Draw()
	if ok {
		s.Dealer = append(s.Dealer, c)
		s.Touch(now)
	}
	return c, ok
}

// Finished reports whether the session reached a terminal phase.
func (s *Session) Finished() bool {
	return s.Phase == PhaseTerminal
}

// Finish moves the session to the terminal phase with the given outcome.
func (s *Session) Finish(outcome Outcome, now time.Time) {
	s.Phase = PhaseTerminal
	s.Outcome = outcome
	s.FinishedAt = now
	s.Touch(now)
}

// LimitReached reports whether no further actions may be accepted.
func (s *Session) LimitReached() bool {
	return s.ActionCap > 0 && s.Actions >= s.ActionCap
}

// RemainingActions returns how many more actions the session accepts.
func (s *Session) RemainingActions() int {
	if s.ActionCap <= 0 {
		return 0
	}
	if rem := s.ActionCap - s.Actions; rem > 0 {
		return rem
	}
	return 0
}

// Record counts an accepted action and appends it to the history.
func (s *Session) Record(action string, now time.Time) ActionRecord {
	s.Actions++
	s.Touch(now)
	rec := ActionRecord{
		Seq:         s.Actions,
		At:          now,
		Action:      action,
		PlayerHand:  s.Player.Clone(),
		DealerHand:  s.Dealer.Clone(),
		PlayerValue: s.Player.Value(),
		DealerValue: s.Dealer.Value(),
		Narrative:   s.Narrative,
		Decision:    s.Decision,
		Phase:       s.Phase,
		Outcome:     s.Outcome,
	}
	s.History.Append(rec)
	return rec
}
