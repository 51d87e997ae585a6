package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"blackjack/internal/advisor"
	"blackjack/internal/config"
	"blackjack/internal/domain"
	"blackjack/internal/metrics"
	"blackjack/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Advisor supplies dealer narrative and decisions.
type Advisor interface {
	Consult(ctx context.Context, player, dealer domain.Hand) advisor.Advice
	ConsultFinal(ctx context.Context, player, dealer domain.Hand, outcome domain.Outcome) string
}

// Service runs blackjack sessions held in a store.
type Service struct {
	store   *store.Store
	advisor Advisor
	cfg     *config.EngineConfig
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
	newDeck func() *domain.Deck

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option customizes a Service.
type Option func(*Service)

// WithRand sets the random source used for shuffles and variable deals.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDSource sets the session id generator.
func WithIDSource(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithDeckSource replaces the shuffled deck given to new sessions, e.g. with
// a stacked deck for replays.
func WithDeckSource(next func() *domain.Deck) Option {
	return func(s *Service) {
		if next != nil {
			s.newDeck = next
		}
	}
}

// NewService constructs a Service. cfg may be nil to use the defaults and
// adv may be nil to answer every consultation with the house rule.
func NewService(st *store.Store, adv Advisor, cfg *config.EngineConfig, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if adv == nil {
		adv = advisor.NewGateway(nil, advisor.Options{})
	}
	s := &Service{
		store:   st,
		advisor: adv,
		cfg:     cfg,
		logger:  zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newDeck == nil {
		s.newDeck = func() *domain.Deck {
			s.rngMu.Lock()
			defer s.rngMu.Unlock()
			return domain.NewShuffledDeck(s.rng)
		}
	}
	return s
}

// Start creates a session of the given variant and performs the opening deal.
// An empty variant selects the configured default.
func (s *Service) Start(ctx context.Context, variant string) (Snapshot, error) {
	v, ok := s.cfg.Variant(variant)
	if !ok {
		metrics.RecordAction(string(ActionStart), ConditionUnknownVariant)
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	sess := domain.NewSession(s.newID(), v.ID, v.ActionCap, v.HistoryLimit, s.newDeck(), s.now())
	if err := s.store.Create(sess); err != nil {
		metrics.RecordAction(string(ActionStart), ConditionOf(err))
		return Snapshot{}, err
	}

	var snap Snapshot
	err := s.store.Update(ctx, sess.ID, func(sess *domain.Session) error {
		if err := s.openingDeal(ctx, sess, v); err != nil {
			return err
		}
		sess.Record(string(ActionStart), s.now())
		snap = snapshotOf(sess, "")
		return nil
	})
	metrics.RecordAction(string(ActionStart), ConditionOf(err))
	if err != nil {
		s.store.Delete(sess.ID)
		return Snapshot{}, err
	}
	s.logger.Info("session started",
		zap.String("session_id", snap.SessionID),
		zap.String("variant", snap.Variant),
		zap.String("phase", string(snap.Phase)),
	)
	return snap, nil
}

// openingDeal deals the variant's opening hands. It fails with
// ErrDeckExhausted when the deck cannot cover the deal.
func (s *Service) openingDeal(ctx context.Context, sess *domain.Session, v config.Variant) error {
	now := s.now()
	playerCards, dealerCards := s.dealCount(v), s.dealCount(v)
	for len(sess.Player) < playerCards || len(sess.Dealer) < dealerCards {
		if len(sess.Player) < playerCards {
			if _, ok := sess.DealPlayer(now); !ok {
				return fmt.Errorf("%w: opening deal needs %d cards", ErrDeckExhausted, playerCards+dealerCards)
			}
		}
		if len(sess.Dealer) < dealerCards {
			if _, ok := sess.DealDealer(now); !ok {
				return fmt.Errorf("%w: opening deal needs %d cards", ErrDeckExhausted, playerCards+dealerCards)
			}
		}
	}

	p, d := sess.Player.Value(), sess.Dealer.Value()
	if p >= domain.BlackjackValue || d >= domain.BlackjackValue {
		s.finish(ctx, sess, domain.Resolve(p, d))
		return nil
	}
	s.narrate(ctx, sess)
	return nil
}

func (s *Service) dealCount(v config.Variant) int {
	if v.DealMax <= v.DealMin {
		return v.DealMin
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return v.DealMin + s.rng.Intn(v.DealMax-v.DealMin+1)
}

// Act applies hit, stand or end to an existing session.
func (s *Service) Act(ctx context.Context, id, action string) (Snapshot, error) {
	a, err := ParseAction(action)
	if err != nil {
		metrics.RecordAction("unknown", ConditionInvalidAction)
		return Snapshot{}, err
	}

	var snap Snapshot
	err = s.store.Update(ctx, id, func(sess *domain.Session) error {
		if a == ActionEnd && sess.Finished() {
			snap = snapshotOf(sess, msgAlreadyOver)
			return nil
		}
		if sess.Finished() {
			return ErrSessionFinished
		}
		if sess.LimitReached() {
			return ErrLimitExceeded
		}

		var message string
		switch a {
		case ActionHit:
			if sess.Deck.Empty() {
				return ErrDeckExhausted
			}
			s.hit(ctx, sess)
		case ActionStand:
			if s.stand(ctx, sess) {
				message = msgDealerStepped
			}
		case ActionEnd:
			if sess.Deck.Empty() {
				return ErrDeckExhausted
			}
			s.end(ctx, sess)
		}
		sess.Record(string(a), s.now())
		snap = snapshotOf(sess, message)
		return nil
	})
	metrics.RecordAction(string(a), ConditionOf(err))
	if err != nil {
		s.logger.Debug("action rejected",
			zap.String("session_id", id),
			zap.String("action", string(a)),
			zap.Error(err),
		)
		return Snapshot{}, err
	}
	if snap.Phase == domain.PhaseTerminal {
		s.logger.Info("session finished",
			zap.String("session_id", id),
			zap.String("action", string(a)),
			zap.String("outcome", string(snap.Outcome)),
		)
	}
	return snap, nil
}

func (s *Service) hit(ctx context.Context, sess *domain.Session) {
	sess.DealPlayer(s.now())
	switch v := sess.Player.Value(); {
	case v > domain.BlackjackValue:
		s.finish(ctx, sess, domain.OutcomePlayerBust)
	case v == domain.BlackjackValue:
		s.dealerPlay(ctx, sess)
	default:
		s.narrate(ctx, sess)
	}
}

// dealerPlay draws for the dealer while below 17, narrating each card, then
// settles the hand.
func (s *Service) dealerPlay(ctx context.Context, sess *domain.Session) {
	for sess.Dealer.BelowDealerStand() {
		if _, ok := sess.DealDealer(s.now()); !ok {
			break
		}
		s.narrate(ctx, sess)
	}
	if sess.Dealer.IsBust() {
		s.finish(ctx, sess, domain.OutcomeDealerBust)
		return
	}
	s.finish(ctx, sess, domain.Resolve(sess.Player.Value(), sess.Dealer.Value()))
}

// stand asks the advisor whether the dealer draws. It reports true when the
// dealer took a card and the hand is still open.
func (s *Service) stand(ctx context.Context, sess *domain.Session) bool {
	advice := s.advisor.Consult(ctx, sess.Player, sess.Dealer)
	sess.Narrative = advice.Narrative
	sess.Decision = string(advice.Decision)

	if advice.Decision == advisor.DecisionContinue && !sess.Deck.Empty() {
		sess.DealDealer(s.now())
		if sess.Dealer.IsBust() {
			s.finish(ctx, sess, domain.OutcomeDealerBust)
			sess.Decision = string(advice.Decision)
			return false
		}
		return true
	}
	s.finish(ctx, sess, domain.Resolve(sess.Player.Value(), sess.Dealer.Value()))
	sess.Decision = string(advice.Decision)
	return false
}

// end forces termination, letting the advisor take one last dealer card and
// settling by distance from 21.
func (s *Service) end(ctx context.Context, sess *domain.Session) {
	advice := s.advisor.Consult(ctx, sess.Player, sess.Dealer)
	if advice.Decision == advisor.DecisionContinue && !sess.Deck.Empty() {
		sess.DealDealer(s.now())
	}
	s.finish(ctx, sess, domain.ResolveClosest(sess.Player.Value(), sess.Dealer.Value()))
	sess.Decision = string(advice.Decision)
}

// narrate refreshes the narrative without exposing a decision.
func (s *Service) narrate(ctx context.Context, sess *domain.Session) {
	advice := s.advisor.Consult(ctx, sess.Player, sess.Dealer)
	sess.Narrative = advice.Narrative
	sess.Decision = ""
}

func (s *Service) finish(ctx context.Context, sess *domain.Session, outcome domain.Outcome) {
	sess.Finish(outcome, s.now())
	sess.Narrative = s.advisor.ConsultFinal(ctx, sess.Player, sess.Dealer, outcome)
	sess.Decision = ""
}

// Peek returns a summary of the session without counting as activity.
func (s *Service) Peek(id string) (StatusSummary, error) {
	var sum StatusSummary
	err := s.store.View(context.Background(), id, func(sess *domain.Session) {
		sum = StatusSummary{
			SessionID:        sess.ID,
			Phase:            sess.Phase,
			Outcome:          sess.Outcome,
			RemainingActions: sess.RemainingActions(),
			LastActivity:     sess.LastActivity,
			ExpiresAt:        s.store.ExpiresAt(sess),
		}
	})
	return sum, err
}

// History returns the retained action records, oldest first.
func (s *Service) History(id string) ([]domain.ActionRecord, error) {
	var out []domain.ActionRecord
	err := s.store.View(context.Background(), id, func(sess *domain.Session) {
		out = sess.History.Records()
	})
	return out, err
}
