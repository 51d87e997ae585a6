// Package store keeps live blackjack sessions in memory and decides when they
// expire.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"blackjack/internal/domain"
	"blackjack/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("session not found")
	ErrFull      = errors.New("session store full")
	ErrDuplicate = errors.New("session id already in use")
)

// Eviction reasons, also used as metric labels.
const (
	ReasonFinished = "finished"
	ReasonCapped   = "action_cap"
	ReasonIdle     = "idle"
	ReasonDeleted  = "deleted"
)

const (
	defaultTTL           = 10 * time.Minute
	defaultFinishedGrace = 30 * time.Second
	defaultSweepInterval = time.Minute
)

// Options configures a Store. Zero durations use the defaults.
type Options struct {
	TTL           time.Duration
	FinishedGrace time.Duration
	SweepInterval time.Duration
	// MaxSessions bounds the number of live sessions; zero means unbounded.
	MaxSessions int
	Logger      *zap.Logger
}

type entry struct {
	mu      sync.Mutex
	session *domain.Session
	evicted bool
}

// Store maps session ids to sessions. Operations on one id are serialized by
// a per-session lock; different ids proceed in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	ttl      time.Duration
	grace    time.Duration
	interval time.Duration
	max      int

	logger *zap.Logger
	now    func() time.Time

	cronMu sync.Mutex
	cron   *cron.Cron
}

// New constructs an empty Store.
func New(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.FinishedGrace <= 0 {
		opts.FinishedGrace = defaultFinishedGrace
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		entries:  make(map[string]*entry),
		ttl:      opts.TTL,
		grace:    opts.FinishedGrace,
		interval: opts.SweepInterval,
		max:      opts.MaxSessions,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Create registers a new session.
func (s *Store) Create(sess *domain.Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("store: session without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[sess.ID]; ok {
		return ErrDuplicate
	}
	if s.max > 0 && len(s.entries) >= s.max {
		return ErrFull
	}
	s.entries[sess.ID] = &entry{session: sess}
	metrics.SetActiveSessions(len(s.entries))
	return nil
}

// Update runs fn with exclusive access to the session. Expired or evicted
// sessions report ErrNotFound. fn's error is returned unchanged.
func (s *Store) Update(ctx context.Context, id string, fn func(*domain.Session) error) error {
	return s.with(ctx, id, fn)
}

// View runs fn with exclusive access to the session for reading.
func (s *Store) View(ctx context.Context, id string, fn func(*domain.Session)) error {
	return s.with(ctx, id, func(sess *domain.Session) error {
		fn(sess)
		return nil
	})
}

func (s *Store) with(ctx context.Context, id string, fn func(*domain.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.evicted {
		return ErrNotFound
	}
	if reason := s.expiryReason(e.session, s.now()); reason != "" {
		s.evictLocked(id, e, reason)
		return ErrNotFound
	}
	return fn(e.session)
}

// Delete removes a session immediately. It waits for any in-flight action
// on that session to finish.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false
	}
	s.evictLocked(id, e, ReasonDeleted)
	return true
}

// Len returns the number of sessions held, including ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// ExpiresAt returns when sess becomes eligible for eviction if nothing else
// happens to it. Capped sessions are due at the next sweep.
func (s *Store) ExpiresAt(sess *domain.Session) time.Time {
	if sess.Finished() {
		return sess.FinishedAt.Add(s.grace)
	}
	return sess.LastActivity.Add(s.ttl)
}

// expiryReason covers the conditions that hide a session from callers
// immediately. Capped sessions stay readable until the sweep so callers can
// observe the limit.
func (s *Store) expiryReason(sess *domain.Session, now time.Time) string {
	if sess.Finished() {
		if now.Sub(sess.FinishedAt) > s.grace {
			return ReasonFinished
		}
		return ""
	}
	if now.Sub(sess.LastActivity) > s.ttl {
		return ReasonIdle
	}
	return ""
}

func (s *Store) evictReason(sess *domain.Session, now time.Time) string {
	if reason := s.expiryReason(sess, now); reason != "" {
		return reason
	}
	if sess.LimitReached() {
		return ReasonCapped
	}
	return ""
}

// evictLocked removes e from the map. The caller holds e.mu.
func (s *Store) evictLocked(id string, e *entry, reason string) {
	e.evicted = true
	s.mu.Lock()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.RecordEviction(reason)
	metrics.SetActiveSessions(n)
	s.logger.Debug("session evicted", zap.String("session_id", id), zap.String("reason", reason))
}

// Sweep evicts finished, capped and idle sessions and returns how many were
// removed. Sessions busy with an action are skipped until the next sweep.
func (s *Store) Sweep() int {
	now := s.now()
	evicted, skipped := 0, 0

	s.mu.Lock()
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			skipped++
			continue
		}
		if reason := s.evictReason(e.session, now); reason != "" {
			e.evicted = true
			delete(s.entries, id)
			metrics.RecordEviction(reason)
			evicted++
		}
		e.mu.Unlock()
	}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.SetActiveSessions(n)
	if evicted > 0 || skipped > 0 {
		s.logger.Info("session sweep",
			zap.Int("evicted", evicted),
			zap.Int("skipped_busy", skipped),
			zap.Int("active", n),
		)
	}
	return evicted
}

// Start schedules Sweep every SweepInterval. Calling Start twice is a no-op.
func (s *Store) Start() error {
	s.cronMu.Lock()
	defer s.cronMu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() { s.Sweep() }); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the sweeper and waits for a running sweep to finish.
func (s *Store) Stop() {
	s.cronMu.Lock()
	c := s.cron
	s.cron = nil
	s.cronMu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}
