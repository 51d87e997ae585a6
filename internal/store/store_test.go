package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"blackjack/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts Options) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	if opts.TTL == 0 {
		opts.TTL = 10 * time.Minute
	}
	if opts.FinishedGrace == 0 {
		opts.FinishedGrace = 30 * time.Second
	}
	opts.Logger = zaptest.NewLogger(t)
	return New(opts).WithClock(clock.Now), clock
}

func newSession(id string, actionCap int, now time.Time) *domain.Session {
	return domain.NewSession(id, "classic", actionCap, actionCap, domain.NewStackedDeck(domain.NewDeck()...), now)
}

func TestCreateAndUpdate(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	require.NoError(t, s.Create(newSession("a", 5, clock.Now())))
	assert.ErrorIs(t, s.Create(newSession("a", 5, clock.Now())), ErrDuplicate)

	err := s.Update(context.Background(), "a", func(sess *domain.Session) error {
		sess.DealPlayer(clock.Now())
		return nil
	})
	require.NoError(t, err)

	var cards int
	require.NoError(t, s.View(context.Background(), "a", func(sess *domain.Session) {
		cards = len(sess.Player)
	}))
	assert.Equal(t, 1, cards)
	assert.Equal(t, 1, s.Len())
}

func TestUpdateUnknownSession(t *testing.T) {
	s, _ := newTestStore(t, Options{})
	err := s.Update(context.Background(), "missing", func(*domain.Session) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePassesCallbackError(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	require.NoError(t, s.Create(newSession("a", 5, clock.Now())))
	boom := errors.New("boom")
	err := s.Update(context.Background(), "a", func(*domain.Session) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestUpdateCancelledContext(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	require.NoError(t, s.Create(newSession("a", 5, clock.Now())))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Update(ctx, "a", func(*domain.Session) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCreateRespectsCapacity(t *testing.T) {
	s, clock := newTestStore(t, Options{MaxSessions: 2})
	require.NoError(t, s.Create(newSession("a", 5, clock.Now())))
	require.NoError(t, s.Create(newSession("b", 5, clock.Now())))
	assert.ErrorIs(t, s.Create(newSession("c", 5, clock.Now())), ErrFull)

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.NoError(t, s.Create(newSession("c", 5, clock.Now())))
}

func TestIdleSessionIsHiddenInline(t *testing.T) {
	s, clock := newTestStore(t, Options{TTL: time.Minute})
	require.NoError(t, s.Create(newSession("a", 5, clock.Now())))

	clock.Advance(59 * time.Second)
	require.NoError(t, s.View(context.Background(), "a", func(*domain.Session) {}))

	clock.Advance(2 * time.Second)
	err := s.View(context.Background(), "a", func(*domain.Session) {})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestFinishedSessionReadableDuringGrace(t *testing.T) {
	s, clock := newTestStore(t, Options{FinishedGrace: 30 * time.Second})
	require.NoError(t, s.Create(newSession("a", 5, clock.Now())))
	require.NoError(t, s.Update(context.Background(), "a", func(sess *domain.Session) error {
		sess.Finish(domain.OutcomePush, clock.Now())
		return nil
	}))

	clock.Advance(10 * time.Second)
	assert.Zero(t, s.Sweep())
	require.NoError(t, s.View(context.Background(), "a", func(*domain.Session) {}))

	clock.Advance(25 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.ErrorIs(t, s.View(context.Background(), "a", func(*domain.Session) {}), ErrNotFound)
}

func TestSweepEvictsCappedSessions(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	require.NoError(t, s.Create(newSession("capped", 1, clock.Now())))
	require.NoError(t, s.Create(newSession("live", 5, clock.Now())))
	require.NoError(t, s.Update(context.Background(), "capped", func(sess *domain.Session) error {
		sess.Record("start", clock.Now())
		return nil
	}))

	// Still readable until the sweep runs.
	require.NoError(t, s.View(context.Background(), "capped", func(sess *domain.Session) {
		assert.True(t, sess.LimitReached())
	}))

	assert.Equal(t, 1, s.Sweep())
	assert.ErrorIs(t, s.View(context.Background(), "capped", func(*domain.Session) {}), ErrNotFound)
	assert.NoError(t, s.View(context.Background(), "live", func(*domain.Session) {}))
}

func TestSweepSkipsBusySessions(t *testing.T) {
	s, clock := newTestStore(t, Options{TTL: time.Minute})
	require.NoError(t, s.Create(newSession("a", 5, clock.Now())))

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Update(context.Background(), "a", func(sess *domain.Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	clock.Advance(2 * time.Minute)
	assert.Zero(t, s.Sweep(), "busy session must not be evicted")
	assert.Equal(t, 1, s.Len())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, s.Sweep())
	assert.Zero(t, s.Len())
}

func TestWaiterAfterEvictionSeesNotFound(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	require.NoError(t, s.Create(newSession("a", 5, clock.Now())))

	entered := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- s.Update(context.Background(), "a", func(sess *domain.Session) error {
			close(entered)
			<-release
			sess.Finish(domain.OutcomePush, clock.Now())
			return nil
		})
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		second <- s.Update(context.Background(), "a", func(*domain.Session) error { return nil })
	}()

	clock.Advance(time.Minute)
	close(release)
	require.NoError(t, <-first)
	assert.ErrorIs(t, <-second, ErrNotFound)
}

func TestSameSessionUpdatesSerialize(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	require.NoError(t, s.Create(newSession("a", 1000, clock.Now())))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(context.Background(), "a", func(sess *domain.Session) error {
				sess.Record("hit", clock.Now())
				return nil
			})
		}()
	}
	wg.Wait()

	require.NoError(t, s.View(context.Background(), "a", func(sess *domain.Session) {
		assert.Equal(t, 50, sess.Actions)
	}))
}

func TestExpiresAt(t *testing.T) {
	s, clock := newTestStore(t, Options{TTL: time.Minute, FinishedGrace: 5 * time.Second})
	sess := newSession("a", 5, clock.Now())
	assert.Equal(t, clock.Now().Add(time.Minute), s.ExpiresAt(sess))

	sess.Finish(domain.OutcomePush, clock.Now())
	assert.Equal(t, clock.Now().Add(5*time.Second), s.ExpiresAt(sess))
}

func TestStartStop(t *testing.T) {
	s, _ := newTestStore(t, Options{SweepInterval: time.Hour})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
}

func TestManySessions(t *testing.T) {
	s, clock := newTestStore(t, Options{})
	for i := 0; i < 100; i++ {
		require.NoError(t, s.Create(newSession(fmt.Sprintf("s-%d", i), 5, clock.Now())))
	}
	clock.Advance(11 * time.Minute)
	assert.Equal(t, 100, s.Sweep())
}
