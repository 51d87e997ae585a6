package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blackjack/internal/domain"
	"blackjack/internal/metrics"
	"blackjack/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	kindConsult = "consult"
	kindFinal   = "final"

	defaultTimeout = 8 * time.Second
)

// Fallback reasons reported in Advice.Reason.
const (
	ReasonDisabled     = "oracle_disabled"
	ReasonRateLimited  = "rate_limited"
	ReasonTimeout      = "timeout"
	ReasonTransport    = "transport_error"
	ReasonEmpty        = "empty_reply"
	ReasonPanic        = "oracle_panic"
	ReasonUnstructured = "unstructured_reply"
	ReasonNoDecision   = "missing_decision"
)

// Advice is the advisor's answer for an in-progress table.
type Advice struct {
	Narrative string
	Decision  Decision
	// Fallback is true when the oracle was not usable and the house rule answered.
	Fallback bool
	// Reason explains any degradation; empty when the oracle answered fully.
	Reason string
}

// Options tunes a Gateway.
type Options struct {
	// Timeout bounds every oracle round trip. Zero means 8 seconds.
	Timeout time.Duration
	// Limiter throttles oracle traffic; throttled calls use the house rule.
	Limiter *rate.Limiter
	Logger  *zap.Logger
}

// Gateway consults the decision oracle on behalf of the dealer. It never
// returns an error: any oracle failure degrades to the house rule.
type Gateway struct {
	oracle  ports.OraclePort
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGateway constructs a Gateway. oracle may be nil, in which case every
// consultation is answered by the house rule.
func NewGateway(oracle ports.OraclePort, opts Options) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Gateway{
		oracle:  oracle,
		timeout: opts.Timeout,
		limiter: opts.Limiter,
		logger:  opts.Logger,
	}
}

// Consult asks whether the dealer should take another card and returns the
// dealer's narrative for the current table.
func (g *Gateway) Consult(ctx context.Context, player, dealer domain.Hand) Advice {
	payload, reason := g.ask(ctx, kindConsult, consultPrompt(player, dealer))
	if reason != "" {
		return houseAdvice(dealer, reason)
	}

	parsed, ok := parseReply(payload)
	if !ok {
		g.logger.Debug("oracle reply not structured", zap.String("kind", kindConsult))
		return Advice{
			Narrative: clip(payload),
			Decision:  HouseDecision(dealer),
			Reason:    ReasonUnstructured,
		}
	}

	advice := Advice{Narrative: clip(parsed.Narrative)}
	if parsed.Decision != "" {
		advice.Decision = NormalizeDecision(parsed.Decision)
	} else {
		advice.Decision = HouseDecision(dealer)
		advice.Reason = ReasonNoDecision
	}
	if advice.Narrative == "" {
		advice.Narrative = tableNarrative(dealer, advice.Decision)
	}
	return advice
}

// ConsultFinal returns the dealer's closing narrative for a resolved game.
func (g *Gateway) ConsultFinal(ctx context.Context, player, dealer domain.Hand, outcome domain.Outcome) string {
	payload, reason := g.ask(ctx, kindFinal, finalPrompt(player, dealer, outcome))
	if reason != "" {
		return finalSummary(player, dealer, outcome)
	}
	if parsed, ok := parseReply(payload); ok {
		if parsed.Narrative != "" {
			return clip(parsed.Narrative)
		}
		return finalSummary(player, dealer, outcome)
	}
	return clip(payload)
}

// ask performs one bounded oracle call. It returns the trimmed payload, or a
// non-empty fallback reason.
func (g *Gateway) ask(ctx context.Context, kind string, prompt ports.Prompt) (payload, reason string) {
	if g.oracle == nil {
		metrics.RecordAdvisorCall(kind, ReasonDisabled, 0)
		return "", ReasonDisabled
	}
	if g.limiter != nil && !g.limiter.Allow() {
		g.logger.Warn("oracle throttled, using house rule", zap.String("kind", kind))
		metrics.RecordAdvisorCall(kind, ReasonRateLimited, 0)
		return "", ReasonRateLimited
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.complete(callCtx, prompt)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		reason = ReasonTransport
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		var pe *panicError
		if errors.As(err, &pe) {
			reason = ReasonPanic
		}
		g.logger.Warn("oracle call failed, using house rule",
			zap.String("kind", kind),
			zap.String("reason", reason),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		metrics.RecordAdvisorCall(kind, reason, elapsed)
		return "", reason
	case strings.TrimSpace(text) == "":
		g.logger.Warn("oracle returned empty reply, using house rule", zap.String("kind", kind))
		metrics.RecordAdvisorCall(kind, ReasonEmpty, elapsed)
		return "", ReasonEmpty
	}

	metrics.RecordAdvisorCall(kind, "ok", elapsed)
	return strings.TrimSpace(text), ""
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("oracle panicked: %v", e.value)
}

// complete runs the oracle call on its own goroutine so an adapter that
// ignores ctx or panics cannot hold the session past the deadline.
func (g *Gateway) complete(ctx context.Context, prompt ports.Prompt) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: &panicError{value: r}}
			}
		}()
		text, err := g.oracle.Complete(ctx, prompt)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
