package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"blackjack/internal/domain"
	"blackjack/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
)

type oracleFunc func(ctx context.Context, p ports.Prompt) (string, error)

func (f oracleFunc) Complete(ctx context.Context, p ports.Prompt) (string, error) {
	return f(ctx, p)
}

func replying(text string) oracleFunc {
	return func(context.Context, ports.Prompt) (string, error) { return text, nil }
}

var (
	playerTwelve   = domain.Hand{card(domain.Rank(7), domain.Clubs), card(domain.Rank(5), domain.Diamonds)}
	dealerFifteen  = domain.Hand{card(domain.Rank(9), domain.Spades), card(domain.Rank(6), domain.Hearts)}
	dealerEighteen = domain.Hand{card(domain.King, domain.Spades), card(domain.Rank(8), domain.Hearts)}
)

func newTestGateway(t *testing.T, oracle ports.OraclePort, opts Options) *Gateway {
	t.Helper()
	opts.Logger = zaptest.NewLogger(t)
	return NewGateway(oracle, opts)
}

func TestConsultFallsBackToHouseRule(t *testing.T) {
	failing := oracleFunc(func(context.Context, ports.Prompt) (string, error) {
		return "", errors.New("connection refused")
	})
	g := newTestGateway(t, failing, Options{})

	tests := []struct {
		name   string
		dealer domain.Hand
		want   Decision
	}{
		{"dealer fifteen", dealerFifteen, DecisionContinue},
		{"dealer eighteen", dealerEighteen, DecisionStop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Consult(context.Background(), playerTwelve, tt.dealer)
			assert.Equal(t, tt.want, got.Decision)
			assert.NotEmpty(t, got.Narrative)
			assert.True(t, got.Fallback)
			assert.Equal(t, ReasonTransport, got.Reason)
		})
	}
}

func TestConsultWithoutOracle(t *testing.T) {
	g := newTestGateway(t, nil, Options{})
	got := g.Consult(context.Background(), playerTwelve, dealerFifteen)
	assert.Equal(t, DecisionContinue, got.Decision)
	assert.Equal(t, ReasonDisabled, got.Reason)
	assert.NotEmpty(t, got.Narrative)
}

func TestConsultStructuredReplies(t *testing.T) {
	tests := []struct {
		name          string
		reply         string
		wantDecision  Decision
		wantNarrative string
		wantReason    string
	}{
		{
			name:          "bare json",
			reply:         `{"narrative":"Feeling lucky.","decision":"hit"}`,
			wantDecision:  DecisionContinue,
			wantNarrative: "Feeling lucky.",
		},
		{
			name:          "fenced json",
			reply:         "```json\n{\"narrative\":\"I hold.\",\"decision\":\"stop\"}\n```",
			wantDecision:  DecisionStop,
			wantNarrative: "I hold.",
		},
		{
			name:          "embedded json",
			reply:         `Sure thing! {"reason":"One more.","action":"Continue"} Good luck.`,
			wantDecision:  DecisionContinue,
			wantNarrative: "One more.",
		},
		{
			name:          "oracle overrides house rule",
			reply:         `{"narrative":"Holding at fifteen.","decision":"stop"}`,
			wantDecision:  DecisionStop,
			wantNarrative: "Holding at fifteen.",
		},
		{
			name:          "missing decision uses house rule",
			reply:         `{"narrative":"Hmm."}`,
			wantDecision:  DecisionContinue,
			wantNarrative: "Hmm.",
			wantReason:    ReasonNoDecision,
		},
		{
			name:          "unstructured text keeps narrative",
			reply:         "The dealer smiles and taps the felt.",
			wantDecision:  DecisionContinue,
			wantNarrative: "The dealer smiles and taps the felt.",
			wantReason:    ReasonUnstructured,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, replying(tt.reply), Options{})
			got := g.Consult(context.Background(), playerTwelve, dealerFifteen)
			assert.Equal(t, tt.wantDecision, got.Decision)
			assert.Equal(t, tt.wantNarrative, got.Narrative)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.False(t, got.Fallback)
		})
	}
}

func TestConsultEmptyNarrativeIsFilled(t *testing.T) {
	g := newTestGateway(t, replying(`{"decision":"stop"}`), Options{})
	got := g.Consult(context.Background(), playerTwelve, dealerFifteen)
	assert.Equal(t, DecisionStop, got.Decision)
	assert.Equal(t, "The dealer sits on 15 and stands.", got.Narrative)
	assert.NotContains(t, got.Narrative, "house rule")
	assert.Empty(t, got.Reason)
}

func TestConsultClipsLongNarrative(t *testing.T) {
	long := strings.Repeat("x", maxNarrativeRunes*2)
	g := newTestGateway(t, replying(long), Options{})
	got := g.Consult(context.Background(), playerTwelve, dealerFifteen)
	assert.Equal(t, maxNarrativeRunes+1, len([]rune(got.Narrative)))
}

func TestConsultTimeout(t *testing.T) {
	stuck := oracleFunc(func(ctx context.Context, _ ports.Prompt) (string, error) {
		time.Sleep(2 * time.Second)
		return `{"narrative":"late","decision":"hit"}`, nil
	})
	g := newTestGateway(t, stuck, Options{Timeout: 30 * time.Millisecond})

	start := time.Now()
	got := g.Consult(context.Background(), playerTwelve, dealerEighteen)
	require.Less(t, time.Since(start), time.Second)
	assert.Equal(t, DecisionStop, got.Decision)
	assert.Equal(t, ReasonTimeout, got.Reason)
	assert.True(t, got.Fallback)
}

func TestConsultRecoversOraclePanic(t *testing.T) {
	boom := oracleFunc(func(context.Context, ports.Prompt) (string, error) {
		panic("adapter bug")
	})
	g := newTestGateway(t, boom, Options{})
	got := g.Consult(context.Background(), playerTwelve, dealerFifteen)
	assert.Equal(t, DecisionContinue, got.Decision)
	assert.Equal(t, ReasonPanic, got.Reason)
}

func TestConsultEmptyReply(t *testing.T) {
	g := newTestGateway(t, replying("   "), Options{})
	got := g.Consult(context.Background(), playerTwelve, dealerEighteen)
	assert.Equal(t, DecisionStop, got.Decision)
	assert.Equal(t, ReasonEmpty, got.Reason)
}

func TestConsultRateLimited(t *testing.T) {
	calls := 0
	counting := oracleFunc(func(context.Context, ports.Prompt) (string, error) {
		calls++
		return `{"narrative":"n","decision":"hit"}`, nil
	})
	g := newTestGateway(t, counting, Options{Limiter: rate.NewLimiter(0, 0)})
	got := g.Consult(context.Background(), playerTwelve, dealerEighteen)
	assert.Equal(t, DecisionStop, got.Decision)
	assert.Equal(t, ReasonRateLimited, got.Reason)
	assert.Zero(t, calls)
}

func TestConsultFinal(t *testing.T) {
	player := domain.Hand{card(domain.Rank(7), domain.Clubs), card(domain.Rank(5), domain.Diamonds), card(domain.Rank(10), domain.Clubs)}
	dealer := domain.Hand{card(domain.Rank(9), domain.Spades), card(domain.Rank(8), domain.Hearts)}

	t.Run("fallback summary", func(t *testing.T) {
		g := newTestGateway(t, nil, Options{})
		got := g.ConsultFinal(context.Background(), player, dealer, domain.OutcomePlayerBust)
		assert.Contains(t, got, "22")
	})
	t.Run("structured", func(t *testing.T) {
		g := newTestGateway(t, replying(`{"narrative":"Tough luck, friend."}`), Options{})
		got := g.ConsultFinal(context.Background(), player, dealer, domain.OutcomePlayerBust)
		assert.Equal(t, "Tough luck, friend.", got)
	})
	t.Run("plain text", func(t *testing.T) {
		g := newTestGateway(t, replying("House wins this one."), Options{})
		got := g.ConsultFinal(context.Background(), player, dealer, domain.OutcomePlayerBust)
		assert.Equal(t, "House wins this one.", got)
	})
}

func TestConsultPromptDescribesBothHands(t *testing.T) {
	var seen ports.Prompt
	capture := oracleFunc(func(_ context.Context, p ports.Prompt) (string, error) {
		seen = p
		return `{"narrative":"ok","decision":"stop"}`, nil
	})
	g := newTestGateway(t, capture, Options{})
	g.Consult(context.Background(), playerTwelve, dealerFifteen)

	assert.Contains(t, seen.User, "7♣ 5♦ (value 12)")
	assert.Contains(t, seen.User, "9♠ 6♥ (value 15)")
	assert.NotEmpty(t, seen.System)
}
