// Package narrative produces the summary/comparison/suggestions bundle of a
// monthly report. It asks the external generative service when one is
// configured and falls back to deterministic text rules otherwise; callers
// always get a complete narrative and never an error.
package narrative

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-couple-reports/internal/analytics"
	"github.com/tbourn/go-couple-reports/internal/domain"
	"github.com/tbourn/go-couple-reports/internal/genai"
)

// DefaultTimeout bounds one external generation call.
const DefaultTimeout = 12 * time.Second

// Input is everything a narrative is built from.
type Input struct {
	UserID   string
	Month    time.Time
	Location *time.Location
	Current  analytics.MonthlyMetrics

	// Prior-month stats; both nil or empty means no prior data.
	PriorEmotionStats map[string]int
	PriorTriggerStats map[string]int
}

// HasPrior reports whether the prior month carried any counted data.
func (in Input) HasPrior() bool {
	return anyPositive(in.PriorEmotionStats) || anyPositive(in.PriorTriggerStats)
}

// Result is a normalized narrative plus how it was produced.
type Result struct {
	Narrative domain.Narrative
	Source    string // domain.NarrativeSource*

	// Failure is the error kind that forced the fallback, empty otherwise.
	Failure string
}

// Generator builds narratives. A nil client means fallback only.
type Generator struct {
	client  genai.Client
	timeout time.Duration
}

// Option customizes a Generator.
type Option func(*Generator)

// WithTimeout overrides the per-call timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New returns a Generator using client for external generation.
func New(client genai.Client, opts ...Option) *Generator {
	g := &Generator{client: client, timeout: DefaultTimeout}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate returns the narrative for in. Any external failure (timeout,
// quota, malformed output) is logged and replaced by Fallback.
func (g *Generator) Generate(ctx context.Context, in Input) Result {
	ctx, span := otel.Tracer("narrative").Start(ctx, "Generator.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", in.UserID))

	res := g.generate(ctx, in)
	narrativeTotal.WithLabelValues(res.Source).Inc()
	span.SetAttributes(attribute.String("narrative.source", res.Source))
	return res
}

func (g *Generator) generate(ctx context.Context, in Input) Result {
	if g == nil || g.client == nil {
		return Result{Narrative: Fallback(in), Source: domain.NarrativeSourceFallback}
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.client.Generate(cctx, BuildPrompt(in))
	narrativeLatency.Observe(time.Since(start).Seconds())

	var parsed Parsed
	if err == nil {
		parsed, err = Parse(text)
	}
	if err != nil {
		kind := genai.KindOf(err)
		narrativeFailures.WithLabelValues(kind.String()).Inc()
		log.Warn().
			Str("component", "narrative").
			Str("user_id", in.UserID).
			Str("month", in.Month.Format("2006-01")).
			Str("kind", kind.String()).
			Err(err).
			Msg("external narrative failed; using fallback")
		return Result{Narrative: Fallback(in), Source: domain.NarrativeSourceFallback, Failure: kind.String()}
	}

	n, source := Normalize(parsed, in)
	return Result{Narrative: n, Source: source}
}

func anyPositive(m map[string]int) bool {
	for _, n := range m {
		if n > 0 {
			return true
		}
	}
	return false
}
