// internal/council/orchestrator/models.go
package orchestrator

import (
	"context"

	memberclient "ai-council/internal/council/member-client"
	memberregistry "ai-council/internal/council/member-registry"
	"ai-council/internal/models"
)

// State is a step of the per-request lifecycle.
type State string

const (
	StateReceived     State = "received"
	StateRejected     State = "rejected"
	StateAugmenting   State = "augmenting"
	StateFanningOut   State = "fanning_out"
	StateAggregated   State = "aggregated"
	StateSynthesizing State = "synthesizing"
	StateAllFailed    State = "all_failed"
	StateDone         State = "done"
)

type Completer interface {
	Complete(ctx context.Context, member memberregistry.Member, systemPrompt, userMessage string, temperature float64) memberclient.Result
}

type Augmenter interface {
	Augment(ctx context.Context, query string) []models.SearchResult
}

type Synthesizer interface {
	Synthesize(ctx context.Context, question string, successes []models.MemberResponse) (string, error)
}

type requestIDKey struct{}

// WithRequestID attaches an id used to correlate lifecycle logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
