// internal/council/orchestrator/service.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-council/internal/common/notify"
	memberregistry "ai-council/internal/council/member-registry"
	searchaugmenter "ai-council/internal/council/search-augmenter"
	"ai-council/internal/council/synthesizer"
	"ai-council/internal/models"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
)

var (
	ErrUnknownMember    = errors.New("UNKNOWN_MEMBER")
	ErrMemberFailed     = errors.New("MEMBER_FAILED")
	ErrAllMembersFailed = errors.New("ALL_MEMBERS_FAILED")
)

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Orchestrator runs the chat, council and consensus lifecycles against the
// registry. It holds no per-request state.
type Orchestrator struct {
	config      *Config
	registry    *memberregistry.Registry
	completer   Completer
	augmenter   Augmenter
	synthesizer Synthesizer
	notifier    notify.Notifier
	logger      Logger
}

// NewOrchestrator wires the collaborators. augmenter may be nil, in which
// case search requests are served without augmentation. notifier may be nil.
func NewOrchestrator(
	config *Config,
	registry *memberregistry.Registry,
	completer Completer,
	augmenter Augmenter,
	synth Synthesizer,
	notifier notify.Notifier,
	log Logger,
) *Orchestrator {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Orchestrator{
		config:      config,
		registry:    registry,
		completer:   completer,
		augmenter:   augmenter,
		synthesizer: synth,
		notifier:    notifier,
		logger:      log,
	}
}

// MemberCount is the number of registered members.
func (o *Orchestrator) MemberCount() int {
	return o.registry.Len()
}

// Chat asks a single member. An unknown id is rejected before any backend
// call. A member failure returns the failure-tagged response together with
// an error wrapping ErrMemberFailed.
func (o *Orchestrator) Chat(ctx context.Context, memberID, message string, useSearch bool) (models.MemberResponse, error) {
	requestID := o.requestID(ctx)
	o.transition(requestID, StateReceived, map[string]interface{}{"endpoint": "chat", "member": memberID})

	member, ok := o.registry.Lookup(memberID)
	if !ok {
		o.transition(requestID, StateRejected, map[string]interface{}{"member": memberID})
		return models.MemberResponse{}, fmt.Errorf("%w: %s", ErrUnknownMember, memberID)
	}

	callCtx := context.WithoutCancel(ctx)
	prompt := member.Persona
	if useSearch {
		o.transition(requestID, StateAugmenting, nil)
		prompt += o.searchBlock(callCtx, message)
	}

	resp := o.ask(callCtx, member, prompt, message)
	o.transition(requestID, StateDone, map[string]interface{}{"ok": resp.Succeeded()})

	if !resp.Succeeded() {
		return resp, fmt.Errorf("%w: %s", ErrMemberFailed, resp.Failure.Error())
	}
	return resp, nil
}

// Council asks every member and returns one entry per member in registry
// order. It never fails as a whole; synthesis problems only set
// ConsensusError.
func (o *Orchestrator) Council(ctx context.Context, message string, useSearch, synthesize bool) models.CouncilResult {
	requestID := o.requestID(ctx)
	o.transition(requestID, StateReceived, map[string]interface{}{
		"endpoint":   "council",
		"useSearch":  useSearch,
		"synthesize": synthesize,
	})

	callCtx := context.WithoutCancel(ctx)
	result := models.CouncilResult{
		Question:  message,
		Responses: o.fanOut(callCtx, requestID, message, useSearch),
	}

	if !synthesize {
		o.transition(requestID, StateDone, nil)
		return result
	}

	successes := result.Successes()
	if len(successes) == 0 {
		result.ConsensusError = true
		o.transition(requestID, StateAllFailed, nil)
		return result
	}

	o.transition(requestID, StateSynthesizing, map[string]interface{}{"basedOn": len(successes)})
	consensus, err := o.synthesizer.Synthesize(callCtx, message, successes)
	if err != nil {
		result.ConsensusError = true
	} else {
		result.Consensus = &consensus
	}

	o.transition(requestID, StateDone, map[string]interface{}{"consensusError": result.ConsensusError})
	return result
}

// Consensus asks every member and returns only the synthesized answer. It
// fails with ErrAllMembersFailed when nobody answered; a failed synthesis
// falls back to the concatenated transcript.
func (o *Orchestrator) Consensus(ctx context.Context, message string, useSearch bool) (models.ConsensusResult, error) {
	requestID := o.requestID(ctx)
	o.transition(requestID, StateReceived, map[string]interface{}{
		"endpoint":  "consensus",
		"useSearch": useSearch,
	})

	callCtx := context.WithoutCancel(ctx)
	responses := o.fanOut(callCtx, requestID, message, useSearch)
	successes := models.Successes(responses)

	if len(successes) == 0 {
		o.transition(requestID, StateAllFailed, nil)
		o.reportOutage(callCtx, requestID, message, responses)
		return models.ConsensusResult{}, fmt.Errorf("%w: %d member(s) tried", ErrAllMembersFailed, len(responses))
	}

	o.transition(requestID, StateSynthesizing, map[string]interface{}{"basedOn": len(successes)})
	result := models.ConsensusResult{
		Question: message,
		BasedOn:  len(successes),
	}

	consensus, err := o.synthesizer.Synthesize(callCtx, message, successes)
	if err != nil {
		result.Consensus = synthesizer.Fallback(successes)
		result.Fallback = true
	} else {
		result.Consensus = consensus
	}

	o.transition(requestID, StateDone, map[string]interface{}{"fallback": result.Fallback})
	return result, nil
}

// fanOut issues one call per member concurrently and joins all of them.
// Responses land at their registry index regardless of completion order.
func (o *Orchestrator) fanOut(ctx context.Context, requestID, message string, useSearch bool) []models.MemberResponse {
	members := o.registry.Members()

	var shared string
	if useSearch && o.config.SharedSearch {
		o.transition(requestID, StateAugmenting, map[string]interface{}{"shared": true})
		shared = o.searchBlock(ctx, message)
	}

	o.transition(requestID, StateFanningOut, map[string]interface{}{"members": len(members)})
	start := time.Now()

	responses := iter.Mapper[memberregistry.Member, models.MemberResponse]{
		MaxGoroutines: len(members),
	}.Map(members, func(m *memberregistry.Member) models.MemberResponse {
		prompt := m.Persona
		if useSearch {
			if o.config.SharedSearch {
				prompt += shared
			} else {
				prompt += o.searchBlock(ctx, message)
			}
		}
		return o.ask(ctx, *m, prompt, message)
	})

	o.transition(requestID, StateAggregated, map[string]interface{}{
		"successes":  len(models.Successes(responses)),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return responses
}

func (o *Orchestrator) ask(ctx context.Context, member memberregistry.Member, systemPrompt, message string) models.MemberResponse {
	result := o.completer.Complete(ctx, member, systemPrompt, message, member.Temperature)
	return models.MemberResponse{
		MemberID:    member.ID,
		DisplayName: member.DisplayName,
		Text:        result.Text,
		Failure:     result.Failure,
	}
}

func (o *Orchestrator) searchBlock(ctx context.Context, query string) string {
	if o.augmenter == nil {
		return ""
	}
	return searchaugmenter.FormatBlock(o.augmenter.Augment(ctx, query))
}

func (o *Orchestrator) reportOutage(ctx context.Context, requestID, message string, responses []models.MemberResponse) {
	failures := make(map[string]string, len(responses))
	for _, r := range responses {
		if r.Failure != nil {
			failures[r.MemberID] = r.Failure.Error()
		}
	}

	o.logger.Warn("no council member responded", map[string]interface{}{
		"requestId": requestID,
		"failures":  failures,
	})

	if o.config.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.NotifyTimeout)
		defer cancel()
	}
	o.notifier.NotifyOutage(ctx, notify.Outage{
		RequestID: requestID,
		Question:  message,
		Failures:  failures,
		At:        time.Now().UTC(),
	})
}

func (o *Orchestrator) requestID(ctx context.Context) string {
	if id := RequestIDFrom(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

func (o *Orchestrator) transition(requestID string, state State, fields map[string]interface{}) {
	f := map[string]interface{}{
		"requestId": requestID,
		"state":     string(state),
	}
	for k, v := range fields {
		f[k] = v
	}
	o.logger.Debug("request state", f)
}
