// internal/council/synthesizer/service.go
package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	commonerrors "ai-council/internal/common/errors"
	"ai-council/internal/common/metrics"
	memberclient "ai-council/internal/council/member-client"
	memberregistry "ai-council/internal/council/member-registry"
	"ai-council/internal/models"
)

// SystemPrompt is sent in place of the synthesizer member's persona.
const SystemPrompt = "You are the moderator of an advisory council. Several advisors with different " +
	"perspectives have answered the same question. Integrate the strongest points from their answers, " +
	"reconcile any contradictions between them, and produce one balanced, actionable answer. " +
	"Do not attribute points to individual advisors."

var (
	ErrNothingToSynthesize = errors.New("NOTHING_TO_SYNTHESIZE")
	ErrSynthesisFailed     = errors.New("SYNTHESIS_FAILED")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Completer is the subset of the member client used for the synthesis call.
type Completer interface {
	Complete(ctx context.Context, member memberregistry.Member, systemPrompt, userMessage string, temperature float64) memberclient.Result
}

type Synthesizer struct {
	config    *Config
	member    memberregistry.Member
	completer Completer
	logger    Logger
}

func NewSynthesizer(config *Config, member memberregistry.Member, completer Completer, log Logger) *Synthesizer {
	return &Synthesizer{
		config:    config,
		member:    member,
		completer: completer,
		logger:    log,
	}
}

// Synthesize merges the successful answers into one consensus text. Callers
// must not pass failed responses; an empty slice is rejected without any
// backend call.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, successes []models.MemberResponse) (string, error) {
	if len(successes) == 0 {
		metrics.SynthesisRuns.WithLabelValues("skipped").Inc()
		return "", ErrNothingToSynthesize
	}

	result := s.completer.Complete(ctx, s.member, SystemPrompt, BuildPrompt(question, successes), s.config.Temperature)
	if !result.OK() {
		metrics.SynthesisRuns.WithLabelValues("failed").Inc()
		stdErr := commonerrors.NewSynthesisFailedError(result.Failure.Detail)
		s.logger.Warn("consensus synthesis failed", map[string]interface{}{
			"synthesizer": s.member.ID,
			"errorCode":   string(stdErr.Code),
			"retryable":   stdErr.Retryable,
			"kind":        string(result.Failure.Kind),
			"error":       stdErr.Details,
		})
		return "", fmt.Errorf("%w: %s", ErrSynthesisFailed, result.Failure.Error())
	}

	metrics.SynthesisRuns.WithLabelValues("ok").Inc()
	s.logger.Info("consensus synthesized", map[string]interface{}{
		"synthesizer": s.member.ID,
		"basedOn":     len(successes),
	})
	return result.Text, nil
}

// BuildPrompt embeds the question and every answer, labelled by display name.
func BuildPrompt(question string, successes []models.MemberResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nCouncil answers:\n", question)
	for _, r := range successes {
		fmt.Fprintf(&b, "\n### %s\n%s\n", r.DisplayName, r.Text)
	}
	b.WriteString("\nWrite the council's consensus answer.")
	return b.String()
}

// Fallback is the deterministic transcript used when synthesis is
// unavailable.
func Fallback(successes []models.MemberResponse) string {
	parts := make([]string, 0, len(successes))
	for _, r := range successes {
		parts = append(parts, fmt.Sprintf("%s: %s", r.DisplayName, r.Text))
	}
	return strings.Join(parts, "\n\n")
}
