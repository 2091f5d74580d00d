// internal/council/member-client/service.go
package memberclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "ai-council/internal/common/http"
	"ai-council/internal/common/metrics"
	memberregistry "ai-council/internal/council/member-registry"
	"ai-council/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxErrorBodyBytes = 512

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Client calls a member's chat-completion backend. Complete never returns a
// Go error: every failure mode is reported through Result.Failure.
type Client struct {
	config *Config
	http   *commonhttp.Client
	tracer trace.Tracer
	logger Logger
}

// NewClient builds a Client. tracer may be nil.
func NewClient(config *Config, httpClient *commonhttp.Client, tracer trace.Tracer, log Logger) *Client {
	if tracer == nil {
		tracer = otel.Tracer("ai-council/member-client")
	}
	return &Client{
		config: config,
		http:   httpClient,
		tracer: tracer,
		logger: log,
	}
}

func (c *Client) Complete(ctx context.Context, member memberregistry.Member, systemPrompt, userMessage string, temperature float64) Result {
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "member.complete", trace.WithAttributes(
		attribute.String("council.member", member.ID),
		attribute.Float64("council.temperature", temperature),
	))
	defer span.End()

	if c.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.CallTimeout)
		defer cancel()
	}

	text, failure := c.execute(ctx, member, systemPrompt, userMessage, temperature)
	elapsed := time.Since(start)

	metrics.MemberCallDuration.WithLabelValues(member.ID).Observe(elapsed.Seconds())

	if failure != nil {
		metrics.MemberCalls.WithLabelValues(member.ID, string(failure.Kind)).Inc()
		span.SetStatus(codes.Error, failure.Detail)
		span.SetAttributes(attribute.String("council.failure_kind", string(failure.Kind)))
		c.logger.Warn("member call failed", map[string]interface{}{
			"member":     member.ID,
			"kind":       string(failure.Kind),
			"error":      failure.Detail,
			"durationMs": elapsed.Milliseconds(),
		})
		return Result{Failure: failure}
	}

	metrics.MemberCalls.WithLabelValues(member.ID, "ok").Inc()
	c.logger.Debug("member call completed", map[string]interface{}{
		"member":     member.ID,
		"chars":      len(text),
		"durationMs": elapsed.Milliseconds(),
	})
	return Result{Text: text}
}

func (c *Client) execute(ctx context.Context, member memberregistry.Member, systemPrompt, userMessage string, temperature float64) (string, *models.Failure) {
	body, err := json.Marshal(chatRequest{
		Model: member.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: temperature,
		MaxTokens:   member.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", protocolError("encode request: %v", err)
	}

	url := strings.TrimRight(member.Endpoint, "/") + completionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", unreachable(ctx, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", unreachable(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", protocolError("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var apiResponse chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		if ctx.Err() != nil {
			return "", unreachable(ctx, err)
		}
		return "", protocolError("malformed completion body: %v", err)
	}

	if len(apiResponse.Choices) == 0 {
		return "", &models.Failure{Kind: models.FailureEmptyCompletion, Detail: "completion has no choices"}
	}
	content := apiResponse.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &models.Failure{Kind: models.FailureEmptyCompletion, Detail: "completion message is empty"}
	}

	return content, nil
}

func unreachable(ctx context.Context, err error) *models.Failure {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &models.Failure{Kind: models.FailureUnreachable, Detail: "request timed out"}
	}
	return &models.Failure{Kind: models.FailureUnreachable, Detail: err.Error()}
}

func protocolError(format string, args ...interface{}) *models.Failure {
	return &models.Failure{Kind: models.FailureProtocolError, Detail: fmt.Sprintf(format, args...)}
}
