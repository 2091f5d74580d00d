// internal/council/member-client/models.go
package memberclient

import "ai-council/internal/models"

const completionsPath = "/v1/chat/completions"

// Result is the tagged outcome of one completion call. Failure is nil on
// success.
type Result struct {
	Text    string
	Failure *models.Failure
}

func (r Result) OK() bool {
	return r.Failure == nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
