// internal/api/models.go
package api

import (
	"fmt"
	"time"

	"ai-council/internal/common/validation"
	"ai-council/internal/models"
)

type ChatRequest struct {
	Message   string `json:"message"`
	UseSearch bool   `json:"useSearch"`
}

type CouncilRequest struct {
	Message    string `json:"message"`
	UseSearch  bool   `json:"useSearch"`
	Synthesize bool   `json:"synthesize"`
}

// MemberResponse is the wire shape of one member's outcome. Failed entries
// carry Error and ErrorKind and an "Error: ..." response text.
type MemberResponse struct {
	Member    string `json:"member"`
	Response  string `json:"response"`
	Model     string `json:"model"`
	Error     bool   `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

type CouncilResponse struct {
	Question       string           `json:"question"`
	Responses      []MemberResponse `json:"responses"`
	Consensus      *string          `json:"consensus,omitempty"`
	ConsensusError bool             `json:"consensusError,omitempty"`
}

type ConsensusResponse struct {
	Question  string `json:"question"`
	Consensus string `json:"consensus"`
	BasedOn   string `json:"basedOn"`
}

type HealthResponse struct {
	Status  string                         `json:"status"`
	Council map[string]models.MemberStatus `json:"council"`
}

type ReadyResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func toMemberResponse(r models.MemberResponse) MemberResponse {
	if r.Failure != nil {
		return MemberResponse{
			Member:    r.DisplayName,
			Response:  "Error: " + r.Failure.Detail,
			Model:     r.MemberID,
			Error:     true,
			ErrorKind: string(r.Failure.Kind),
		}
	}
	return MemberResponse{
		Member:   r.DisplayName,
		Response: r.Text,
		Model:    r.MemberID,
	}
}

func toCouncilResponse(result models.CouncilResult) CouncilResponse {
	responses := make([]MemberResponse, 0, len(result.Responses))
	for _, r := range result.Responses {
		responses = append(responses, toMemberResponse(r))
	}
	return CouncilResponse{
		Question:       result.Question,
		Responses:      responses,
		Consensus:      result.Consensus,
		ConsensusError: result.ConsensusError,
	}
}

func toConsensusResponse(result models.ConsensusResult) ConsensusResponse {
	return ConsensusResponse{
		Question:  result.Question,
		Consensus: result.Consensus,
		BasedOn:   fmt.Sprintf("%d council member(s)", result.BasedOn),
	}
}

// ==========================
// Request Schemas
// ==========================

func minLength(n int) *int      { return &n }
func pattern(p string) *string { return &p }

var messageProperty = validation.Property{
	Type:        "string",
	Description: "the user's question",
	MinLength:   minLength(1),
	Pattern:     pattern(`\S`),
}

var chatSchema = validation.MustCompile(validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"message":   messageProperty,
		"useSearch": {Type: "boolean"},
	},
	Required: []string{"message"},
})

var councilSchema = validation.MustCompile(validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"message":    messageProperty,
		"useSearch":  {Type: "boolean"},
		"synthesize": {Type: "boolean"},
	},
	Required: []string{"message"},
})
