package models

import "fmt"

// SearchResult is one snippet returned by the search collaborator.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// FailureKind classifies why a member call produced no answer.
type FailureKind string

const (
	FailureUnreachable     FailureKind = "unreachable"
	FailureProtocolError   FailureKind = "protocol_error"
	FailureEmptyCompletion FailureKind = "empty_completion"
)

// Failure is the failure arm of a member outcome.
type Failure struct {
	Kind   FailureKind
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// MemberResponse is one member's outcome for one request. Exactly one of
// Text (success) or Failure is meaningful.
type MemberResponse struct {
	MemberID    string
	DisplayName string
	Text        string
	Failure     *Failure
}

func (r MemberResponse) Succeeded() bool {
	return r.Failure == nil
}

// CouncilResult is the aggregated outcome of a full fan-out. Responses are in
// registry order.
type CouncilResult struct {
	Question       string
	Responses      []MemberResponse
	Consensus      *string
	ConsensusError bool
}

// Successes returns the successful responses, preserving order.
func (c CouncilResult) Successes() []MemberResponse {
	return Successes(c.Responses)
}

func Successes(responses []MemberResponse) []MemberResponse {
	out := make([]MemberResponse, 0, len(responses))
	for _, r := range responses {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// ConsensusResult is the outcome of the consensus-only flow.
type ConsensusResult struct {
	Question  string
	Consensus string
	BasedOn   int
	// Fallback is true when the synthesizer failed and Consensus is the
	// concatenated transcript.
	Fallback bool
}

// MemberStatus is a member's liveness as seen by the health probe.
type MemberStatus string

const (
	StatusOnline  MemberStatus = "online"
	StatusOffline MemberStatus = "offline"
)

// HealthSnapshot maps member id to liveness. Recomputed on every check.
type HealthSnapshot map[string]MemberStatus
