// internal/api/server_test.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	commonhttp "ai-council/internal/common/http"
	"ai-council/internal/common/logger"
	healthprobe "ai-council/internal/council/health-probe"
	memberclient "ai-council/internal/council/member-client"
	memberregistry "ai-council/internal/council/member-registry"
	"ai-council/internal/council/orchestrator"
	searchaugmenter "ai-council/internal/council/search-augmenter"
	"ai-council/internal/council/synthesizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fake Member Backend
// ==========================

// memberBackend is an OpenAI-style completion server with a /health route.
type memberBackend struct {
	server  *httptest.Server
	mu      sync.Mutex
	answer  string
	prompts []string
}

func newMemberBackend(t *testing.T, answer string) *memberBackend {
	b := &memberBackend{answer: answer}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		if len(req.Messages) > 0 {
			b.prompts = append(b.prompts, req.Messages[0].Content)
		}
		b.mu.Unlock()

		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, b.answer)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *memberBackend) hits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.prompts)
}

func (b *memberBackend) lastPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.prompts) == 0 {
		return ""
	}
	return b.prompts[len(b.prompts)-1]
}

func deadEndpoint() string {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := s.URL
	s.Close()
	return url
}

// ==========================
// Test Council Setup
// ==========================

var testMembers = []struct {
	id, name, persona string
}{
	{"analyst", "The Analyst", "persona-analyst"},
	{"creative", "The Creative", "persona-creative"},
	{"critic", "The Critic", "persona-critic"},
	{"pragmatist", "The Pragmatist", "persona-pragmatist"},
}

type testCouncil struct {
	url      string
	backends map[string]*memberBackend
}

// newTestCouncil starts the API with four members. Ids listed in down point
// at a closed port. searchURL may be empty.
func newTestCouncil(t *testing.T, searchURL string, down ...string) *testCouncil {
	isDown := map[string]bool{}
	for _, id := range down {
		isDown[id] = true
	}

	tc := &testCouncil{backends: map[string]*memberBackend{}}
	members := make([]memberregistry.Member, 0, len(testMembers))
	for i, m := range testMembers {
		endpoint := deadEndpoint()
		if !isDown[m.id] {
			b := newMemberBackend(t, fmt.Sprintf("ok-%c", 'A'+i))
			tc.backends[m.id] = b
			endpoint = b.server.URL
		}
		members = append(members, memberregistry.Member{
			ID:          m.id,
			DisplayName: m.name,
			Endpoint:    endpoint,
			Persona:     m.persona,
			Temperature: 0.5,
			MaxTokens:   400,
		})
	}

	registry, err := memberregistry.New(members, "analyst")
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	httpClient := commonhttp.NewClient(0)
	client := memberclient.NewClient(&memberclient.Config{CallTimeout: 2 * time.Second}, httpClient, nil, log)
	synth := synthesizer.NewSynthesizer(synthesizer.LoadConfig(), registry.Synthesizer(), client, log)

	var augmenter orchestrator.Augmenter
	if searchURL != "" {
		cfg := searchaugmenter.LoadConfig()
		cfg.Endpoint = searchURL
		cfg.Timeout = time.Second
		augmenter = searchaugmenter.NewAugmenter(cfg, searchaugmenter.NewSearxngSearcher(searchURL, httpClient), nil, log)
	}

	orch := orchestrator.NewOrchestrator(orchestrator.LoadConfig(), registry, client, augmenter, synth, nil, log)
	prober := healthprobe.NewProber(&healthprobe.Config{Timeout: 500 * time.Millisecond}, registry.Members(), httpClient, log)

	server := NewServer(Options{
		Orchestrator: orch,
		Health:       prober,
		Logger:       log,
	})
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	tc.url = ts.URL
	return tc
}

func (tc *testCouncil) post(t *testing.T, path, body string) (int, map[string]interface{}) {
	resp, err := http.Post(tc.url+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func (tc *testCouncil) totalHits() int {
	n := 0
	for _, b := range tc.backends {
		n += b.hits()
	}
	return n
}

// ==========================
// POST /chat/{memberId}
// ==========================

func TestChat_Success(t *testing.T) {
	tc := newTestCouncil(t, "")

	status, body := tc.post(t, "/chat/critic", `{"message":"hello"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "The Critic", body["member"])
	assert.Equal(t, "ok-C", body["response"])
	assert.Equal(t, "critic", body["model"])
	assert.NotContains(t, body, "error")
	assert.Equal(t, "persona-critic", tc.backends["critic"].lastPrompt())
}

func TestChat_UnknownMember(t *testing.T) {
	tc := newTestCouncil(t, "")

	status, body := tc.post(t, "/chat/oracle", `{"message":"hello","useSearch":true}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid council member", body["error"])
	assert.Zero(t, tc.totalHits())
}

func TestChat_UpstreamFailure(t *testing.T) {
	tc := newTestCouncil(t, "", "analyst")

	status, body := tc.post(t, "/chat/analyst", `{"message":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to get response from analyst", body["error"])
}

func TestChat_SearchFailureFallsBackToPersona(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer search.Close()

	tc := newTestCouncil(t, search.URL)

	status, body := tc.post(t, "/chat/analyst", `{"message":"hello","useSearch":true}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok-A", body["response"])
	assert.Equal(t, "persona-analyst", tc.backends["analyst"].lastPrompt())
}

func TestChat_SearchAugmentsPersona(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"title":"EV sales","url":"https://ev","content":"up 40%"}]}`))
	}))
	defer search.Close()

	tc := newTestCouncil(t, search.URL)

	status, _ := tc.post(t, "/chat/analyst", `{"message":"electric cars","useSearch":true}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "persona-analyst\n\nWeb search results:\n- EV sales: up 40%", tc.backends["analyst"].lastPrompt())
}

func TestChat_InvalidBodies(t *testing.T) {
	tc := newTestCouncil(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{}`},
		{"empty message", `{"message":""}`},
		{"blank message", `{"message":"  "}`},
		{"non-bool search", `{"message":"hi","useSearch":"yes"}`},
		{"not json", `message=hi`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := tc.post(t, "/chat/analyst", tt.body)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, "Invalid request body", body["error"])
		})
	}
	assert.Zero(t, tc.totalHits())
}

// ==========================
// POST /council
// ==========================

func TestCouncil_AllMembersAnswer(t *testing.T) {
	tc := newTestCouncil(t, "")

	status, body := tc.post(t, "/council", `{"message":"x","synthesize":false}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "x", body["question"])
	assert.NotContains(t, body, "consensus")
	assert.NotContains(t, body, "consensusError")

	responses := body["responses"].([]interface{})
	require.Len(t, responses, 4)
	for i, raw := range responses {
		entry := raw.(map[string]interface{})
		assert.Equal(t, testMembers[i].id, entry["model"])
		assert.Equal(t, testMembers[i].name, entry["member"])
		assert.Equal(t, fmt.Sprintf("ok-%c", 'A'+i), entry["response"])
		assert.NotContains(t, entry, "error")
	}
}

func TestCouncil_SynthesizerDown(t *testing.T) {
	tc := newTestCouncil(t, "", "analyst")

	status, body := tc.post(t, "/council", `{"message":"x","synthesize":true}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["consensusError"])
	assert.NotContains(t, body, "consensus")

	responses := body["responses"].([]interface{})
	require.Len(t, responses, 4)

	failed := responses[0].(map[string]interface{})
	assert.Equal(t, "analyst", failed["model"])
	assert.Equal(t, true, failed["error"])
	assert.Equal(t, "unreachable", failed["errorKind"])
	assert.True(t, strings.HasPrefix(failed["response"].(string), "Error: "))

	successes := 0
	for _, raw := range responses[1:] {
		if _, isErr := raw.(map[string]interface{})["error"]; !isErr {
			successes++
		}
	}
	assert.Equal(t, 3, successes)
}

func TestCouncil_WithConsensus(t *testing.T) {
	tc := newTestCouncil(t, "")

	status, body := tc.post(t, "/council", `{"message":"x","synthesize":true}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok-A", body["consensus"])
	assert.NotContains(t, body, "consensusError")
	// One fan-out call plus one synthesis call.
	assert.Equal(t, 2, tc.backends["analyst"].hits())
	assert.Equal(t, synthesizer.SystemPrompt, tc.backends["analyst"].lastPrompt())
}

func TestCouncil_AllDown(t *testing.T) {
	tc := newTestCouncil(t, "", "analyst", "creative", "critic", "pragmatist")

	status, body := tc.post(t, "/council", `{"message":"x"}`)

	require.Equal(t, http.StatusOK, status)
	responses := body["responses"].([]interface{})
	require.Len(t, responses, 4)
	for _, raw := range responses {
		assert.Equal(t, true, raw.(map[string]interface{})["error"])
	}
}

// ==========================
// POST /council/consensus
// ==========================

func TestConsensus_BasedOnSuccesses(t *testing.T) {
	tc := newTestCouncil(t, "", "pragmatist")

	status, body := tc.post(t, "/council/consensus", `{"message":"x"}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "x", body["question"])
	assert.Equal(t, "ok-A", body["consensus"])
	assert.Equal(t, "3 council member(s)", body["basedOn"])
}

func TestConsensus_FallbackWhenSynthesizerDown(t *testing.T) {
	tc := newTestCouncil(t, "", "analyst")

	status, body := tc.post(t, "/council/consensus", `{"message":"x"}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "The Creative: ok-B\n\nThe Critic: ok-C\n\nThe Pragmatist: ok-D", body["consensus"])
	assert.Equal(t, "3 council member(s)", body["basedOn"])
}

func TestConsensus_AllDown(t *testing.T) {
	tc := newTestCouncil(t, "", "analyst", "creative", "critic", "pragmatist")

	status, body := tc.post(t, "/council/consensus", `{"message":"x"}`)

	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "No council member responded", body["error"])
	assert.NotContains(t, body, "consensus")
}

// ==========================
// GET /health, /ready, /metrics
// ==========================

func TestHealth_ReportsPerMember(t *testing.T) {
	tc := newTestCouncil(t, "", "creative", "pragmatist")

	resp, err := http.Get(tc.url + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "online", string(body.Council["analyst"]))
	assert.Equal(t, "offline", string(body.Council["creative"]))
	assert.Equal(t, "online", string(body.Council["critic"]))
	assert.Equal(t, "offline", string(body.Council["pragmatist"]))
}

func TestReadyAndMetrics(t *testing.T) {
	tc := newTestCouncil(t, "")
	tc.post(t, "/chat/analyst", `{"message":"warm up"}`)

	resp, err := http.Get(tc.url + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(tc.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "council_member_calls_total")
}

// ==========================
// Cross-Cutting
// ==========================

func TestRequestIDEchoed(t *testing.T) {
	tc := newTestCouncil(t, "")

	req, _ := http.NewRequest(http.MethodGet, tc.url+"/ready", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(tc.url + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	tc := newTestCouncil(t, "")

	req, _ := http.NewRequest(http.MethodOptions, tc.url+"/council", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	tc := newTestCouncil(t, "")

	resp, err := http.Get(tc.url + "/council")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
