// Package testutil provides common test utilities and helpers for NeuroPulse tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NeuroPulse-App/neuropulse/internal/api"
	"github.com/NeuroPulse-App/neuropulse/internal/hub"
	"github.com/NeuroPulse-App/neuropulse/internal/notify"
	"github.com/NeuroPulse-App/neuropulse/internal/state"
	"github.com/NeuroPulse-App/neuropulse/internal/store"
)

// QuietRand never passes the notification trigger roll, keeping random
// notifications out of tests that don't ask for them.
type QuietRand struct{}

func (QuietRand) Float64() float64 { return 1.0 }
func (QuietRand) IntN(n int) int   { return 0 }

// ServerDeps exposes the collaborators behind a test server so tests can seed
// and inspect state directly.
type ServerDeps struct {
	Hub    *hub.Hub
	States *state.Store
	Engine *notify.Engine
	Conv   store.ConversationStore
	Mem    *store.MemoryReconciler
}

// NewTestServer creates a test API server with in-memory dependencies and a
// deterministic notification engine. Chat is left unconfigured.
func NewTestServer() (*api.Server, *ServerDeps) {
	states := state.NewStore()
	engine := notify.NewEngine(notify.Config{Rand: QuietRand{}})
	backing := store.NewInMemoryStore()
	mem := store.NewMemoryReconciler(store.NewInMemoryStore())
	h := hub.New(states, engine, nil)

	deps := &ServerDeps{
		Hub:    h,
		States: states,
		Engine: engine,
		Conv:   backing,
		Mem:    mem,
	}
	return api.NewServer(":0", h, states, engine, backing, mem, nil), deps
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}
