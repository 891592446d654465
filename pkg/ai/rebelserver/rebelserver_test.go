package rebelserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"relex/pkg/ai"
)

func newTestClient(t *testing.T, handler http.Handler) (*RebelModelClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewRebelModelClient(NewRebelModelClientParams{
		BaseURL:  srv.URL,
		ApiKey:   "test-key",
		MaxTries: 1,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, srv
}

func TestTokenize(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokenize" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", got)
		}

		var req tokenizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Text != "hello world" {
			t.Errorf("unexpected text %q", req.Text)
		}

		json.NewEncoder(w).Encode(ai.TokenSequence{
			InputIDs:      []int{1, 2, 3},
			AttentionMask: []int{1, 1, 1},
		})
	}))

	seq, err := client.Tokenize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq.Len() != 3 {
		t.Fatalf("expected 3 tokens, got %d", seq.Len())
	}
}

func TestGenerateOutputCount(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.NumReturnSequences != 2 {
			t.Errorf("expected 2 return sequences, got %d", req.NumReturnSequences)
		}

		outputs := make([]string, len(req.Windows)*req.NumReturnSequences)
		json.NewEncoder(w).Encode(generateResponse{Outputs: outputs})
	}))

	windows := []ai.TokenSequence{
		{InputIDs: []int{1}, AttentionMask: []int{1}},
		{InputIDs: []int{2}, AttentionMask: []int{1}},
	}
	outputs, err := client.Generate(context.Background(), windows, ai.WithNumReturnSequences(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outputs) != 4 {
		t.Fatalf("expected 4 outputs, got %d", len(outputs))
	}
}

func TestGenerateOutputCountMismatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Outputs: []string{"only one"}})
	}))

	windows := []ai.TokenSequence{
		{InputIDs: []int{1}, AttentionMask: []int{1}},
		{InputIDs: []int{2}, AttentionMask: []int{1}},
	}
	if _, err := client.Generate(context.Background(), windows); err == nil {
		t.Fatal("expected an error for a short output batch")
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))

	if _, err := client.Tokenize(context.Background(), "text"); err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}
