package nli

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/model"
)

// fakeClient records batch sizes and returns fixed scores
type fakeClient struct {
	mu      sync.Mutex
	batches []int
	scores  Scores
	err     error
}

func (f *fakeClient) Score(ctx context.Context, pairs []Pair) ([]Scores, error) {
	f.mu.Lock()
	f.batches = append(f.batches, len(pairs))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Scores, len(pairs))
	for i := range out {
		out[i] = f.scores
	}
	return out, nil
}

func TestReduce(t *testing.T) {
	cases := []struct {
		scores     Scores
		wantStance model.Stance
		wantConf   int
	}{
		{Scores{Entailment: 0.9, Contradiction: 0.05, Neutral: 0.05}, model.StanceSupporting, 90},
		{Scores{Entailment: 0.1, Contradiction: 0.8, Neutral: 0.1}, model.StanceContradicting, 80},
		{Scores{Entailment: 0.2, Contradiction: 0.2, Neutral: 0.6}, model.StanceNeutral, 60},
	}
	for _, c := range cases {
		stance, conf := Reduce(c.scores)
		if stance != c.wantStance || conf != c.wantConf {
			t.Errorf("Reduce(%+v) = %s/%d, want %s/%d", c.scores, stance, conf, c.wantStance, c.wantConf)
		}
	}
}

func TestVerify_AnnotatesEvidenceInBatches(t *testing.T) {
	client := &fakeClient{scores: Scores{Entailment: 0.85, Contradiction: 0.1, Neutral: 0.05}}
	verifier := NewVerifier(client, config.NLIConfig{BatchSize: 4, MaxConcurrent: 2})

	evidence := make([]model.Evidence, 10)
	for i := range evidence {
		evidence[i] = model.Evidence{Snippet: fmt.Sprintf("snippet %d", i)}
	}

	verifier.Verify(context.Background(), "claim", evidence)

	for i, e := range evidence {
		if e.Stance != model.StanceSupporting || e.StanceConfidence != 85 {
			t.Errorf("item %d not annotated: %+v", i, e)
		}
	}
	if len(client.batches) != 3 { // 4 + 4 + 2
		t.Errorf("expected 3 batches, got %v", client.batches)
	}
	for _, size := range client.batches {
		if size > 4 {
			t.Errorf("batch exceeds configured size: %d", size)
		}
	}
}

func TestVerify_FailedBatchDegradesToNeutral(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("model server down")}
	verifier := NewVerifier(client, config.NLIConfig{BatchSize: 8, MaxConcurrent: 2})

	evidence := []model.Evidence{{Snippet: "a"}, {Snippet: "b"}}
	verifier.Verify(context.Background(), "claim", evidence)

	for i, e := range evidence {
		if e.Stance != model.StanceNeutral || e.StanceConfidence != 0 {
			t.Errorf("item %d should degrade to neutral/0: %+v", i, e)
		}
	}
}

func TestVerify_NoEvidenceMakesNoCalls(t *testing.T) {
	client := &fakeClient{}
	verifier := NewVerifier(client, config.Default().NLI)

	verifier.Verify(context.Background(), "claim", nil)

	if len(client.batches) != 0 {
		t.Errorf("expected no inference calls, got %d", len(client.batches))
	}
}

func TestHTTPClient_RoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/nli" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"results":[{"entailment":0.7,"contradiction":0.2,"neutral":0.1}]}`)
	}))
	defer server.Close()

	cfg := config.Default().NLI
	cfg.BaseURL = server.URL
	client := NewHTTPClient(cfg)

	scores, err := client.Score(context.Background(), []Pair{{Claim: "c", Evidence: "e"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 1 || scores[0].Entailment != 0.7 {
		t.Errorf("unexpected scores: %+v", scores)
	}
}

func TestHTTPClient_LengthMismatchIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer server.Close()

	cfg := config.Default().NLI
	cfg.BaseURL = server.URL
	client := NewHTTPClient(cfg)

	if _, err := client.Score(context.Background(), []Pair{{Claim: "c", Evidence: "e"}}); err == nil {
		t.Error("expected error on result/pair length mismatch")
	}
}
