package model

import "testing"

func TestClampConfidence(t *testing.T) {
	cases := []struct{ in, want int }{
		{-10, 0},
		{0, 0},
		{55, 55},
		{100, 100},
		{140, 100},
	}
	for _, c := range cases {
		if got := ClampConfidence(c.in); got != c.want {
			t.Errorf("ClampConfidence(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestClampScore(t *testing.T) {
	if got := ClampScore(-0.2); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := ClampScore(1.7); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}
	if got := ClampScore(0.42); got != 0.42 {
		t.Errorf("expected 0.42, got %f", got)
	}
}

func TestVerdictIsUncertain(t *testing.T) {
	uncertain := []Verdict{VerdictUncertain, VerdictConflictingExperts, VerdictOutdated}
	for _, v := range uncertain {
		if !v.IsUncertain() {
			t.Errorf("expected %s to be uncertain", v)
		}
	}
	certain := []Verdict{VerdictSupported, VerdictContradicted, VerdictInsufficient}
	for _, v := range certain {
		if v.IsUncertain() {
			t.Errorf("expected %s not to be uncertain", v)
		}
	}
}

func TestSortForDisplay(t *testing.T) {
	evidence := []Evidence{
		{URL: "a", Relevance: 0.9},
		{URL: "b", Relevance: 0.2, IsFactCheck: true},
		{URL: "c", Relevance: 0.5},
		{URL: "d", Relevance: 0.8, IsFactCheck: true},
	}

	SortForDisplay(evidence)

	// Fact-check items first, each group by relevance descending
	wantOrder := []string{"d", "b", "a", "c"}
	for i, want := range wantOrder {
		if evidence[i].URL != want {
			t.Fatalf("position %d: got %s, want %s", i, evidence[i].URL, want)
		}
	}
}

func TestCheckCloneIsDeep(t *testing.T) {
	check := &Check{
		ID: "x",
		Claims: []Claim{{
			Text:     "claim",
			Evidence: []Evidence{{URL: "https://example.com"}},
			Trail:    []TrailEntry{{Stage: StageRetrieve}},
		}},
		Answer: &QueryAnswer{Query: "q", RelatedClaims: []int{0}},
	}

	cp := check.Clone()
	cp.Claims[0].Evidence[0].URL = "changed"
	cp.Answer.RelatedClaims[0] = 9

	if check.Claims[0].Evidence[0].URL != "https://example.com" {
		t.Error("clone shares evidence slice with original")
	}
	if check.Answer.RelatedClaims[0] != 0 {
		t.Error("clone shares answer slice with original")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Error("pending/processing must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed/failed must be terminal")
	}
}
