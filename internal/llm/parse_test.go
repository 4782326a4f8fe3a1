package llm

import (
	"context"
	"errors"
	"testing"
)

type extractionRow struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

func TestDecode_PlainJSON(t *testing.T) {
	rows, err := Decode[[]extractionRow](`[{"text":"a","type":"factual"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Text != "a" {
		t.Errorf("unexpected result: %+v", rows)
	}
}

func TestDecode_MarkdownFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"text\":\"b\",\"type\":\"opinion\"}\n```"
	row, err := Decode[extractionRow](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Type != "opinion" {
		t.Errorf("expected opinion, got %s", row.Type)
	}
}

func TestDecode_SalvageFromProse(t *testing.T) {
	raw := `Sure! The answer is {"text":"c","type":"factual"} as requested.`
	row, err := Decode[extractionRow](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Text != "c" {
		t.Errorf("expected c, got %s", row.Text)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode[extractionRow]("I cannot answer that.")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Raw != "I cannot answer that." {
		t.Errorf("raw text not preserved: %q", perr.Raw)
	}
}

func TestCompleteJSON_RetriesOnceWithStricterPrompt(t *testing.T) {
	var calls []string
	provider := ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		calls = append(calls, req.System)
		if len(calls) == 1 {
			return "not json", nil
		}
		return `{"text":"ok","type":"factual"}`, nil
	})

	row, err := CompleteJSON[extractionRow](context.Background(), provider, Request{System: "base"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Text != "ok" {
		t.Errorf("expected ok, got %s", row.Text)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[1] == calls[0] {
		t.Error("retry did not strengthen the instruction")
	}
}

func TestCompleteJSON_SecondFailureReturnsParseError(t *testing.T) {
	provider := ProviderFunc(func(ctx context.Context, req Request) (string, error) {
		return "still not json", nil
	})

	_, err := CompleteJSON[extractionRow](context.Background(), provider, Request{})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError after retry, got %v", err)
	}
}
