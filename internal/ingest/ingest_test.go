package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clearcast/clearcast/internal/model"
)

func TestNormalize_TextPassthrough(t *testing.T) {
	ing := NewIngestor(nil)

	text, err := ing.Normalize(context.Background(), model.InputText, "  The Eiffel Tower is 330 meters tall.  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "The Eiffel Tower is 330 meters tall." {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestNormalize_EmptyContentIsStructural(t *testing.T) {
	ing := NewIngestor(nil)

	_, err := ing.Normalize(context.Background(), model.InputText, "   ")
	var serr *StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
}

func TestNormalize_UnsupportedInputType(t *testing.T) {
	ing := NewIngestor(nil)

	_, err := ing.Normalize(context.Background(), model.InputType("podcast"), "x")
	var serr *StructuralError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StructuralError, got %v", err)
	}
}

func TestNormalize_URLFetchesArticleText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><head><script>junk()</script></head>
			<body><nav>menu</nav><article><p>Paris is the capital of France.</p></article></body></html>`)
	}))
	defer server.Close()

	ing := NewIngestor(NewFetcher(5*time.Second, "Clearcast/test", 1<<20))

	text, err := ing.Normalize(context.Background(), model.InputURL, server.URL+"/story")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Paris is the capital of France.") {
		t.Errorf("article text missing: %q", text)
	}
	if strings.Contains(text, "junk") || strings.Contains(text, "menu") {
		t.Errorf("noise not stripped: %q", text)
	}
}

func TestExtractText_PrefersArticleOverBody(t *testing.T) {
	html := `<body><div>sidebar chatter</div><article>Only this matters.</article></body>`
	if got := ExtractText(html); got != "Only this matters." {
		t.Errorf("unexpected text: %q", got)
	}
}
