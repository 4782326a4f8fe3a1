// Package ingest normalizes submitted content into the single text blob
// the pipeline operates on. URL submissions are fetched and reduced to
// readable text; text, image, and video submissions arrive with their
// normalized text already attached (OCR and transcription happen upstream).
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/clearcast/clearcast/internal/model"
)

// Ingestor turns a submission into normalized text
type Ingestor struct {
	fetcher *Fetcher
}

// NewIngestor creates an ingestor using the given fetcher for URL input
func NewIngestor(fetcher *Fetcher) *Ingestor {
	return &Ingestor{fetcher: fetcher}
}

// StructuralError marks a submission the pipeline cannot process at all;
// it fails the check immediately with a user-facing message.
type StructuralError struct {
	Message string
}

func (e *StructuralError) Error() string { return e.Message }

// Normalize returns the normalized text for a submission
func (i *Ingestor) Normalize(ctx context.Context, inputType model.InputType, content string) (string, error) {
	if !inputType.Valid() {
		return "", &StructuralError{Message: fmt.Sprintf("unsupported input type %q", inputType)}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", &StructuralError{Message: "submission content is empty"}
	}

	switch inputType {
	case model.InputURL:
		text, err := i.fetcher.FetchText(ctx, content)
		if err != nil {
			return "", fmt.Errorf("ingest url: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return "", &StructuralError{Message: "page contained no readable text"}
		}
		return text, nil
	default:
		// text/image/video content is already normalized text by the
		// upstream ingestion collaborator
		return content, nil
	}
}
