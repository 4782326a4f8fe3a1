package nli

import (
	"context"
	"log"
	"math"
	"sync"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/model"
)

// Verifier batches (claim, evidence) pairs through the NLI client and
// writes the resulting stances back onto the evidence
type Verifier struct {
	client        Client
	batchSize     int
	maxConcurrent int
}

// NewVerifier creates a verifier
func NewVerifier(client Client, cfg config.NLIConfig) *Verifier {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Verifier{client: client, batchSize: batchSize, maxConcurrent: maxConcurrent}
}

// Verify annotates each evidence item with its stance toward the claim.
// Batches run concurrently under a semaphore; a failed batch degrades its
// pairs to neutral/unknown instead of failing the claim.
func (v *Verifier) Verify(ctx context.Context, claimText string, evidence []model.Evidence) {
	if len(evidence) == 0 {
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, v.maxConcurrent)

	for start := 0; start < len(evidence); start += v.batchSize {
		end := start + v.batchSize
		if end > len(evidence) {
			end = len(evidence)
		}

		wg.Add(1)
		go func(batch []model.Evidence) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				degradeBatch(batch)
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			pairs := make([]Pair, len(batch))
			for i, item := range batch {
				text := item.Snippet
				if text == "" {
					text = item.Title
				}
				pairs[i] = Pair{Claim: claimText, Evidence: text}
			}

			scores, err := v.client.Score(ctx, pairs)
			if err != nil {
				log.Printf("nli: batch of %d degraded to neutral: %v", len(batch), err)
				degradeBatch(batch)
				return
			}
			for i := range batch {
				stance, confidence := Reduce(scores[i])
				batch[i].Stance = stance
				batch[i].StanceConfidence = confidence
			}
		}(evidence[start:end])
	}

	wg.Wait()
}

// Reduce collapses label scores to the dominant stance and a 0-100
// confidence
func Reduce(s Scores) (model.Stance, int) {
	stance := model.StanceNeutral
	best := s.Neutral
	if s.Entailment > best {
		stance = model.StanceSupporting
		best = s.Entailment
	}
	if s.Contradiction > best {
		stance = model.StanceContradicting
		best = s.Contradiction
	}
	return stance, model.ClampConfidence(int(math.Round(best * 100)))
}

func degradeBatch(batch []model.Evidence) {
	for i := range batch {
		batch[i].Stance = model.StanceNeutral
		batch[i].StanceConfidence = 0
	}
}
