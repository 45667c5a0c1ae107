package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spec-kit/support-agent/internal/kb"
	"github.com/spec-kit/support-agent/internal/llm"
)

// fallbackSentences are the canonical "I can't help with that" replies the
// model is instructed to use. A reply embedding close to any of them marks a
// knowledge-base gap worth logging.
var fallbackSentences = []string{
	"I don't have enough information to answer that.",
	"لا أملك معلومات كافية للإجابة على ذلك.",
}

// FallbackDetector flags replies that are semantically equivalent to a
// canonical fallback sentence. Canonical vectors are embedded once on first
// use and cached.
type FallbackDetector struct {
	client    kb.EmbeddingsClient
	model     string
	threshold float64

	once    sync.Once
	vectors [][]float64
	onceErr error
}

// NewFallbackDetector constructs a detector. A threshold of zero selects
// the default 0.92.
func NewFallbackDetector(client kb.EmbeddingsClient, model string, threshold float64) *FallbackDetector {
	if threshold <= 0 {
		threshold = 0.92
	}
	return &FallbackDetector{client: client, model: model, threshold: threshold}
}

// IsFallback reports whether the reply reads as a fallback, and the best
// similarity score against the canonical sentences.
func (d *FallbackDetector) IsFallback(ctx context.Context, reply string) (bool, float64, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return false, 0, nil
	}

	d.once.Do(func() {
		resp, err := d.client.CreateEmbeddings(ctx, &llm.EmbeddingsRequest{
			Model: d.model,
			Input: fallbackSentences,
		})
		if err != nil {
			d.onceErr = fmt.Errorf("embed fallback sentences: %w", err)
			return
		}
		for _, item := range resp.Data {
			d.vectors = append(d.vectors, item.Embedding)
		}
	})
	if d.onceErr != nil {
		return false, 0, d.onceErr
	}

	resp, err := d.client.CreateEmbeddings(ctx, &llm.EmbeddingsRequest{
		Model: d.model,
		Input: []string{reply},
	})
	if err != nil {
		return false, 0, fmt.Errorf("embed reply: %w", err)
	}
	if len(resp.Data) == 0 {
		return false, 0, fmt.Errorf("no embedding returned for reply")
	}
	replyVec := resp.Data[0].Embedding

	best := 0.0
	for _, vec := range d.vectors {
		if sim := kb.Cosine(replyVec, vec); sim > best {
			best = sim
		}
	}
	return best >= d.threshold, best, nil
}
