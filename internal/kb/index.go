// Package kb provides knowledge-base retrieval: plain-text documents are
// embedded once and queried by cosine similarity. The corpus is small enough
// that a brute-force scan replaces a real vector index.
package kb

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/llm"
)

// Search bounds, matching the tool schema exposed to the model.
const (
	MinK     = 1
	MaxK     = 20
	DefaultK = 4
)

// EmbeddingsClient is the slice of the LLM client the index needs.
type EmbeddingsClient interface {
	CreateEmbeddings(ctx context.Context, req *llm.EmbeddingsRequest) (*llm.EmbeddingsResponse, error)
}

// Passage is one retrieval hit.
type Passage struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type document struct {
	source  string
	content string
	vector  []float64
}

// Index holds the embedded corpus.
type Index struct {
	client EmbeddingsClient
	model  string
	logger *zap.Logger

	mu   sync.RWMutex
	docs []document
}

// NewIndex creates an empty index.
func NewIndex(client EmbeddingsClient, model string, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{client: client, model: model, logger: logger}
}

// LoadDir reads every .txt file under dir into the corpus and embeds the
// batch. Files that cannot be read are skipped with a warning.
func (i *Index) LoadDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read knowledge dir: %w", err)
	}

	var sources []string
	var contents []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			i.logger.Warn("skipping unreadable document",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		sources = append(sources, entry.Name())
		contents = append(contents, text)
	}
	if len(contents) == 0 {
		i.logger.Warn("no knowledge documents found", zap.String("dir", dir))
		return nil
	}

	resp, err := i.client.CreateEmbeddings(ctx, &llm.EmbeddingsRequest{
		Model: i.model,
		Input: contents,
	})
	if err != nil {
		return fmt.Errorf("embed knowledge documents: %w", err)
	}
	if len(resp.Data) != len(contents) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(contents))
	}

	docs := make([]document, len(contents))
	for idx := range contents {
		docs[idx] = document{
			source:  sources[idx],
			content: contents[idx],
			vector:  resp.Data[idx].Embedding,
		}
	}

	i.mu.Lock()
	i.docs = docs
	i.mu.Unlock()
	i.logger.Info("knowledge base loaded", zap.Int("documents", len(docs)))
	return nil
}

// Search returns the top-k passages by cosine similarity to the query.
// k is clamped to the supported range; zero means the default.
func (i *Index) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = DefaultK
	}
	if k < MinK {
		k = MinK
	}
	if k > MaxK {
		k = MaxK
	}

	i.mu.RLock()
	docs := i.docs
	i.mu.RUnlock()
	if len(docs) == 0 {
		return nil, nil
	}

	resp, err := i.client.CreateEmbeddings(ctx, &llm.EmbeddingsRequest{
		Model: i.model,
		Input: []string{query},
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	queryVec := resp.Data[0].Embedding

	passages := make([]Passage, 0, len(docs))
	for _, doc := range docs {
		passages = append(passages, Passage{
			Source:  doc.source,
			Content: doc.content,
			Score:   Cosine(queryVec, doc.vector),
		})
	}
	sort.SliceStable(passages, func(a, b int) bool { return passages[a].Score > passages[b].Score })
	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

// Cosine computes cosine similarity between two vectors. Mismatched lengths
// compare over the shorter prefix; zero vectors score zero.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for idx := 0; idx < n; idx++ {
		dot += a[idx] * b[idx]
		normA += a[idx] * a[idx]
		normB += b[idx] * b[idx]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
