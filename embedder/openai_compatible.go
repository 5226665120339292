package embedder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/doujins-org/recokit/internal/normalize"
)

// DefaultOpenAIModel matches the 1536-dimension product_embeddings column.
const DefaultOpenAIModel = "text-embedding-3-small"

type OpenAICompatibleConfig struct {
	BaseURL    string // optional; empty means api.openai.com
	APIKey     string
	Model      string
	Dimensions int // optional; 0 means provider default
	Timeout    time.Duration
}

type OpenAICompatibleEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

func NewOpenAICompatible(cfg OpenAICompatibleConfig) (*OpenAICompatibleEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	openaiCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		openaiCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	openaiCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAICompatibleEmbedder{
		client:     openai.NewClientWithConfig(openaiCfg),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (e *OpenAICompatibleEmbedder) Model() string { return e.model }

// Dimensions reports the requested size, or DefaultDimensions when the provider
// default is used.
func (e *OpenAICompatibleEmbedder) Dimensions() int {
	if e.dimensions > 0 {
		return e.dimensions
	}
	return DefaultDimensions
}

func (e *OpenAICompatibleEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

func (e *OpenAICompatibleEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for _, row := range resp.Data {
		if row.Index < 0 || row.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", row.Index)
		}
		vec := make([]float32, len(row.Embedding))
		copy(vec, row.Embedding)
		normalize.L2NormalizeInPlace(vec)
		out[row.Index] = vec
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return out, nil
}
