package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultBatchSize = 32

// OpenAIOption customizes embedding behaviour.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	batchSize   int
	dimensions  int
	requestOpts []option.RequestOption
}

// WithBatchSize overrides the request batch size (default 32).
func WithBatchSize(size int) OpenAIOption {
	return func(cfg *openAIConfig) {
		cfg.batchSize = size
	}
}

// WithDimensions truncates embeddings to the provided size when the
// model supports it. The knowledge store validates against this value.
func WithDimensions(dim int) OpenAIOption {
	return func(cfg *openAIConfig) {
		cfg.dimensions = dim
	}
}

// WithRequestOptions injects additional SDK request options (base URL,
// organization, ...).
func WithRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(cfg *openAIConfig) {
		cfg.requestOpts = append(cfg.requestOpts, opts...)
	}
}

// OpenAIEmbedder implements Embedder via the official OpenAI SDK.
type OpenAIEmbedder struct {
	client    openaisdk.Client
	model     openaisdk.EmbeddingModel
	batchSize int
	dims      int
}

// NewOpenAIEmbedder creates an embedder backed by OpenAI's embeddings API.
func NewOpenAIEmbedder(apiKey, model string, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai embedder: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("openai embedder: model is required")
	}
	cfg := openAIConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	reqOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, cfg.requestOpts...)
	emb := &OpenAIEmbedder{
		client:    openaisdk.NewClient(reqOpts...),
		model:     openaisdk.EmbeddingModel(model),
		batchSize: cfg.batchSize,
		dims:      cfg.dimensions,
	}
	if emb.batchSize <= 0 {
		emb.batchSize = defaultBatchSize
	}
	return emb, nil
}

// Embed converts texts into dense vectors, batching requests.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if e == nil {
		return nil, errors.New("openai embedder is nil")
	}
	if len(texts) == 0 {
		return nil, errors.New("openai embedder: no texts provided")
	}
	for i, t := range texts {
		// The embeddings API rejects empty inputs mid-batch.
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrEmbedding, i)
		}
	}
	batch := e.batchSize
	result := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batch
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]
		params := openaisdk.EmbeddingNewParams{
			Model: e.model,
			Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: chunk},
		}
		if e.dims > 0 {
			params.Dimensions = openaisdk.Int(int64(e.dims))
		}
		resp, err := e.client.Embeddings.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
		}
		if len(resp.Data) != len(chunk) {
			return nil, fmt.Errorf("%w: expected %d vectors got %d", ErrEmbedding, len(chunk), len(resp.Data))
		}
		for _, data := range resp.Data {
			result = append(result, append([]float64(nil), data.Embedding...))
		}
	}
	return result, nil
}

var _ Embedder = (*OpenAIEmbedder)(nil)
