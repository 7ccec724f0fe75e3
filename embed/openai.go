package embed

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	ragerr "github.com/vinayprograms/ragmesh/errors"
)

const (
	defaultEmbeddingModel = string(openai.EmbeddingModelTextEmbedding3Small)
	defaultDimension      = 1536
)

// OpenAI generates embeddings through the OpenAI embeddings API.
type OpenAI struct {
	client    *openai.Client
	model     string
	dimension int
}

// OpenAIConfig holds configuration for the OpenAI embedder.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // Optional custom endpoint
	Model     string
	Dimension int
}

// NewOpenAI creates an OpenAI embedder. Model defaults to
// text-embedding-3-small with 1536 dimensions.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api_key is required for openai embeddings")
	}
	if cfg.Model == "" {
		cfg.Model = defaultEmbeddingModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = defaultDimension
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &OpenAI{
		client:    &client,
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

// Embed requests one embedding per text in a single API call.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeEmbedding, "openai embeddings request failed")
	}
	if len(resp.Data) != len(texts) {
		return nil, ragerr.Newf(ragerr.CodeEmbedding, "openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension returns the configured vector width.
func (o *OpenAI) Dimension() int {
	return o.dimension
}
