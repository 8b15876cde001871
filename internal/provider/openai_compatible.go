package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"archivist/internal/config"
)

// OpenAICompatible is the local-OpenAI-compatible ModelProvider variant: any
// backend speaking the OpenAI Chat Completions and Embeddings wire formats
// (a local llama.cpp/mlx_lm server, vLLM, or the real OpenAI API).
type OpenAICompatible struct {
	sdk sdk.Client
	cfg config.ProviderConfig
}

// NewOpenAICompatible builds an OpenAICompatible backend. httpClient
// defaults to http.DefaultClient when nil.
func NewOpenAICompatible(cfg config.ProviderConfig, httpClient *http.Client) *OpenAICompatible {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithHTTPClient(httpClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAICompatible{sdk: sdk.NewClient(opts...), cfg: cfg}
}

func (o *OpenAICompatible) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.sdk.Embeddings.New(ctx, sdk.EmbeddingNewParams{
		Model: sdk.EmbeddingModel(o.cfg.ModelEmbed.Model),
		Input: sdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
	})
	if err != nil {
		if isContextLengthError(err) {
			return nil, ErrMaxTokensExceeded
		}
		return nil, fmt.Errorf("openai-compatible: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai-compatible: empty embedding response")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func isContextLengthError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "context length") ||
		strings.Contains(strings.ToLower(err.Error()), "maximum context")
}

// structured issues a chat-completion call constrained to schema, identified
// by op for the json_schema name field, and decodes the assistant's content
// into out.
func (o *OpenAICompatible) structured(ctx context.Context, op, prompt string, model config.ModelIdentity, schema map[string]any, out any) error {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model.Model),
		Messages: []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(prompt)},
	}
	params.SetExtraFields(map[string]any{
		"temperature": model.Temperature,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   op,
				"schema": schema,
				"strict": true,
			},
		},
	})
	comp, err := o.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		if isContextLengthError(err) {
			return ErrMaxTokensExceeded
		}
		return fmt.Errorf("openai-compatible: %s: %w", op, err)
	}
	if len(comp.Choices) == 0 {
		return fmt.Errorf("openai-compatible: %s: empty response", op)
	}
	return json.Unmarshal([]byte(comp.Choices[0].Message.Content), out)
}

func (o *OpenAICompatible) Chunk(ctx context.Context, prompt string) (ChunkPlan, error) {
	var plan ChunkPlan
	err := o.structured(ctx, "chunk", prompt, o.cfg.ModelChunk, chunkSchema(), &plan)
	return plan, err
}

func (o *OpenAICompatible) Rerank(ctx context.Context, prompt string) (RerankResult, error) {
	var res RerankResult
	err := o.structured(ctx, "rerank", prompt, o.cfg.ModelRerank, rerankSchema(), &res)
	return res, err
}

func (o *OpenAICompatible) Query(ctx context.Context, prompt string) (QueryResult, error) {
	var res QueryResult
	err := o.structured(ctx, "query", prompt, o.cfg.ModelQuery, querySchema(), &res)
	return res, err
}

func (o *OpenAICompatible) Vision(ctx context.Context, prompt string, imageB64 string) (VisionResult, error) {
	var res VisionResult
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(o.cfg.ModelVision.Model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage([]sdk.ChatCompletionContentPartUnionParam{
				sdk.TextContentPart(prompt),
				sdk.ImageContentPart(sdk.ChatCompletionContentPartImageImageURLParam{
					URL: "data:image/png;base64," + imageB64,
				}),
			}),
		},
	}
	params.SetExtraFields(map[string]any{
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "vision",
				"schema": visionSchema(),
				"strict": true,
			},
		},
	})
	comp, err := o.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return res, fmt.Errorf("openai-compatible: vision: %w", err)
	}
	if len(comp.Choices) == 0 {
		return res, fmt.Errorf("openai-compatible: vision: empty response")
	}
	err = json.Unmarshal([]byte(comp.Choices[0].Message.Content), &res)
	return res, err
}

var _ Provider = (*OpenAICompatible)(nil)
