package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	genai "google.golang.org/genai"

	"archivist/internal/config"
)

// RemoteAPI is the remote-API ModelProvider variant: text operations
// (chunk, rerank, query) go to Anthropic's Messages API via forced tool-use
// for strict structured output; embed and vision go to Google's Gemini API
// for single-vendor coherence on the multimodal surface.
type RemoteAPI struct {
	anthropicSDK anthropic.Client
	genaiClient  *genai.Client
	cfg          config.ProviderConfig
}

// NewRemoteAPI builds a RemoteAPI backend. anthropicKey and googleKey may
// differ from cfg.APIKey when the two vendors require separate credentials;
// callers pass cfg.APIKey for both when a single key covers them.
func NewRemoteAPI(ctx context.Context, cfg config.ProviderConfig, anthropicKey, googleKey string, httpClient *http.Client) (*RemoteAPI, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	aOpts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(strings.TrimSpace(anthropicKey)),
		anthropicoption.WithHTTPClient(httpClient),
	}
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     strings.TrimSpace(googleKey),
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("remote-api: init google client: %w", err)
	}
	return &RemoteAPI{
		anthropicSDK: anthropic.NewClient(aOpts...),
		genaiClient:  gClient,
		cfg:          cfg,
	}, nil
}

const emitResultTool = "emit_result"

// structured forces a single tool call shaped by schema and decodes its
// input into out. Anthropic has no native strict-JSON response mode, so a
// forced tool call is the idiomatic stand-in.
func (r *RemoteAPI) structured(ctx context.Context, prompt string, model config.ModelIdentity, schema map[string]any, out any) error {
	inputSchema := anthropic.ToolInputSchemaParam{Type: constant.ValueOf[constant.Object]()}
	if props, ok := schema["properties"]; ok {
		inputSchema.Properties = props
	}
	if req, ok := schema["required"].([]string); ok {
		inputSchema.Required = req
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model.Model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfTool: &anthropic.ToolParam{Name: emitResultTool, InputSchema: inputSchema}},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: emitResultTool},
		},
	}

	resp, err := r.anthropicSDK.Messages.New(ctx, params)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "max_tokens") || strings.Contains(strings.ToLower(err.Error()), "context") {
			return ErrMaxTokensExceeded
		}
		return fmt.Errorf("remote-api: anthropic: %w", err)
	}

	for _, block := range resp.Content {
		if tu, ok := block.AsAny().(anthropic.ToolUseBlock); ok && tu.Name == emitResultTool {
			raw, err := json.Marshal(tu.Input)
			if err != nil {
				return fmt.Errorf("remote-api: marshal tool input: %w", err)
			}
			return json.Unmarshal(raw, out)
		}
	}
	return fmt.Errorf("remote-api: no %s tool call in response", emitResultTool)
}

func (r *RemoteAPI) Chunk(ctx context.Context, prompt string) (ChunkPlan, error) {
	var plan ChunkPlan
	err := r.structured(ctx, prompt, r.cfg.ModelChunk, chunkSchema(), &plan)
	return plan, err
}

func (r *RemoteAPI) Rerank(ctx context.Context, prompt string) (RerankResult, error) {
	var res RerankResult
	err := r.structured(ctx, prompt, r.cfg.ModelRerank, rerankSchema(), &res)
	return res, err
}

func (r *RemoteAPI) Query(ctx context.Context, prompt string) (QueryResult, error) {
	var res QueryResult
	err := r.structured(ctx, prompt, r.cfg.ModelQuery, querySchema(), &res)
	return res, err
}

func (r *RemoteAPI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := r.genaiClient.Models.EmbedContent(ctx, r.cfg.ModelEmbed.Model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "token") {
			return nil, ErrMaxTokensExceeded
		}
		return nil, fmt.Errorf("remote-api: google embed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("remote-api: empty embedding response")
	}
	vec := make([]float32, len(resp.Embeddings[0].Values))
	copy(vec, resp.Embeddings[0].Values)
	return vec, nil
}

func (r *RemoteAPI) Vision(ctx context.Context, prompt string, imageB64 string) (VisionResult, error) {
	var res VisionResult
	raw, err := base64.StdEncoding.DecodeString(imageB64)
	if err != nil {
		return res, fmt.Errorf("remote-api: decode image: %w", err)
	}

	schemaJSON, err := json.Marshal(visionSchema())
	if err != nil {
		return res, fmt.Errorf("remote-api: marshal vision schema: %w", err)
	}
	var respSchema *genai.Schema
	if err := json.Unmarshal(schemaJSON, &respSchema); err != nil {
		return res, fmt.Errorf("remote-api: convert vision schema: %w", err)
	}

	content := genai.NewContentFromParts([]*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{Data: raw, MIMEType: "image/png"}},
	}, genai.RoleUser)

	resp, err := r.genaiClient.Models.GenerateContent(ctx, r.cfg.ModelVision.Model, []*genai.Content{content}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   respSchema,
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "safety") || strings.Contains(strings.ToLower(err.Error()), "blocked") {
			return VisionResult{IsRejected: true, RejectionReason: err.Error()}, nil
		}
		return res, fmt.Errorf("remote-api: google vision: %w", err)
	}
	if err := json.Unmarshal([]byte(resp.Text()), &res); err != nil {
		return res, fmt.Errorf("remote-api: decode vision response: %w", err)
	}
	return res, nil
}

var _ Provider = (*RemoteAPI)(nil)
