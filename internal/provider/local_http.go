package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"archivist/internal/config"
	"archivist/internal/logging"
)

// LocalHTTP is the local-HTTP ModelProvider variant: a self-hosted endpoint
// exposing raw JSON POST routes (llama.cpp server and compatible backends),
// one route per operation rather than a single chat-completions endpoint.
type LocalHTTP struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cfg        config.ProviderConfig
}

// NewLocalHTTP builds a LocalHTTP backend. httpClient defaults to
// http.DefaultClient when nil.
func NewLocalHTTP(cfg config.ProviderConfig, httpClient *http.Client) *LocalHTTP {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LocalHTTP{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		cfg:        cfg,
	}
}

func (l *LocalHTTP) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("local-http: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("local-http: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("local-http: request: %w", err)
	}
	defer resp.Body.Close()
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("local-http: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("local-http: status %d: %s", resp.StatusCode, string(logging.RedactJSON(rb)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rb, out); err != nil {
		return fmt.Errorf("local-http: decode response: %w", err)
	}
	return nil
}

func (l *LocalHTTP) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
		Error string `json:"error"`
	}
	req := map[string]any{"model": l.cfg.ModelEmbed.Model, "input": []string{text}}
	if err := l.post(ctx, "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error == "context length" || strings.Contains(strings.ToLower(resp.Error), "max tokens") {
		return nil, ErrMaxTokensExceeded
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("local-http: empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

func (l *LocalHTTP) structured(ctx context.Context, path string, prompt string, model config.ModelIdentity, schema map[string]any, out any) error {
	req := map[string]any{
		"model":       model.Model,
		"temperature": model.Temperature,
		"prompt":      prompt,
		"response_format": map[string]any{
			"type":   "json_schema",
			"schema": schema,
		},
	}
	var resp struct {
		Output string `json:"output"`
	}
	if err := l.post(ctx, path, req, &resp); err != nil {
		return err
	}
	return json.Unmarshal([]byte(resp.Output), out)
}

func (l *LocalHTTP) Chunk(ctx context.Context, prompt string) (ChunkPlan, error) {
	var plan ChunkPlan
	err := l.structured(ctx, "/v1/chunk", prompt, l.cfg.ModelChunk, chunkSchema(), &plan)
	return plan, err
}

func (l *LocalHTTP) Rerank(ctx context.Context, prompt string) (RerankResult, error) {
	var res RerankResult
	err := l.structured(ctx, "/v1/rerank", prompt, l.cfg.ModelRerank, rerankSchema(), &res)
	return res, err
}

func (l *LocalHTTP) Query(ctx context.Context, prompt string) (QueryResult, error) {
	var res QueryResult
	err := l.structured(ctx, "/v1/query", prompt, l.cfg.ModelQuery, querySchema(), &res)
	return res, err
}

func (l *LocalHTTP) Vision(ctx context.Context, prompt string, imageB64 string) (VisionResult, error) {
	var res VisionResult
	req := map[string]any{
		"model":       l.cfg.ModelVision.Model,
		"temperature": l.cfg.ModelVision.Temperature,
		"prompt":      prompt,
		"image":       imageB64,
		"response_format": map[string]any{
			"type":   "json_schema",
			"schema": visionSchema(),
		},
	}
	var resp struct {
		Output string `json:"output"`
	}
	if err := l.post(ctx, "/v1/vision", req, &resp); err != nil {
		return res, err
	}
	err := json.Unmarshal([]byte(resp.Output), &res)
	return res, err
}

var _ Provider = (*LocalHTTP)(nil)
