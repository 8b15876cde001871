// Package config holds the construction-time options recognised by the
// archivist pipeline. Values here are abstracted away from any particular
// CLI flag set or on-disk file format; callers load them from wherever they
// like (YAML, env, flags) and pass the resulting struct in.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OcrStrategy selects how a PDF page's content is resolved into text/vision
// input.
type OcrStrategy string

const (
	OcrAuto    OcrStrategy = "auto"
	OcrStrict  OcrStrategy = "strict"
	OcrRelaxed OcrStrategy = "relaxed"
)

// ModelIdentity names the concrete model used for one provider operation.
type ModelIdentity struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// ProviderConfig describes how to reach a ModelProvider backend.
type ProviderConfig struct {
	// Backend selects the capability variant: "openai" (local-OpenAI-compatible),
	// "local" (local-HTTP, raw JSON endpoints), "anthropic" or "google" (remote-API).
	Backend string `yaml:"backend"`
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`

	ModelEmbed  ModelIdentity `yaml:"model_embed"`
	ModelChunk  ModelIdentity `yaml:"model_chunk"`
	ModelRerank ModelIdentity `yaml:"model_rerank"`
	ModelQuery  ModelIdentity `yaml:"model_query"`
	ModelVision ModelIdentity `yaml:"model_vision"`
}

// CacheConfig selects the ResponseCache's persistence backend.
type CacheConfig struct {
	Backend string `yaml:"backend"` // "memory", "redis", "s3"
	RedisDSN string `yaml:"redis_dsn,omitempty"`
	S3Bucket string `yaml:"s3_bucket,omitempty"`
	S3Prefix string `yaml:"s3_prefix,omitempty"`
}

// VectorStoreConfig selects and configures the VectorStore backend.
type VectorStoreConfig struct {
	Backend    string `yaml:"backend"` // "qdrant", "memory"
	DSN        string `yaml:"dsn,omitempty"`
	Collection string `yaml:"collection"`
	Dimensions int    `yaml:"dimensions"`
	Metric     string `yaml:"metric,omitempty"` // cosine | dot | euclid
}

// RetryConfig configures a retry.Policy.
type RetryConfig struct {
	PredelaySeconds      float64 `yaml:"predelay_seconds"`
	DelayMinSeconds      float64 `yaml:"delay_min_seconds"`
	DelayMaxSeconds      float64 `yaml:"delay_max_seconds"`
	BackoffExponent      float64 `yaml:"backoff_exponent"`
	Retries              int     `yaml:"retries"`
}

// Options is the full set of construction-time knobs recognised by the
// pipeline.
type Options struct {
	ChunkLinesBlock int `yaml:"chunk_lines_block"`

	RetrieveScoreMin        float64 `yaml:"retrieve_score_min"`
	RetrieveChunksMax       int     `yaml:"retrieve_chunks_max"`
	RetrieveKneeEnable      bool    `yaml:"retrieve_knee_enable"`
	RetrieveKneeSensitivity float64 `yaml:"retrieve_knee_sensitivity"`
	RetrieveKneeMinChunks   int     `yaml:"retrieve_knee_min_chunks"`

	RerankChunksMax int `yaml:"rerank_chunks_max"`

	ExpandChunksRadius int `yaml:"expand_chunks_radius"`

	OcrStrategy      OcrStrategy `yaml:"ocr_strategy"`
	OcrAutoThreshold int         `yaml:"ocr_auto_threshold"`

	InvalidateCache bool `yaml:"invalidate_cache"`
	MaxWorkers      int  `yaml:"max_workers"`

	HashRepairEnable  bool `yaml:"hash_repair_enable"`
	HashRepairMaxDist int  `yaml:"hash_repair_max_dist"`

	Provider    ProviderConfig    `yaml:"provider"`
	Cache       CacheConfig       `yaml:"cache"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retry       RetryConfig       `yaml:"retry"`

	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`
}

// VisionEnabled reports whether a vision model identity is configured.
func (o Options) VisionEnabled() bool {
	return o.Provider.ModelVision.Model != ""
}

// Default returns sane out-of-the-box defaults. Callers override fields as
// needed.
func Default() Options {
	return Options{
		ChunkLinesBlock:         24,
		RetrieveScoreMin:        0.0,
		RetrieveChunksMax:       32,
		RetrieveKneeEnable:      true,
		RetrieveKneeSensitivity: 1.0,
		RetrieveKneeMinChunks:   1,
		RerankChunksMax:         8,
		ExpandChunksRadius:      1,
		OcrStrategy:             OcrAuto,
		OcrAutoThreshold:        100,
		MaxWorkers:              4,
		HashRepairEnable:        true,
		HashRepairMaxDist:       2,
		Retry: RetryConfig{
			DelayMinSeconds: 1.0,
			DelayMaxSeconds: 10.0,
			BackoffExponent: 2.0,
			Retries:         3,
		},
		LogLevel: "info",
	}
}

// Load reads Options from a YAML file, starting from Default() so an
// incomplete file still yields workable values.
func Load(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("unmarshal config: %w", err)
	}
	return opts, nil
}
