// Package providerparams implements the frozen model-identity descriptor
// shared by every cached provider call, and its deterministic static cache
// key.
package providerparams

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Params is an immutable descriptor of which model identity backs each
// ModelProvider operation. Once constructed it never changes — workers each
// hold their own provider view but share the same Params value.
type Params struct {
	ModelChunk  string `json:"model_chunk"`
	ModelEmbed  string `json:"model_embed"`
	ModelRerank string `json:"model_rerank"`
	ModelVision string `json:"model_vision"`

	// ModelQuery and QueryTemperature affect only uncached query results and
	// are deliberately excluded from StaticCacheKey.
	ModelQuery      string  `json:"-"`
	QueryTemperature float64 `json:"-"`
}

// StaticCacheKey returns the SHA-256 hex digest of the sorted-key JSON
// encoding of the subset of Params that affects cacheable provider outputs:
// embed, chunk, rerank, and vision. Query is excluded since query results are
// never cached.
func (p Params) StaticCacheKey() string {
	// encoding/json marshals struct fields in declaration order, which for
	// this struct is already alphabetical (chunk, embed, rerank, vision);
	// keep it that way so this stays equivalent to a sort_keys=True dump.
	type staticSubset struct {
		ModelChunk  string `json:"model_chunk"`
		ModelEmbed  string `json:"model_embed"`
		ModelRerank string `json:"model_rerank"`
		ModelVision string `json:"model_vision"`
	}
	data, _ := json.Marshal(staticSubset{
		ModelChunk:  p.ModelChunk,
		ModelEmbed:  p.ModelEmbed,
		ModelRerank: p.ModelRerank,
		ModelVision: p.ModelVision,
	})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
