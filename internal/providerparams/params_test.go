package providerparams

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticCacheKeyDeterministic(t *testing.T) {
	p := Params{ModelChunk: "c", ModelEmbed: "e", ModelRerank: "r", ModelVision: "v", ModelQuery: "q"}
	require.Equal(t, p.StaticCacheKey(), p.StaticCacheKey())
	require.Len(t, p.StaticCacheKey(), 64)
}

func TestStaticCacheKeyExcludesQueryFields(t *testing.T) {
	base := Params{ModelChunk: "c", ModelEmbed: "e", ModelRerank: "r", ModelVision: "v"}
	withQuery := base
	withQuery.ModelQuery = "different-query-model"
	withQuery.QueryTemperature = 0.9
	require.Equal(t, base.StaticCacheKey(), withQuery.StaticCacheKey())
}

func TestStaticCacheKeyChangesWithAnyStaticField(t *testing.T) {
	base := Params{ModelChunk: "c", ModelEmbed: "e", ModelRerank: "r", ModelVision: "v"}
	changed := base
	changed.ModelVision = "other-vision-model"
	require.NotEqual(t, base.StaticCacheKey(), changed.StaticCacheKey())
}
