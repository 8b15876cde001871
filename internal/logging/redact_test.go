package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedactJSONMasksCredentialFields(t *testing.T) {
	in := []byte(`{"model":"gpt","authorization":"Bearer xyz","nested":{"api_key":"secret"}}`)
	out := string(RedactJSON(in))
	require.Contains(t, out, `"[REDACTED]"`)
	require.NotContains(t, out, "xyz")
	require.NotContains(t, out, "secret")
	require.Contains(t, out, `"model":"gpt"`)
}

func TestRedactJSONLeavesMalformedInputUnchanged(t *testing.T) {
	in := []byte("not json")
	require.Equal(t, in, RedactJSON(in))
}
