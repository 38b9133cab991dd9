package openai

import (
	"errors"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axoncare-ai/hemolens/ai"
)

func TestClassifyError_RateLimit(t *testing.T) {
	err := classifyError(&openai.Error{StatusCode: 429, Message: "slow down"})

	assert.True(t, ai.IsTemporary(err))
	var statusErr ai.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 429, statusErr.StatusCode)
	assert.Equal(t, "Too Many Requests", statusErr.Status)
	assert.Equal(t, "slow down", statusErr.ErrorMessage)
}

func TestClassifyError_ServerError(t *testing.T) {
	err := classifyError(&openai.Error{StatusCode: 502, Message: "bad gateway"})

	assert.True(t, ai.IsTemporary(err))
	var statusErr ai.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "Bad Gateway", statusErr.Status)
}

func TestClassifyError_ClientError(t *testing.T) {
	err := classifyError(&openai.Error{StatusCode: 400, Message: "bad payload"})

	assert.False(t, ai.IsTemporary(err))
	var statusErr ai.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 400, statusErr.StatusCode)
	assert.Equal(t, "Bad Request", statusErr.Status)
}

func TestClassifyError_Network(t *testing.T) {
	err := classifyError(errors.New("dial tcp 10.0.0.1:443: connection refused"))
	assert.True(t, ai.IsTemporary(err))

	plain := errors.New("invalid api key")
	assert.Equal(t, plain, classifyError(plain))
	assert.False(t, ai.IsTemporary(plain))

	assert.NoError(t, classifyError(nil))
}
