package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_CallUsesCallFunc(t *testing.T) {
	model := NewDummyModel(func(messages []Message) (AIMessage, error) {
		_, content := messages[0].Value()
		return AIMessage{Role: AssistantRole, Content: "echo: " + content}, nil
	})

	resp, err := model.Call(context.Background(), []Message{
		UserMessage{Role: UserRole, Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, AssistantRole, resp.Role)
	assert.Equal(t, "echo: hello", resp.Content)
}

func TestModel_CallWithoutCallFunc(t *testing.T) {
	model := &Model{ModelName: "unconfigured"}
	_, err := model.Call(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no call function")
}

func TestModel_OptionChaining(t *testing.T) {
	model := NewDummyModel(func(messages []Message) (AIMessage, error) {
		return AIMessage{}, nil
	}).WithTemperature(0.3).WithMaxTokens(2048).WithTopP(0.9)

	require.NotNil(t, model.Temperature)
	assert.Equal(t, 0.3, *model.Temperature)
	require.NotNil(t, model.MaxTokens)
	assert.Equal(t, 2048, *model.MaxTokens)
	require.NotNil(t, model.TopP)
	assert.Equal(t, 0.9, *model.TopP)
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, IsTemporary(ErrTemporary))
	assert.True(t, IsTemporary(fmt.Errorf("call failed: %w", ErrTemporary)))
	assert.False(t, IsTemporary(errors.New("bad request")))
	assert.False(t, IsTemporary(nil))
}

func TestStatusError(t *testing.T) {
	err := StatusError{StatusCode: 429, Status: "429 Too Many Requests", ErrorMessage: "rate limited"}
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")

	wrapped := fmt.Errorf("%w: %w", ErrTemporary, err)
	var statusErr StatusError
	assert.True(t, errors.As(wrapped, &statusErr))
	assert.Equal(t, 429, statusErr.StatusCode)
	assert.True(t, IsTemporary(wrapped))
}
