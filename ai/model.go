package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrTemporary marks backend failures that are safe to retry: rate limits,
// gateway errors, network hiccups. Callers decide the retry budget.
var ErrTemporary = errors.New("temporary backend error")

// IsTemporary reports whether err is a retryable backend failure.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTemporary)
}

type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("status: %s, code: %d, error: %s", e.Status, e.StatusCode, e.ErrorMessage)
}

// Model represents a generic model container that uses a function variable
// for provider-specific logic.
type Model struct {
	ModelName string
	APIKey    string
	BaseURL   string

	// callFunc is the implementation for each provider
	callFunc func(ctx context.Context, model *Model, messages []Message) (AIMessage, error)

	// Options pointer variables - use nil to represent option not set
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// Call makes a single call to the model.
func (m *Model) Call(ctx context.Context, messages []Message) (AIMessage, error) {
	if m.callFunc == nil {
		return AIMessage{}, fmt.Errorf("model %s has no call function", m.ModelName)
	}
	return m.callFunc(ctx, m, messages)
}

// WithTemperature sets the temperature for the model and returns the model for chaining
func (m *Model) WithTemperature(temperature float64) *Model {
	m.Temperature = &temperature
	return m
}

// WithMaxTokens sets the maximum tokens for the model and returns the model for chaining
func (m *Model) WithMaxTokens(maxTokens int) *Model {
	m.MaxTokens = &maxTokens
	return m
}

// WithTopP sets the top_p parameter for the model and returns the model for chaining
func (m *Model) WithTopP(topP float64) *Model {
	m.TopP = &topP
	return m
}

// SetCallFunc sets the call function for the model. This is used to plug in
// a non standard provider.
func (m *Model) SetCallFunc(callFunc func(ctx context.Context, model *Model, messages []Message) (AIMessage, error)) {
	m.callFunc = callFunc
}
