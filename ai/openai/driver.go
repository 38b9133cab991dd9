package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/axoncare-ai/hemolens/ai"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// NewModel returns an ai.Model backed by an OpenAI-compatible chat
// completions endpoint. An empty apiKey falls back to the environment.
func NewModel(modelName string, apiKey string, baseURLs ...string) *ai.Model {
	url := OpenAIBaseURL
	if len(baseURLs) > 0 && baseURLs[0] != "" {
		url = baseURLs[0]
	}

	if apiKey == "" {
		switch url {
		case OpenRouterBaseURL:
			apiKey = os.Getenv("OPENROUTER_API_KEY")
		default:
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	model := &ai.Model{
		ModelName: modelName,
		APIKey:    apiKey,
		BaseURL:   url,
	}
	model.SetCallFunc(openaiCall)
	return model
}

func openaiCall(ctx context.Context, model *ai.Model, messages []ai.Message) (ai.AIMessage, error) {
	client := createClient(model)

	chatMsgs, err := toChatMessages(messages)
	if err != nil {
		return ai.AIMessage{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model.ModelName),
		Messages: chatMsgs,
	}
	if model.Temperature != nil {
		params.Temperature = openai.Opt(*model.Temperature)
	}
	if model.MaxTokens != nil {
		params.MaxTokens = openai.Opt(int64(*model.MaxTokens))
	}
	if model.TopP != nil {
		params.TopP = openai.Opt(*model.TopP)
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return ai.AIMessage{}, classifyError(err)
	}

	return fromChatResponse(resp), nil
}

func createClient(model *ai.Model) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(model.APIKey),
	}

	if model.BaseURL != "" && model.BaseURL != OpenAIBaseURL {
		opts = append(opts, option.WithBaseURL(model.BaseURL))
	}

	return openai.NewClient(opts...)
}

// classifyError wraps rate-limit, gateway and network failures with
// ai.ErrTemporary so the pipeline's retry policy can distinguish them.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		statusErr := ai.StatusError{
			StatusCode:   apiErr.StatusCode,
			Status:       http.StatusText(apiErr.StatusCode),
			ErrorMessage: apiErr.Message,
		}
		if apiErr.StatusCode >= 500 || apiErr.StatusCode == 429 {
			return fmt.Errorf("%w: %w", ai.ErrTemporary, statusErr)
		}
		return statusErr
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary") {
		return fmt.Errorf("%w: %v", ai.ErrTemporary, err)
	}

	return err
}
