package openai

import (
	"fmt"

	"github.com/axoncare-ai/hemolens/ai"
	"github.com/openai/openai-go/v3"
)

func toChatMessages(msgs []ai.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch m := msg.(type) {
		case ai.UserMessage:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(m.Content),
					},
				},
			})
		case ai.SystemMessage:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.Opt(m.Content),
					},
				},
			})
		case ai.AIMessage:
			result = append(result, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.Opt(m.Content),
					},
				},
			})
		default:
			return nil, fmt.Errorf("unsupported message type: %T", msg)
		}
	}
	return result, nil
}

func fromChatResponse(resp *openai.ChatCompletion) ai.AIMessage {
	if len(resp.Choices) == 0 {
		return ai.AIMessage{Role: ai.AssistantRole}
	}

	aiMsg := ai.AIMessage{
		Role:    ai.AssistantRole,
		Content: resp.Choices[0].Message.Content,
	}

	aiMsg.Response = ai.Response{
		ID:      resp.ID,
		Created: resp.Created,
		Model:   string(resp.Model),
		Usage: ai.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	return aiMsg
}
