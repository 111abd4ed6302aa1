package llm

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sashabaranov/go-openai"

	"github.com/chatbees/chatbees-go/internal/model"
)

// ToOpenAI converts a transcript into OpenAI chat messages. A non-empty
// system prompt is sent first. Roles OpenAI does not know are sent as user
// messages.
func ToOpenAI(system string, msgs []model.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range msgs {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case model.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case model.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return out
}

// ToAnthropic converts a transcript into Anthropic messages. System messages
// are joined into the returned system prompt, after system. Other roles
// than assistant are sent as user messages.
func ToAnthropic(system string, msgs []model.Message) (string, []anthropic.MessageParam) {
	var prompts []string
	if system != "" {
		prompts = append(prompts, system)
	}

	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case model.RoleSystem:
			prompts = append(prompts, msg.Content)
		case model.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return strings.Join(prompts, "\n\n"), out
}
