package providers

import "aihub/internal/core"

// ChatMessage is the {role, content} pair every vendor accepts
type ChatMessage struct {
	Role    core.Role `json:"role"`
	Content string    `json:"content"`
}

// ChatBody is the default vendor request body for chat completions
type ChatBody struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// Sampling holds the resolved optional generation parameters. Nil means the
// parameter is omitted from the vendor request.
type Sampling struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// ResolveSampling applies request-over-instance precedence. A zero value on
// either side counts as unset.
func ResolveSampling(req *core.ChatCompletionRequest, inst core.ProviderConfig) Sampling {
	return Sampling{
		Temperature: firstNonZero(req.Temperature, inst.Temperature),
		MaxTokens:   firstNonZero(req.MaxTokens, inst.MaxTokens),
		TopP:        firstNonZero(req.TopP, inst.TopP),
	}
}

// ResolveModel returns the request model, then the configured model, then fallback
func ResolveModel(req *core.ChatCompletionRequest, inst core.ProviderConfig, fallback string) string {
	switch {
	case req.Model != "":
		return req.Model
	case inst.Model != "":
		return inst.Model
	default:
		return fallback
	}
}

// Messages copies the conversation as {role, content} pairs in order
func Messages(msgs []core.ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// BuildChatBody shapes the default vendor request body
func BuildChatBody(req *core.ChatCompletionRequest, inst core.ProviderConfig, defaultModel string) ChatBody {
	s := ResolveSampling(req, inst)
	return ChatBody{
		Model:       ResolveModel(req, inst, defaultModel),
		Messages:    Messages(req.Messages),
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		TopP:        s.TopP,
		Stream:      req.Stream,
	}
}

func firstNonZero[T int | float64](values ...*T) *T {
	for _, v := range values {
		if v != nil && *v != 0 {
			out := *v
			return &out
		}
	}
	return nil
}
