package core

import "time"

// ProviderType identifies a chat provider implementation.
type ProviderType string

// Chat provider type tags.
const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderGemini     ProviderType = "gemini"
	ProviderGLM        ProviderType = "glm"
	ProviderKimi       ProviderType = "kimi"
	ProviderMinimax    ProviderType = "minimax"
	ProviderJimeng     ProviderType = "jimeng"
	ProviderDashScope  ProviderType = "dashscope"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderVolcano    ProviderType = "volcano"
	ProviderOllama     ProviderType = "ollama"
)

// ImageProviderType identifies an image generation provider implementation.
type ImageProviderType string

// Image provider type tags.
const (
	ImageProviderOpenAI    ImageProviderType = "openai-image"
	ImageProviderFalAI     ImageProviderType = "falai"
	ImageProviderGoogle    ImageProviderType = "google-image"
	ImageProviderAnthropic ImageProviderType = "anthropic"
	ImageProviderCustom    ImageProviderType = "custom-image"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// FinishReason explains why a completion stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
)

// ParseFinishReason maps a vendor finish reason onto the normalized set.
// Unknown or empty values map to FinishStop.
func ParseFinishReason(s string) FinishReason {
	switch FinishReason(s) {
	case FinishLength, FinishContentFilter:
		return FinishReason(s)
	default:
		return FinishStop
	}
}

// ChatMessage is a single message in a conversation.
type ChatMessage struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Timestamp int64        `json:"timestamp"`
	Provider  ProviderType `json:"provider,omitempty"`
	Model     string       `json:"model,omitempty"`
	Tokens    *int         `json:"tokens,omitempty"`
}

// ChatCompletionRequest is the normalized chat request every provider accepts.
type ChatCompletionRequest struct {
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// Validate checks the request invariants that do not depend on a provider.
func (r *ChatCompletionRequest) Validate() error {
	if r == nil {
		return NewInvalidRequestError("request is required", nil)
	}
	if len(r.Messages) == 0 {
		return NewInvalidRequestError("messages must not be empty", nil)
	}
	return nil
}

// Choice is one completion alternative.
type Choice struct {
	Message      ChatMessage  `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// Usage reports token accounting. Fields a backend omits are zero.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds a Usage, deriving the total when the backend did not report one.
func NewUsage(prompt, completion, total int) Usage {
	if total == 0 {
		total = prompt + completion
	}
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}

// ChatCompletionResponse is the normalized chat response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Content returns the text of the first choice, or "" when there is none.
func (r *ChatCompletionResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// StreamDelta is one incremental fragment of a streamed completion.
// The last delta of a stream has Done set and an empty Delta.
type StreamDelta struct {
	Delta string `json:"delta"`
	Done  bool   `json:"done"`
}

// ImageGenerationRequest is the normalized image generation request.
type ImageGenerationRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Number         int    `json:"number,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
}

// Validate rejects a request without a prompt.
func (r *ImageGenerationRequest) Validate() error {
	if r == nil || r.Prompt == "" {
		return NewInvalidRequestError("prompt must not be empty", nil)
	}
	return nil
}

// NumberOrDefault returns Number, or 1 when it is unset.
func (r *ImageGenerationRequest) NumberOrDefault() int {
	if r.Number <= 0 {
		return 1
	}
	return r.Number
}

// GeneratedImage is a single generated image reference.
type GeneratedImage struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt"`
}

// ImageGenerationResponse is the normalized image generation response.
// Pending is set when the vendor returned a job handle instead of final images;
// polling RequestID is left to the caller.
type ImageGenerationResponse struct {
	ID        string           `json:"id"`
	Created   int64            `json:"created"`
	Model     string           `json:"model"`
	Images    []GeneratedImage `json:"images"`
	Pending   bool             `json:"pending,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// ProviderConfig configures a chat provider instance.
type ProviderConfig struct {
	Type        ProviderType `json:"type" yaml:"type"`
	APIKey      string       `json:"api_key" yaml:"api_key"`
	BaseURL     string       `json:"base_url,omitempty" yaml:"base_url"`
	Model       string       `json:"model,omitempty" yaml:"model"`
	MaxTokens   *int         `json:"max_tokens,omitempty" yaml:"max_tokens"`
	Temperature *float64     `json:"temperature,omitempty" yaml:"temperature"`
	TopP        *float64     `json:"top_p,omitempty" yaml:"top_p"`
}

// ImageProviderOptions configures an image provider instance. An instance
// holds its own copy.
type ImageProviderOptions struct {
	Type    ImageProviderType `json:"type" yaml:"type"`
	APIKey  string            `json:"api_key" yaml:"api_key"`
	BaseURL string            `json:"base_url,omitempty" yaml:"base_url"`
	Model   string            `json:"model,omitempty" yaml:"model"`
}

// NowMillis returns the current time in unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Clone returns a copy that shares no pointers with c.
func (c ProviderConfig) Clone() ProviderConfig {
	out := c
	if c.MaxTokens != nil {
		v := *c.MaxTokens
		out.MaxTokens = &v
	}
	if c.Temperature != nil {
		v := *c.Temperature
		out.Temperature = &v
	}
	if c.TopP != nil {
		v := *c.TopP
		out.TopP = &v
	}
	return out
}
