package providers

import "aihub/internal/core"

// Info is display metadata for a provider type
type Info struct {
	Type        core.ProviderType `json:"type"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
}

// Metadata lists every known chat provider type, including ones without an
// implementation in this build.
var Metadata = []Info{
	{core.ProviderOpenAI, "OpenAI", "GPT-4, GPT-3.5 models"},
	{core.ProviderGLM, "智谱 GLM", "GLM-4, GLM-3-Turbo"},
	{core.ProviderGemini, "Google Gemini", "Gemini Pro, Ultra"},
	{core.ProviderKimi, "Moonshot Kimi", "Kimi k1.5, Kimi k2"},
	{core.ProviderMinimax, "Minimax", "MoE models"},
	{core.ProviderJimeng, "即梦 AI", "Image generation"},
	{core.ProviderDashScope, "阿里云 DashScope", "Qwen, LLaMA"},
	{core.ProviderOpenRouter, "OpenRouter", "Unified API for multiple models"},
	{core.ProviderVolcano, "火山引擎", "Douyin models"},
	{core.ProviderOllama, "Ollama (本地)", "Local models (Llama, Mistral, etc.)"},
}

// Describe returns the metadata for t
func Describe(t core.ProviderType) (Info, bool) {
	for _, info := range Metadata {
		if info.Type == t {
			return info, true
		}
	}
	return Info{}, false
}
