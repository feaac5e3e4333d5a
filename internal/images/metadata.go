package images

import "aihub/internal/core"

// Info is display metadata for an image provider type
type Info struct {
	Type        core.ImageProviderType `json:"type"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
}

// Metadata lists every known image provider type, including ones without an
// implementation in this build.
var Metadata = []Info{
	{core.ImageProviderOpenAI, "OpenAI DALL-E", "DALL-E 3, DALL-E 2"},
	{core.ImageProviderFalAI, "fal.ai", "Leonardo, Stable Diffusion XL, Playground v2"},
	{core.ImageProviderGoogle, "Google Imagen", "Imagen 3, Imagen 2"},
	{core.ImageProviderAnthropic, "Anthropic Images", "Anthropic image generation"},
	{core.ImageProviderCustom, "Custom Image API", "Any OpenAI-compatible image API"},
}

// Describe returns the metadata for t
func Describe(t core.ImageProviderType) (Info, bool) {
	for _, info := range Metadata {
		if info.Type == t {
			return info, true
		}
	}
	return Info{}, false
}
