package openai

import "github.com/leofalp/switchai/providers/ai"

// openaiCapabilities lists OpenAI's known models per operation. Model lists
// do not overlap, so a name resolves to exactly one operation.
var openaiCapabilities = ai.Capabilities{
	Models: map[ai.Operation][]string{
		ai.OperationChat: {
			"gpt-4o-mini",
			"gpt-4o",
			"o1-preview",
			"o1-mini",
			"gpt-4",
			"gpt-4-turbo",
			"gpt-4.1*",
			"gpt-5*",
			"gpt-3.5-turbo*",
			"o3*",
			"o4*",
		},
		ai.OperationEmbed: {
			"text-embedding-ada-002",
			"text-embedding-3-small",
			"text-embedding-3-large",
		},
		ai.OperationTranscribe: {
			"whisper-1",
		},
		ai.OperationGenerateImage: {
			"dall-e-2",
			"dall-e-3",
			"gpt-image-1",
		},
	},
	VisionModels: []string{
		"gpt-4o*",
		"gpt-4-turbo*",
		"gpt-4.1*",
		"gpt-5*",
		"o1",
		"o3*",
		"o4*",
	},
	MaxImages: map[string]int{
		"dall-e-3": 1,
	},
}

// xaiCapabilities lists xAI's chat models; only the vision variants accept
// image parts.
var xaiCapabilities = ai.Capabilities{
	Models: map[ai.Operation][]string{
		ai.OperationChat: {
			"grok-beta",
			"grok-vision-beta",
			"grok-2*",
			"grok-3*",
			"grok-4*",
		},
	},
	VisionModels: []string{
		"grok-vision-beta",
		"grok-2-vision*",
		"grok-4*",
	},
}
