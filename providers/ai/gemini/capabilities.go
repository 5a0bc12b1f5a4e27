package gemini

import "github.com/leofalp/switchai/providers/ai"

// maxCandidates is the largest candidateCount Gemini accepts.
const maxCandidates = 8

var chatModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-1.5-flash-8b",
	"gemini-1.5-*",
	"gemini-2.0-*",
	"gemini-2.5-*",
}

var capabilities = ai.Capabilities{
	Models: map[ai.Operation][]string{
		ai.OperationChat: chatModels,
		ai.OperationEmbed: {
			"text-embedding-004",
			"embedding-001",
			"models/text-embedding-004",
			"models/embedding-001",
			"gemini-embedding-*",
		},
	},
	MaxChoices: maxCandidates,
	// Every Gemini chat model is multimodal.
	VisionModels: chatModels,
}
