package anthropic

import "github.com/leofalp/switchai/providers/ai"

// capabilities lists the known Claude models. Anthropic serves one choice per
// request and rejects requests without max_tokens.
var capabilities = ai.Capabilities{
	Models: map[ai.Operation][]string{
		ai.OperationChat: {
			"claude-3-5-sonnet-latest",
			"claude-3-5-haiku-latest",
			"claude-3-opus-latest",
			"claude-*",
		},
	},
	MaxChoices:        1,
	RequiresMaxTokens: true,
	VisionModels: []string{
		"claude-3-5-sonnet*",
		"claude-3-7-sonnet*",
		"claude-3-opus*",
		"claude-3-haiku*",
		"claude-sonnet-4*",
		"claude-opus-4*",
	},
}
