package mistral

import "github.com/leofalp/switchai/providers/ai"

var capabilities = ai.Capabilities{
	Models: map[ai.Operation][]string{
		ai.OperationChat: {
			"mistral-large-latest",
			"mistral-small-latest",
			"mistral-medium-latest",
			"pixtral-large-latest",
			"pixtral-12b",
			"pixtral-*",
			"open-mistral-7b",
			"open-mistral-nemo",
			"open-mixtral-8x7b",
			"open-mixtral-8x22b",
			"ministral-*",
			"codestral-*",
		},
		ai.OperationEmbed: {"mistral-embed"},
	},
	VisionModels: []string{"pixtral-*", "mistral-small-latest", "mistral-medium-latest"},
}
