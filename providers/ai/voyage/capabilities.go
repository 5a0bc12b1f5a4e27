package voyage

import "github.com/leofalp/switchai/providers/ai"

const multimodalModel = "voyage-multimodal-3"

var capabilities = ai.Capabilities{
	Models: map[ai.Operation][]string{
		ai.OperationEmbed: {
			"voyage-3-large",
			"voyage-3",
			"voyage-3-lite",
			"voyage-3.5",
			"voyage-3.5-lite",
			"voyage-code-3",
			"voyage-finance-2",
			"voyage-law-2",
			"voyage-code-2",
			multimodalModel,
		},
	},
	MultimodalEmbeddingModels: []string{multimodalModel},
}
