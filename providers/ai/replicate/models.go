package replicate

type predictionRequest struct {
	Version string          `json:"version,omitempty"`
	Input   predictionInput `json:"input"`
}

type predictionInput struct {
	Prompt     string `json:"prompt"`
	NumOutputs int    `json:"num_outputs,omitempty"`
}

// Prediction statuses reported by Replicate.
const (
	statusStarting   = "starting"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusCanceled   = "canceled"
)
