package voyage

type textRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type multimodalRequest struct {
	Model  string            `json:"model"`
	Inputs []multimodalInput `json:"inputs"`
}

type multimodalInput struct {
	Content []contentItem `json:"content"`
}

type contentItem struct {
	Type        string `json:"type"` // "text", "image_url" or "image_base64"
	Text        string `json:"text,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type embeddingResponse struct {
	Object string `json:"object"`
	Model  string `json:"model"`
	Data   []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage *struct {
		TotalTokens *int `json:"total_tokens"`
	} `json:"usage"`
}
