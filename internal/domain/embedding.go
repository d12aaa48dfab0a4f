package domain

// EmbeddingResult is the outcome of vectorizing text, with token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
