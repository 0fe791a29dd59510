package ai

// NewMindsDBProvider talks to the OpenAI-compatible endpoint a MindsDB
// server exposes for its models and agents
func NewMindsDBProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:47334/api/projects/mindsdb"
	}
	p := NewOpenAIProvider(apiKey, baseURL, model)
	p.name = ProviderMindsDB
	return p
}
