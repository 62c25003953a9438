package llm

// Provider constants
const (
	// DefaultProvider is the default LLM provider
	DefaultProvider = ProviderGroq

	// ProviderGroq represents Groq's OpenAI-compatible endpoint
	ProviderGroq = "groq"

	// ProviderOpenAI represents the OpenAI provider
	ProviderOpenAI = "openai"

	// ProviderOllama represents the Ollama provider
	ProviderOllama = "ollama"

	// ProviderAnthropic represents the Anthropic provider
	ProviderAnthropic = "anthropic"

	// ProviderGemini represents the Google Gemini provider
	ProviderGemini = "gemini"
)

// DefaultOllamaURL is the default URL for Ollama server
const DefaultOllamaURL = "http://localhost:11434"

// DefaultGroqURL is the OpenAI-compatible base URL for Groq
const DefaultGroqURL = "https://api.groq.com/openai/v1"

// Model defaults per provider, used for any role without its own entry.
var defaultModels = map[Provider]string{
	ProviderGroq:      "llama-3.3-70b-versatile",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-sonnet-latest",
	ProviderGemini:    "gemini-2.0-flash",
	ProviderOllama:    "llama3.1",
}

// DefaultModelForProvider returns the fallback model ID for a provider.
func DefaultModelForProvider(provider string) string {
	return defaultModels[Provider(provider)]
}
