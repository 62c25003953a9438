package llm

import (
	"context"
	"errors"
	"testing"
)

func TestValidateProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     Provider
		wantErr  bool
	}{
		{name: "valid groq", provider: "groq", want: ProviderGroq},
		{name: "valid openai", provider: "openai", want: ProviderOpenAI},
		{name: "valid ollama", provider: "ollama", want: ProviderOllama},
		{name: "valid anthropic", provider: "anthropic", want: ProviderAnthropic},
		{name: "valid gemini", provider: "gemini", want: ProviderGemini},
		{name: "invalid provider", provider: "invalid", wantErr: true},
		{name: "empty provider", provider: "", wantErr: true},
		{name: "case sensitive - GROQ fails", provider: "GROQ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateProvider(tt.provider)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProvider() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedProvider) {
				t.Errorf("ValidateProvider() error = %v, want ErrUnsupportedProvider", err)
			}
			if got != tt.want {
				t.Errorf("ValidateProvider() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewChatModel_MissingAPIKey(t *testing.T) {
	ctx := context.Background()
	for _, p := range []Provider{ProviderGroq, ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
		t.Run(string(p), func(t *testing.T) {
			_, err := NewChatModel(ctx, Config{Provider: p, Model: "m"})
			if err == nil {
				t.Errorf("expected error for %s without API key", p)
			}
		})
	}
}

func TestNewChatModel_UnsupportedProvider(t *testing.T) {
	_, err := NewChatModel(context.Background(), Config{Provider: "bedrock"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestDefaultRoleSettings(t *testing.T) {
	tests := []struct {
		provider Provider
		role     Role
		model    string
		temp     float32
	}{
		{ProviderGroq, RolePlanning, "moonshotai/kimi-k2-instruct", 0.7},
		{ProviderGroq, RoleReview, "openai/gpt-oss-120b", 0.2},
		{ProviderGroq, Role("unknown"), "llama-3.3-70b-versatile", 0.3},
		{ProviderOpenAI, RoleCoding, "gpt-4o-mini", 0.1},
		{ProviderOllama, RoleFixer, "llama3.1", 0.1},
	}
	for _, tt := range tests {
		t.Run(string(tt.provider)+"/"+string(tt.role), func(t *testing.T) {
			got := DefaultRoleSettings(tt.provider, tt.role)
			if got.Model != tt.model {
				t.Errorf("model = %q, want %q", got.Model, tt.model)
			}
			if got.Temperature != tt.temp {
				t.Errorf("temperature = %v, want %v", got.Temperature, tt.temp)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens(\"\") = %d, want 0", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Errorf("EstimateTokens(abcde) = %d, want 2", got)
	}
}
