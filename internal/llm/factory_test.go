package llm

import (
	"context"
	"reflect"
	"testing"
)

func TestNew_NoProviders(t *testing.T) {
	t.Parallel()

	client, err := New(context.Background(), Config{}, testLogger(), nil)
	if err != nil {
		t.Errorf("New() error = %v, want nil", err)
	}
	if client != nil {
		t.Error("New() should return nil when no providers configured")
	}
}

func TestNew_OpenAIOnly(t *testing.T) {
	t.Parallel()

	cfg := Config{OpenAIAPIKey: "sk-test"}
	client, err := New(context.Background(), cfg, testLogger(), nil)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	if client == nil {
		t.Fatal("New() = nil, want client")
	}
	t.Cleanup(func() { _ = client.Close() })

	if got := client.Provider(); got != ProviderOpenAI {
		t.Errorf("Provider() = %v, want %v", got, ProviderOpenAI)
	}
	if !client.IsEnabled() {
		t.Error("IsEnabled() = false, want true")
	}
}

func TestNew_PrimaryWithoutKeySkipped(t *testing.T) {
	t.Parallel()

	// Gemini is preferred but has no key, so openai leads the chain.
	cfg := Config{
		OpenAIAPIKey: "sk-test",
		Primary:      ProviderGemini,
	}
	client, err := New(context.Background(), cfg, testLogger(), nil)
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	if client == nil {
		t.Fatal("New() = nil, want client")
	}
	t.Cleanup(func() { _ = client.Close() })

	if got := client.Provider(); got != ProviderOpenAI {
		t.Errorf("Provider() = %v, want %v", got, ProviderOpenAI)
	}
}

func TestProviderOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want []Provider
	}{
		{
			name: "defaults",
			cfg:  Config{},
			want: []Provider{ProviderOpenAI, ProviderGemini},
		},
		{
			name: "explicit reversal",
			cfg:  Config{Primary: ProviderGemini, Secondary: ProviderOpenAI},
			want: []Provider{ProviderGemini, ProviderOpenAI},
		},
		{
			name: "primary equals default secondary",
			cfg:  Config{Primary: ProviderGemini},
			want: []Provider{ProviderGemini},
		},
		{
			name: "configured provider outside the order joins the end",
			cfg:  Config{Primary: ProviderGemini, OpenAIAPIKey: "sk-test"},
			want: []Provider{ProviderGemini, ProviderOpenAI},
		},
		{
			name: "duplicate order with stray key",
			cfg:  Config{Primary: ProviderOpenAI, Secondary: ProviderOpenAI, GeminiAPIKey: "g-test"},
			want: []Provider{ProviderOpenAI, ProviderGemini},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := providerOrder(tt.cfg)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("providerOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigHasAnyProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"no providers", Config{}, false},
		{"openai only", Config{OpenAIAPIKey: "sk-test"}, true},
		{"gemini only", Config{GeminiAPIKey: "g-test"}, true},
		{"both providers", Config{OpenAIAPIKey: "sk-test", GeminiAPIKey: "g-test"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.HasAnyProvider(); got != tt.want {
				t.Errorf("HasAnyProvider() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfigHasProvider(t *testing.T) {
	t.Parallel()

	cfg := Config{OpenAIAPIKey: "sk-test"}

	if !cfg.HasProvider(ProviderOpenAI) {
		t.Error("HasProvider(openai) should return true")
	}
	if cfg.HasProvider(ProviderGemini) {
		t.Error("HasProvider(gemini) should return false")
	}
	if cfg.HasProvider("unknown") {
		t.Error("HasProvider(unknown) should return false")
	}
}

func TestDefaultRetryConfigValues(t *testing.T) {
	t.Parallel()

	cfg := DefaultRetryConfig()

	if cfg.MaxAttempts != DefaultMaxRetryAttempts {
		t.Errorf("MaxAttempts = %v, want %v", cfg.MaxAttempts, DefaultMaxRetryAttempts)
	}
	if cfg.InitialDelay != DefaultInitialRetryDelay {
		t.Errorf("InitialDelay = %v, want %v", cfg.InitialDelay, DefaultInitialRetryDelay)
	}
	if cfg.MaxDelay != DefaultMaxRetryDelay {
		t.Errorf("MaxDelay = %v, want %v", cfg.MaxDelay, DefaultMaxRetryDelay)
	}
}

func TestProviderString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		provider Provider
		want     string
	}{
		{ProviderOpenAI, "openai"},
		{ProviderGemini, "gemini"},
		{Provider("custom"), "custom"},
	}

	for _, tt := range tests {
		if got := tt.provider.String(); got != tt.want {
			t.Errorf("Provider.String() = %q, want %q", got, tt.want)
		}
	}
}
