// Package translate talks to AI translation backends: Google AI (Gemini),
// OpenAI-compatible APIs (Groq, DeepSeek, OpenRouter, custom endpoints) and
// local OpenAI-compatible servers (Ollama, LM Studio, llama.cpp).
//
// Every backend implements Provider. A provider translates one serialized
// JSON payload per call and returns the parsed JSON value; retries, chunking
// and pausing are the caller's business.
package translate

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"
)

// ---------------------------------------------------------------------------
// Provider IDs
// ---------------------------------------------------------------------------

const (
	ProviderGemini       = "gemini"
	ProviderGroq         = "groq"
	ProviderDeepSeek     = "deepseek"
	ProviderOpenRouter   = "openrouter"
	ProviderCustomOpenAI = "custom-openai"
	ProviderLocal        = "local"
)

// ---------------------------------------------------------------------------
// Provider contract
// ---------------------------------------------------------------------------

// Credentials authenticate a provider call. BaseURL, when set, replaces the
// provider's default endpoint.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// Provider is a translation backend.
type Provider interface {
	// ID returns the provider identifier (gemini, groq, local, ...).
	ID() string
	// DiscoverModels lists the models usable for translation, sorted.
	// It fails with ErrAuth, ErrConnectivity or ErrNoModels.
	DiscoverModels(ctx context.Context, creds Credentials) ([]string, error)
	// Translate sends payload (a serialized JSON object or array) and
	// returns the translated value parsed into langjson form. Upstream
	// failures are reported as *ProviderError, unparseable output as
	// *MalformedResponseError.
	Translate(ctx context.Context, creds Credentials, model, payload, targetLang string) (any, error)
}

// ---------------------------------------------------------------------------
// Provider presets
// ---------------------------------------------------------------------------

// Info describes a provider preset.
type Info struct {
	// ID is the provider identifier.
	ID string
	// Name is the display name.
	Name string
	// BaseURL is the default API base URL.
	BaseURL string
	// DefaultModel is used when model discovery is not possible.
	DefaultModel string
	// EnvKey is the environment variable conventionally holding the API key.
	EnvKey string
	// KeyURL is where users obtain an API key.
	KeyURL string
	// NeedsKey reports whether calls require an API key.
	NeedsKey bool
	// Timeout is the request timeout.
	Timeout time.Duration
}

// DefaultProviders returns the pre-configured provider definitions.
func DefaultProviders() map[string]Info {
	return map[string]Info{
		ProviderGemini: {
			ID:       ProviderGemini,
			Name:     "Google AI (Gemini)",
			BaseURL:  "https://generativelanguage.googleapis.com",
			EnvKey:   "GEMINI_API_KEY",
			KeyURL:   "https://aistudio.google.com/app/apikey",
			NeedsKey: true,
			Timeout:  120 * time.Second,
		},
		ProviderGroq: {
			ID:           ProviderGroq,
			Name:         "Groq",
			BaseURL:      "https://api.groq.com/openai/v1",
			DefaultModel: "llama3-70b-8192",
			EnvKey:       "GROQ_API_KEY",
			KeyURL:       "https://console.groq.com/keys",
			NeedsKey:     true,
			Timeout:      60 * time.Second,
		},
		ProviderDeepSeek: {
			ID:           ProviderDeepSeek,
			Name:         "DeepSeek",
			BaseURL:      "https://api.deepseek.com",
			DefaultModel: "deepseek-chat",
			EnvKey:       "DEEPSEEK_API_KEY",
			KeyURL:       "https://platform.deepseek.com/api_keys",
			NeedsKey:     true,
			Timeout:      120 * time.Second,
		},
		ProviderOpenRouter: {
			ID:           ProviderOpenRouter,
			Name:         "OpenRouter",
			BaseURL:      "https://openrouter.ai/api/v1",
			DefaultModel: "mistralai/mistral-7b-instruct:free",
			EnvKey:       "OPENROUTER_API_KEY",
			KeyURL:       "https://openrouter.ai/keys",
			NeedsKey:     true,
			Timeout:      120 * time.Second,
		},
		ProviderCustomOpenAI: {
			ID:       ProviderCustomOpenAI,
			Name:     "Custom OpenAI",
			EnvKey:   "OPENAI_API_KEY",
			NeedsKey: true,
			Timeout:  60 * time.Second,
		},
		ProviderLocal: {
			ID:      ProviderLocal,
			Name:    "Local server",
			BaseURL: "http://localhost:11434/v1",
			Timeout: 300 * time.Second,
		},
	}
}

// ProviderIDs returns all known provider IDs, sorted.
func ProviderIDs() []string {
	var ids []string
	for id := range DefaultProviders() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Options configures provider construction.
type Options struct {
	// HTTPClient overrides the client built from Proxy and the preset timeout.
	HTTPClient *http.Client
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout overrides the preset request timeout.
	Timeout time.Duration
}

// New returns the provider registered under id.
func New(id string, opts Options) (Provider, error) {
	info, ok := DefaultProviders()[id]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", id, ProviderIDs())
	}
	if opts.Timeout > 0 {
		info.Timeout = opts.Timeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = makeHTTPClient(opts.Proxy, info.Timeout)
	}

	switch id {
	case ProviderGemini:
		return &Gemini{info: info, client: client}, nil
	case ProviderLocal:
		return &OpenAICompatible{info: info, client: client, local: true}, nil
	default:
		return &OpenAICompatible{info: info, client: client}, nil
	}
}
