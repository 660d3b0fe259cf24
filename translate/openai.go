package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// OpenAICompatible calls /models and /chat/completions of an
// OpenAI-compatible API. With local set it talks to a self-hosted server:
// no API key is required and no response_format is requested.
type OpenAICompatible struct {
	info   Info
	client *http.Client
	local  bool
}

func (o *OpenAICompatible) ID() string { return o.info.ID }

func (o *OpenAICompatible) baseURL(creds Credentials) (string, error) {
	base := o.info.BaseURL
	if creds.BaseURL != "" {
		base = creds.BaseURL
	}
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	if base == "" {
		return "", fmt.Errorf("%s: no base URL configured", o.info.Name)
	}
	return base, nil
}

func (o *OpenAICompatible) headers(creds Credentials) map[string]string {
	h := map[string]string{}
	if creds.APIKey != "" {
		h["Authorization"] = "Bearer " + creds.APIKey
	}
	if o.info.ID == ProviderOpenRouter {
		h["HTTP-Referer"] = "https://github.com/jarloc/jarloc"
		h["X-Title"] = "JarLoc"
	}
	return h
}

func (o *OpenAICompatible) checkKey(creds Credentials) error {
	if o.info.NeedsKey && creds.APIKey == "" {
		return fmt.Errorf("%w: %s requires an API key", ErrAuth, o.info.Name)
	}
	return nil
}

// DiscoverModels lists model IDs from /models. Hosted presets fall back to
// their default model when the listing fails for any reason other than
// rejected credentials; some gateways do not implement /models at all.
func (o *OpenAICompatible) DiscoverModels(ctx context.Context, creds Credentials) ([]string, error) {
	if err := o.checkKey(creds); err != nil {
		return nil, err
	}
	base, err := o.baseURL(creds)
	if err != nil {
		return nil, err
	}

	models, err := o.listModels(ctx, base, creds)
	if err != nil {
		if errors.Is(err, ErrAuth) || ctx.Err() != nil || o.info.DefaultModel == "" {
			return nil, err
		}
		return []string{o.info.DefaultModel}, nil
	}
	if len(models) == 0 {
		if o.info.DefaultModel != "" {
			return []string{o.info.DefaultModel}, nil
		}
		return nil, ErrNoModels
	}
	sort.Strings(models)
	return models, nil
}

func (o *OpenAICompatible) listModels(ctx context.Context, base string, creds Credentials) ([]string, error) {
	body, err := doRequest(ctx, o.client, o.info.ID, http.MethodGet, base+"/models", o.headers(creds), nil)
	if err != nil {
		return nil, err
	}

	// OpenAI and most gateways return {"data": [...]}; Ollama's native
	// listing uses {"models": [...]}.
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
		Models []struct {
			Name  string `json:"name"`
			Model string `json:"model"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProviderError{Provider: o.info.ID, Message: "unknown model list format: " + err.Error()}
	}
	var models []string
	for _, m := range resp.Data {
		if m.ID != "" {
			models = append(models, m.ID)
		}
	}
	for _, m := range resp.Models {
		switch {
		case m.Model != "":
			models = append(models, m.Model)
		case m.Name != "":
			models = append(models, m.Name)
		}
	}
	if resp.Data == nil && resp.Models == nil {
		return nil, &ProviderError{Provider: o.info.ID, Message: "unknown model list format"}
	}
	return models, nil
}

func buildOpenAIChatRequest(model, systemPrompt, userPrompt string, jsonMode bool) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type responseFormat struct {
		Type string `json:"type"`
	}
	req := struct {
		Model          string          `json:"model"`
		Messages       []msg           `json:"messages"`
		Temperature    float64         `json:"temperature"`
		Stream         bool            `json:"stream"`
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.1,
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return json.Marshal(req)
}

// Translate sends one payload to /chat/completions.
func (o *OpenAICompatible) Translate(ctx context.Context, creds Credentials, model, payload, targetLang string) (any, error) {
	if err := o.checkKey(creds); err != nil {
		return nil, err
	}
	base, err := o.baseURL(creds)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = o.info.DefaultModel
	}
	if model == "" {
		return nil, fmt.Errorf("%s: no model selected", o.info.Name)
	}

	reqBody, err := buildOpenAIChatRequest(model, SystemPrompt, BuildPrompt(payload, targetLang), !o.local)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	body, err := doRequest(ctx, o.client, o.info.ID, http.MethodPost, base+"/chat/completions", o.headers(creds), reqBody)
	if err != nil {
		return nil, err
	}
	text, err := extractResponseText(body)
	if err != nil {
		return nil, &ProviderError{Provider: o.info.ID, Message: err.Error()}
	}
	return ParseResponse(text)
}
