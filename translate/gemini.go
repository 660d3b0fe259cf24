package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Gemini calls the Google AI generateContent API.
type Gemini struct {
	info   Info
	client *http.Client
}

func (g *Gemini) ID() string { return g.info.ID }

func (g *Gemini) baseURL(creds Credentials) string {
	if creds.BaseURL != "" {
		return strings.TrimRight(creds.BaseURL, "/")
	}
	return strings.TrimRight(g.info.BaseURL, "/")
}

// DiscoverModels lists the models supporting generateContent, without the
// "models/" prefix.
func (g *Gemini) DiscoverModels(ctx context.Context, creds Credentials) ([]string, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", ErrAuth, g.info.Name)
	}

	var models []string
	pageToken := ""
	for {
		endpoint := g.baseURL(creds) + "/v1beta/models?pageSize=1000"
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}
		body, err := doRequest(ctx, g.client, g.info.ID, http.MethodGet, endpoint,
			map[string]string{"x-goog-api-key": creds.APIKey}, nil)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Models []struct {
				Name                       string   `json:"name"`
				SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
			} `json:"models"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &ProviderError{Provider: g.info.ID, Message: "invalid model list: " + err.Error()}
		}
		for _, m := range resp.Models {
			for _, method := range m.SupportedGenerationMethods {
				if method == "generateContent" {
					models = append(models, strings.TrimPrefix(m.Name, "models/"))
					break
				}
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(models) == 0 {
		return nil, ErrNoModels
	}
	sort.Strings(models)
	return models, nil
}

func buildGeminiRequest(systemPrompt, userPrompt string) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: 0.1, MaxOutputTokens: 8192},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

// Translate sends one payload to models/{model}:generateContent.
func (g *Gemini) Translate(ctx context.Context, creds Credentials, model, payload, targetLang string) (any, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%w: %s requires an API key", ErrAuth, g.info.Name)
	}
	if model == "" {
		return nil, fmt.Errorf("%s: no model selected", g.info.Name)
	}

	reqBody, err := buildGeminiRequest(SystemPrompt, BuildPrompt(payload, targetLang))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		g.baseURL(creds), url.PathEscape(strings.TrimPrefix(model, "models/")))

	body, err := doRequest(ctx, g.client, g.info.ID, http.MethodPost, endpoint,
		map[string]string{"x-goog-api-key": creds.APIKey}, reqBody)
	if err != nil {
		return nil, err
	}
	text, err := extractResponseText(body)
	if err != nil {
		return nil, &ProviderError{Provider: g.info.ID, Message: err.Error()}
	}
	return ParseResponse(text)
}
