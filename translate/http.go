package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// HTTP client with proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// --proxy wins over HTTP_PROXY/HTTPS_PROXY
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ---------------------------------------------------------------------------
// Request execution
// ---------------------------------------------------------------------------

// doRequest performs one HTTP call and returns the body of a 2xx response.
// Transport failures wrap ErrConnectivity; other statuses become
// *ProviderError carrying the API's own error message when it has one.
func doRequest(ctx context.Context, client *http.Client, provider, method, endpoint string, headers map[string]string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectivity, provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading response: %v", ErrConnectivity, provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := apiErrorMessage(respBody)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ProviderError{Provider: provider, Status: resp.StatusCode, Message: msg}
	}
	return respBody, nil
}

// apiErrorMessage pulls error.message (or a bare string error) out of an
// API error body. It returns a truncated raw body when neither is present.
func apiErrorMessage(body []byte) string {
	var raw struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &raw); err == nil && len(raw.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
		var s string
		if json.Unmarshal(raw.Error, &s) == nil && s != "" {
			return s
		}
	}
	return truncate(strings.TrimSpace(string(body)), 500)
}

// ---------------------------------------------------------------------------
// Response text extraction
// ---------------------------------------------------------------------------

// extractResponseText returns the generated text of an OpenAI chat or Gemini
// generateContent response.
func extractResponseText(body []byte) (string, error) {
	var raw struct {
		Error   json.RawMessage `json:"error"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if len(raw.Error) > 0 && string(raw.Error) != "null" {
		return "", fmt.Errorf("API error: %s", apiErrorMessage(body))
	}

	// OpenAI chat format: choices[0].message.content
	if len(raw.Choices) > 0 && raw.Choices[0].Message.Content != "" {
		return raw.Choices[0].Message.Content, nil
	}

	// Gemini format: candidates[0].content.parts[*].text
	if len(raw.Candidates) > 0 {
		var b strings.Builder
		for _, p := range raw.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
		if reason := raw.Candidates[0].FinishReason; reason != "" {
			return "", fmt.Errorf("model returned no text (finish reason %s)", reason)
		}
	}

	return "", errors.New("model returned no text")
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
