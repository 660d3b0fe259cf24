// Package translate contains tests for the provider layer.
package translate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jarloc/jarloc/langjson"
)

// ---------------------------------------------------------------------------
// Retry
// ---------------------------------------------------------------------------

func recordingSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestRetry_OverloadedTwiceThenSuccess(t *testing.T) {
	var waits []time.Duration
	p := DefaultRetryPolicy()
	p.Sleep = recordingSleep(&waits)

	calls := 0
	got, err := Retry(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &ProviderError{Provider: "gemini", Status: 503, Message: "The model is overloaded."}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry() error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("Retry() = %q after %d calls, want ok after 3", got, calls)
	}
	if want := []time.Duration{2 * time.Second, 4 * time.Second}; !reflect.DeepEqual(waits, want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
}

func TestRetry_NonTransientFailsImmediately(t *testing.T) {
	var waits []time.Duration
	p := DefaultRetryPolicy()
	p.Sleep = recordingSleep(&waits)

	calls := 0
	_, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, &ProviderError{Provider: "groq", Status: 401, Message: "invalid api key"}
	})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Retry() error = %v, want ErrAuth", err)
	}
	if calls != 1 || len(waits) != 0 {
		t.Fatalf("calls=%d waits=%v, want a single call", calls, waits)
	}
}

func TestRetry_ExhaustedReturnsLastError(t *testing.T) {
	var waits []time.Duration
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: recordingSleep(&waits)}

	calls := 0
	_, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d: status 429", calls)
	})
	if err == nil || !strings.Contains(err.Error(), "attempt 3") {
		t.Fatalf("Retry() error = %v, want the third attempt's error", err)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !reflect.DeepEqual(waits, want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var attempts []int
	p := RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
		OnRetry:     func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) },
	}
	_, _ = Retry(context.Background(), p, func(context.Context) (int, error) {
		return 0, errors.New("overloaded")
	})
	if !reflect.DeepEqual(attempts, []int{1}) {
		t.Fatalf("OnRetry attempts = %v, want [1]", attempts)
	}
}

func TestRetry_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Hour}
	_, err := Retry(ctx, p, func(context.Context) (int, error) {
		return 0, errors.New("overloaded")
	})
	if err == nil {
		t.Fatal("Retry() returned nil error")
	}
}

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&ProviderError{Status: 429, Message: "slow down"}, true},
		{&ProviderError{Status: 503, Message: "unavailable"}, true},
		{&ProviderError{Status: 500, Message: "The model is overloaded"}, true},
		{&ProviderError{Status: 400, Message: "bad request"}, false},
		{fmt.Errorf("wrapped: %w", &ProviderError{Status: 429}), true},
		{errors.New("Error 429: Too Many Requests"), true},
		{errors.New("connection refused"), false},
		{&MalformedResponseError{Raw: "x", Err: errors.New("bad")}, false},
	}
	for _, tc := range tests {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestProviderError_AuthStatusesUnwrapToErrAuth(t *testing.T) {
	for _, status := range []int{401, 403} {
		err := error(&ProviderError{Provider: "groq", Status: status, Message: "nope"})
		if !errors.Is(err, ErrAuth) {
			t.Fatalf("status %d: errors.Is(ErrAuth) = false", status)
		}
	}
	if errors.Is(&ProviderError{Status: 500}, ErrAuth) {
		t.Fatal("status 500 must not be an auth error")
	}
}

// ---------------------------------------------------------------------------
// Prompt and response parsing
// ---------------------------------------------------------------------------

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(`{"a":"b"}`, "es")
	for _, want := range []string{
		`target language code: "es" (Spanish)`,
		"DO NOT translate keys",
		"(§, %, <br>)",
		`{"a":"b"}`,
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("BuildPrompt() lacks %q:\n%s", want, p)
		}
	}
}

func TestLanguageName(t *testing.T) {
	tests := []struct{ code, want string }{
		{"es", "Spanish"},
		{"pt", "Portuguese"},
		{"??", ""},
	}
	for _, tc := range tests {
		if got := LanguageName(tc.code); got != tc.want {
			t.Fatalf("LanguageName(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
	if got := LanguageName("de_de"); !strings.HasPrefix(got, "German") {
		t.Fatalf("LanguageName(de_de) = %q, want German...", got)
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	_, err := ParseResponse("Sorry, I can't do that.")
	var mre *MalformedResponseError
	if !errors.As(err, &mre) {
		t.Fatalf("ParseResponse() error = %v, want *MalformedResponseError", err)
	}
	if mre.Raw != "Sorry, I can't do that." {
		t.Fatalf("Raw = %q", mre.Raw)
	}
}

func TestParseResponse_RepairsTruncatedObject(t *testing.T) {
	v, err := ParseResponse("```json\n{\"a\": \"Hola\", \"b\": \"Mun")
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	obj := v.(*langjson.Object)
	if s, _ := obj.String("a"); s != "Hola" {
		t.Fatalf("a = %q, want Hola", s)
	}
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestNew_KnownAndUnknown(t *testing.T) {
	for _, id := range ProviderIDs() {
		p, err := New(id, Options{})
		if err != nil {
			t.Fatalf("New(%q) error: %v", id, err)
		}
		if p.ID() != id {
			t.Fatalf("New(%q).ID() = %q", id, p.ID())
		}
	}
	if _, err := New("babelfish", Options{}); err == nil {
		t.Fatal("New() accepted an unknown provider")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"añb", 2, "a..."},
		{"日本語", 4, "日..."},
		{"日本語", 6, "日本..."},
	}
	for _, tc := range tests {
		got := truncate(tc.in, tc.max)
		if got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%q, %d) = %q is not valid UTF-8", tc.in, tc.max, got)
		}
	}
}
