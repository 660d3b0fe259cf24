// Package config loads the .jarloc.yaml configuration file.
//
// Settings are resolved in layers: built-in defaults, then .jarloc.yaml in
// the working directory, then JARLOC_* environment variables (optionally
// read from .env / .env.local). Command-line flags are applied last by the
// caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/jarloc/jarloc/batch"
	"github.com/jarloc/jarloc/chunk"
	"github.com/jarloc/jarloc/translate"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level .jarloc.yaml structure.
type File struct {
	// Provider is the translation backend (gemini, groq, deepseek, openrouter,
	// custom-openai, local).
	Provider string `yaml:"provider,omitempty"`
	// Model is the model ID; empty means the provider default.
	Model string `yaml:"model,omitempty"`
	// TargetLang is the language to translate into ("es", "pt_br").
	TargetLang string `yaml:"target_lang,omitempty"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL for provider calls.
	Proxy string `yaml:"proxy,omitempty"`
	// Timeout overrides the provider request timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	ChunkSize      int           `yaml:"chunk_size,omitempty"`
	LargeThreshold int           `yaml:"large_threshold,omitempty"`
	MaxAttempts    int           `yaml:"max_attempts,omitempty"`
	RetryDelay     time.Duration `yaml:"retry_delay,omitempty"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty"`
	CourtesyDelay  time.Duration `yaml:"courtesy_delay,omitempty"`

	// OutputDir receives the generated resource packs.
	OutputDir string `yaml:"output_dir,omitempty"`
	// BasePacks are resource packs merged under the translations by
	// merge-packs.
	BasePacks []string `yaml:"base_packs,omitempty"`
}

// FileName is the default config file name.
const FileName = ".jarloc.yaml"

// Defaults returns the built-in settings.
func Defaults() *File {
	return &File{
		Provider:       translate.ProviderGemini,
		TargetLang:     "es",
		ChunkSize:      chunk.DefaultSize,
		LargeThreshold: chunk.LargeDocumentThreshold,
		MaxAttempts:    3,
		RetryDelay:     2 * time.Second,
		PollInterval:   batch.DefaultPollInterval,
		CourtesyDelay:  batch.DefaultCourtesyDelay,
		OutputDir:      ".",
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load resolves the configuration for rootDir. A missing .jarloc.yaml is not
// an error; unknown keys are.
func Load(rootDir string) (*File, error) {
	// .env.local first: godotenv never overrides variables already set.
	for _, name := range []string{".env.local", ".env"} {
		p := filepath.Join(rootDir, name)
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", p, err)
		}
	}

	f := Defaults()
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := f.applyEnv(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func decode(data []byte, f *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (f *File) applyEnv() error {
	for env, dst := range map[string]*string{
		"JARLOC_PROVIDER":    &f.Provider,
		"JARLOC_MODEL":       &f.Model,
		"JARLOC_TARGET_LANG": &f.TargetLang,
		"JARLOC_BASE_URL":    &f.BaseURL,
		"JARLOC_PROXY":       &f.Proxy,
		"JARLOC_OUTPUT_DIR":  &f.OutputDir,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("JARLOC_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JARLOC_CHUNK_SIZE: %w", err)
		}
		f.ChunkSize = n
	}
	return nil
}

// Validate checks the settings and normalizes the target language.
func (f *File) Validate() error {
	if _, ok := translate.DefaultProviders()[f.Provider]; !ok {
		return fmt.Errorf("unknown provider %q (valid: %s)", f.Provider, strings.Join(translate.ProviderIDs(), ", "))
	}
	lang, err := NormalizeTargetLang(f.TargetLang)
	if err != nil {
		return err
	}
	f.TargetLang = lang
	if f.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be at least 1, got %d", f.ChunkSize)
	}
	if f.LargeThreshold < 1 {
		return fmt.Errorf("large_threshold must be positive, got %d", f.LargeThreshold)
	}
	if f.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", f.MaxAttempts)
	}
	if f.RetryDelay < 0 || f.PollInterval <= 0 || f.CourtesyDelay < 0 {
		return errors.New("retry_delay, poll_interval and courtesy_delay must not be negative")
	}
	return nil
}

// NormalizeTargetLang validates a language code and returns it in the
// lowercase underscore form used for file names ("pt-BR" -> "pt_br").
func NormalizeTargetLang(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", errors.New("target_lang is required")
	}
	if _, err := language.Parse(strings.ReplaceAll(code, "_", "-")); err != nil {
		return "", fmt.Errorf("invalid target language %q: %w", code, err)
	}
	return strings.ToLower(strings.ReplaceAll(code, "-", "_")), nil
}

// BatchOptions converts the settings into orchestrator options.
func (f *File) BatchOptions() batch.Options {
	courtesy := f.CourtesyDelay
	if courtesy == 0 {
		courtesy = -1
	}
	return batch.Options{
		TargetLang:     f.TargetLang,
		Model:          f.Model,
		ChunkSize:      f.ChunkSize,
		LargeThreshold: f.LargeThreshold,
		PollInterval:   f.PollInterval,
		CourtesyDelay:  courtesy,
		Retry: translate.RetryPolicy{
			MaxAttempts: f.MaxAttempts,
			BaseDelay:   f.RetryDelay,
		},
	}
}

// ProviderOptions converts the settings into provider construction options.
func (f *File) ProviderOptions() translate.Options {
	return translate.Options{Proxy: f.Proxy, Timeout: f.Timeout}
}
