// jarloc translates Minecraft mods and modpacks with AI providers.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jarloc/jarloc/archive"
	"github.com/jarloc/jarloc/batch"
	"github.com/jarloc/jarloc/config"
	"github.com/jarloc/jarloc/i18n"
	"github.com/jarloc/jarloc/langjson"
	"github.com/jarloc/jarloc/settings"
	"github.com/jarloc/jarloc/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	With().Timestamp().Logger()

func setupLogging(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger = logger.Level(level)
}

func logDebug(format string, args ...any) {
	logger.Debug().Msgf(format, args...)
}

func logInfo(format string, args ...any) {
	logger.Info().Msgf(format, args...)
}

func logSuccess(format string, args ...any) {
	logger.Info().Str("status", "ok").Msgf(format, args...)
}

func logWarning(format string, args ...any) {
	logger.Warn().Msgf(format, args...)
}

func logError(format string, args ...any) {
	logger.Error().Msgf(format, args...)
}

// logEvent writes an orchestrator event.
func logEvent(e batch.Event) {
	var ev *zerolog.Event
	switch e.Level {
	case batch.LevelError:
		ev = logger.Error()
	case batch.LevelWarning:
		ev = logger.Warn()
	default:
		ev = logger.Info()
	}
	if e.Level == batch.LevelSuccess {
		ev = ev.Str("status", "ok")
	}
	if e.Item != "" {
		ev = ev.Str("item", e.Item)
	}
	if e.Chunks > 0 {
		ev = ev.Str("part", fmt.Sprintf("%d/%d", e.Chunk, e.Chunks))
	}
	if len(e.RunID) >= 8 && e.Type == batch.EventRunStarted {
		ev = ev.Str("run", e.RunID[:8])
	}
	ev.Msg(eventMessage(e))
}

func eventMessage(e batch.Event) string {
	if e.Type != batch.EventItemStatus {
		return e.Message
	}
	var label string
	switch e.Status {
	case batch.StatusTranslating:
		label = i18n.T("translating")
	case batch.StatusDone:
		label = i18n.T("done")
	case batch.StatusWarning:
		label = i18n.T("warning")
	case batch.StatusError:
		label = i18n.T("failed")
	default:
		label = i18n.T("pending")
	}
	if e.Message == "" {
		return label
	}
	return label + ": " + e.Message
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	verbose bool
)

// providerFlags are shared by every command that talks to a provider.
type providerFlags struct {
	provider string
	apiKey   string
	model    string
	baseURL  string
	proxy    string
	timeout  time.Duration
}

func addProviderFlags(fs *pflag.FlagSet, pf *providerFlags) {
	fs.StringVar(&pf.provider, "provider", "", "AI provider: "+strings.Join(translate.ProviderIDs(), ", "))
	fs.StringVar(&pf.apiKey, "api-key", "", "API key (or JARLOC_API_KEY env var)")
	fs.StringVar(&pf.model, "model", "", "Model name (default: saved or first discovered model)")
	fs.StringVar(&pf.baseURL, "base-url", "", "Custom API base URL")
	fs.StringVar(&pf.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	fs.DurationVar(&pf.timeout, "timeout", 0, "Request timeout (0 = provider default)")
}

// loadConfig resolves .jarloc.yaml and environment settings, then applies
// the flags the user set explicitly.
func loadConfig(fs *pflag.FlagSet, pf *providerFlags) (*config.File, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	applyProviderFlags(cfg, fs, pf)
	return cfg, cfg.Validate()
}

func applyProviderFlags(cfg *config.File, fs *pflag.FlagSet, pf *providerFlags) {
	if fs.Changed("provider") {
		cfg.Provider = strings.ToLower(pf.provider)
	}
	if fs.Changed("model") {
		cfg.Model = pf.model
	}
	if fs.Changed("base-url") {
		cfg.BaseURL = pf.baseURL
	}
	if fs.Changed("proxy") {
		cfg.Proxy = pf.proxy
	}
	if fs.Changed("timeout") {
		cfg.Timeout = pf.timeout
	}
}

// buildProvider returns the configured provider and its credentials.
func buildProvider(cfg *config.File, pf *providerFlags) (translate.Provider, translate.Credentials, error) {
	var creds translate.Credentials
	prov, err := translate.New(cfg.Provider, cfg.ProviderOptions())
	if err != nil {
		return nil, creds, err
	}
	info := translate.DefaultProviders()[cfg.Provider]

	creds.APIKey = settings.ResolveAPIKey(cfg.Provider, pf.apiKey)
	creds.BaseURL = cfg.BaseURL
	if creds.BaseURL == "" {
		creds.BaseURL = settings.GetBaseURL(cfg.Provider)
	}

	if info.NeedsKey && creds.APIKey == "" {
		hint := fmt.Sprintf("jarloc auth login --provider %s", cfg.Provider)
		if info.KeyURL != "" {
			hint += "\n  (get a key at " + info.KeyURL + ")"
		}
		return nil, creds, fmt.Errorf(i18n.T("provider '%s' requires an API key")+"\n\n  %s\n  or --api-key / %s",
			cfg.Provider, hint, settings.EnvVarForProvider(cfg.Provider))
	}
	if cfg.Provider == translate.ProviderCustomOpenAI && creds.BaseURL == "" {
		return nil, creds, fmt.Errorf("provider '%s' requires --base-url", cfg.Provider)
	}
	return prov, creds, nil
}

// chooseModel picks the model to start with: explicit setting, saved
// choice, then the first discovered model. An empty result means the
// provider default.
func chooseModel(ctx context.Context, cfg *config.File, prov translate.Provider, creds translate.Credentials) (string, error) {
	if cfg.Model != "" {
		return cfg.Model, nil
	}
	if info := settings.Get(cfg.Provider); info != nil && info.Model != "" {
		logDebug("using saved model %s", info.Model)
		return info.Model, nil
	}
	models, err := prov.DiscoverModels(ctx, creds)
	switch {
	case errors.Is(err, translate.ErrAuth):
		return "", err
	case err != nil:
		logWarning("%s: %v", i18n.T("model discovery failed, using provider default"), err)
		return "", nil
	}
	logInfo(i18n.N("%d model available", "%d models available", len(models)), len(models))
	return models[0], nil
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jarloc",
		Short: "AI translation of Minecraft mods and modpacks",
		Long: `jarloc — AI translation of Minecraft mods and modpacks.

Translates the JSON language files inside mod JARs and the FTB Quests text
of modpacks, and packages the results as resource packs. Existing
translations are reused: only missing keys are sent to the model.

Commands:
  translate     Translate mods, modpacks or language files
  extract       Extract quest text from a modpack without translating
  models        List the models of a provider
  merge-packs   Merge resource packs into one
  auth          Manage provider API keys

AI Providers:
  gemini         Google AI (Gemini) — API key
  groq           Groq — API key
  deepseek       DeepSeek — API key
  openrouter     OpenRouter — API key
  custom-openai  Custom OpenAI-compatible endpoint
  local          Local server (Ollama, LM Studio, llama.cpp)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Directory holding .jarloc.yaml and .env")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newTranslateCmd(),
		newExtractCmd(),
		newModelsCmd(),
		newMergePacksCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jarloc version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	pf        providerFlags
	lang      string
	outDir    string
	chunkSize int
	merge     bool
	bases     []string
	noInput   bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate FILE...",
		Short: "Translate mods, modpacks or language files",
		Long: `Translate mod JARs, modpack ZIPs or bare JSON language files.

Files are processed one after another. For each one a resource pack
<name>_<lang>.zip is written to the output directory. While a run is in
progress, type on stdin:

  p, pause        pause before the next request
  r, resume       continue a paused run
  s, stop         stop and keep what is finished
  m, model ID     switch the model for the next request

A failed request pauses the run; resume retries the same part.
Ctrl-C stops cooperatively, a second Ctrl-C aborts.

Examples:
  jarloc translate --provider gemini --lang es create-1.20.jar
  jarloc translate --provider groq --lang pt_br mods/*.jar --merge
  jarloc translate --provider local --model qwen2.5 --lang de modpack.zip`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, a, args)
		},
	}

	addProviderFlags(cmd.Flags(), &a.pf)
	cmd.Flags().StringVarP(&a.lang, "lang", "l", "", "Target language (e.g. es, pt_br, de)")
	cmd.Flags().StringVarP(&a.outDir, "out", "o", "", "Output directory for resource packs")
	cmd.Flags().IntVar(&a.chunkSize, "chunk-size", 0, "Keys per request for large files (0 = config default)")
	cmd.Flags().BoolVar(&a.merge, "merge", false, "Also merge all results into one resource pack")
	cmd.Flags().StringSliceVar(&a.bases, "base", nil, "Base resource packs for --merge (repeatable)")
	cmd.Flags().BoolVar(&a.noInput, "no-input", false, "Do not read control commands from stdin")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, id := range translate.ProviderIDs() {
			out = append(out, id+"\t"+translate.DefaultProviders()[id].Name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTranslate(cmd *cobra.Command, a translateArgs, files []string) error {
	cfg, err := loadConfig(cmd.Flags(), &a.pf)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("lang") {
		if cfg.TargetLang, err = config.NormalizeTargetLang(a.lang); err != nil {
			return err
		}
	}
	if a.chunkSize > 0 {
		cfg.ChunkSize = a.chunkSize
	}
	if a.outDir != "" {
		cfg.OutputDir = a.outDir
	}
	if len(a.bases) > 0 {
		cfg.BasePacks = a.bases
	}

	prov, creds, err := buildProvider(cfg, &a.pf)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model, err := chooseModel(ctx, cfg, prov, creds)
	if err != nil {
		return err
	}
	cfg.Model = model
	if model != "" {
		logInfo("%s: %s / %s → %s", i18n.T("Translating with"), cfg.Provider, model, cfg.TargetLang)
	} else {
		logInfo("%s: %s → %s", i18n.T("Translating with"), cfg.Provider, cfg.TargetLang)
	}

	var inputClosed atomic.Bool
	var orch *batch.Orchestrator
	sink := batch.SinkFunc(func(e batch.Event) {
		logEvent(e)
		if e.Type == batch.EventPaused && inputClosed.Load() {
			logWarning("%s", i18n.T("no interactive input to resume; stopping"))
			orch.Control().Stop()
		}
	})
	bus := batch.NewBus(10000, sink)
	orch = batch.New(prov, creds, cfg.BatchOptions(), bus)

	inputs := make([]archive.Pack, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}
		inputs = append(inputs, archive.Pack{Name: filepath.Base(f), Data: data})
	}

	// First Ctrl-C stops at the next boundary, the second aborts.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logWarning("%s", i18n.T("Interrupted, stopping after the current request (Ctrl-C again to abort)"))
		orch.Control().Stop()
		<-sigCh
		cancel()
	}()

	if a.noInput || !isatty.IsTerminal(os.Stdin.Fd()) {
		inputClosed.Store(true)
	} else {
		go watchControls(os.Stdin, orch.Control(), &inputClosed)
	}

	items, runErr := translateInputs(ctx, orch, inputs)
	if errors.Is(runErr, batch.ErrStopped) {
		logWarning("%s", i18n.T("Translation stopped; finished files are kept"))
	} else if runErr != nil {
		return runErr
	}

	if m := orch.Control().Model(); m != "" && m != model {
		if err := settings.SetModel(cfg.Provider, m); err != nil {
			logDebug("saving model: %v", err)
		}
	}

	if len(items) > 1 {
		for _, e := range issues(bus.Since(0)) {
			logEvent(e)
		}
	}

	written, err := writePacks(cfg.OutputDir, cfg.TargetLang, items)
	if err != nil {
		return err
	}
	if a.merge && len(written) > 0 {
		if err := mergeToFile(cfg.OutputDir, cfg.BasePacks, finishedPacks(items), cfg.TargetLang); err != nil {
			return err
		}
	}
	return summarize(items)
}

// translateInputs uses single mode for one file and batch mode otherwise.
// Item failures are recorded on the items; only a stop or an abort is
// returned.
func translateInputs(ctx context.Context, orch *batch.Orchestrator, inputs []archive.Pack) ([]batch.Item, error) {
	if len(inputs) == 1 {
		it, err := orch.TranslateOne(ctx, inputs[0].Name, inputs[0].Data)
		if err != nil && !errors.Is(err, batch.ErrStopped) && ctx.Err() == nil {
			err = nil
		}
		return []batch.Item{it}, err
	}
	for _, in := range inputs {
		orch.Add(in.Name, in.Data)
	}
	err := orch.Run(ctx)
	return orch.Items(), err
}

// issues returns the last status event of every item that ended with a
// warning or an error, in item order.
func issues(events []batch.Event) []batch.Event {
	last := map[int]batch.Event{}
	var order []int
	for _, e := range events {
		if e.Type != batch.EventItemStatus {
			continue
		}
		if _, ok := last[e.Index]; !ok {
			order = append(order, e.Index)
		}
		last[e.Index] = e
	}
	sort.Ints(order)
	var out []batch.Event
	for _, i := range order {
		if e := last[i]; e.Status == batch.StatusWarning || e.Status == batch.StatusError {
			out = append(out, e)
		}
	}
	return out
}

func finishedPacks(items []batch.Item) []archive.Pack {
	var out []archive.Pack
	for _, it := range items {
		if it.Status == batch.StatusDone && it.Pack != nil {
			out = append(out, archive.Pack{Name: it.Name, Data: it.Pack})
		}
	}
	return out
}

// watchControls reads control commands from r until it is closed. When
// input ends while the run is paused, the run is stopped.
func watchControls(r io.Reader, ctl *batch.Control, closed *atomic.Bool) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		action, arg := parseControl(sc.Text())
		switch action {
		case "pause":
			if ctl.Pause() {
				logWarning("%s", i18n.T("Pausing before the next request"))
			}
		case "resume":
			if ctl.Resume() {
				logInfo("%s", i18n.T("Resuming"))
			}
		case "stop":
			if ctl.Stop() {
				logWarning("%s", i18n.T("Stopping"))
			}
		case "model":
			if arg == "" {
				logInfo("%s: %s", i18n.T("Current model"), ctl.Model())
				continue
			}
			ctl.SetModel(arg)
			logInfo("%s: %s", i18n.T("Model switched to"), arg)
		case "":
		default:
			logWarning("%s: %q", i18n.T("Unknown command"), action)
		}
	}
	closed.Store(true)
	if ctl.State() == batch.StatePaused {
		ctl.Stop()
	}
}

// parseControl maps an input line onto a control action and argument.
func parseControl(line string) (action, arg string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	cmd := strings.ToLower(fields[0])
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}
	switch cmd {
	case "p", "pause":
		return "pause", ""
	case "r", "resume", "c", "continue":
		return "resume", ""
	case "s", "stop", "q", "quit":
		return "stop", ""
	case "m", "model":
		return "model", arg
	}
	return cmd, arg
}

// packFileName returns the resource pack name for an input file:
// "create-1.20.jar" -> "create-1.20_es_es.zip".
func packFileName(name, lang string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base + "_" + archive.LangCode(lang) + ".zip"
}

func writePacks(outDir, lang string, items []batch.Item) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", outDir, err)
	}
	var written []string
	for _, it := range items {
		if it.Status != batch.StatusDone || it.Pack == nil {
			continue
		}
		p := filepath.Join(outDir, packFileName(it.Name, lang))
		if err := os.WriteFile(p, it.Pack, 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", p, err)
		}
		logSuccess("%s → %s", it.Name, p)
		written = append(written, p)
	}
	return written, nil
}

func summarize(items []batch.Item) error {
	counts := map[batch.Status]int{}
	for _, it := range items {
		counts[it.Status]++
	}
	logInfo("%d %s, %d %s, %d %s, %d %s",
		counts[batch.StatusDone], i18n.T("done"),
		counts[batch.StatusWarning], i18n.T("warnings"),
		counts[batch.StatusError], i18n.T("failed"),
		counts[batch.StatusPending], i18n.T("pending"))
	if n := counts[batch.StatusError]; n > 0 {
		return fmt.Errorf(i18n.N("%d file failed", "%d files failed", n), n)
	}
	return nil
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "extract MODPACK.zip",
		Short: "Extract quest text from a modpack without translating",
		Long: `Rewrite the FTB Quests chapter files of a modpack with translation keys.

Writes <name>_quests.zip holding the rewritten chapters and
kubejs/assets/kubejs/lang/en_us.json with the original text, ready for
manual translation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				cfg, err := config.Load(rootDir)
				if err != nil {
					return err
				}
				outDir = cfg.OutputDir
			}
			p, n, err := extractQuestPack(args[0], outDir)
			if err != nil {
				return err
			}
			logSuccess("%s → %s", i18n.N("%d quest text extracted", "%d quest texts extracted", n), p)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
	return cmd
}

func extractQuestPack(path, outDir string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	z, err := archive.OpenZip(data)
	if err != nil {
		return "", 0, err
	}
	if !archive.IsModpack(z) {
		return "", 0, fmt.Errorf("%s: no FTB Quests chapters found", path)
	}
	qp, err := archive.ExtractQuests(z)
	if err != nil {
		return "", 0, err
	}
	keys, err := langjson.Marshal(qp.Keys)
	if err != nil {
		return "", 0, err
	}
	qp.Overrides.Write(archive.QuestLangPath(archive.SourceLang), keys)
	out, err := qp.Overrides.Generate()
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", 0, err
	}
	name := filepath.Base(path)
	p := filepath.Join(outDir, strings.TrimSuffix(name, filepath.Ext(name))+"_quests.zip")
	if err := os.WriteFile(p, out, 0644); err != nil {
		return "", 0, err
	}
	return p, qp.Keys.Len(), nil
}

// ---------------------------------------------------------------------------
// models
// ---------------------------------------------------------------------------

func newModelsCmd() *cobra.Command {
	var pf providerFlags

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models of a provider",
		Long: `Query the provider for the models usable for translation and verify
the credentials at the same time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), &pf)
			if err != nil {
				return err
			}
			prov, creds, err := buildProvider(cfg, &pf)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			models, err := prov.DiscoverModels(ctx, creds)
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.Provider, err)
			}
			saved := ""
			if info := settings.Get(cfg.Provider); info != nil {
				saved = info.Model
			}
			for _, m := range models {
				mark := " "
				if m == saved {
					mark = "*"
				}
				fmt.Printf("%s %s\n", mark, m)
			}
			return nil
		},
	}
	addProviderFlags(cmd.Flags(), &pf)
	return cmd
}

// ---------------------------------------------------------------------------
// merge-packs
// ---------------------------------------------------------------------------

func newMergePacksCmd() *cobra.Command {
	var (
		bases  []string
		lang   string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "merge-packs PACK...",
		Short: "Merge resource packs into one",
		Long: `Merge translated resource packs, optionally on top of base packs.

Base packs are copied first, translations override them, and a single
pack.mcmeta describing the merge is written last. Unreadable packs are
skipped with a warning.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootDir)
			if err != nil {
				return err
			}
			if lang != "" {
				if cfg.TargetLang, err = config.NormalizeTargetLang(lang); err != nil {
					return err
				}
			}
			if outDir != "" {
				cfg.OutputDir = outDir
			}
			if len(bases) > 0 {
				cfg.BasePacks = bases
			}
			var packs []archive.Pack
			for _, p := range args {
				data, err := os.ReadFile(p)
				if err != nil {
					return err
				}
				packs = append(packs, archive.Pack{Name: filepath.Base(p), Data: data})
			}
			return mergeToFile(cfg.OutputDir, cfg.BasePacks, packs, cfg.TargetLang)
		},
	}
	cmd.Flags().StringSliceVar(&bases, "base", nil, "Base resource packs (repeatable)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Language of the translations")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory")
	return cmd
}

func mergeToFile(outDir string, basePaths []string, translations []archive.Pack, lang string) error {
	var bases []archive.Pack
	for _, p := range basePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			logWarning("%s %s: %v", i18n.T("skipping base pack"), p, err)
			continue
		}
		bases = append(bases, archive.Pack{Name: filepath.Base(p), Data: data})
	}

	res, err := archive.MergePacks(bases, translations, lang)
	if err != nil {
		return err
	}
	for _, ferr := range res.Failed {
		logWarning("%v", ferr)
	}
	if res.Zip == nil {
		return errors.New(i18n.T("nothing to merge"))
	}
	data, err := res.Zip.Generate()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	p := filepath.Join(outDir, "merged_"+archive.LangCode(lang)+".zip")
	if err := os.WriteFile(p, data, 0644); err != nil {
		return err
	}
	logSuccess("%s → %s (%d bases + %d translations)", i18n.T("Merged pack"), p, res.Bases, res.Translations)
	return nil
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys",
		Long: `Store API keys and custom endpoints for AI providers.

Keys are saved in ` + "$XDG_DATA_HOME/jarloc/auth.json" + ` with 0600 permissions.`,
	}
	cmd.AddCommand(newAuthLoginCmd(), newAuthLogoutCmd(), newAuthListCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		provider string
		baseURL  string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, ok := translate.DefaultProviders()[provider]
			if !ok {
				return fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(translate.ProviderIDs(), ", "))
			}
			return authLogin(info, baseURL, os.Stdin)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider to configure")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Endpoint URL (custom-openai, local)")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func authLogin(info translate.Info, baseURL string, in io.Reader) error {
	fmt.Fprintf(os.Stderr, "\n%s — %s\n", info.Name, i18n.T("API Key Setup"))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	if info.KeyURL != "" {
		fmt.Fprintf(os.Stderr, "  %s: %s\n\n", i18n.T("Get your API key from"), info.KeyURL)
	}

	existing := settings.GetAPIKey(info.ID)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", i18n.T("Current key"), settings.MaskKey(existing))
		fmt.Fprintf(os.Stderr, "  %s: ", i18n.T("Enter new key to replace, or press Enter to keep"))
	} else {
		fmt.Fprintf(os.Stderr, "  %s: ", i18n.T("Enter API key"))
	}

	sc := bufio.NewScanner(in)
	key := ""
	if sc.Scan() {
		key = strings.TrimSpace(sc.Text())
	}
	if key == "" {
		key = existing
	}
	if key == "" && info.NeedsKey {
		return errors.New(i18n.T("no API key provided"))
	}
	if baseURL == "" {
		baseURL = settings.GetBaseURL(info.ID)
	}
	if info.ID == translate.ProviderCustomOpenAI && baseURL == "" {
		return errors.New("custom-openai requires --base-url")
	}

	if err := settings.SetAPIKey(info.ID, key, baseURL); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	logSuccess("%s: %s", info.Name, i18n.T("credentials saved"))
	return nil
}

func newAuthLogoutCmd() *cobra.Command {
	var (
		provider string
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if err := settings.RemoveAll(); err != nil {
					return err
				}
				logSuccess("%s", i18n.T("All credentials removed"))
				return nil
			}
			if provider == "" {
				return errors.New("--provider or --all is required")
			}
			if err := settings.Remove(provider); err != nil {
				return err
			}
			logSuccess("%s: %s", provider, i18n.T("credentials removed"))
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider to log out")
	cmd.Flags().BoolVar(&all, "all", false, "Remove all stored credentials")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored credentials and status",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%s (%s)\n", i18n.T("Stored Credentials"), settings.FilePath())
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			for _, line := range credentialLines(settings.Load()) {
				fmt.Fprintln(os.Stderr, line)
			}
			if env := os.Getenv("JARLOC_API_KEY"); env != "" {
				fmt.Fprintf(os.Stderr, "\n  JARLOC_API_KEY: %s (overrides stored keys)\n", settings.MaskKey(env))
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}

func credentialLines(store settings.Store) []string {
	providers := translate.DefaultProviders()
	ids := make([]string, 0, len(providers))
	for id := range providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var lines []string
	for _, id := range ids {
		info := providers[id]
		entry := store[id]
		var status string
		switch {
		case entry != nil && entry.Key != "":
			status = "configured (key: " + settings.MaskKey(entry.Key) + ")"
		case info.EnvKey != "" && os.Getenv(info.EnvKey) != "":
			status = "from " + info.EnvKey
		case !info.NeedsKey:
			status = "no key needed"
		default:
			status = "not configured"
		}
		if entry != nil && entry.BaseURL != "" {
			status += ", endpoint: " + entry.BaseURL
		}
		if entry != nil && entry.Model != "" {
			status += ", model: " + entry.Model
		}
		lines = append(lines, fmt.Sprintf("  %-14s %s", id, status))
	}
	return lines
}
