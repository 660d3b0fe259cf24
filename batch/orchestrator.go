// Package batch runs translation jobs: one item (single mode) or a queue of
// items (batch mode), processed strictly one after another.
//
// A run is a cooperative state machine driven by Control. Before every
// provider call and at every delay the orchestrator samples the run-state:
// a paused run waits in a polling loop, a stopped run returns ErrStopped
// while keeping everything finished so far. A provider failure that the
// retry policy cannot absorb pauses the run and the same chunk is tried
// again once the run is resumed.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jarloc/jarloc/archive"
	"github.com/jarloc/jarloc/chunk"
	"github.com/jarloc/jarloc/langjson"
	"github.com/jarloc/jarloc/merge"
	"github.com/jarloc/jarloc/translate"
)

// ErrInvalidLangFile reports a language file that is not a JSON object.
var ErrInvalidLangFile = errors.New("invalid language file")

const (
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultCourtesyDelay = time.Second
)

// Options tunes an Orchestrator. Zero values select the defaults.
type Options struct {
	// TargetLang is the language to translate into ("es", "pt_br").
	TargetLang string
	// Model is the initial model; Control.SetModel changes it mid-run.
	Model string
	// ChunkSize is the number of keys per provider call for large files.
	ChunkSize int
	// LargeThreshold is the payload length above which it is chunked.
	LargeThreshold int
	// PollInterval is how often a paused run checks for resume or stop.
	PollInterval time.Duration
	// CourtesyDelay separates consecutive chunks and items. Negative
	// disables it.
	CourtesyDelay time.Duration
	// Retry handles transient provider failures. MaxAttempts == 0 selects
	// translate.DefaultRetryPolicy.
	Retry translate.RetryPolicy
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = chunk.DefaultSize
	}
	if o.LargeThreshold <= 0 {
		o.LargeThreshold = chunk.LargeDocumentThreshold
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.CourtesyDelay == 0 {
		o.CourtesyDelay = DefaultCourtesyDelay
	}
	if o.Retry.MaxAttempts == 0 {
		onRetry, sleep := o.Retry.OnRetry, o.Retry.Sleep
		o.Retry = translate.DefaultRetryPolicy()
		o.Retry.OnRetry, o.Retry.Sleep = onRetry, sleep
	}
	return o
}

// Orchestrator owns the items of a batch and runs them.
type Orchestrator struct {
	provider translate.Provider
	creds    translate.Credentials
	opts     Options
	ctl      *Control
	sink     Sink

	mu    sync.RWMutex
	items []*Item
	runID string
}

// New returns an orchestrator translating with provider. sink may be nil.
func New(provider translate.Provider, creds translate.Credentials, opts Options, sink Sink) *Orchestrator {
	ctl := NewControl()
	ctl.SetModel(opts.Model)
	return &Orchestrator{
		provider: provider,
		creds:    creds,
		opts:     opts.withDefaults(),
		ctl:      ctl,
		sink:     sink,
	}
}

// Control returns the run-state cell of this orchestrator.
func (o *Orchestrator) Control() *Control { return o.ctl }

// Add queues an item and returns its index.
func (o *Orchestrator) Add(name string, data []byte) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, &Item{Name: name, Data: data, Status: StatusPending})
	return len(o.items) - 1
}

// Items returns a snapshot of every item.
func (o *Orchestrator) Items() []Item {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Item, len(o.items))
	for i, it := range o.items {
		out[i] = *it
	}
	return out
}

// Clear drops every item. It fails while a run is in progress.
func (o *Orchestrator) Clear() error {
	if o.ctl.Active() {
		return ErrAlreadyRunning
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = nil
	return nil
}

// Run processes every pending or failed item in submission order. It
// returns ErrStopped when the user stopped the run and ctx.Err() when ctx
// was cancelled. Item failures do not end the run: they are recorded on the
// item and, for provider failures, pause the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.ctl.begin(); err != nil {
		return err
	}
	defer o.ctl.end()
	o.startRun()

	o.mu.RLock()
	n := len(o.items)
	o.mu.RUnlock()
	o.emit(Event{Type: EventRunStarted, Level: LevelInfo, Message: fmt.Sprintf("%d items queued", n)})

	var runErr error
	processed := 0
	for i := 0; i < n; i++ {
		if runErr = o.waitRunnable(ctx); runErr != nil {
			break
		}
		o.mu.RLock()
		it := o.items[i]
		pick := it.retryable()
		o.mu.RUnlock()
		if !pick {
			continue
		}
		if processed > 0 {
			if runErr = o.courtesyWait(ctx); runErr != nil {
				break
			}
		}
		processed++
		if runErr = o.runItem(ctx, i, it); runErr != nil {
			break
		}
	}

	o.emit(o.summary(runErr))
	return runErr
}

// TranslateOne translates a single item outside the batch queue.
func (o *Orchestrator) TranslateOne(ctx context.Context, name string, data []byte) (Item, error) {
	it := &Item{Name: name, Data: data, Status: StatusPending}
	if err := o.ctl.begin(); err != nil {
		return *it, err
	}
	defer o.ctl.end()
	o.startRun()
	o.emit(Event{Type: EventRunStarted, Level: LevelInfo, Item: name, Message: "single item"})

	o.setStatus(0, it, StatusTranslating, LevelInfo, "")
	out, err := o.processItem(ctx, 0, it)
	if err != nil {
		if errors.Is(err, ErrStopped) || ctx.Err() != nil {
			o.setStatus(0, it, StatusPending, LevelWarning, err.Error())
		} else {
			o.setStatus(0, it, StatusError, LevelError, err.Error())
		}
		o.emit(Event{Type: EventRunFinished, Level: LevelWarning, Item: name, Message: err.Error()})
		return o.snapshot(it), err
	}
	o.finishItem(0, it, out)
	o.emit(Event{Type: EventRunFinished, Level: LevelSuccess, Item: name, Status: out.status, Message: "finished: " + string(out.status)})
	return o.snapshot(it), nil
}

func (o *Orchestrator) startRun() {
	o.mu.Lock()
	o.runID = uuid.NewString()
	o.mu.Unlock()
}

func (o *Orchestrator) snapshot(it *Item) Item {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return *it
}

func (o *Orchestrator) emit(e Event) {
	if o.sink == nil {
		return
	}
	o.mu.RLock()
	e.RunID = o.runID
	o.mu.RUnlock()
	o.sink.Emit(e)
}

func (o *Orchestrator) setStatus(idx int, it *Item, st Status, level Level, msg string) {
	o.mu.Lock()
	it.Status = st
	it.Message = msg
	name := it.Name
	o.mu.Unlock()
	o.emit(Event{Type: EventItemStatus, Level: level, Item: name, Index: idx, Status: st, Message: msg})
}

func (o *Orchestrator) summary(runErr error) Event {
	counts := map[Status]int{}
	o.mu.RLock()
	for _, it := range o.items {
		counts[it.Status]++
	}
	o.mu.RUnlock()

	e := Event{Type: EventRunFinished, Level: LevelSuccess}
	switch {
	case errors.Is(runErr, ErrStopped):
		e.Level, e.Status = LevelWarning, StatusPending
	case runErr != nil:
		e.Level = LevelError
	case counts[StatusError] > 0 || counts[StatusWarning] > 0:
		e.Level = LevelWarning
	}
	e.Message = fmt.Sprintf("%d done, %d warnings, %d errors, %d pending",
		counts[StatusDone], counts[StatusWarning], counts[StatusError], counts[StatusPending])
	return e
}

// runItem processes one queued item. It only returns an error when the
// whole run has to end: a user stop or a cancelled context.
func (o *Orchestrator) runItem(ctx context.Context, idx int, it *Item) error {
	o.setStatus(idx, it, StatusTranslating, LevelInfo, "")
	out, err := o.processItem(ctx, idx, it)
	switch {
	case err == nil:
		o.finishItem(idx, it, out)
		return nil
	case errors.Is(err, ErrStopped):
		o.setStatus(idx, it, StatusPending, LevelWarning, "stopped before completion")
		return ErrStopped
	case ctx.Err() != nil:
		o.setStatus(idx, it, StatusPending, LevelWarning, "cancelled")
		return ctx.Err()
	case errors.Is(err, archive.ErrInvalidArchive) || errors.Is(err, ErrInvalidLangFile):
		o.setStatus(idx, it, StatusError, LevelError, err.Error())
		return nil
	default:
		o.setStatus(idx, it, StatusError, LevelError, err.Error())
		if o.ctl.Pause() {
			o.emit(Event{Type: EventLog, Level: LevelWarning, Item: it.Name, Index: idx,
				Message: "run paused after an error; resume to continue"})
		}
		return nil
	}
}

func (o *Orchestrator) finishItem(idx int, it *Item, out *outcome) {
	o.mu.Lock()
	it.Kind = out.kind
	it.SourcePath = out.sourcePath
	it.Translation = out.translation
	it.Stats = out.stats
	it.Pack = out.pack
	o.mu.Unlock()

	level := LevelSuccess
	if out.status == StatusWarning {
		level = LevelWarning
	}
	o.setStatus(idx, it, out.status, level, out.message)
}

// ---------------------------------------------------------------------------
// Suspension points
// ---------------------------------------------------------------------------

// waitRunnable returns nil once the run may proceed, ErrStopped if it was
// stopped, or the context error.
func (o *Orchestrator) waitRunnable(ctx context.Context) error {
	announced := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch o.ctl.State() {
		case StateStopped:
			return ErrStopped
		case StatePaused:
			if !announced {
				o.emit(Event{Type: EventPaused, Level: LevelWarning, Message: "paused; waiting for resume or stop"})
				announced = true
			}
			if err := translate.Sleep(ctx, o.opts.PollInterval); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// courtesyWait sleeps CourtesyDelay in PollInterval slices, returning early
// with ErrStopped when the run is stopped.
func (o *Orchestrator) courtesyWait(ctx context.Context) error {
	remaining := o.opts.CourtesyDelay
	for {
		if o.ctl.State() == StateStopped {
			return ErrStopped
		}
		if remaining <= 0 {
			return nil
		}
		step := min(remaining, o.opts.PollInterval)
		if err := translate.Sleep(ctx, step); err != nil {
			return err
		}
		remaining -= step
	}
}

// ---------------------------------------------------------------------------
// Chunked translation
// ---------------------------------------------------------------------------

// translatePayload translates a serialized JSON object, chunking it when it
// is large. The chunk cursor only advances on success: a failed chunk
// pauses the run and is sent again after resume. Chunks finished before a
// stop stay on the item and are not sent again by the next run.
func (o *Orchestrator) translatePayload(ctx context.Context, idx int, it *Item, payload string) (*langjson.Object, error) {
	plan, err := chunk.Prepare(payload, o.opts.LargeThreshold, o.opts.ChunkSize)
	if err != nil {
		return nil, err
	}
	total := len(plan.Payloads)
	prog := o.progressFor(it, payload, total)
	if done := o.chunksDone(prog); done > 0 {
		o.emit(Event{Type: EventLog, Level: LevelInfo, Item: it.Name, Index: idx,
			Message: fmt.Sprintf("resuming at part %d of %d", done+1, total)})
	}

	for cursor := o.chunksDone(prog); cursor < total; {
		if err := o.waitRunnable(ctx); err != nil {
			return nil, err
		}
		if total > 1 {
			o.emit(Event{Type: EventChunk, Level: LevelInfo, Item: it.Name, Index: idx,
				Chunk: cursor + 1, Chunks: total,
				Message: fmt.Sprintf("translating part %d of %d", cursor+1, total)})
		}
		// The event sink may have paused or stopped the run.
		if o.ctl.State() != StateRunning {
			continue
		}

		obj, err := o.translateChunk(ctx, idx, it.Name, plan.Payloads[cursor])
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			msg := fmt.Sprintf("translation failed: %v; pausing", err)
			if total > 1 {
				msg = fmt.Sprintf("part %d of %d failed: %v; pausing", cursor+1, total, err)
			}
			o.emit(Event{Type: EventLog, Level: LevelError, Item: it.Name, Index: idx,
				Chunk: cursor + 1, Chunks: total, Message: msg})
			o.ctl.Pause()
			continue
		}

		o.mu.Lock()
		prog.results = append(prog.results, obj)
		o.mu.Unlock()
		cursor++
		if cursor < total {
			if err := o.courtesyWait(ctx); err != nil {
				return nil, err
			}
		}
	}

	o.mu.Lock()
	results := prog.results
	it.progress = nil
	o.mu.Unlock()

	v, err := plan.Assemble(results)
	if err != nil {
		return nil, err
	}
	out, ok := v.(*langjson.Object)
	if !ok {
		return nil, fmt.Errorf("assembled translation is %T, not an object", v)
	}
	return out, nil
}

// progressFor returns the saved chunk progress of it when it belongs to the
// same payload, or starts a new one.
func (o *Orchestrator) progressFor(it *Item, payload string, total int) *chunkProgress {
	o.mu.Lock()
	defer o.mu.Unlock()
	if p := it.progress; p != nil && p.payload == payload && len(p.results) <= total {
		return p
	}
	it.progress = &chunkProgress{payload: payload}
	return it.progress
}

func (o *Orchestrator) chunksDone(p *chunkProgress) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(p.results)
}

func (o *Orchestrator) translateChunk(ctx context.Context, idx int, name, payload string) (*langjson.Object, error) {
	model := o.ctl.Model()
	policy := o.opts.Retry
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		o.emit(Event{Type: EventRetry, Level: LevelWarning, Item: name, Index: idx,
			Message: fmt.Sprintf("model overloaded, retrying in %s (attempt %d/%d): %v", wait, attempt, policy.MaxAttempts, err)})
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}
	}

	v, err := translate.Retry(ctx, policy, func(ctx context.Context) (any, error) {
		return o.provider.Translate(ctx, o.creds, model, payload, o.opts.TargetLang)
	})
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*langjson.Object)
	if !ok {
		return nil, &translate.MalformedResponseError{Raw: fmt.Sprintf("%T", v), Err: errors.New("expected a JSON object")}
	}
	return obj, nil
}

// ---------------------------------------------------------------------------
// Item processing
// ---------------------------------------------------------------------------

type outcome struct {
	kind        Kind
	status      Status
	message     string
	sourcePath  string
	translation *langjson.Object
	stats       merge.Stats
	pack        []byte
}

// processItem detects what the item holds and translates it. Missing
// resources are reported as a warning outcome, not an error.
func (o *Orchestrator) processItem(ctx context.Context, idx int, it *Item) (*outcome, error) {
	if !archive.IsZip(it.Data) {
		source, err := langjson.ParseObject(it.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is neither a zip archive nor a JSON language file", archive.ErrInvalidArchive, it.Name)
		}
		return o.translateLangFile(ctx, idx, it, KindLangFile, it.Name, source, nil)
	}

	z, err := archive.OpenZip(it.Data)
	if err != nil {
		return nil, err
	}
	if archive.IsModpack(z) {
		return o.translateModpack(ctx, idx, it, z)
	}
	return o.translateMod(ctx, idx, it, z)
}

func (o *Orchestrator) translateMod(ctx context.Context, idx int, it *Item, z *archive.Zip) (*outcome, error) {
	srcPath, err := archive.FindSourceLangFile(z)
	if errors.Is(err, archive.ErrNoLangFile) {
		return &outcome{kind: KindMod, status: StatusWarning, message: "no JSON language file found"}, nil
	}
	if err != nil {
		return nil, err
	}
	data, err := z.Read(srcPath)
	if err != nil {
		return nil, err
	}
	source, err := langjson.ParseObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidLangFile, srcPath, err)
	}

	existing, existingPath, err := archive.LoadExistingTranslation(z, o.opts.TargetLang)
	if err != nil {
		o.emit(Event{Type: EventLog, Level: LevelWarning, Item: it.Name, Index: idx,
			Message: fmt.Sprintf("ignoring unreadable existing translation: %v", err)})
		existing = nil
	} else if existing != nil {
		o.emit(Event{Type: EventLog, Level: LevelInfo, Item: it.Name, Index: idx,
			Message: "found existing translation " + existingPath})
	}
	return o.translateLangFile(ctx, idx, it, KindMod, srcPath, source, existing)
}

// translateLangFile translates the keys of source that existing lacks and
// packages the merged result.
func (o *Orchestrator) translateLangFile(ctx context.Context, idx int, it *Item, kind Kind, srcPath string, source, existing *langjson.Object) (*outcome, error) {
	stats := merge.Coverage(source, existing)
	missing := merge.Missing(source, existing)

	final := existing
	message := ""
	if missing.Len() == 0 {
		message = "already fully translated"
		if final == nil {
			final = langjson.NewObject()
		}
		o.emit(Event{Type: EventLog, Level: LevelSuccess, Item: it.Name, Index: idx, Message: message})
	} else {
		if existing != nil {
			o.emit(Event{Type: EventLog, Level: LevelInfo, Item: it.Name, Index: idx,
				Message: fmt.Sprintf("%d of %d keys already translated, translating %d", stats.Existing, stats.Total, stats.Missing)})
		}
		payload, err := langjson.Marshal(missing)
		if err != nil {
			return nil, err
		}
		translated, err := o.translatePayload(ctx, idx, it, string(payload))
		if err != nil {
			return nil, err
		}
		final = merge.Merge(existing, translated)
		message = fmt.Sprintf("%d keys translated", translated.Len())
	}

	out, err := langjson.Marshal(final)
	if err != nil {
		return nil, err
	}
	pack := archive.NewZip()
	pack.Write(archive.TranslatedPath(srcPath, o.opts.TargetLang), out)
	if err := o.writeMeta(pack, fmt.Sprintf("AI translation (%s) by JarLoc: %s", archive.LangCode(o.opts.TargetLang), it.Name)); err != nil {
		return nil, err
	}
	data, err := pack.Generate()
	if err != nil {
		return nil, err
	}
	return &outcome{
		kind:        kind,
		status:      StatusDone,
		message:     message,
		sourcePath:  srcPath,
		translation: final,
		stats:       stats,
		pack:        data,
	}, nil
}

func (o *Orchestrator) translateModpack(ctx context.Context, idx int, it *Item, z *archive.Zip) (*outcome, error) {
	qp, err := archive.ExtractQuests(z)
	if err != nil {
		return nil, err
	}
	if qp.Keys.Len() == 0 {
		return &outcome{kind: KindModpack, status: StatusWarning, message: "no quest text found"}, nil
	}
	o.emit(Event{Type: EventLog, Level: LevelInfo, Item: it.Name, Index: idx,
		Message: fmt.Sprintf("extracted %d texts from %d chapter files", qp.Keys.Len(), qp.Files)})

	payload, err := langjson.Marshal(qp.Keys)
	if err != nil {
		return nil, err
	}
	translated, err := o.translatePayload(ctx, idx, it, string(payload))
	if err != nil {
		return nil, err
	}
	// Keys the model dropped keep the original text.
	final := merge.Merge(qp.Keys, translated)

	out, err := langjson.Marshal(final)
	if err != nil {
		return nil, err
	}
	pack := qp.Overrides
	pack.Write(archive.QuestLangPath(o.opts.TargetLang), out)
	if err := o.writeMeta(pack, fmt.Sprintf("Modpack translation (%s) by JarLoc", archive.LangCode(o.opts.TargetLang))); err != nil {
		return nil, err
	}
	data, err := pack.Generate()
	if err != nil {
		return nil, err
	}
	return &outcome{
		kind:        KindModpack,
		status:      StatusDone,
		message:     fmt.Sprintf("%d quest texts translated", translated.Len()),
		sourcePath:  archive.QuestLangPath(o.opts.TargetLang),
		translation: final,
		stats:       merge.Stats{Total: qp.Keys.Len(), Missing: qp.Keys.Len()},
		pack:        data,
	}, nil
}

func (o *Orchestrator) writeMeta(pack *archive.Zip, description string) error {
	meta, err := archive.PackMeta(description)
	if err != nil {
		return err
	}
	pack.Write(archive.PackMetaPath, meta)
	return nil
}
