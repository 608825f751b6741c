// Package acquire drives acquisition of a URL: it classifies the URL, resolves
// it to one or more items, fetches each item and persists its normalized
// metadata.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ytarchive/ytarchive/internal/event"
	"github.com/ytarchive/ytarchive/internal/media"
	"github.com/ytarchive/ytarchive/internal/mediafile"
	"github.com/ytarchive/ytarchive/internal/provider"
	"github.com/ytarchive/ytarchive/pkg/logger"
	"github.com/ytarchive/ytarchive/pkg/worker"
)

var log = logger.Get("Acquire")

const DefaultCollectionMarker = "list="

type (
	// Kind is the classification of a URL.
	Kind string

	// Mode lets a caller override URL classification.
	Mode int

	// Persister saves normalized records to the table named.
	Persister interface {
		Save(ctx context.Context, table string, record *media.Record) error
	}

	Config struct {
		OutputPath       string
		CollectionMarker string
		TagAudio         bool
		VerifyDownloads  bool
		FFprobePath      string
	}

	// Options configure a single Run.
	Options struct {
		AudioOnly      bool
		Persist        bool
		Mode           Mode
		Concurrency    int
		PreflightCheck bool
	}

	Orchestrator struct {
		config    Config
		provider  provider.Provider
		persister Persister
		events    event.EventDispatcher

		checkConnectivity func(ctx context.Context, url string) error
		tag               func(path string, record *media.Record) (bool, error)
		probe             func(ffprobePath string, path string) (*mediafile.ProbeResult, error)
	}

	// run is the state shared by every item of a single Run.
	run struct {
		id     uuid.UUID
		opts   Options
		table  string
		report *Report
	}
)

const (
	KindSingle     Kind = "single"
	KindCollection Kind = "collection"
)

const (
	ModeAuto Mode = iota
	ModeSingle
	ModeCollection
)

// New constructs an Orchestrator. The persister may be nil, in which case
// runs requesting persistence fail up front.
func New(config Config, p provider.Provider, persister Persister, events event.EventDispatcher) *Orchestrator {
	if config.CollectionMarker == "" {
		config.CollectionMarker = DefaultCollectionMarker
	}
	if events == nil {
		events = event.New()
	}

	return &Orchestrator{
		config:    config,
		provider:  p,
		persister: persister,
		events:    events,
		checkConnectivity: func(ctx context.Context, url string) error {
			return provider.CheckConnectivity(ctx, nil, url)
		},
		tag:   mediafile.Tag,
		probe: mediafile.Probe,
	}
}

// Classify returns the kind of the URL. Unless the mode forces a kind, a URL
// containing the collection marker is a collection.
func (o *Orchestrator) Classify(url string, mode Mode) Kind {
	switch mode {
	case ModeSingle:
		return KindSingle
	case ModeCollection:
		return KindCollection
	}

	if strings.Contains(url, o.config.CollectionMarker) {
		return KindCollection
	}

	return KindSingle
}

// Run acquires the URL provided. Item level failures are reported in the
// returned Report and on the event bus, and never stop sibling items. An
// error is returned only when the run could not begin: a failed pre-flight
// check, or a collection which could not be resolved.
func (o *Orchestrator) Run(ctx context.Context, url string, opts Options) (*Report, error) {
	if url == "" {
		return nil, errors.New("cannot acquire an empty URL")
	}
	if opts.Persist && o.persister == nil {
		return nil, errors.New("persistence requested but no store is configured")
	}

	if opts.PreflightCheck {
		if err := o.checkConnectivity(ctx, url); err != nil {
			log.Emit(logger.ERROR, "Pre-flight check failed, not proceeding with %s: %v\n", url, err)
			return nil, err
		}
	}

	r := &run{
		id:    uuid.New(),
		opts:  opts,
		table: media.TableFor(opts.AudioOnly),
	}
	r.report = &Report{
		RunID:     r.id,
		URL:       url,
		Kind:      o.Classify(url, opts.Mode),
		AudioOnly: opts.AudioOnly,
		Table:     r.table,
		StartedAt: time.Now(),
	}

	log.Emit(logger.INFO, "Starting %s run %s for %s\n", r.report.Kind, r.id, url)
	switch r.report.Kind {
	case KindCollection:
		urls, err := o.resolveCollection(ctx, url)
		if err != nil {
			return nil, err
		}

		r.report.Items = o.processAll(ctx, r, urls)
	default:
		r.report.Items = []ItemResult{o.processItem(context.WithoutCancel(ctx), r, 0, url)}
	}

	r.report.FinishedAt = time.Now()
	o.events.Dispatch(event.RUN_COMPLETE, event.RunPayload{
		RunID:      r.id,
		URL:        url,
		Items:      len(r.report.Items),
		Downloaded: r.report.Downloaded(),
		Persisted:  r.report.Persisted(),
		Failures:   len(r.report.Failures()),
	})

	log.Emit(logger.SUCCESS, "Run %s complete: %d item(s), %d downloaded, %d persisted, %d failed\n",
		r.id, len(r.report.Items), r.report.Downloaded(), r.report.Persisted(), len(r.report.Failures()))
	return r.report, nil
}

// resolveCollection extracts the collection and returns the URL of each
// entry, in order. An entry without a usable URL is returned as "".
func (o *Orchestrator) resolveCollection(ctx context.Context, url string) ([]string, error) {
	doc, err := o.provider.Extract(ctx, url, true)
	if err != nil {
		return nil, &ExtractionError{URL: url, Err: err}
	}
	if doc == nil {
		return nil, &ExtractionError{URL: url, Err: errors.New("provider returned no document")}
	}

	urls := make([]string, len(doc.Entries))
	for i, entry := range doc.Entries {
		if entry != nil {
			urls[i] = entry.EntryURL()
		}
	}

	log.Infof("Collection %s resolved to %d entries\n", url, len(urls))
	return urls, nil
}

// processAll acquires every entry, sequentially or on a bounded worker pool
// depending on the run's concurrency. Results are returned in entry order.
// Cancelling ctx stops further entries being started; entries already
// started run to completion.
func (o *Orchestrator) processAll(ctx context.Context, r *run, urls []string) []ItemResult {
	results := make([]ItemResult, len(urls))
	itemCtx := context.WithoutCancel(ctx)

	process := func(index int) {
		if err := ctx.Err(); err != nil {
			results[index] = ItemResult{Index: index, URL: urls[index], Stage: StageSkipped, Err: err}
			o.fail(r, results[index])
			return
		}

		results[index] = o.processItem(itemCtx, r, index, urls[index])
	}

	workers := min(r.opts.Concurrency, len(urls))
	if workers <= 1 {
		for i := range urls {
			process(i)
		}

		return results
	}

	var (
		mu   sync.Mutex
		next int
		wg   sync.WaitGroup
	)
	wg.Add(len(urls))

	task := func(w worker.Worker) (bool, error) {
		mu.Lock()
		if next >= len(urls) {
			mu.Unlock()
			return false, nil
		}
		index := next
		next++
		mu.Unlock()

		defer wg.Done()
		process(index)
		return true, nil
	}

	pool := worker.NewWorkerPool()
	for i := 0; i < workers; i++ {
		_ = pool.PushWorker(worker.NewWorker(fmt.Sprintf("acquire-%s-%d", r.id.String()[:8], i), task))
	}
	_ = pool.Start()

	wg.Wait()
	pool.Close()

	return results
}

// processItem runs the single item pipeline for url:
// extract, derive filename, fetch, then normalize and persist.
func (o *Orchestrator) processItem(ctx context.Context, r *run, index int, url string) ItemResult {
	result := ItemResult{Index: index, URL: url, Stage: StageExtract}
	if url == "" {
		result.Err = &ExtractionError{URL: url, Err: errors.New("collection entry has no URL")}
		o.fail(r, result)
		return result
	}

	doc, err := o.provider.Extract(ctx, url, false)
	if err == nil && doc == nil {
		err = errors.New("provider returned no document")
	}
	if err != nil {
		result.Err = &ExtractionError{URL: url, Err: err}
		o.fail(r, result)
		return result
	}

	result.Filename = media.DeriveFilename(doc)
	result.Stage = StageFetch
	path, err := o.provider.Fetch(ctx, url, provider.OptionsFor(r.opts.AudioOnly, o.config.OutputPath, result.Filename))
	if err != nil {
		result.Err = &FetchError{URL: url, Err: err}
		o.fail(r, result)
		return result
	}

	result.Path, result.Downloaded = path, true
	o.events.Dispatch(event.ITEM_DOWNLOADED, o.payload(r, result))
	o.verify(path)

	record, normErr := media.Normalize(doc)
	if normErr == nil && r.opts.AudioOnly && o.config.TagAudio {
		if _, err := o.tag(path, record); err != nil {
			log.Warnf("Failed to tag %s: %v\n", path, err)
		}
	}

	// Metadata only has to satisfy the schema when it is being saved.
	if !r.opts.Persist {
		result.Stage = StageDone
		return result
	}

	result.Stage = StageNormalize
	if normErr != nil {
		result.Err = normErr
		o.fail(r, result)
		return result
	}

	result.Stage = StagePersist
	if err := o.persister.Save(ctx, r.table, record); err != nil {
		result.Err = err
		o.fail(r, result)
		return result
	}

	result.Stage, result.Persisted = StageDone, true
	o.events.Dispatch(event.ITEM_PERSISTED, o.payload(r, result))
	return result
}

func (o *Orchestrator) verify(path string) {
	if !o.config.VerifyDownloads {
		return
	}

	probe, err := o.probe(o.config.FFprobePath, path)
	if err != nil {
		log.Warnf("Downloaded file %s could not be verified: %v\n", path, err)
		return
	}

	log.Debugf("Verified %s (%d stream(s), duration %s)\n", path, probe.Streams, probe.Duration)
}

func (o *Orchestrator) fail(r *run, result ItemResult) {
	log.Emit(logger.ERROR, "Item %d (%s) failed during %s: %v\n", result.Index, result.URL, result.Stage, result.Err)
	o.events.Dispatch(event.ITEM_FAILED, o.payload(r, result))
}

func (o *Orchestrator) payload(r *run, result ItemResult) event.ItemPayload {
	return event.ItemPayload{
		RunID:    r.id,
		Index:    result.Index,
		URL:      result.URL,
		Filename: result.Filename,
		Path:     result.Path,
		Table:    r.table,
		Stage:    string(result.Stage),
		Err:      result.Err,
	}
}
