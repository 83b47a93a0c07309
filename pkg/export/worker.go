package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"pluginkit/pkg/blob"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ErrQueueFull is returned when the worker cannot accept more jobs.
var ErrQueueFull = errors.New("export queue full")

// ArtifactPrefix is the key prefix every export artifact is stored under.
const ArtifactPrefix = "exports/"

// ExportArtifact describes one stored export file.
type ExportArtifact struct {
	Key         string            `json:"key"`
	Format      Format            `json:"format"`
	Filename    string            `json:"filename"`
	ContentType string            `json:"content_type"`
	SizeBytes   int64             `json:"size_bytes"`
	URL         string            `json:"url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Plugin      string           `json:"plugin"`
	Table       string           `json:"table"`
	Rows        int              `json:"rows"`
	Formats     []Format         `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Plugin      string
	Table       Table
	Formats     []Format
	RequestedBy string
	Reason      string
}

// ExportScheduler queues export requests and exposes status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// Worker renders exports asynchronously and stores artifacts in a blob store.
type Worker struct {
	store   blob.Store
	audit   AuditLogger
	log     zerolog.Logger
	metrics *workerMetrics
	options Options
	clock   func() time.Time

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// WorkerOption configures a Worker.
type WorkerOption func(*workerConfig)

type workerConfig struct {
	audit     AuditLogger
	log       zerolog.Logger
	reg       prometheus.Registerer
	queueSize int
	options   Options
	clock     func() time.Time
}

// WithAudit records lifecycle transitions to a.
func WithAudit(a AuditLogger) WorkerOption { return func(c *workerConfig) { c.audit = a } }

// WithLogger sets the worker logger.
func WithLogger(l zerolog.Logger) WorkerOption { return func(c *workerConfig) { c.log = l } }

// WithRegisterer registers worker metrics on reg.
func WithRegisterer(reg prometheus.Registerer) WorkerOption {
	return func(c *workerConfig) { c.reg = reg }
}

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) WorkerOption { return func(c *workerConfig) { c.queueSize = n } }

// WithOptions sets the render options applied to every job.
func WithOptions(o Options) WorkerOption { return func(c *workerConfig) { c.options = o } }

// WithClock overrides the timestamp source for records and retention.
func WithClock(now func() time.Time) WorkerOption { return func(c *workerConfig) { c.clock = now } }

// NewWorker constructs an export worker writing into store.
func NewWorker(store blob.Store, opts ...WorkerOption) *Worker {
	cfg := workerConfig{log: zerolog.Nop(), queueSize: 32, clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.queueSize <= 0 {
		cfg.queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:   store,
		audit:   cfg.audit,
		log:     cfg.log.With().Str("component", "export_worker").Logger(),
		metrics: newWorkerMetrics(cfg.reg),
		options: cfg.options,
		clock:   cfg.clock,
		queue:   make(chan exportTask, cfg.queueSize),
		jobs:    make(map[string]*ExportRecord),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Store returns the blob store artifacts are written to.
func (w *Worker) Store() blob.Store { return w.store }

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport validates input and schedules an export job.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.store == nil {
		return ExportRecord{}, fmt.Errorf("export store not configured")
	}
	if strings.TrimSpace(input.Plugin) == "" {
		input.Plugin = w.options.Plugin
	}
	if strings.TrimSpace(input.Table.Name) == "" {
		return ExportRecord{}, fmt.Errorf("table name required")
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = w.options.EnabledFormats()
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, f := range formats {
		if _, dup := seen[f]; dup {
			continue
		}
		if err := checkFormat(f, w.options); err != nil {
			return ExportRecord{}, err
		}
		uniq = append(uniq, f)
		seen[f] = struct{}{}
	}
	if len(uniq) == 0 {
		return ExportRecord{}, fmt.Errorf("%w: no formats enabled", ErrFormatDisabled)
	}
	input.Formats = uniq

	id := uuid.NewString()
	now := w.now()
	record := ExportRecord{
		ID:          id,
		Plugin:      input.Plugin,
		Table:       input.Table.Name,
		Rows:        len(input.Table.Rows),
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.record(ctx, queued, ExportStatusQueued, input.Reason, nil)

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		w.record(ctx, queued, ExportStatusFailed, ErrQueueFull.Error(), map[string]any{"rejected": true})
		return ExportRecord{}, ErrQueueFull
	}

	w.log.Debug().Str("export_id", id).Str("plugin", input.Plugin).Int("rows", record.Rows).Msg("export queued")
	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	start := time.Now()
	w.mu.RLock()
	_, ok := w.jobs[task.id]
	w.mu.RUnlock()
	if !ok {
		return
	}

	w.transition(task.id, ExportStatusRunning, "", nil)

	opts := w.options
	opts.Plugin = task.input.Plugin
	artifacts := make([]ExportArtifact, 0, len(task.input.Formats))
	for _, format := range task.input.Formats {
		rendered, err := Render(task.input.Table, format, opts)
		if err != nil {
			w.fail(task.id, start, err.Error())
			return
		}
		key := path.Join(ArtifactPrefix, keySegment(task.input.Plugin), task.id, rendered.Filename)
		info, err := w.store.Put(w.ctx, key, bytes.NewReader(rendered.Payload), blob.WriteOptions{
			ContentType: rendered.ContentType,
			Metadata: map[string]string{
				blob.MetaFilename: rendered.Filename,
				blob.MetaPlugin:   task.input.Plugin,
				blob.MetaFormat:   string(format),
			},
		})
		if err != nil {
			w.fail(task.id, start, fmt.Sprintf("store artifact failed: %v", err))
			return
		}
		w.metrics.bytes.WithLabelValues(string(format)).Observe(float64(len(rendered.Payload)))
		artifact := ExportArtifact{
			Key:         info.Key,
			Format:      format,
			Filename:    rendered.Filename,
			ContentType: rendered.ContentType,
			SizeBytes:   info.Size,
			URL:         info.URL,
			Metadata:    info.Metadata,
			CreatedAt:   info.Created,
		}
		if artifact.SizeBytes == 0 {
			artifact.SizeBytes = int64(len(rendered.Payload))
		}
		if artifact.CreatedAt.IsZero() {
			artifact.CreatedAt = w.now()
		}
		artifacts = append(artifacts, artifact)
	}

	w.complete(task.id, start, artifacts)
}

func (w *Worker) transition(id string, status ExportStatus, message string, mutate func(*ExportRecord)) ExportRecord {
	now := w.now()
	w.mu.Lock()
	record, ok := w.jobs[id]
	if ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
		if mutate != nil {
			mutate(record)
		}
	}
	var snapshot ExportRecord
	if ok {
		snapshot = record.copy()
	}
	w.mu.Unlock()
	if ok {
		var meta map[string]any
		if message != "" {
			meta = map[string]any{"error": message}
		}
		w.record(w.ctx, snapshot, status, "", meta)
	}
	return snapshot
}

func (w *Worker) complete(id string, start time.Time, artifacts []ExportArtifact) {
	rec := w.transition(id, ExportStatusSucceeded, "", func(r *ExportRecord) {
		now := r.UpdatedAt
		r.Artifacts = artifacts
		r.CompletedAt = &now
	})
	w.metrics.jobs.WithLabelValues(rec.Plugin, string(ExportStatusSucceeded)).Inc()
	w.metrics.duration.Observe(time.Since(start).Seconds())
	w.log.Info().Str("export_id", id).Str("plugin", rec.Plugin).Int("artifacts", len(artifacts)).Msg("export complete")
}

func (w *Worker) fail(id string, start time.Time, reason string) {
	rec := w.transition(id, ExportStatusFailed, reason, func(r *ExportRecord) {
		now := r.UpdatedAt
		r.CompletedAt = &now
	})
	w.metrics.jobs.WithLabelValues(rec.Plugin, string(ExportStatusFailed)).Inc()
	w.metrics.duration.Observe(time.Since(start).Seconds())
	w.log.Warn().Str("export_id", id).Str("plugin", rec.Plugin).Str("error", reason).Msg("export failed")
}

func (w *Worker) record(ctx context.Context, rec ExportRecord, status ExportStatus, reason string, meta map[string]any) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		ExportID:   rec.ID,
		Action:     "export",
		Actor:      rec.RequestedBy,
		Plugin:     rec.Plugin,
		Table:      rec.Table,
		Status:     status,
		Reason:     reason,
		Metadata:   meta,
		OccurredAt: w.now(),
	})
}

// Prune removes artifacts created more than maxAge ago and forgets the
// finished jobs that completed before the same cutoff. It returns the
// removed artifact keys.
func (w *Worker) Prune(ctx context.Context, maxAge time.Duration) ([]string, error) {
	cutoff := w.now().Add(-maxAge)
	removed, err := blob.Prune(ctx, w.store, ArtifactPrefix, cutoff)
	w.mu.Lock()
	forgotten := 0
	for id, rec := range w.jobs {
		if rec.CompletedAt != nil && rec.CompletedAt.Before(cutoff) {
			delete(w.jobs, id)
			forgotten++
		}
	}
	w.mu.Unlock()
	w.log.Debug().Int("artifacts", len(removed)).Int("jobs", forgotten).Time("cutoff", cutoff).Msg("export retention applied")
	return removed, err
}

func (w *Worker) now() time.Time { return w.clock().UTC() }

func keySegment(plugin string) string {
	if s := slugify(plugin); s != "" {
		return s
	}
	return "shared"
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = make([]ExportArtifact, len(r.Artifacts))
		for i, a := range r.Artifacts {
			a.Metadata = maps.Clone(a.Metadata)
			dup.Artifacts[i] = a
		}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}
