// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package upload classifies candidate files against the upload cache and
// drives concurrent uploads into a File Search store.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/gemini-file-search-tool/internal/cache"
	"github.com/pdiddy/gemini-file-search-tool/internal/gemini"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// Status is the outcome of one file in a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusUpdated   Status = "updated"
	StatusPending   Status = "pending"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
)

// errNoDocument is recorded when an operation finishes cleanly but names
// no document.
const errNoDocument = "operation done but no document name"

// Remote is the part of the File Search API the driver uses.
type Remote interface {
	OperationGetter
	UploadFile(ctx context.Context, store string, req gemini.UploadRequest) (types.Operation, error)
}

// Job is one file to upload. Updated marks a file whose previous document
// was deleted first, so success reports as updated.
type Job struct {
	Path    string
	Updated bool
}

// Options controls a run.
type Options struct {
	// Workers bounds concurrent uploads (default types.DefaultNumWorkers).
	Workers int

	// Wait polls each operation until done. Otherwise outcomes are pending.
	Wait bool

	SkipValidation bool
	Metadata       []types.CustomMetadata
	Chunking       types.ChunkingConfig
}

// Outcome is the result of one file.
type Outcome struct {
	File         string `json:"file" yaml:"file"`
	Status       Status `json:"status" yaml:"status"`
	DocumentName string `json:"document_name,omitempty" yaml:"document_name,omitempty"`
	Operation    string `json:"operation,omitempty" yaml:"operation,omitempty"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`

	// Snapshot is the last observed operation state.
	Snapshot *cache.Operation `json:"-" yaml:"-"`

	hash  string
	mtime *float64
}

// Result aggregates the outcomes of a run.
type Result struct {
	Outcomes []Outcome `json:"results" yaml:"results"`

	Completed int `json:"completed" yaml:"completed"`
	Updated   int `json:"updated" yaml:"updated"`
	Pending   int `json:"pending" yaml:"pending"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Failed    int `json:"failed" yaml:"failed"`
	Errored   int `json:"errored" yaml:"errored"`
}

// Add records o.
func (r *Result) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusCompleted:
		r.Completed++
	case StatusUpdated:
		r.Updated++
	case StatusPending:
		r.Pending++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	default:
		r.Errored++
	}
}

// Total returns the number of outcomes.
func (r Result) Total() int { return len(r.Outcomes) }

// AllFailed reports whether something failed while nothing succeeded,
// went pending or was skipped.
func (r Result) AllFailed() bool {
	return r.Failed+r.Errored > 0 && r.Completed+r.Updated+r.Pending == 0 && r.Skipped == 0
}

// Driver uploads files with a bounded worker pool and records each
// outcome in the cache as it arrives.
type Driver struct {
	remote Remote
	cache  *cache.Store
	hasher cache.Hasher
	log    *zap.Logger
}

// NewDriver returns a Driver. store may be nil to run without caching.
func NewDriver(remote Remote, store *cache.Store, hasher cache.Hasher, log *zap.Logger) *Driver {
	if hasher == nil {
		hasher = cache.SHA256Hasher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{remote: remote, cache: store, hasher: hasher, log: log}
}

// Run uploads every job into storeID. Outcomes are delivered to onResult
// (if non-nil) in completion order, each after its cache write. A single
// collector performs all cache writes, so they never race. One file's
// failure never stops the others. Run returns once every job finished.
func (d *Driver) Run(ctx context.Context, storeID string, jobs []Job, opts Options, onResult func(Outcome)) Result {
	workers := opts.Workers
	if workers <= 0 {
		workers = types.DefaultNumWorkers
	}
	d.log.Info("starting uploads",
		zap.String("store", storeID), zap.Int("files", len(jobs)), zap.Int("workers", workers), zap.Bool("wait", opts.Wait))

	outcomes := make(chan Outcome)
	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, job := range jobs {
			g.Go(func() error {
				outcomes <- d.process(ctx, storeID, job, opts)
				return nil
			})
		}
		g.Wait()
		close(outcomes)
	}()

	var res Result
	for o := range outcomes {
		d.record(storeID, o)
		res.Add(o)
		if onResult != nil {
			onResult(o)
		}
	}
	return res
}

// process runs validate, submit and optionally poll for one file. Panics
// are contained as error outcomes.
func (d *Driver) process(ctx context.Context, storeID string, job Job, opts Options) (out Outcome) {
	out = Outcome{File: job.Path}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("unexpected failure", zap.String("file", job.Path), zap.Any("panic", r))
			out = Outcome{File: job.Path, Status: StatusError, Error: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	if err := Validate(job.Path, opts.SkipValidation); err != nil {
		if errors.Is(err, ErrEmptyFile) {
			d.log.Warn("skipping empty file", zap.String("file", job.Path))
			out.Status = StatusSkipped
			out.Reason = "empty file (0 bytes), no content to index"
			return out
		}
		d.log.Warn("validation failed", zap.String("file", job.Path), zap.Error(err))
		out.Status = StatusFailed
		out.Error = err.Error()
		return out
	}

	// Fingerprint before submitting so the cache describes what was sent.
	if info, err := os.Stat(job.Path); err == nil {
		m := cache.ModTimeOf(info.ModTime())
		out.mtime = &m
	}
	if h, err := d.hasher.Hash(job.Path); err == nil {
		out.hash = h
	} else {
		d.log.Warn("could not hash file", zap.String("file", job.Path), zap.Error(err))
	}

	var chunking *types.ChunkingConfig
	if !opts.Chunking.IsDefault() && opts.Chunking != (types.ChunkingConfig{}) {
		c := opts.Chunking
		chunking = &c
	}

	d.log.Info("uploading", zap.String("file", job.Path), zap.String("store", storeID))
	op, err := d.remote.UploadFile(ctx, storeID, gemini.UploadRequest{
		Path:        job.Path,
		DisplayName: job.Path,
		MimeType:    DetectMIME(job.Path),
		Metadata:    opts.Metadata,
		Chunking:    chunking,
	})
	if err != nil {
		d.log.Warn("upload failed", zap.String("file", job.Path), zap.Error(err))
		out.Status = StatusFailed
		out.Error = fmt.Sprintf("upload failed: %v", err)
		return out
	}
	out.Operation = op.Name

	if !op.Done && !opts.Wait {
		snap := cache.SnapshotOf(op)
		out.Snapshot = &snap
		out.Status = StatusPending
		return out
	}

	op, err = Poll(ctx, d.remote, op, d.log)
	if err != nil {
		snap := cache.SnapshotOf(op)
		out.Snapshot = &snap
		out.Status = StatusError
		out.Error = fmt.Sprintf("polling operation: %v", err)
		return out
	}
	return d.finish(out, job, op)
}

// finish classifies a done operation.
func (d *Driver) finish(out Outcome, job Job, op types.Operation) Outcome {
	snap := cache.SnapshotOf(op)
	out.Snapshot = &snap

	if op.Failed() {
		d.log.Warn("operation failed", zap.String("file", job.Path), zap.String("operation", op.Name), zap.Error(op.Error))
		out.Status = StatusFailed
		out.Error = fmt.Sprintf("upload failed: %v", op.Error)
		return out
	}
	id := op.DocumentID()
	if id == "" {
		snap.Error = &types.OperationError{Message: errNoDocument}
		out.Status = StatusFailed
		out.Error = errNoDocument
		return out
	}

	out.Snapshot = nil
	out.DocumentName = id
	out.Status = StatusCompleted
	if job.Updated {
		out.Status = StatusUpdated
	}
	d.log.Info("upload completed", zap.String("file", job.Path), zap.String("document", id))
	return out
}

// record writes one outcome to the cache. Completed files store their
// document; pending files their operation; failed operations are stored
// without a fingerprint so the next run retries them.
func (d *Driver) record(storeID string, o Outcome) {
	if d.cache == nil {
		return
	}
	var updates []cache.Update
	switch {
	case o.Status == StatusCompleted || o.Status == StatusUpdated:
		updates = append(updates, cache.WithRemoteID(o.DocumentName))
		updates = append(updates, fingerprint(o)...)
	case o.Status == StatusPending:
		updates = append(updates, cache.WithOperation(*o.Snapshot))
		updates = append(updates, fingerprint(o)...)
	case o.Status == StatusFailed && o.Snapshot != nil:
		updates = append(updates, cache.WithOperation(*o.Snapshot), cache.ClearFingerprint())
	default:
		return
	}
	if _, err := d.cache.Update(storeID, o.File, updates...); err != nil {
		d.log.Warn("cache write failed", zap.String("file", o.File), zap.Error(err))
	}
}

func fingerprint(o Outcome) []cache.Update {
	if o.hash == "" {
		return []cache.Update{cache.ClearFingerprint()}
	}
	u := []cache.Update{cache.WithContentHash(o.hash)}
	if o.mtime != nil {
		u = append(u, cache.WithModTime(*o.mtime))
	}
	return u
}
