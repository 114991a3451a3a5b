// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package syncer reconciles fire-and-forget uploads: it fetches the current
// state of every pending operation in a store's cache and writes the
// results back in one batch.
package syncer

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/gemini-file-search-tool/internal/cache"
	"github.com/pdiddy/gemini-file-search-tool/internal/upload"
	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// Status is the sync outcome of one pending entry.
type Status string

const (
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
	StatusError   Status = "error"
)

const errNoDocument = "operation done but no document_name"

// Result is the sync outcome of one file.
type Result struct {
	File      string                `json:"file" yaml:"file"`
	Status    Status                `json:"status" yaml:"status"`
	Operation string                `json:"operation,omitempty" yaml:"operation,omitempty"`
	RemoteID  string                `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
	Error     *types.OperationError `json:"error,omitempty" yaml:"error,omitempty"`

	// updates is nil when the cache must not change for this file.
	updates []cache.Update
}

// Summary aggregates a sync run. Failed includes fetch errors; Errored
// counts those separately.
type Summary struct {
	Total        int      `json:"total" yaml:"total"`
	Synced       int      `json:"synced" yaml:"synced"`
	Failed       int      `json:"failed" yaml:"failed"`
	StillPending int      `json:"still_pending" yaml:"still_pending"`
	Errored      int      `json:"errored" yaml:"errored"`
	Results      []Result `json:"operations" yaml:"operations"`
}

// Options controls a sync run.
type Options struct {
	// Workers bounds concurrent status fetches (default types.DefaultNumWorkers).
	Workers int
}

// Syncer checks pending operations against the service.
type Syncer struct {
	remote upload.OperationGetter
	cache  *cache.Store
	log    *zap.Logger
}

// New returns a Syncer.
func New(remote upload.OperationGetter, store *cache.Store, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{remote: remote, cache: store, log: log}
}

// Sync fetches the status of every pending entry of storeID concurrently,
// delivering results to onResult (if non-nil) as they arrive, then applies
// all cache changes in one write. Entries whose fetch failed keep their
// cached state. The returned error reports a failed cache write only.
func (s *Syncer) Sync(ctx context.Context, storeID string, opts Options, onResult func(Result)) (Summary, error) {
	pending := s.cache.Pending(storeID)
	sum := Summary{Total: len(pending), Results: []Result{}}
	if len(pending) == 0 {
		return sum, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = types.DefaultNumWorkers
	}
	s.log.Info("syncing pending operations",
		zap.String("store", storeID), zap.Int("operations", len(pending)), zap.Int("workers", workers))

	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	results := make(chan Result)
	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, p := range paths {
			st := pending[p]
			g.Go(func() error {
				results <- s.check(ctx, st)
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	batch := make(map[string][]cache.Update)
	for r := range results {
		switch r.Status {
		case StatusSynced:
			sum.Synced++
		case StatusPending:
			sum.StillPending++
		case StatusFailed:
			sum.Failed++
		default:
			sum.Failed++
			sum.Errored++
		}
		if r.updates != nil {
			batch[r.File] = r.updates
		}
		sum.Results = append(sum.Results, r)
		if onResult != nil {
			onResult(r)
		}
	}

	s.log.Info("writing cache updates", zap.Int("updates", len(batch)))
	if err := s.cache.UpdateMany(storeID, batch); err != nil {
		return sum, fmt.Errorf("writing sync results: %w", err)
	}
	return sum, nil
}

// check fetches one operation and decides its cache change.
func (s *Syncer) check(ctx context.Context, st cache.FileState) (r Result) {
	op, _ := st.PendingOperation()
	r = Result{File: st.Path, Operation: op.Name}
	defer func() {
		if p := recover(); p != nil {
			r = Result{File: st.Path, Operation: op.Name, Status: StatusError,
				Error: &types.OperationError{Message: fmt.Sprintf("unexpected error: %v", p)}}
		}
	}()

	if op.Name == "" {
		s.log.Warn("skipping entry with no operation name", zap.String("file", st.Path))
		r.Status = StatusError
		r.Error = &types.OperationError{Message: "missing operation name"}
		return r
	}

	remote, err := s.remote.GetOperation(ctx, op.Name)
	if err != nil {
		s.log.Warn("could not fetch operation", zap.String("file", st.Path), zap.String("operation", op.Name), zap.Error(err))
		r.Status = StatusError
		r.Error = &types.OperationError{Message: err.Error()}
		return r
	}
	if remote.Name == "" {
		remote.Name = op.Name
	}
	snap := cache.SnapshotOf(remote)

	switch {
	case remote.Failed():
		s.log.Warn("operation failed", zap.String("file", st.Path), zap.Error(remote.Error))
		r.Status = StatusFailed
		r.Error = remote.Error
		r.updates = []cache.Update{cache.WithOperation(snap), cache.ClearFingerprint()}
	case remote.Done && remote.DocumentID() != "":
		r.Status = StatusSynced
		r.RemoteID = remote.DocumentID()
		r.updates = []cache.Update{cache.WithRemoteID(r.RemoteID)}
	case remote.Done:
		s.log.Warn("operation done but no document", zap.String("file", st.Path))
		snap.Error = &types.OperationError{Message: errNoDocument}
		r.Status = StatusFailed
		r.Error = snap.Error
		r.updates = []cache.Update{cache.WithOperation(snap), cache.ClearFingerprint()}
	default:
		r.Status = StatusPending
		r.updates = []cache.Update{cache.WithOperation(snap)}
	}
	return r
}
