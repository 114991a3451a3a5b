// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package upload

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/internal/cache"
	"github.com/pdiddy/gemini-file-search-tool/internal/gemini"
)

// Replacement is a changed file whose previous document must be deleted
// before it is uploaded again.
type Replacement struct {
	Path     string `json:"file"`
	RemoteID string `json:"remote_id"`
}

// Plan is the classification of a candidate set against a store's cache.
// All paths are absolute.
type Plan struct {
	ToUpload []string
	ToUpdate []Replacement
	ToSkip   []string

	// Dropped files could not be hashed and are left out of the run.
	Dropped []string
}

// Reconciler decides which candidate files need uploading.
type Reconciler struct {
	cache  *cache.Store
	hasher cache.Hasher
	log    *zap.Logger
}

// NewReconciler returns a Reconciler reading from store.
func NewReconciler(store *cache.Store, hasher cache.Hasher, log *zap.Logger) *Reconciler {
	if hasher == nil {
		hasher = cache.SHA256Hasher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{cache: store, hasher: hasher, log: log}
}

// Classify sorts files into upload, update and skip sets. Rules apply in
// order and the first match wins:
//
//  1. force: upload without reading the cache
//  2. not cached: upload
//  3. cached mtime equals current mtime and a hash is cached: skip
//  4. hash the file; on failure drop it with a warning
//  5. hash equals the cached hash: skip
//  6. a remote id is cached: update
//  7. otherwise: upload
func (r *Reconciler) Classify(storeID string, files []string, force bool) Plan {
	var plan Plan
	if force {
		for _, f := range files {
			plan.ToUpload = append(plan.ToUpload, cache.Key(f))
		}
		return plan
	}

	c := r.cache.Load(storeID)
	for _, f := range files {
		path := cache.Key(f)
		st, ok := c[path]
		if !ok {
			plan.ToUpload = append(plan.ToUpload, path)
			continue
		}

		if st.ModTime != nil && st.ContentHash != "" {
			if info, err := os.Stat(path); err == nil && cache.ModTimeOf(info.ModTime()) == *st.ModTime {
				r.log.Debug("skipping, unchanged in cache", zap.String("file", path))
				plan.ToSkip = append(plan.ToSkip, path)
				continue
			}
		}

		hash, err := r.hasher.Hash(path)
		if err != nil {
			r.log.Warn("could not hash file, skipping", zap.String("file", path), zap.Error(err))
			plan.Dropped = append(plan.Dropped, path)
			continue
		}

		if hash == st.ContentHash {
			r.log.Debug("skipping, content unchanged", zap.String("file", path))
			plan.ToSkip = append(plan.ToSkip, path)
			continue
		}
		if id, ok := st.RemoteID(); ok {
			r.log.Debug("update needed, content changed", zap.String("file", path))
			plan.ToUpdate = append(plan.ToUpdate, Replacement{Path: path, RemoteID: id})
			continue
		}
		plan.ToUpload = append(plan.ToUpload, path)
	}
	return plan
}

// DocumentDeleter removes a remote document.
type DocumentDeleter interface {
	DeleteDocument(ctx context.Context, name string) error
}

// Jobs turns a plan into upload jobs. Each replacement's old document is
// deleted first; a document that is already gone counts as deleted. Any
// other delete failure is logged and the file is uploaded anyway, as new.
func (p Plan) Jobs(ctx context.Context, deleter DocumentDeleter, log *zap.Logger) []Job {
	if log == nil {
		log = zap.NewNop()
	}
	jobs := make([]Job, 0, len(p.ToUpload)+len(p.ToUpdate))
	for _, path := range p.ToUpload {
		jobs = append(jobs, Job{Path: path})
	}
	for _, rep := range p.ToUpdate {
		err := deleter.DeleteDocument(ctx, rep.RemoteID)
		switch {
		case err == nil:
			log.Info("deleted old version", zap.String("file", rep.Path), zap.String("document", rep.RemoteID))
			jobs = append(jobs, Job{Path: rep.Path, Updated: true})
		case errors.Is(err, gemini.ErrNotFound):
			log.Info("old version already gone", zap.String("file", rep.Path), zap.String("document", rep.RemoteID))
			jobs = append(jobs, Job{Path: rep.Path, Updated: true})
		default:
			log.Warn("failed to delete old version, uploading anyway",
				zap.String("file", rep.Path), zap.String("document", rep.RemoteID), zap.Error(err))
			jobs = append(jobs, Job{Path: rep.Path})
		}
	}
	return jobs
}
