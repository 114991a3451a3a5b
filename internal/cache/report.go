// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"sort"
	"time"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// Filter selects which entries a report lists.
type Filter string

const (
	// FilterDefault lists pending entries only.
	FilterDefault   Filter = ""
	FilterPending   Filter = "pending"
	FilterErrors    Filter = "errors"
	FilterCompleted Filter = "completed"
	FilterAll       Filter = "all"
)

// Includes reports whether an entry with status st is listed under f.
func (f Filter) Includes(st Status) bool {
	switch f {
	case FilterAll:
		return true
	case FilterErrors:
		return st == StatusFailed
	case FilterCompleted:
		return st == StatusCompleted
	default:
		return st == StatusPending
	}
}

// ReportEntry is one listed file.
type ReportEntry struct {
	File         string                `json:"file" yaml:"file"`
	Status       Status                `json:"status" yaml:"status"`
	Hash         string                `json:"hash,omitempty" yaml:"hash,omitempty"`
	MTime        *float64              `json:"mtime,omitempty" yaml:"mtime,omitempty"`
	LastUploaded time.Time             `json:"last_uploaded,omitzero" yaml:"last_uploaded,omitempty"`
	RemoteID     string                `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
	Operation    string                `json:"operation,omitempty" yaml:"operation,omitempty"`
	Error        *types.OperationError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the cache report of one store.
type Report struct {
	Store string        `json:"store" yaml:"store"`
	Stats Stats         `json:"stats" yaml:"stats"`
	Files []ReportEntry `json:"files" yaml:"files"`
}

// errDoneWithoutDocument is reported for operations that finished cleanly
// but never named a document.
const errDoneWithoutDocument = "operation done but no remote_id"

// BuildReport lists the entries of c selected by f, sorted by path.
func BuildReport(storeID string, c StoreCache, f Filter) Report {
	r := Report{Store: storeID, Stats: StatsOf(c), Files: []ReportEntry{}}
	for path, fs := range c {
		st := fs.Status()
		if !f.Includes(st) {
			continue
		}
		e := ReportEntry{
			File:         path,
			Status:       st,
			Hash:         fs.ContentHash,
			MTime:        fs.ModTime,
			LastUploaded: fs.LastUpdated,
		}
		if id, ok := fs.RemoteID(); ok {
			e.RemoteID = id
		}
		if op, ok := fs.PendingOperation(); ok {
			e.Operation = op.Name
			switch {
			case op.Error != nil:
				e.Error = op.Error
			case op.Done:
				e.Error = &types.OperationError{Message: errDoneWithoutDocument}
			}
		}
		r.Files = append(r.Files, e)
	}
	sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].File < r.Files[j].File })
	return r
}
