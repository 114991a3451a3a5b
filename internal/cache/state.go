// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"time"

	"github.com/pdiddy/gemini-file-search-tool/pkg/types"
)

// Status classifies a cached entry for reporting.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// Operation is the cached snapshot of an ingestion operation.
type Operation struct {
	Name     string                `json:"name" yaml:"name"`
	Done     bool                  `json:"done" yaml:"done"`
	Metadata map[string]any        `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Error    *types.OperationError `json:"error,omitempty" yaml:"error,omitempty"`
}

// SnapshotOf captures the cacheable fields of a remote operation.
func SnapshotOf(op types.Operation) Operation {
	return Operation{
		Name:     op.Name,
		Done:     op.Done,
		Metadata: op.Metadata,
		Error:    op.Error,
	}
}

// Remote is the remote side of a cached file: Completed, Pending, or nil
// when neither is known.
type Remote interface {
	isRemote()
}

// Completed records the document produced by a finished upload.
type Completed struct {
	RemoteID string
}

// Pending records an upload whose outcome has not been observed yet, or
// whose operation finished without producing a document.
type Pending struct {
	Operation Operation
}

func (Completed) isRemote() {}
func (Pending) isRemote()   {}

// FileState is the cached upload state of one local file in one store.
type FileState struct {
	Path        string
	ContentHash string
	ModTime     *float64
	Remote      Remote
	LastUpdated time.Time
}

// RemoteID returns the completed document id, if any.
func (s FileState) RemoteID() (string, bool) {
	c, ok := s.Remote.(Completed)
	return c.RemoteID, ok
}

// PendingOperation returns the operation snapshot, if any.
func (s FileState) PendingOperation() (Operation, bool) {
	p, ok := s.Remote.(Pending)
	return p.Operation, ok
}

// Status reports how the entry would appear in a cache report. A pending
// operation counts as failed once it is done, whether or not the service
// attached an error; until then it is pending.
func (s FileState) Status() Status {
	switch r := s.Remote.(type) {
	case Completed:
		return StatusCompleted
	case Pending:
		if r.Operation.Done {
			return StatusFailed
		}
		return StatusPending
	default:
		return StatusUnknown
	}
}

// Update mutates one field group of a FileState.
type Update func(*FileState)

// WithRemoteID marks the file completed, dropping any pending operation.
func WithRemoteID(id string) Update {
	return func(s *FileState) { s.Remote = Completed{RemoteID: id} }
}

// WithOperation marks the file pending on op, dropping any remote id.
func WithOperation(op Operation) Update {
	return func(s *FileState) { s.Remote = Pending{Operation: op} }
}

// WithContentHash records the content fingerprint.
func WithContentHash(hash string) Update {
	return func(s *FileState) { s.ContentHash = hash }
}

// WithModTime records the observed modification time in seconds.
func WithModTime(mtime float64) Update {
	return func(s *FileState) { s.ModTime = &mtime }
}

// ClearFingerprint drops the hash and modification time so the next
// upload run re-examines the file.
func ClearFingerprint() Update {
	return func(s *FileState) {
		s.ContentHash = ""
		s.ModTime = nil
	}
}

// ModTimeOf converts a file modification time to the cached representation.
func ModTimeOf(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// entry is the persisted form of a FileState.
type entry struct {
	Hash         string     `json:"hash,omitempty"`
	MTime        *float64   `json:"mtime,omitempty"`
	RemoteID     string     `json:"remote_id,omitempty"`
	Operation    *Operation `json:"operation,omitempty"`
	LastUploaded time.Time  `json:"last_uploaded"`
}

func toEntry(s FileState) entry {
	e := entry{
		Hash:         s.ContentHash,
		MTime:        s.ModTime,
		LastUploaded: s.LastUpdated.UTC(),
	}
	switch r := s.Remote.(type) {
	case Completed:
		e.RemoteID = r.RemoteID
	case Pending:
		op := r.Operation
		e.Operation = &op
	}
	return e
}

// fromEntry rebuilds a FileState. A unit edited to carry both a remote id
// and an operation resolves to completed.
func fromEntry(path string, e entry) FileState {
	s := FileState{
		Path:        path,
		ContentHash: e.Hash,
		ModTime:     e.MTime,
		LastUpdated: e.LastUploaded,
	}
	switch {
	case e.RemoteID != "":
		s.Remote = Completed{RemoteID: e.RemoteID}
	case e.Operation != nil:
		s.Remote = Pending{Operation: *e.Operation}
	}
	return s
}
