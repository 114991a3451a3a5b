// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package journal

import (
	"time"

	"github.com/pdiddy/gemini-file-search-tool/internal/syncer"
	"github.com/pdiddy/gemini-file-search-tool/internal/upload"
)

// FromUpload builds the journal record of an upload run. OK counts new and
// updated files; Failed includes errors.
func FromUpload(store string, started time.Time, res upload.Result) (Run, []Outcome) {
	run := Run{
		Kind:       KindUpload,
		Store:      store,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Total:      res.Total(),
		OK:         res.Completed + res.Updated,
		Failed:     res.Failed + res.Errored,
		Skipped:    res.Skipped,
		Pending:    res.Pending,
	}
	outcomes := make([]Outcome, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		msg := o.Error
		if msg == "" {
			msg = o.Reason
		}
		outcomes = append(outcomes, Outcome{
			Path:      o.File,
			Status:    string(o.Status),
			RemoteID:  o.DocumentName,
			Operation: o.Operation,
			Error:     msg,
		})
	}
	return run, outcomes
}

// FromSync builds the journal record of a sync run.
func FromSync(store string, started time.Time, sum syncer.Summary) (Run, []Outcome) {
	run := Run{
		Kind:       KindSync,
		Store:      store,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Total:      sum.Total,
		OK:         sum.Synced,
		Failed:     sum.Failed,
		Pending:    sum.StillPending,
	}
	outcomes := make([]Outcome, 0, len(sum.Results))
	for _, r := range sum.Results {
		o := Outcome{
			Path:      r.File,
			Status:    string(r.Status),
			RemoteID:  r.RemoteID,
			Operation: r.Operation,
		}
		if r.Error != nil {
			o.Error = r.Error.Message
		}
		outcomes = append(outcomes, o)
	}
	return run, outcomes
}
