// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

// Stats summarizes a store's cache.
type Stats struct {
	Total     int `json:"total_files" yaml:"total_files"`
	Completed int `json:"completed" yaml:"completed"`
	Pending   int `json:"pending_operations" yaml:"pending_operations"`
	Failed    int `json:"failed_operations" yaml:"failed_operations"`
	Unknown   int `json:"unknown,omitempty" yaml:"unknown,omitempty"`
}

// StatsOf counts the entries of c by status.
func StatsOf(c StoreCache) Stats {
	st := Stats{Total: len(c)}
	for _, fs := range c {
		switch fs.Status() {
		case StatusCompleted:
			st.Completed++
		case StatusPending:
			st.Pending++
		case StatusFailed:
			st.Failed++
		default:
			st.Unknown++
		}
	}
	return st
}

// Stats returns the summary for storeID.
func (s *Store) Stats(storeID string) Stats {
	return StatsOf(s.Load(storeID))
}
