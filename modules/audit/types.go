package audit

import "context"

// RecentEntriesRequest asks for the newest trail entries.
type RecentEntriesRequest struct {
	Limit  int    `json:"limit"`
	TaskID uint64 `json:"task_id,omitempty"`
}

// RecentEntriesResponse carries trail entries, newest first.
type RecentEntriesResponse struct {
	Entries  []Entry `json:"entries"`
	Recorded int64   `json:"recorded"`
}

// AuditPort is the contract used to read the trail from other modules.
type AuditPort interface {
	RecentEntries(ctx context.Context, limit int, taskID uint64) (*RecentEntriesResponse, error)
}
