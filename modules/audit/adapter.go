package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// auditAdapter implements AuditPort using the service container.
type auditAdapter struct {
	container mono.ServiceContainer
}

// NewAuditAdapter creates a new adapter for the audit service.
func NewAuditAdapter(container mono.ServiceContainer) AuditPort {
	if container == nil {
		panic("audit adapter requires non-nil ServiceContainer")
	}
	return &auditAdapter{container: container}
}

// RecentEntries reads the newest trail entries.
func (a *auditAdapter) RecentEntries(ctx context.Context, limit int, taskID uint64) (*RecentEntriesResponse, error) {
	req := RecentEntriesRequest{Limit: limit, TaskID: taskID}
	var resp RecentEntriesResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"recent-entries",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("recent-entries service call failed: %w", err)
	}
	return &resp, nil
}
