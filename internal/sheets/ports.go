package sheets

import (
	"context"

	"claimdesk/internal/core"
)

// Ports for outbound adapters.
type (
	// ActivityAppender mirrors audit records to an external archive.
	ActivityAppender interface {
		Append(ctx context.Context, rec core.ActivityRecord) (rowRef string, err error)
	}
)
