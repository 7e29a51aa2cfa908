package outbox

import (
	"context"
	"time"
)

// Repository persists outbox messages. Save and SaveBatch participate in a
// surrounding transaction when one is carried in the context.
type Repository interface {
	// Save stores a single outbox message.
	Save(ctx context.Context, msg *Message) error

	// SaveBatch stores a batch of outbox messages.
	SaveBatch(ctx context.Context, msgs []*Message) error

	// GetUnpublished returns undelivered messages whose retry time has
	// passed, oldest first.
	GetUnpublished(ctx context.Context, limit int) ([]*Message, error)

	// MarkPublished records a successful delivery.
	MarkPublished(ctx context.Context, id int64) error

	// MarkFailed records a failed delivery attempt and schedules the retry.
	MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error

	// MarkDead parks a message after its retries are exhausted.
	MarkDead(ctx context.Context, id int64, reason string) error

	// DeleteOld removes published messages older than the retention period
	// and returns how many were deleted.
	DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error)
}
