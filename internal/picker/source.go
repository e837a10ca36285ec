package picker

import (
	"context"

	"github.com/runger/tally/internal/storage"
)

// Source supplies the tag statistics a picker session filters.
// storage.Store satisfies it.
type Source interface {
	GlobalTags(ctx context.Context, queueID int64) ([]storage.TagStat, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, queueID int64) ([]storage.TagStat, error)

// GlobalTags calls f.
func (f SourceFunc) GlobalTags(ctx context.Context, queueID int64) ([]storage.TagStat, error) {
	return f(ctx, queueID)
}
