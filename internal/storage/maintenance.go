package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// pruneSteps run in order inside one transaction. Later steps depend on the
// earlier ones: events lose their last queue link before they are reaped,
// and tags lose their last event link before they are reaped.
var pruneSteps = []struct {
	name  string
	query string
	count func(*PruneResult) *int64
}{
	{
		name: "queue links",
		query: `DELETE FROM queue_event
			WHERE queue_id IS NULL OR event_id IS NULL
			   OR queue_id NOT IN (SELECT id FROM queue)
			   OR event_id NOT IN (SELECT id FROM event)`,
		count: func(r *PruneResult) *int64 { return &r.QueueEvents },
	},
	{
		name: "unqueued events",
		query: `DELETE FROM event
			WHERE id NOT IN (SELECT event_id FROM queue_event WHERE event_id IS NOT NULL)`,
		count: func(r *PruneResult) *int64 { return &r.Events },
	},
	{
		name: "tag links",
		query: `DELETE FROM event_tag
			WHERE event_id IS NULL OR tag_id IS NULL
			   OR event_id NOT IN (SELECT id FROM event)
			   OR tag_id NOT IN (SELECT id FROM tag)`,
		count: func(r *PruneResult) *int64 { return &r.EventTags },
	},
	{
		name: "unused tags",
		query: `DELETE FROM tag
			WHERE id NOT IN (SELECT tag_id FROM event_tag WHERE tag_id IS NOT NULL)`,
		count: func(r *PruneResult) *int64 { return &r.Tags },
	},
}

// PruneOrphans removes association rows pointing at missing rows, events
// that belong to no queue and tags that no event carries.
func (s *SQLiteStore) PruneOrphans(ctx context.Context) (*PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result PruneResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, step := range pruneSteps {
			res, err := tx.ExecContext(ctx, step.query)
			if err != nil {
				return fmt.Errorf("prune %s: %w", step.name, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("prune %s: %w", step.name, err)
			}
			*step.count(&result) = n
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("prune orphans", err)
	}

	s.tags.Clear()
	s.logger.Info("pruned orphans",
		"queue_events", result.QueueEvents,
		"events", result.Events,
		"event_tags", result.EventTags,
		"tags", result.Tags,
	)
	return &result, nil
}

// Backup writes a consistent copy of the database to dest.
// dest must not exist yet.
func (s *SQLiteStore) Backup(ctx context.Context, dest string) error {
	if dest == "" {
		return fmt.Errorf("backup destination is empty")
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup destination %s already exists", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return s.fail("backup database", err, "dest", dest)
	}
	s.logger.Info("database backed up", "dest", dest)
	return nil
}
