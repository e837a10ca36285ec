package storage

import (
	"context"
	"database/sql"
)

// globalTagsQuery counts, per tag, the distinct events of a queue carrying
// it. The inner select collapses duplicate association rows so an event is
// never counted twice for one tag.
const globalTagsQuery = `
	SELECT tag.id, tag.queue_id, tag.name, pairs.cnt
	FROM (
		SELECT tag_id, count(*) AS cnt
		FROM (
			SELECT DISTINCT event_tag.event_id, event_tag.tag_id
			FROM queue_event
			JOIN event_tag ON event_tag.event_id = queue_event.event_id
			WHERE queue_event.queue_id = ?
		)
		GROUP BY tag_id
	) AS pairs
	JOIN tag ON tag.id = pairs.tag_id
	ORDER BY pairs.cnt DESC, tag.id ASC
`

// GlobalTags returns usage statistics for every tag carried by at least one
// event in the queue, most used first. Ties are ordered by tag id.
// The query holds the store lock for its whole duration.
func (s *SQLiteStore) GlobalTags(ctx context.Context, queueID int64) ([]TagStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, globalTagsQuery, queueID)
	if err != nil {
		return nil, s.fail("query global tags", err, "queue_id", queueID)
	}
	defer rows.Close()

	var stats []TagStat
	for rows.Next() {
		var stat TagStat
		var tagQueueID sql.NullInt64
		var name sql.NullString
		if err := rows.Scan(&stat.Tag.ID, &tagQueueID, &name, &stat.Count); err != nil {
			return nil, s.fail("scan global tag", err, "queue_id", queueID)
		}
		stat.Tag.QueueID = tagQueueID.Int64
		stat.Tag.Name = name.String
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate global tags", err, "queue_id", queueID)
	}
	return stats, nil
}
