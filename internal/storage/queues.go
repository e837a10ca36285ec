package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateQueue inserts an unnamed queue and returns it.
func (s *SQLiteStore) CreateQueue(ctx context.Context) (*Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `INSERT INTO queue (id) VALUES (NULL)`)
	if err != nil {
		return nil, s.fail("create queue", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, s.fail("read queue id", err)
	}

	s.logger.Debug("queue created", "queue_id", id)
	return &Queue{ID: id}, nil
}

// GetQueue retrieves a queue by ID.
// Returns ErrQueueNotFound if no row matches.
func (s *SQLiteStore) GetQueue(ctx context.Context, id int64) (*Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getQueueLocked(ctx, s.db, id)
}

func (s *SQLiteStore) getQueueLocked(ctx context.Context, q querier, id int64) (*Queue, error) {
	var queue Queue
	var name sql.NullString
	err := q.QueryRowContext(ctx, `SELECT id, name FROM queue WHERE id = ?`, id).Scan(&queue.ID, &name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQueueNotFound
		}
		return nil, s.fail("get queue", err, "queue_id", id)
	}
	queue.Name = stringPtr(name)
	return &queue, nil
}

// ListQueues returns every queue in the requested order.
func (s *SQLiteStore) ListQueues(ctx context.Context, order QueueOrder) ([]Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, name FROM queue ORDER BY rowid`
	if order == QueueOrderName {
		query = `SELECT id, name FROM queue ORDER BY name, rowid`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, s.fail("list queues", err, "order", order.String())
	}
	defer rows.Close()

	var queues []Queue
	for rows.Next() {
		var queue Queue
		var name sql.NullString
		if err := rows.Scan(&queue.ID, &name); err != nil {
			return nil, s.fail("scan queue", err)
		}
		queue.Name = stringPtr(name)
		queues = append(queues, queue)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate queues", err)
	}
	return queues, nil
}

// QueueName returns the queue's name, or nil if it was never named.
func (s *SQLiteStore) QueueName(ctx context.Context, id int64) (*string, error) {
	queue, err := s.GetQueue(ctx, id)
	if err != nil {
		return nil, err
	}
	return queue.Name, nil
}

// SetQueueName renames a queue.
func (s *SQLiteStore) SetQueueName(ctx context.Context, id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `UPDATE queue SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return s.fail("rename queue", err, "queue_id", id)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return s.fail("rename queue", err, "queue_id", id)
	}
	if rows == 0 {
		return ErrQueueNotFound
	}
	return nil
}

// DeleteQueue removes a queue together with every event it holds, those
// events' tag associations, and every queue_event row that referenced them.
// All of it happens in one transaction. Tags in the queue's namespace are
// left in place; PruneOrphans reaps them.
func (s *SQLiteStore) DeleteQueue(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getQueueLocked(ctx, s.db, id); err != nil {
		return err
	}

	const queueEvents = `SELECT event_id FROM queue_event WHERE queue_id = ?`
	steps := []struct {
		name  string
		query string
		args  []any
	}{
		{"event tags", `DELETE FROM event_tag WHERE event_id IN (` + queueEvents + `)`, []any{id}},
		{"events", `DELETE FROM event WHERE id IN (` + queueEvents + `)`, []any{id}},
		{"foreign queue links", `DELETE FROM queue_event WHERE queue_id != ? AND event_id IN (` + queueEvents + `)`, []any{id, id}},
		{"queue links", `DELETE FROM queue_event WHERE queue_id = ?`, []any{id}},
		{"queue", `DELETE FROM queue WHERE id = ?`, []any{id}},
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
				return fmt.Errorf("delete %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return s.fail("delete queue", err, "queue_id", id)
	}

	// Which events were cached is not tracked per queue.
	s.tags.Clear()
	s.logger.Debug("queue deleted", "queue_id", id)
	return nil
}

// QueueEventIDs returns the IDs of a queue's events in the requested order.
// The id orders read queue_event only; the timestamp orders join event.
func (s *SQLiteStore) QueueEventIDs(ctx context.Context, queueID int64, order EventOrder) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, queueEventsQuery(order), queueID)
	if err != nil {
		return nil, s.fail("list queue events", err, "queue_id", queueID, "order", order.String())
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, s.fail("scan queue event", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate queue events", err)
	}
	return ids, nil
}

// queueEventsQuery builds the event listing query for an order.
func queueEventsQuery(order EventOrder) string {
	if !order.needsJoin() {
		dir := "ASC"
		if order == EventOrderIDDesc {
			dir = "DESC"
		}
		return `SELECT event_id FROM queue_event WHERE queue_id = ? ORDER BY event_id ` + dir
	}

	dir := "ASC"
	if order == EventOrderTimestampDesc {
		dir = "DESC"
	}
	return `
		SELECT queue_event.event_id
		FROM queue_event
		LEFT JOIN event ON queue_event.event_id = event.id
		WHERE queue_event.queue_id = ?
		ORDER BY event.timestamp ` + dir + `, queue_event.event_id ` + dir
}

// QueueEventCount returns how many events a queue holds.
func (s *SQLiteStore) QueueEventCount(ctx context.Context, queueID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM queue_event WHERE queue_id = ?`, queueID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, s.fail("count queue events", err, "queue_id", queueID)
	}
	return int(count.Int64), nil
}

// HasQueueEvent reports whether the event is linked into the queue.
func (s *SQLiteStore) HasQueueEvent(ctx context.Context, queueID, eventID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hasQueueEventLocked(ctx, queueID, eventID)
}

// AddQueueEvent links an event into a queue. A nil event or an existing
// link is a no-op.
func (s *SQLiteStore) AddQueueEvent(ctx context.Context, queueID int64, event *Event) error {
	if event == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	linked, err := s.hasQueueEventLocked(ctx, queueID, event.ID)
	if err != nil || linked {
		return err
	}

	if _, err := s.getQueueLocked(ctx, s.db, queueID); err != nil {
		return err
	}
	if _, err := s.getEventLocked(ctx, s.db, event.ID); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO queue_event (queue_id, event_id) VALUES (?, ?)`, queueID, event.ID)
	if err != nil {
		return s.fail("add queue event", err, "queue_id", queueID, "event_id", event.ID)
	}
	return nil
}

// RemoveQueueEvent unlinks an event from a queue. The event itself stays.
// A nil event or a missing link is a no-op.
func (s *SQLiteStore) RemoveQueueEvent(ctx context.Context, queueID int64, event *Event) error {
	if event == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	linked, err := s.hasQueueEventLocked(ctx, queueID, event.ID)
	if err != nil || !linked {
		return err
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM queue_event WHERE queue_id = ? AND event_id = ?`, queueID, event.ID)
	if err != nil {
		return s.fail("remove queue event", err, "queue_id", queueID, "event_id", event.ID)
	}
	return nil
}

func (s *SQLiteStore) hasQueueEventLocked(ctx context.Context, queueID, eventID int64) (bool, error) {
	ok, err := rowExists(ctx, s.db, `SELECT 1 FROM queue_event WHERE queue_id = ? AND event_id = ? LIMIT 1`, queueID, eventID)
	if err != nil {
		return false, s.fail("check queue event", err, "queue_id", queueID, "event_id", eventID)
	}
	return ok, nil
}
