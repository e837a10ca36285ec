package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateEvent inserts an event with no timestamp, comment or queue link.
// Callers attach it to a queue with AddQueueEvent.
func (s *SQLiteStore) CreateEvent(ctx context.Context) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `INSERT INTO event (id) VALUES (NULL)`)
	if err != nil {
		return nil, s.fail("create event", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, s.fail("read event id", err)
	}

	s.logger.Debug("event created", "event_id", id)
	return &Event{ID: id}, nil
}

// GetEvent retrieves an event by ID.
// Returns ErrEventNotFound if no row matches.
func (s *SQLiteStore) GetEvent(ctx context.Context, id int64) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getEventLocked(ctx, s.db, id)
}

func (s *SQLiteStore) getEventLocked(ctx context.Context, q querier, id int64) (*Event, error) {
	var event Event
	var timestamp sql.NullInt64
	var comment sql.NullString
	err := q.QueryRowContext(ctx, `SELECT id, timestamp, comment FROM event WHERE id = ?`, id).
		Scan(&event.ID, &timestamp, &comment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, s.fail("get event", err, "event_id", id)
	}
	event.Timestamp = timestamp.Int64
	event.Comment = stringPtr(comment)
	return &event, nil
}

// EventTimestamp returns the event's timestamp in unix milliseconds, 0 when
// it was never set.
func (s *SQLiteStore) EventTimestamp(ctx context.Context, id int64) (int64, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return 0, err
	}
	return event.Timestamp, nil
}

// SetEventTimestamp sets the event's timestamp in unix milliseconds.
func (s *SQLiteStore) SetEventTimestamp(ctx context.Context, id int64, timestampMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateEventLocked(ctx, "set event timestamp", `UPDATE event SET timestamp = ? WHERE id = ?`, id, timestampMs)
}

// EventComment returns the event's comment, or nil when it has none.
func (s *SQLiteStore) EventComment(ctx context.Context, id int64) (*string, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return event.Comment, nil
}

// SetEventComment sets the event's comment. An empty comment clears it.
func (s *SQLiteStore) SetEventComment(ctx context.Context, id int64, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateEventLocked(ctx, "set event comment", `UPDATE event SET comment = ? WHERE id = ?`, id, nullableString(comment))
}

func (s *SQLiteStore) updateEventLocked(ctx context.Context, op, query string, id int64, value any) error {
	result, err := s.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return s.fail(op, err, "event_id", id)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return s.fail(op, err, "event_id", id)
	}
	if rows == 0 {
		return ErrEventNotFound
	}
	return nil
}

// DeleteEvent removes the event's queue links, its tag links and the event
// row. Every step runs even when an earlier one fails; the failures are
// logged and returned together.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getEventLocked(ctx, s.db, id); err != nil {
		return err
	}
	defer s.tags.Invalidate(id)

	steps := []struct {
		op    string
		query string
	}{
		{"delete event queue links", `DELETE FROM queue_event WHERE event_id = ?`},
		{"delete event tag links", `DELETE FROM event_tag WHERE event_id = ?`},
		{"delete event", `DELETE FROM event WHERE id = ?`},
	}

	var errs []error
	for _, step := range steps {
		if _, err := s.db.ExecContext(ctx, step.query, id); err != nil {
			errs = append(errs, s.fail(step.op, err, "event_id", id))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Debug("event deleted", "event_id", id)
	return nil
}

// EventTags returns the tags attached to an event, newest tag first.
// Results are served from the store's event-tag cache when present.
func (s *SQLiteStore) EventTags(ctx context.Context, eventID int64) ([]Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tags, ok := s.tags.Get(eventID); ok {
		return tags, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tag.id, tag.queue_id, tag.name
		FROM event_tag
		JOIN tag ON tag.id = event_tag.tag_id
		WHERE event_tag.event_id = ?
		GROUP BY tag.id
		ORDER BY tag.id DESC
	`, eventID)
	if err != nil {
		return nil, s.fail("list event tags", err, "event_id", eventID)
	}
	defer rows.Close()

	tags, err := scanTags(rows)
	if err != nil {
		return nil, s.fail("scan event tags", err, "event_id", eventID)
	}

	s.tags.Put(eventID, tags)
	return tags, nil
}

// AddEventTag attaches a tag to an event. A nil tag or an existing link is
// a no-op.
func (s *SQLiteStore) AddEventTag(ctx context.Context, eventID int64, tag *Tag) error {
	if tag == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tagged, err := s.hasEventTagLocked(ctx, eventID, tag.ID)
	if err != nil || tagged {
		return err
	}

	if _, err := s.getEventLocked(ctx, s.db, eventID); err != nil {
		return err
	}
	if _, err := s.getTagLocked(ctx, tag.ID); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO event_tag (event_id, tag_id) VALUES (?, ?)`, eventID, tag.ID)
	if err != nil {
		return s.fail("add event tag", err, "event_id", eventID, "tag_id", tag.ID)
	}
	s.tags.Invalidate(eventID)
	return nil
}

// RemoveEventTag detaches a tag from an event. A nil tag or a missing link
// is a no-op.
func (s *SQLiteStore) RemoveEventTag(ctx context.Context, eventID int64, tag *Tag) error {
	if tag == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tagged, err := s.hasEventTagLocked(ctx, eventID, tag.ID)
	if err != nil || !tagged {
		return err
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM event_tag WHERE event_id = ? AND tag_id = ?`, eventID, tag.ID)
	if err != nil {
		return s.fail("remove event tag", err, "event_id", eventID, "tag_id", tag.ID)
	}
	s.tags.Invalidate(eventID)
	return nil
}

// RemoveEventTags detaches every tag from an event.
func (s *SQLiteStore) RemoveEventTags(ctx context.Context, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM event_tag WHERE event_id = ?`, eventID); err != nil {
		return s.fail("remove event tags", err, "event_id", eventID)
	}
	s.tags.Invalidate(eventID)
	return nil
}

func (s *SQLiteStore) hasEventTagLocked(ctx context.Context, eventID, tagID int64) (bool, error) {
	ok, err := rowExists(ctx, s.db, `SELECT 1 FROM event_tag WHERE event_id = ? AND tag_id = ? LIMIT 1`, eventID, tagID)
	if err != nil {
		return false, s.fail("check event tag", err, "event_id", eventID, "tag_id", tagID)
	}
	return ok, nil
}

func scanTags(rows *sql.Rows) ([]Tag, error) {
	var tags []Tag
	for rows.Next() {
		var tag Tag
		var queueID sql.NullInt64
		var name sql.NullString
		if err := rows.Scan(&tag.ID, &queueID, &name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tag.QueueID = queueID.Int64
		tag.Name = name.String
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}
