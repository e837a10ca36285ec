package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// NormalizeTagName trims surrounding whitespace and lower-cases a tag name.
func NormalizeTagName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// GetOrCreateTag returns the tag with the normalized name in the queue's
// namespace, creating it when absent. The lookup, insert and re-read run as
// one unit under the store lock; the unique (queue_id, name) index backs it.
func (s *SQLiteStore) GetOrCreateTag(ctx context.Context, queueID int64, raw string) (*Tag, error) {
	name := NormalizeTagName(raw)
	if name == "" {
		return nil, ErrEmptyTagName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getQueueLocked(ctx, s.db, queueID); err != nil {
		return nil, err
	}

	tag, err := s.findTagLocked(ctx, queueID, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO tag (queue_id, name) VALUES (?, ?)`, queueID, name)
	if err != nil && !isDuplicateKeyError(err) {
		return nil, s.fail("create tag", err, "queue_id", queueID, "tag", name)
	}

	tag, err = s.findTagLocked(ctx, queueID, name)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("tag created", "queue_id", queueID, "tag_id", tag.ID, "tag", name)
	return tag, nil
}

func (s *SQLiteStore) findTagLocked(ctx context.Context, queueID int64, name string) (*Tag, error) {
	tag := Tag{QueueID: queueID, Name: name}
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM tag WHERE queue_id = ? AND name = ? ORDER BY id LIMIT 1`,
		queueID, name,
	).Scan(&tag.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, s.fail("find tag", err, "queue_id", queueID, "tag", name)
	}
	return &tag, nil
}

// GetTag retrieves a tag by ID.
// Returns ErrTagNotFound if no row matches.
func (s *SQLiteStore) GetTag(ctx context.Context, id int64) (*Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getTagLocked(ctx, id)
}

func (s *SQLiteStore) getTagLocked(ctx context.Context, id int64) (*Tag, error) {
	var tag Tag
	var queueID sql.NullInt64
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, queue_id, name FROM tag WHERE id = ?`, id).
		Scan(&tag.ID, &queueID, &name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, s.fail("get tag", err, "tag_id", id)
	}
	tag.QueueID = queueID.Int64
	tag.Name = name.String
	return &tag, nil
}

// QueueTags returns every tag in the queue's namespace ordered by name,
// including tags no event carries.
func (s *SQLiteStore) QueueTags(ctx context.Context, queueID int64) ([]Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, queue_id, name FROM tag WHERE queue_id = ? ORDER BY name, id`, queueID)
	if err != nil {
		return nil, s.fail("list queue tags", err, "queue_id", queueID)
	}
	defer rows.Close()

	tags, err := scanTags(rows)
	if err != nil {
		return nil, s.fail("scan queue tags", err, "queue_id", queueID)
	}
	return tags, nil
}
