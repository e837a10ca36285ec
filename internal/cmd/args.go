package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/runger/tally/internal/storage"
)

// parseID parses a positive row id.
func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", kind, s)
	}
	return id, nil
}

// parseTimestamp accepts unix milliseconds, RFC 3339, or "now".
func parseTimestamp(s string, now time.Time) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "now" {
		return now.UnixMilli(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("invalid timestamp %q: must not be negative", s)
		}
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: want unix milliseconds or RFC 3339", s)
	}
	return t.UnixMilli(), nil
}

// splitTags splits a shell-quoted tag list, so "work 'deep focus'" yields
// two tags. Names are normalized and duplicates dropped.
func splitTags(s string) ([]string, error) {
	words, err := shlex.Split(s)
	if err != nil {
		return nil, fmt.Errorf("invalid tag list %q: %w", s, err)
	}
	return normalizeTags(words), nil
}

// normalizeTags normalizes names, dropping empty ones and repeats.
func normalizeTags(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	tags := make([]string, 0, len(words))
	for _, w := range words {
		name := storage.NormalizeTagName(w)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		tags = append(tags, name)
	}
	return tags
}

// resolveQueue finds a queue by id or by exact name. A numeric argument is
// tried as an id first.
func resolveQueue(ctx context.Context, store storage.Store, arg string) (*storage.Queue, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		q, err := store.GetQueue(ctx, id)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, storage.ErrQueueNotFound) {
			return nil, err
		}
	}

	queues, err := store.ListQueues(ctx, storage.QueueOrderID)
	if err != nil {
		return nil, err
	}
	var match *storage.Queue
	for i := range queues {
		if queues[i].DisplayName() != arg {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("queue name %q is ambiguous; use an id", arg)
		}
		match = &queues[i]
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrQueueNotFound, arg)
	}
	return match, nil
}

// requireQueueEvent fails unless the event is linked into q. Tags live in a
// queue's namespace, so an event may only be tagged through its own queue.
func requireQueueEvent(ctx context.Context, store storage.Store, q *storage.Queue, eventID int64) error {
	ok, err := store.HasQueueEvent(ctx, q.ID, eventID)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := store.GetEvent(ctx, eventID); err != nil {
			return err
		}
		return fmt.Errorf("%w: #%d is not in %s", storage.ErrEventNotFound, eventID, queueLabel(q))
	}
	return nil
}

// queueLabel renders a queue as "name #id".
func queueLabel(q *storage.Queue) string {
	return fmt.Sprintf("%s #%d", queueNameText(q), q.ID)
}

// formatTimestamp renders unix ms with layout, or "-" when unset.
func formatTimestamp(ms int64, layout string) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format(layout)
}

// tagNames joins tag names for display.
func tagNames(tags []storage.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
