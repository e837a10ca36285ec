// Package storage provides SQLite-based persistent storage for tally.
// It holds queues, their events, and the per-queue tag namespace, plus the
// association tables linking them.
package storage

import (
	"context"
	"errors"
)

// Store defines the interface for all storage operations.
// Every operation is serialized by a single lock on the store; reads and
// writes alike.
type Store interface {
	// Schema
	EnsureSchema(ctx context.Context) error

	// Queues
	CreateQueue(ctx context.Context) (*Queue, error)
	GetQueue(ctx context.Context, id int64) (*Queue, error)
	ListQueues(ctx context.Context, order QueueOrder) ([]Queue, error)
	QueueName(ctx context.Context, id int64) (*string, error)
	SetQueueName(ctx context.Context, id int64, name string) error
	DeleteQueue(ctx context.Context, id int64) error

	// Queue <-> Event
	QueueEventIDs(ctx context.Context, queueID int64, order EventOrder) ([]int64, error)
	QueueEventCount(ctx context.Context, queueID int64) (int, error)
	HasQueueEvent(ctx context.Context, queueID, eventID int64) (bool, error)
	AddQueueEvent(ctx context.Context, queueID int64, event *Event) error
	RemoveQueueEvent(ctx context.Context, queueID int64, event *Event) error

	// Events
	CreateEvent(ctx context.Context) (*Event, error)
	GetEvent(ctx context.Context, id int64) (*Event, error)
	EventTimestamp(ctx context.Context, id int64) (int64, error)
	SetEventTimestamp(ctx context.Context, id int64, timestampMs int64) error
	EventComment(ctx context.Context, id int64) (*string, error)
	SetEventComment(ctx context.Context, id int64, comment string) error
	DeleteEvent(ctx context.Context, id int64) error

	// Event <-> Tag
	EventTags(ctx context.Context, eventID int64) ([]Tag, error)
	AddEventTag(ctx context.Context, eventID int64, tag *Tag) error
	RemoveEventTag(ctx context.Context, eventID int64, tag *Tag) error
	RemoveEventTags(ctx context.Context, eventID int64) error

	// Tags
	GetOrCreateTag(ctx context.Context, queueID int64, name string) (*Tag, error)
	GetTag(ctx context.Context, id int64) (*Tag, error)
	QueueTags(ctx context.Context, queueID int64) ([]Tag, error)
	GlobalTags(ctx context.Context, queueID int64) ([]TagStat, error)

	// Maintenance
	PruneOrphans(ctx context.Context) (*PruneResult, error)
	Backup(ctx context.Context, dest string) error

	// Lifecycle
	Close() error
}

var (
	// ErrQueueNotFound is returned when a queue is not found.
	ErrQueueNotFound = errors.New("queue not found")

	// ErrEventNotFound is returned when an event is not found.
	ErrEventNotFound = errors.New("event not found")

	// ErrTagNotFound is returned when a tag is not found.
	ErrTagNotFound = errors.New("tag not found")

	// ErrEmptyTagName is returned when a tag name normalizes to "".
	ErrEmptyTagName = errors.New("tag name is empty")
)

// Queue is a named bucket of events.
type Queue struct {
	ID   int64
	Name *string // nil until the queue is named
}

// DisplayName returns the queue name, or "" when unnamed.
func (q Queue) DisplayName() string {
	if q.Name == nil {
		return ""
	}
	return *q.Name
}

// Event is a single timestamped occurrence.
type Event struct {
	ID        int64
	Timestamp int64   // unix ms, 0 when never set
	Comment   *string // nil when no comment
}

// Tag is a normalized label in a queue's namespace.
type Tag struct {
	ID      int64
	QueueID int64
	Name    string
}

// TagStat is a tag together with the number of distinct events in a queue
// that carry it.
type TagStat struct {
	Tag   Tag
	Count int
}

// PruneResult reports how many rows each prune step removed.
type PruneResult struct {
	QueueEvents int64 // queue_event rows pointing at missing queues or events
	EventTags   int64 // event_tag rows pointing at missing events or tags
	Events      int64 // events that belong to no queue
	Tags        int64 // tags no event carries
}

// Total returns the number of rows removed across all steps.
func (r PruneResult) Total() int64 {
	return r.QueueEvents + r.EventTags + r.Events + r.Tags
}
