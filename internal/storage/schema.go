package storage

// schemaStatements creates the tables and indexes. Every statement is
// idempotent. There are no foreign keys: the repositories own referential
// integrity and remove dependent rows themselves.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tag (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		queue_id INTEGER,
		name TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS tag__queue_id ON tag(queue_id)`,
	`CREATE INDEX IF NOT EXISTS tag__name ON tag(name)`,
	// One row per normalized name in a queue's namespace.
	`CREATE UNIQUE INDEX IF NOT EXISTS tag__queue_id_name ON tag(queue_id, name)`,

	`CREATE TABLE IF NOT EXISTS event (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER,
		comment TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS event_tag (
		event_id INTEGER,
		tag_id INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS event_tag__event_id_tag_id ON event_tag(event_id, tag_id)`,
	`CREATE INDEX IF NOT EXISTS event_tag__event_id ON event_tag(event_id)`,
	`CREATE INDEX IF NOT EXISTS event_tag__tag_id ON event_tag(tag_id)`,

	`CREATE TABLE IF NOT EXISTS queue_event (
		queue_id INTEGER,
		event_id INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS queue_event__queue_id_event_id ON queue_event(queue_id, event_id)`,
	`CREATE INDEX IF NOT EXISTS queue_event__queue_id ON queue_event(queue_id)`,
	`CREATE INDEX IF NOT EXISTS queue_event__event_id ON queue_event(event_id)`,
}

// schemaTables lists the tables EnsureSchema creates.
var schemaTables = []string{"tag", "event", "queue", "event_tag", "queue_event"}
