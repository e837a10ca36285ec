package storage

// QueueOrder selects how ListQueues sorts queues.
type QueueOrder int

const (
	QueueOrderID   QueueOrder = iota // insertion order (rowid)
	QueueOrderName                   // lexicographic by name, NULL names first
)

// String returns the persisted token for the order.
func (o QueueOrder) String() string {
	switch o {
	case QueueOrderName:
		return "name"
	default:
		return "id"
	}
}

// ParseQueueOrder decodes a persisted token. Unknown tokens decode to
// QueueOrderID with ok=false.
func ParseQueueOrder(s string) (order QueueOrder, ok bool) {
	switch s {
	case "id":
		return QueueOrderID, true
	case "name":
		return QueueOrderName, true
	default:
		return QueueOrderID, false
	}
}

// EventOrder selects how QueueEventIDs sorts a queue's events.
type EventOrder int

const (
	EventOrderIDAsc EventOrder = iota
	EventOrderIDDesc
	EventOrderTimestampAsc
	EventOrderTimestampDesc
)

// String returns the persisted token for the order.
func (o EventOrder) String() string {
	switch o {
	case EventOrderIDDesc:
		return "id_desc"
	case EventOrderTimestampAsc:
		return "timestamp_asc"
	case EventOrderTimestampDesc:
		return "timestamp_desc"
	default:
		return "id_asc"
	}
}

// ParseEventOrder decodes a persisted token. Unknown tokens decode to
// EventOrderIDAsc with ok=false.
func ParseEventOrder(s string) (order EventOrder, ok bool) {
	switch s {
	case "id_asc":
		return EventOrderIDAsc, true
	case "id_desc":
		return EventOrderIDDesc, true
	case "timestamp_asc":
		return EventOrderTimestampAsc, true
	case "timestamp_desc":
		return EventOrderTimestampDesc, true
	default:
		return EventOrderIDAsc, false
	}
}

// QueueOrderTokens lists every valid queue order token.
func QueueOrderTokens() []string {
	return []string{"id", "name"}
}

// EventOrderTokens lists every valid event order token.
func EventOrderTokens() []string {
	return []string{"id_asc", "id_desc", "timestamp_asc", "timestamp_desc"}
}

// needsJoin reports whether sorting requires the event table. The id orders
// are served by queue_event alone.
func (o EventOrder) needsJoin() bool {
	return o == EventOrderTimestampAsc || o == EventOrderTimestampDesc
}
