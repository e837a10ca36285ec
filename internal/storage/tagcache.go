package storage

import "container/list"

// tagCache is a least-recently-used cache of event tags keyed by event id.
// It is shared by every caller of the store, so all readers of an event
// observe the same state. It is not safe for concurrent use on its own: the
// store only touches it while holding its lock.
type tagCache struct {
	items    map[int64]*list.Element
	order    *list.List
	capacity int
}

type tagCacheEntry struct {
	eventID int64
	tags    []Tag
}

func newTagCache(capacity int) *tagCache {
	if capacity <= 0 {
		capacity = DefaultTagCacheSize
	}
	return &tagCache{
		items:    make(map[int64]*list.Element, capacity),
		order:    list.New(),
		capacity: capacity,
	}
}

// Get returns a copy of the cached tags for an event.
func (c *tagCache) Get(eventID int64) ([]Tag, bool) {
	elem, ok := c.items[eventID]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return cloneTags(elem.Value.(*tagCacheEntry).tags), true
}

// Put stores a copy of tags for an event, evicting the least recently used
// entry when full.
func (c *tagCache) Put(eventID int64, tags []Tag) {
	if elem, ok := c.items[eventID]; ok {
		elem.Value.(*tagCacheEntry).tags = cloneTags(tags)
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}

	elem := c.order.PushFront(&tagCacheEntry{eventID: eventID, tags: cloneTags(tags)})
	c.items[eventID] = elem
}

// Invalidate drops the entry for an event.
func (c *tagCache) Invalidate(eventID int64) {
	if elem, ok := c.items[eventID]; ok {
		c.remove(elem)
	}
}

// Clear drops every entry.
func (c *tagCache) Clear() {
	c.items = make(map[int64]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of cached events.
func (c *tagCache) Len() int {
	return c.order.Len()
}

func (c *tagCache) remove(elem *list.Element) {
	entry := elem.Value.(*tagCacheEntry)
	delete(c.items, entry.eventID)
	c.order.Remove(elem)
}

func cloneTags(tags []Tag) []Tag {
	if tags == nil {
		return nil
	}
	out := make([]Tag, len(tags))
	copy(out, tags)
	return out
}
