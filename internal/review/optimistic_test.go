package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimistic(t *testing.T) {
	state := []string{"a", "b", "c"}
	capture := func() []string { return append([]string(nil), state...) }
	restore := func(s []string) { state = s }

	o := ApplyOptimistic(capture, func() { state = state[1:] }, restore)
	assert.Equal(t, []string{"b", "c"}, state)
	assert.Equal(t, []string{"a", "b", "c"}, o.Snapshot())

	o.Rollback()
	assert.Equal(t, []string{"a", "b", "c"}, state)

	state = []string{"x"}
	o.Rollback()
	assert.Equal(t, []string{"x"}, state, "second rollback is a no-op")

	committed := ApplyOptimistic(capture, func() { state = nil }, restore)
	committed.Commit()
	committed.Rollback()
	assert.Nil(t, state)
}

func TestQueryCache(t *testing.T) {
	cache := NewQueryCache()
	_, ok := cache.Inbox()
	assert.False(t, ok)

	cache.Set(InboxKey, abcInbox())
	entries, ok := cache.Inbox()
	assert.True(t, ok)
	assert.Len(t, entries, 3)

	cache.Set(DetectionsKey("A"), "not detections")
	_, ok = cache.Detections("A")
	assert.False(t, ok, "wrong type is treated as a miss")

	cache.Invalidate(InboxKey)
	_, ok = cache.Inbox()
	assert.False(t, ok)
	assert.Equal(t, "detections:A", DetectionsKey("A"))
}
