package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type counter struct{ prev, next int }

func (c *counter) Prev() { c.prev++ }
func (c *counter) Next() { c.next++ }

func TestKeyRouter(t *testing.T) {
	var router KeyRouter
	assert.False(t, router.Route(DirectionNext), "nothing registered")

	target := &counter{}
	unregister := router.Register(target)
	assert.True(t, router.Active())

	assert.True(t, router.Route(DirectionNext))
	assert.True(t, router.Route(DirectionPrev))
	assert.Equal(t, 1, target.next)
	assert.Equal(t, 1, target.prev)

	for _, focus := range []FocusKind{FocusTextInput, FocusTextArea, FocusSelect, FocusContentEditable} {
		router.SetFocus(focus)
		assert.False(t, router.Route(DirectionNext), "focus %d must keep arrows", focus)
	}
	assert.Equal(t, 1, target.next)

	router.SetFocus(FocusNone)
	unregister()
	assert.False(t, router.Active())
	assert.False(t, router.Route(DirectionNext))
}

func TestKeyRouter_StaleUnregister(t *testing.T) {
	var router KeyRouter
	first := router.Register(&counter{})
	second := &counter{}
	router.Register(second)

	first()
	assert.True(t, router.Route(DirectionNext))
	assert.Equal(t, 1, second.next)
}
