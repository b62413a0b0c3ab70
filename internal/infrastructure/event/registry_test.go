package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewHandlerRegistry()
	h := newTestHandler("A")

	r.Register(h, "A")
	r.Register(h, "A")

	assert.Len(t, r.GetHandlers("A"), 1)
}

func TestHandlerRegistry_WildcardHandlersFollowTypedOnes(t *testing.T) {
	r := NewHandlerRegistry()
	typed := newTestHandler("A")
	wildcard := newTestHandler()

	r.Register(wildcard)
	r.Register(typed, "A")

	handlers := r.GetHandlers("A")
	assert.Len(t, handlers, 2)
	assert.Same(t, typed, handlers[0])
	assert.Same(t, wildcard, handlers[1])

	assert.Len(t, r.GetHandlers("B"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	r := NewHandlerRegistry()
	h1 := newTestHandler("A", "B")
	h2 := newTestHandler("A")
	r.Register(h1, "A", "B")
	r.Register(h2, "A")

	r.Unregister(h1)

	assert.Len(t, r.GetHandlers("A"), 1)
	assert.Empty(t, r.GetHandlers("B"))
	assert.Equal(t, []string{"A"}, r.EventTypes())
}
