package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studymate/backend/internal/llm"
)

func TestRegistryTracksLiveSessions(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Get("u1")
	assert.False(t, ok)

	chat := &llm.ChatSession{}
	reg.Set("u1", chat)
	got, ok := reg.Get("u1")
	assert.True(t, ok)
	assert.Same(t, chat, got)

	// Identities are independent.
	_, ok = reg.Get("u2")
	assert.False(t, ok)

	reg.Remove("u1")
	_, ok = reg.Get("u1")
	assert.False(t, ok)
}

func TestSlotMutualExclusion(t *testing.T) {
	slot := NewSlot()

	release, ok := slot.TryAcquire("u1")
	assert.True(t, ok)

	// Second request for the same identity is refused while one is in flight.
	_, ok = slot.TryAcquire("u1")
	assert.False(t, ok)

	// Other identities are independent.
	releaseOther, ok := slot.TryAcquire("u2")
	assert.True(t, ok)
	releaseOther()

	release()
	_, ok = slot.TryAcquire("u1")
	assert.True(t, ok)
}

func TestSlotReleaseIsIdempotent(t *testing.T) {
	slot := NewSlot()

	release, ok := slot.TryAcquire("u1")
	assert.True(t, ok)
	release()
	release()

	release2, ok := slot.TryAcquire("u1")
	assert.True(t, ok)

	// The stale handle must not free the newly acquired slot.
	release()
	_, ok = slot.TryAcquire("u1")
	assert.False(t, ok)
	release2()
}
