package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLMap_SetAndGet(t *testing.T) {
	m := NewTTLMap(time.Minute)

	m.Set("a", 1)
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestTTLMap_ExpiredEntryDroppedOnRead(t *testing.T) {
	m := NewTTLMap(time.Minute)

	m.SetWithTTL("a", 1, -time.Second)
	assert.Equal(t, 1, m.Len())

	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestTTLMap_SetWithTTLOverridesDefault(t *testing.T) {
	m := NewTTLMap(-time.Second)

	m.SetWithTTL("a", "v", time.Minute)
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestTTLMap_SetRefreshesExpiry(t *testing.T) {
	m := NewTTLMap(time.Minute)

	m.SetWithTTL("a", 1, -time.Second)
	m.Set("a", 2)

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLMap_Delete(t *testing.T) {
	m := NewTTLMap(time.Minute)

	m.Set("a", 1)
	m.Delete("a")
	_, ok := m.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}
