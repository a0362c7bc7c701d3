package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHasTempID(t *testing.T) {
	assert.True(t, Task{ID: TempIDPrefix + "x8f2"}.HasTempID())
	assert.False(t, Task{ID: "x8f2"}.HasTempID())
	assert.False(t, Task{}.HasTempID())
}

func TestEffectiveCreatedAt(t *testing.T) {
	server := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := time.Date(2026, 3, 1, 11, 59, 58, 0, time.UTC)

	t.Run("server timestamp wins", func(t *testing.T) {
		tk := Task{CreatedAt: server, ClientCreatedAt: client}
		assert.Equal(t, server, tk.EffectiveCreatedAt())
	})

	t.Run("client fallback before round-trip", func(t *testing.T) {
		tk := Task{ClientCreatedAt: client}
		assert.Equal(t, client, tk.EffectiveCreatedAt())
	})
}

func TestPatchIsZero(t *testing.T) {
	assert.True(t, Patch{}.IsZero())

	title := "x"
	assert.False(t, Patch{Title: &title}.IsZero())
	assert.False(t, Patch{ClearDue: true}.IsZero())

	order := 0
	assert.False(t, Patch{Order: &order}.IsZero(), "an explicit zero order is still a change")
}
