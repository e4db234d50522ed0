package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComponents_Shutdown(t *testing.T) {
	t.Run("nil pool is tolerated", func(t *testing.T) {
		components := &Components{}
		assert.NotPanics(t, components.Shutdown)
	})

	t.Run("repeat calls are no-ops", func(t *testing.T) {
		components := &Components{}
		components.Shutdown()
		assert.NotPanics(t, components.Shutdown)
	})
}
