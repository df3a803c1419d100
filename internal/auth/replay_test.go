package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithinWindow_Boundaries(t *testing.T) {
	now := time.Now().Unix()

	tests := []struct {
		name   string
		client int64
		want   bool
	}{
		{"exact match", now, true},
		{"client behind at tolerance", now - 300, true},
		{"client behind past tolerance", now - 301, false},
		{"client ahead at tolerance", now + 300, true},
		{"client ahead past tolerance", now + 301, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinWindow(tt.client, now, DefaultReplayTolerance))
		})
	}
}

func TestWithinWindow_CustomTolerance(t *testing.T) {
	assert.True(t, WithinWindow(100, 110, 10))
	assert.False(t, WithinWindow(100, 111, 10))
	assert.False(t, WithinWindow(100, 100, -1))
}
