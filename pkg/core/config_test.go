package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureConfigMaxPayload(t *testing.T) {
	tests := []struct {
		name     string
		config   CaptureConfig
		expected int
	}{
		{"capacity bound", CaptureConfig{BufferCapacity: 1500, SnapLen: 65535}, 1484},
		{"snaplen bound", CaptureConfig{BufferCapacity: 65551, SnapLen: 96}, 96},
		{"no snaplen", CaptureConfig{BufferCapacity: 2048}, 2032},
		{"header only", CaptureConfig{BufferCapacity: 16, SnapLen: 10}, 0},
		{"too small", CaptureConfig{BufferCapacity: 8, SnapLen: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.MaxPayload(16))
		})
	}
}

func TestCaptureConfigLinkType(t *testing.T) {
	assert.Equal(t, uint32(101), CaptureConfig{}.LinkType(101))
	assert.Equal(t, uint32(1), CaptureConfig{Network: 1}.LinkType(101))
}
