package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBounds(t *testing.T) {
	tests := []struct {
		name           string
		n, start, stop int64
		wantLo, wantHi int64
		wantOK         bool
	}{
		{"whole list", 5, 0, -1, 0, 5, true},
		{"first element", 5, 0, 0, 0, 1, true},
		{"negative start", 5, -2, -1, 3, 5, true},
		{"start before head", 5, -100, 1, 0, 2, true},
		{"stop past tail", 5, 3, 100, 3, 5, true},
		{"start past tail", 5, 5, 10, 0, 0, false},
		{"inverted", 5, 3, 2, 0, 0, false},
		{"empty list", 0, 0, -1, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := Bounds(tt.n, tt.start, tt.stop)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantLo, lo)
				assert.Equal(t, tt.wantHi, hi)
			}
		})
	}
}
