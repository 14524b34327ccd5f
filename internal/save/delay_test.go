package save_test

import (
	"testing"
	"time"

	"github.com/SlpAus/eastend-save-backend/internal/save"
	"github.com/stretchr/testify/assert"
)

func TestRemainingDelay(t *testing.T) {
	tests := []struct {
		name    string
		minimum time.Duration
		elapsed time.Duration
		want    time.Duration
	}{
		{"fast io waits remainder", 500 * time.Millisecond, 120 * time.Millisecond, 380 * time.Millisecond},
		{"slow io waits nothing", 500 * time.Millisecond, 800 * time.Millisecond, 0},
		{"exact", 500 * time.Millisecond, 500 * time.Millisecond, 0},
		{"no floor", 0, 10 * time.Millisecond, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, save.RemainingDelay(tt.minimum, tt.elapsed))
		})
	}
}
