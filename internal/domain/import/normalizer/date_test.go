package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"day first", "15/03/2025", "2025-03-15"},
		{"two digit year", "15/03/25", "2025-03-15"},
		{"two digit year above parse pivot", "15/03/99", "2099-03-15"},
		{"two digit year start of century", "15/03/00", "2000-03-15"},
		{"iso", "2025-03-15", "2025-03-15"},
		{"dashes", "15-03-2025", "2025-03-15"},
		{"single digit day and month", "1/4/2025", "2025-04-01"},
		{"trailing timestamp dropped", "15/03/2025 14:02", "2025-03-15"},
		{"excel serial", "45731", "2025-03-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.input)
			require.True(t, ok, "Date(%q) should parse", tt.input)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}

	t.Run("rejects impossible calendar date", func(t *testing.T) {
		_, ok := Date("31/02/2025")
		assert.False(t, ok)
	})

	t.Run("rejects serial outside window", func(t *testing.T) {
		_, ok := Date("12345")
		assert.False(t, ok)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, ok := Date("  ")
		assert.False(t, ok)
	})
}

func TestOFXDate(t *testing.T) {
	got, ok := OFXDate("20250301120000[-3:BRT]")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	_, ok = OFXDate("2025")
	assert.False(t, ok)
}
