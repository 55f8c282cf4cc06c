package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr   string
		ticker string
		want   bool
	}{
		{"", "CRWV", true},
		{"CRWV,SOFI", "sofi", true},
		{"CRWV,SOFI", "AAPL", false},
		{"S*", "SOFI", true},
		{"S*", "CRWV", false},
		{"/^SO/", "SOFI", true},
		{"/^SO/", "CRWV", false},
		{"rw", "CRWV", true},
		{"rw", "SOFI", false},
	}
	for _, tt := range tests {
		f, err := Parse(tt.expr)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, f.Match(tt.ticker), "%q vs %q", tt.expr, tt.ticker)
	}
}

func TestParseBadRegex(t *testing.T) {
	_, err := Parse("/[/")
	assert.Error(t, err)
}
