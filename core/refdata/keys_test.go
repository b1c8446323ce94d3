package refdata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{value: "New York", want: "new_york"},
		{value: "  Saint-Louis  ", want: "saintlouis"},
		{value: "Region 12", want: "region_12"},
		{value: "multi   \t space", want: "multi_space"},
		{value: "Ndjamena", want: "ndjamena"},
		{value: "!!!", want: ""},
		{value: "", want: ""},
		{value: strings.Repeat("a", KeyMaxLen+10), want: strings.Repeat("a", KeyMaxLen)},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got := GenerateKey(tt.value)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, GenerateKey(tt.value))
		})
	}
}

func TestParseBulk(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "Commas", raw: "North, South,East", want: []string{"North", "South", "East"}},
		{name: "Newlines", raw: "North\r\nSouth\n\nEast\n", want: []string{"North", "South", "East"}},
		{name: "Mixed", raw: "North, South\nEast", want: []string{"North", "South", "East"}},
		{name: "Repeated", raw: "North,North, North", want: []string{"North"}},
		{name: "Case Sensitive", raw: "North,north", want: []string{"North", "north"}},
		{name: "Blank", raw: " , \n ,", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBulk(tt.raw))
		})
	}
}
