package router

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressing_PathFor(t *testing.T) {
	tests := []struct {
		name     string
		addr     Addressing
		category string
		expected string
	}{
		{
			name:     "directory mode",
			addr:     DirectoryTarget("out"),
			category: "liveboard",
			expected: filepath.Join("out", "liveboard.csv"),
		},
		{
			name:     "prefix mode",
			addr:     PrefixTarget("out/2024-01-01"),
			category: "liveboard",
			expected: "out/2024-01-01_liveboard.csv",
		},
		{
			name:     "category cannot escape the directory",
			addr:     DirectoryTarget("out"),
			category: "../secret",
			expected: filepath.Join("out", "secret.csv"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.addr.PathFor(tt.category))
		})
	}
}

func TestAddressing_String(t *testing.T) {
	assert.Equal(t, "out", DirectoryTarget("out").String())
	assert.False(t, DirectoryTarget("out").IsPrefix())

	assert.Equal(t, "run", PrefixTarget("run").String())
	assert.True(t, PrefixTarget("run").IsPrefix())
}
