package skin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want Skin
	}{
		{"#ff4a4a", Red},
		{"  #FF4A4A ", Red},
		{"", Default},
		{"#000000", Default},
		{"red", Default},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.raw), "raw %q", tt.raw)
	}
}

func TestPaletteIsValid(t *testing.T) {
	for _, s := range Palette {
		assert.True(t, s.Valid(), s.String())
	}
	assert.True(t, Default.Valid())
}
