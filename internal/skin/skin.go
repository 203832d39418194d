// Package skin provides the palette of player skins
package skin

import "strings"

// Skin is a player's color, stored as a lowercase hex string.
type Skin string

// Available skins
const (
	Blue   Skin = "#4a9eff"
	Red    Skin = "#ff4a4a"
	Green  Skin = "#4aff7a"
	Yellow Skin = "#ffd84a"
	Purple Skin = "#b44aff"
	Orange Skin = "#ff9d4a"
)

// Default is used when a client sends nothing or an unknown skin.
const Default = Blue

// Palette lists every skin a player may pick, in display order.
var Palette = []Skin{Blue, Red, Green, Yellow, Purple, Orange}

// Valid reports whether s is part of the palette.
func (s Skin) Valid() bool {
	for _, p := range Palette {
		if p == s {
			return true
		}
	}
	return false
}

// Normalize maps raw client input onto the palette.
func Normalize(raw string) Skin {
	s := Skin(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s
	}
	return Default
}

func (s Skin) String() string {
	return string(s)
}
