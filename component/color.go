package component

import (
	"fmt"
	"strings"
)

// SectionSign starts a legacy formatting code.
const SectionSign = '§'

// Color is a text colour. Named colours carry their legacy code, RGB colours
// (1.16+) carry a zero Code and a "#rrggbb" Name.
type Color struct {
	Name string
	Code byte
	RGB  uint32
}

// IsZero reports whether no colour is set, i.e. the client default is used.
func (c Color) IsZero() bool { return c.Name == "" }

// IsHex reports whether c is an RGB colour without a legacy code.
func (c Color) IsHex() bool { return c.Name != "" && c.Code == 0 }

var namedColors = []Color{
	{"black", '0', 0x000000},
	{"dark_blue", '1', 0x0000AA},
	{"dark_green", '2', 0x00AA00},
	{"dark_aqua", '3', 0x00AAAA},
	{"dark_red", '4', 0xAA0000},
	{"dark_purple", '5', 0xAA00AA},
	{"gold", '6', 0xFFAA00},
	{"gray", '7', 0xAAAAAA},
	{"dark_gray", '8', 0x555555},
	{"blue", '9', 0x5555FF},
	{"green", 'a', 0x55FF55},
	{"aqua", 'b', 0x55FFFF},
	{"red", 'c', 0xFF5555},
	{"light_purple", 'd', 0xFF55FF},
	{"yellow", 'e', 0xFFFF55},
	{"white", 'f', 0xFFFFFF},
}

// ByCode returns the named colour for a legacy code character.
func ByCode(code byte) (Color, bool) {
	code = lower(code)
	for _, c := range namedColors {
		if c.Code == code {
			return c, true
		}
	}
	return Color{}, false
}

// Hex returns an RGB colour.
func Hex(rgb uint32) Color {
	rgb &= 0xFFFFFF
	return Color{Name: fmt.Sprintf("#%06x", rgb), RGB: rgb}
}

// Nearest returns the named colour closest to c. Named colours are returned
// unchanged.
func (c Color) Nearest() Color {
	if !c.IsHex() {
		return c
	}
	best, bestDist := namedColors[0], -1
	for _, n := range namedColors {
		d := colorDistance(c.RGB, n.RGB)
		if bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

func colorDistance(a, b uint32) int {
	dr := int(a>>16&0xFF) - int(b>>16&0xFF)
	dg := int(a>>8&0xFF) - int(b>>8&0xFF)
	db := int(a&0xFF) - int(b&0xFF)
	return dr*dr + dg*dg + db*db
}

// legacy writes the colour as a legacy code sequence.
func (c Color) legacy(sb *strings.Builder) {
	if !c.IsHex() {
		sb.WriteRune(SectionSign)
		sb.WriteByte(c.Code)
		return
	}
	sb.WriteRune(SectionSign)
	sb.WriteByte('x')
	for _, d := range fmt.Sprintf("%06x", c.RGB) {
		sb.WriteRune(SectionSign)
		sb.WriteRune(d)
	}
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}
