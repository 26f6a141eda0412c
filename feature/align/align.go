// Package align pads tab list suffixes so they start at the same horizontal
// position for every player.
package align

import (
	"strings"
	"sync/atomic"

	"golang.org/x/text/width"

	"github.com/MONDERASDOR/SaverTab/component"
	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/feature"
	"github.com/MONDERASDOR/SaverTab/player"
)

// Gap is the minimum distance in pixels between the longest name and the
// suffix column.
const Gap = 12

const (
	defaultWidth = 6
	wideWidth    = 9
	spaceWidth   = 4
)

// Glyph widths of the default client font in pixels, spacing included.
var glyphWidths = map[rune]int{
	'i': 2, '!': 2, ',': 2, '.': 2, ':': 2, ';': 2, '|': 2,
	'l': 3, '\'': 3, '`': 3,
	'I': 4, '[': 4, ']': 4, 't': 4, ' ': spaceWidth,
	'f': 5, 'k': 5, '<': 5, '>': 5, '"': 5, '(': 5, ')': 5, '*': 5, '{': 5, '}': 5,
	'@': 7, '~': 7,
}

// RuneWidth returns the width of r in pixels when not bold.
func RuneWidth(r rune) int {
	if w, ok := glyphWidths[r]; ok {
		return w
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return wideWidth
	}
	return defaultWidth
}

// TextWidth returns the rendered width of formatted text. Bold glyphs are one
// pixel wider.
func TextWidth(text string) int {
	n := 0
	for _, s := range component.Parse(text) {
		for _, r := range s.Text {
			n += RuneWidth(r)
			if s.Style.Bold {
				n++
			}
		}
	}
	return n
}

// Feature is the aligned suffix feature.
type Feature struct {
	ctx    *feature.Context
	widest atomic.Int64
}

func New(ctx *feature.Context) *Feature {
	return &Feature{ctx: ctx}
}

func (f *Feature) Tag() feature.Tag { return feature.AlignedSuffix }

// MaxWidth is the width of the longest prefix and name among online players.
func (f *Feature) MaxWidth() int {
	widest := 0
	for _, p := range f.ctx.Roster.Players() {
		prefix, name := p.Property(config.TabPrefix), p.Property(config.CustomTabName)
		if prefix == nil || name == nil {
			continue
		}
		if w := TextWidth(prefix.Get() + name.Get()); w > widest {
			widest = w
		}
	}
	return widest
}

// UpdateWidth stores MaxWidth and reports whether it differs from the value
// stored before.
func (f *Feature) UpdateWidth() bool {
	w := int64(f.MaxWidth())
	return f.widest.Swap(w) != w
}

// FixTextWidth returns trailing preceded by the padding that moves it to the
// suffix column. An empty suffix needs no padding.
func (f *Feature) FixTextWidth(p *player.Player, leading, trailing string) string {
	if trailing == "" {
		return trailing
	}
	target := f.MaxWidth()
	if w := TextWidth(leading); w > target {
		target = w
	}
	return padding(target+Gap-TextWidth(leading)) + trailing
}

// padding builds exactly n pixels out of plain and bold spaces. Any n of at
// least 12 can be expressed that way.
func padding(n int) string {
	bold := 0
	for (n-bold*(spaceWidth+1))%spaceWidth != 0 && n-bold*(spaceWidth+1) > 0 {
		bold++
	}
	plain := (n - bold*(spaceWidth+1)) / spaceWidth
	if plain < 0 {
		plain = 0
	}
	var sb strings.Builder
	sb.WriteString("§r")
	sb.WriteString(strings.Repeat(" ", plain))
	if bold > 0 {
		sb.WriteString("§l")
		sb.WriteString(strings.Repeat(" ", bold))
		sb.WriteString("§r")
	}
	return sb.String()
}
