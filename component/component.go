// Package component builds the text shown in the tab list in both the legacy
// colour-coded form and the structured chat component form.
package component

import (
	"encoding/json"
	"strings"

	"github.com/MONDERASDOR/SaverTab/version"
)

// Style is the formatting applied to a run of text.
type Style struct {
	Color         Color
	Bold          bool
	Italic        bool
	Underlined    bool
	Strikethrough bool
	Obfuscated    bool
}

func (s Style) legacy(sb *strings.Builder, first bool) {
	if !s.Color.IsZero() {
		s.Color.legacy(sb)
	} else if !first {
		sb.WriteRune(SectionSign)
		sb.WriteByte(codeReset)
	}
	for _, d := range []struct {
		on   bool
		code byte
	}{
		{s.Obfuscated, codeObfuscated},
		{s.Bold, codeBold},
		{s.Strikethrough, codeStrikethrough},
		{s.Underlined, codeUnderlined},
		{s.Italic, codeItalic},
	} {
		if d.on {
			sb.WriteRune(SectionSign)
			sb.WriteByte(d.code)
		}
	}
}

// Segment is a run of text sharing one style.
type Segment struct {
	Text  string
	Style Style
}

// Component is a render-ready text value. Components are shared between
// every recipient of a packet and must not be modified once built.
type Component struct {
	// Legacy is the text with formatting expressed as § codes.
	Legacy string
	// Segments is the structured form. Components built for clients without
	// rich text support hold a single unstyled segment carrying Legacy.
	Segments []Segment
}

// Build parses formatted text for a client running v. Clients that render
// structured components get one segment per style run. Older clients get
// the flattened legacy text produced from the same parse so both render the
// same colours and decorations.
func Build(text string, v version.Version) *Component {
	segs := Parse(text)
	if !v.SupportsHexColors() {
		for i := range segs {
			segs[i].Style.Color = segs[i].Style.Color.Nearest()
		}
		segs = merge(segs)
	}
	legacy := LegacyText(segs)
	if v.SupportsRichText() {
		return &Component{Legacy: legacy, Segments: segs}
	}
	return &Component{Legacy: legacy, Segments: []Segment{{Text: legacy}}}
}

// Plain returns a component without any formatting.
func Plain(text string) *Component {
	return &Component{Legacy: text, Segments: []Segment{{Text: text}}}
}

func merge(segs []Segment) []Segment {
	out := segs[:0]
	for _, s := range segs {
		out = appendSegment(out, s)
	}
	return out
}

type jsonText struct {
	Text          string     `json:"text"`
	Color         string     `json:"color,omitempty"`
	Bold          bool       `json:"bold,omitempty"`
	Italic        bool       `json:"italic,omitempty"`
	Underlined    bool       `json:"underlined,omitempty"`
	Strikethrough bool       `json:"strikethrough,omitempty"`
	Obfuscated    bool       `json:"obfuscated,omitempty"`
	Extra         []jsonText `json:"extra,omitempty"`
}

func segmentJSON(s Segment) jsonText {
	return jsonText{
		Text:          s.Text,
		Color:         s.Style.Color.Name,
		Bold:          s.Style.Bold,
		Italic:        s.Style.Italic,
		Underlined:    s.Style.Underlined,
		Strikethrough: s.Style.Strikethrough,
		Obfuscated:    s.Style.Obfuscated,
	}
}

// MarshalJSON encodes the structured form as a chat component.
func (c *Component) MarshalJSON() ([]byte, error) {
	switch len(c.Segments) {
	case 0:
		return json.Marshal(jsonText{})
	case 1:
		return json.Marshal(segmentJSON(c.Segments[0]))
	}
	root := jsonText{Extra: make([]jsonText, 0, len(c.Segments))}
	for _, s := range c.Segments {
		root.Extra = append(root.Extra, segmentJSON(s))
	}
	return json.Marshal(root)
}

// String returns the JSON form, or the legacy text if encoding fails.
func (c *Component) String() string {
	b, err := c.MarshalJSON()
	if err != nil {
		return c.Legacy
	}
	return string(b)
}
