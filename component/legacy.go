package component

import (
	"strconv"
	"strings"
	"unicode"
)

const (
	codeBold          = 'l'
	codeStrikethrough = 'm'
	codeUnderlined    = 'n'
	codeItalic        = 'o'
	codeObfuscated    = 'k'
	codeReset         = 'r'
	codeHex           = 'x'
)

// Translate replaces alt followed by a valid formatting code with the section
// sign. "&#rrggbb" style RGB colours are expanded to the §x sequence.
func Translate(alt rune, text string) string {
	if !strings.ContainsRune(text, alt) {
		return text
	}
	rs := []rune(text)
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(rs); i++ {
		if rs[i] != alt || i+1 >= len(rs) {
			sb.WriteRune(rs[i])
			continue
		}
		next := rs[i+1]
		if next == '#' && i+8 <= len(rs) {
			if rgb, err := strconv.ParseUint(string(rs[i+2:i+8]), 16, 32); err == nil {
				Hex(uint32(rgb)).legacy(&sb)
				i += 7
				continue
			}
		}
		if next <= unicode.MaxASCII && isCode(lower(byte(next))) {
			sb.WriteRune(SectionSign)
			sb.WriteRune(unicode.ToLower(next))
			i++
			continue
		}
		sb.WriteRune(rs[i])
	}
	return sb.String()
}

func isCode(b byte) bool {
	if _, ok := ByCode(b); ok {
		return true
	}
	switch b {
	case codeBold, codeStrikethrough, codeUnderlined, codeItalic, codeObfuscated, codeReset, codeHex:
		return true
	}
	return false
}

// Parse splits legacy formatted text into styled segments. A colour code
// resets decorations, §r resets everything and unknown codes are dropped,
// matching how clients render them.
func Parse(text string) []Segment {
	var (
		segs  []Segment
		style Style
		buf   strings.Builder
	)
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		segs = appendSegment(segs, Segment{Text: buf.String(), Style: style})
		buf.Reset()
	}
	rs := []rune(text)
	for i := 0; i < len(rs); i++ {
		if rs[i] != SectionSign || i+1 >= len(rs) {
			buf.WriteRune(rs[i])
			continue
		}
		next := rs[i+1]
		i++
		if next > unicode.MaxASCII {
			continue
		}
		code := lower(byte(next))
		if c, ok := ByCode(code); ok {
			flush()
			style = Style{Color: c}
			continue
		}
		switch code {
		case codeHex:
			if rgb, ok := parseHexSequence(rs[i+1:]); ok {
				flush()
				style = Style{Color: Hex(rgb)}
				i += 12
			}
		case codeReset:
			flush()
			style = Style{}
		case codeBold:
			flush()
			style.Bold = true
		case codeItalic:
			flush()
			style.Italic = true
		case codeUnderlined:
			flush()
			style.Underlined = true
		case codeStrikethrough:
			flush()
			style.Strikethrough = true
		case codeObfuscated:
			flush()
			style.Obfuscated = true
		}
	}
	flush()
	return segs
}

// parseHexSequence reads the six §d pairs following §x.
func parseHexSequence(rs []rune) (uint32, bool) {
	if len(rs) < 12 {
		return 0, false
	}
	digits := make([]rune, 0, 6)
	for j := 0; j < 12; j += 2 {
		if rs[j] != SectionSign {
			return 0, false
		}
		digits = append(digits, rs[j+1])
	}
	rgb, err := strconv.ParseUint(string(digits), 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32(rgb), true
}

func appendSegment(segs []Segment, s Segment) []Segment {
	if s.Text == "" {
		return segs
	}
	if n := len(segs); n > 0 && segs[n-1].Style == s.Style {
		segs[n-1].Text += s.Text
		return segs
	}
	return append(segs, s)
}

// LegacyText renders segments back into a legacy formatted string that
// parses into the same segments.
func LegacyText(segs []Segment) string {
	var sb strings.Builder
	var prev Style
	for i, s := range segs {
		if i == 0 || s.Style != prev {
			s.Style.legacy(&sb, i == 0)
		}
		sb.WriteString(s.Text)
		prev = s.Style
	}
	return sb.String()
}
