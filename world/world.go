package world

import "strings"

// Whitelist turns a disabled world list into the list of the only worlds
// where a feature is enabled.
const Whitelist = "WHITELIST"

// Disabled is a configured set of worlds where a feature is switched off.
// Entries ending in "*" match every world with that prefix.
type Disabled struct {
	names     []string
	whitelist bool
}

// NewDisabled builds a matcher from a configured world list.
func NewDisabled(names []string) Disabled {
	d := Disabled{}
	for _, n := range names {
		if n == Whitelist {
			d.whitelist = true
			continue
		}
		d.names = append(d.names, n)
	}
	return d
}

// Contains reports whether the feature is disabled in world.
func (d Disabled) Contains(world string) bool {
	listed := false
	for _, n := range d.names {
		if n == world || (strings.HasSuffix(n, "*") && strings.HasPrefix(world, strings.TrimSuffix(n, "*"))) {
			listed = true
			break
		}
	}
	if d.whitelist {
		return !listed
	}
	return listed
}

func (d Disabled) Names() []string {
	out := make([]string, 0, len(d.names)+1)
	out = append(out, d.names...)
	if d.whitelist {
		out = append(out, Whitelist)
	}
	return out
}
