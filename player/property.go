package player

import "sync"

// TextResolver replaces placeholders in property text.
type TextResolver interface {
	// Identifiers lists the placeholder identifiers used in text.
	Identifiers(text string) []string
	// Apply replaces the placeholders that depend on p only.
	Apply(text string, p *Player) string
	// ApplyRelational replaces the placeholders that depend on who looks at p.
	ApplyRelational(text string, p, viewer *Player) string
}

// Property is a dynamic text value of a player, such as a tab prefix.
type Property struct {
	owner    *Player
	resolver TextResolver

	mu           sync.Mutex
	raw          string
	last         string
	placeholders []string
}

func newProperty(owner *Player, raw string, r TextResolver) *Property {
	pr := &Property{owner: owner, resolver: r}
	pr.mu.Lock()
	pr.setRaw(raw)
	pr.mu.Unlock()
	pr.Update()
	return pr
}

func (pr *Property) setRaw(raw string) {
	pr.raw = raw
	pr.placeholders = pr.resolver.Identifiers(raw)
}

// ChangeRaw replaces the definition and reports whether the resolved value
// changed.
func (pr *Property) ChangeRaw(raw string) bool {
	pr.mu.Lock()
	if pr.raw == raw {
		pr.mu.Unlock()
		return false
	}
	pr.setRaw(raw)
	pr.mu.Unlock()
	return pr.Update()
}

// Update resolves the definition again and reports whether the result
// differs from the previous resolution.
func (pr *Property) Update() bool {
	pr.mu.Lock()
	raw := pr.raw
	pr.mu.Unlock()
	value := pr.resolver.Apply(raw, pr.owner)
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if value == pr.last {
		return false
	}
	pr.last = value
	return true
}

// Get returns the last resolved value.
func (pr *Property) Get() string {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return pr.last
}

// Placeholders returns the identifiers used by the definition.
func (pr *Property) Placeholders() []string {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	return append([]string(nil), pr.placeholders...)
}

// Format renders the last value as seen by viewer. A nil viewer leaves
// relational placeholders unresolved.
func (pr *Property) Format(viewer *Player) string {
	last := pr.Get()
	if viewer == nil {
		return last
	}
	return pr.resolver.ApplyRelational(last, pr.owner, viewer)
}
