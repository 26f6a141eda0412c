// Package placeholder resolves %identifier% placeholders in property text and
// tracks their values between refresh ticks.
package placeholder

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/MONDERASDOR/SaverTab/component"
	"github.com/MONDERASDOR/SaverTab/player"
)

// RelationalPrefix marks placeholders whose value depends on the viewer.
const RelationalPrefix = "%rel_"

// maxDepth bounds custom placeholder expansion so cyclic definitions end.
const maxDepth = 8

var identifierPattern = regexp.MustCompile(`%[A-Za-z0-9_:.\-]+%`)

// Identifiers returns the distinct placeholder identifiers in text in order
// of first use.
func Identifiers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, id := range identifierPattern.FindAllString(text, -1) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// IsRelational reports whether id is resolved per viewer.
func IsRelational(id string) bool { return strings.HasPrefix(id, RelationalPrefix) }

type (
	ServerFunc     func() string
	PlayerFunc     func(p *player.Player) string
	RelationalFunc func(viewer, target *player.Player) string
)

// Manager holds the registered placeholders. It implements
// player.TextResolver.
type Manager struct {
	mu         sync.RWMutex
	server     map[string]ServerFunc
	player     map[string]PlayerFunc
	relational map[string]RelationalFunc
	custom     map[string]string

	lastMu sync.Mutex
	last   map[uuid.UUID]map[string]string
}

func NewManager() *Manager {
	return &Manager{
		server:     make(map[string]ServerFunc),
		player:     make(map[string]PlayerFunc),
		relational: make(map[string]RelationalFunc),
		custom:     make(map[string]string),
		last:       make(map[uuid.UUID]map[string]string),
	}
}

func (m *Manager) RegisterServer(id string, fn ServerFunc) {
	m.mu.Lock()
	m.server[id] = fn
	m.mu.Unlock()
}

func (m *Manager) RegisterPlayer(id string, fn PlayerFunc) {
	m.mu.Lock()
	m.player[id] = fn
	m.mu.Unlock()
}

func (m *Manager) RegisterRelational(id string, fn RelationalFunc) {
	m.mu.Lock()
	m.relational[id] = fn
	m.mu.Unlock()
}

// SetCustom replaces the composed placeholder definitions. A custom
// placeholder expands to its definition, which may use other placeholders.
func (m *Manager) SetCustom(defs map[string]string) {
	m.mu.Lock()
	m.custom = make(map[string]string, len(defs))
	for k, v := range defs {
		m.custom[k] = v
	}
	m.mu.Unlock()
}

// RegisterDefaults registers the built in placeholders backed by roster.
func (m *Manager) RegisterDefaults(roster *player.Roster) {
	m.RegisterPlayer("%player%", func(p *player.Player) string { return p.Name })
	m.RegisterPlayer("%world%", func(p *player.Player) string { return p.World() })
	m.RegisterPlayer("%group%", func(p *player.Player) string { return p.Group() })
	m.RegisterPlayer("%ping%", func(p *player.Player) string { return strconv.Itoa(p.Latency()) })
	m.RegisterPlayer("%worldonline%", func(p *player.Player) string {
		n := 0
		for _, o := range roster.Players() {
			if o.World() == p.World() {
				n++
			}
		}
		return strconv.Itoa(n)
	})
	m.RegisterServer("%online%", func() string { return strconv.Itoa(roster.Len()) })
	m.RegisterRelational("%rel_worldcolor%", func(viewer, target *player.Player) string {
		if viewer.World() == target.World() {
			return "&a"
		}
		return "&7"
	})
}

func (m *Manager) Identifiers(text string) []string { return Identifiers(text) }

// expand replaces custom placeholders with their definitions.
func (m *Manager) expand(text string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.custom) == 0 {
		return text
	}
	for depth := 0; depth < maxDepth; depth++ {
		replaced := false
		text = identifierPattern.ReplaceAllStringFunc(text, func(id string) string {
			if def, ok := m.custom[id]; ok {
				replaced = true
				return def
			}
			return id
		})
		if !replaced {
			break
		}
	}
	return text
}

// Value resolves a single non relational placeholder for p.
func (m *Manager) Value(id string, p *player.Player) (string, bool) {
	m.mu.RLock()
	fn, ok := m.player[id]
	sfn, sok := m.server[id]
	_, cok := m.custom[id]
	m.mu.RUnlock()
	switch {
	case ok:
		return fn(p), true
	case sok:
		return sfn(), true
	case cok:
		return m.Apply(id, p), true
	}
	return "", false
}

// Apply replaces every placeholder that does not depend on the viewer and
// translates & colour codes.
func (m *Manager) Apply(text string, p *player.Player) string {
	text = m.expand(text)
	text = identifierPattern.ReplaceAllStringFunc(text, func(id string) string {
		if IsRelational(id) {
			return id
		}
		m.mu.RLock()
		fn, ok := m.player[id]
		sfn, sok := m.server[id]
		m.mu.RUnlock()
		switch {
		case ok:
			return fn(p)
		case sok:
			return sfn()
		}
		return id
	})
	return component.Translate('&', text)
}

// ApplyRelational replaces the viewer dependent placeholders left by Apply.
func (m *Manager) ApplyRelational(text string, target, viewer *player.Player) string {
	if !strings.Contains(text, RelationalPrefix) {
		return text
	}
	text = identifierPattern.ReplaceAllStringFunc(text, func(id string) string {
		m.mu.RLock()
		fn, ok := m.relational[id]
		m.mu.RUnlock()
		if !ok {
			return id
		}
		return fn(viewer, target)
	})
	return component.Translate('&', text)
}

// Tick evaluates ids for every player and returns, per player, the ids whose
// value changed since the previous tick. An id without a previous value
// counts as changed.
func (m *Manager) Tick(players []*player.Player, ids []string) map[*player.Player][]string {
	changed := make(map[*player.Player][]string)
	for _, p := range players {
		values := make(map[string]string, len(ids))
		for _, id := range ids {
			if IsRelational(id) {
				continue
			}
			if v, ok := m.Value(id, p); ok {
				values[id] = v
			}
		}
		m.lastMu.Lock()
		prev := m.last[p.UUID]
		m.last[p.UUID] = values
		m.lastMu.Unlock()
		for _, id := range ids {
			v, ok := values[id]
			if !ok {
				continue
			}
			if old, had := prev[id]; !had || old != v {
				changed[p] = append(changed[p], id)
			}
		}
	}
	return changed
}

// Forget drops the tracked values of a disconnected player.
func (m *Manager) Forget(id uuid.UUID) {
	m.lastMu.Lock()
	delete(m.last, id)
	m.lastMu.Unlock()
}
