package feature

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MONDERASDOR/SaverTab/component"
	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/errlog"
	"github.com/MONDERASDOR/SaverTab/player"
	"github.com/MONDERASDOR/SaverTab/protocol"
	"github.com/MONDERASDOR/SaverTab/scheduler"
)

type measurer interface {
	Measure(feature string, usage scheduler.Usage, label string, task func())
}

// Manager is the feature registry. Events are dispatched to registered
// features in registration order.
type Manager struct {
	ctx *Context

	mu       sync.RWMutex
	features []Feature
}

// NewManager creates the registry and stores it in ctx.Features.
func NewManager(ctx *Context) *Manager {
	m := &Manager{ctx: ctx}
	ctx.Features = m
	return m
}

func (m *Manager) Context() *Context { return m.ctx }

// Register adds f, replacing a feature with the same tag.
func (m *Manager) Register(f Feature) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.features {
		if o.Tag() == f.Tag() {
			m.features[i] = f
			return
		}
	}
	m.features = append(m.features, f)
}

// Unregister removes the feature with tag and unloads it. The feature no
// longer sees packets while it unloads.
func (m *Manager) Unregister(tag Tag) Feature {
	m.mu.Lock()
	var removed Feature
	for i, f := range m.features {
		if f.Tag() == tag {
			removed = f
			m.features = append(m.features[:i:i], m.features[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	if u, ok := removed.(Unloadable); ok {
		m.measure(u, scheduler.Unloading, "unload", u.Unload)
	}
	return removed
}

func (m *Manager) Get(tag Tag) Feature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.features {
		if f.Tag() == tag {
			return f
		}
	}
	return nil
}

func (m *Manager) IsEnabled(tag Tag) bool { return m.Get(tag) != nil }

func (m *Manager) snapshot() []Feature {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Feature(nil), m.features...)
}

// measure runs fn with usage accounting when the scheduler supports it.
// A panic is reported and does not reach the caller.
func (m *Manager) measure(f Feature, usage scheduler.Usage, label string, fn func()) {
	if ms, ok := m.ctx.Scheduler.(measurer); ok {
		ms.Measure(string(f.Tag()), usage, label, fn)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.ctx.Errors.PrintError(fmt.Sprintf("%s: %s failed", f.Tag(), label), fmt.Errorf("%v", r), false, errlog.Errors)
		}
	}()
	fn()
}

// Load loads every Loadable feature.
func (m *Manager) Load() {
	for _, f := range m.snapshot() {
		if l, ok := f.(Loadable); ok {
			m.measure(l, scheduler.Loading, "load", l.Load)
		}
	}
}

// UnloadAll unregisters and unloads every feature, newest first.
func (m *Manager) UnloadAll() {
	fs := m.snapshot()
	for i := len(fs) - 1; i >= 0; i-- {
		m.Unregister(fs[i].Tag())
	}
}

// Reload swaps the configuration, recomputes placeholder dependencies and
// loads every feature again.
func (m *Manager) Reload(cfg *config.Config) {
	m.ctx.Config.Set(cfg)
	m.ctx.Placeholders.SetCustom(cfg.CustomPlaceholders)
	for _, f := range m.snapshot() {
		if r, ok := f.(Refreshable); ok {
			r.RefreshUsedPlaceholders()
		}
	}
	m.Load()
}

// OnJoin registers p in the roster and notifies join listeners.
func (m *Manager) OnJoin(p *player.Player) {
	if old := m.ctx.Roster.Add(p); old != nil {
		m.ctx.Placeholders.Forget(old.UUID)
	}
	for _, f := range m.snapshot() {
		if l, ok := f.(JoinListener); ok {
			m.measure(l, scheduler.PlayerJoin, "join of "+p.Name, func() { l.OnJoin(p) })
		}
	}
}

// OnQuit removes p from the roster, then notifies quit listeners.
func (m *Manager) OnQuit(p *player.Player) {
	if m.ctx.Roster.Remove(p.UUID) == nil {
		return
	}
	m.ctx.Placeholders.Forget(p.UUID)
	for _, f := range m.snapshot() {
		if l, ok := f.(QuitListener); ok {
			m.measure(l, scheduler.PlayerQuit, "quit of "+p.Name, func() { l.OnQuit(p) })
		}
	}
}

// OnWorldChange moves p to world and notifies listeners if it changed.
func (m *Manager) OnWorldChange(p *player.Player, world string) {
	from := p.SetWorld(world)
	if from == world {
		return
	}
	for _, f := range m.snapshot() {
		if l, ok := f.(WorldChangeListener); ok {
			m.measure(l, scheduler.WorldSwitch, "world switch of "+p.Name, func() { l.OnWorldChange(p, from, world) })
		}
	}
}

// SendPacket passes info through the player info listeners, encodes it for
// the receiver and hands it to the host. Receivers that cannot get player
// info packets are skipped.
func (m *Manager) SendPacket(receiver *player.Player, info *protocol.PlayerInfoPacket, tag Tag) {
	if !receiver.Version.SupportsPlayerInfo() {
		return
	}
	var after []func()
	for _, f := range m.snapshot() {
		l, ok := f.(PlayerInfoListener)
		if !ok {
			continue
		}
		m.measure(l, scheduler.PacketReading, "player info to "+receiver.Name, func() {
			if fn := l.OnPacketSend(receiver, info); fn != nil {
				after = append(after, fn)
			}
		})
	}
	p, err := protocol.SerializePlayerInfo(info, receiver.Version)
	if err != nil {
		if !errors.Is(err, protocol.ErrUnsupportedVersion) {
			m.ctx.Errors.PrintError(fmt.Sprintf("%s: failed to encode %s for %s", tag, info.Action, receiver.Name), err, true, errlog.Errors)
		}
		return
	}
	m.ctx.Sender.Send(receiver, p, tag)
	for _, fn := range after {
		fn()
	}
}

// SendMessage sends formatted text to the receiver's chat.
func (m *Manager) SendMessage(receiver *player.Player, text string, kind protocol.ChatMessageType, tag Tag) {
	msg := component.Build(component.Translate('&', text), receiver.Version)
	p, err := protocol.SerializeChat(msg, kind, receiver.Version)
	if err != nil {
		m.ctx.Errors.PrintError(fmt.Sprintf("%s: failed to encode message for %s", tag, receiver.Name), err, true, errlog.Errors)
		return
	}
	m.ctx.Sender.Send(receiver, p, tag)
}

// RefreshPlaceholders re-evaluates every placeholder used by a Refreshable
// feature and refreshes the features affected by a changed value.
func (m *Manager) RefreshPlaceholders() {
	var refreshables []Refreshable
	used := make(map[string]bool)
	var ids []string
	for _, f := range m.snapshot() {
		r, ok := f.(Refreshable)
		if !ok {
			continue
		}
		refreshables = append(refreshables, r)
		for _, id := range r.UsedPlaceholders() {
			if !used[id] {
				used[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return
	}
	changed := m.ctx.Placeholders.Tick(m.ctx.Roster.Players(), ids)
	for p, changedIDs := range changed {
		for _, r := range refreshables {
			if !intersects(r.UsedPlaceholders(), changedIDs) {
				continue
			}
			r, p := r, p
			m.measure(r, scheduler.PlaceholderRefresh, "refresh of "+p.Name, func() { r.Refresh(p, false) })
		}
	}
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Run refreshes placeholders at the configured interval until ctx ends.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.ctx.Config.Get().RefreshInterval()
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		m.RefreshPlaceholders()
		if next := m.ctx.Config.Get().RefreshInterval(); next != interval {
			interval = next
			limiter.SetLimit(rate.Every(interval))
		}
	}
}

// Interval returns the placeholder refresh interval of the active configuration.
func (m *Manager) Interval() time.Duration { return m.ctx.Config.Get().RefreshInterval() }
