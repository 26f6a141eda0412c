// Package tablist keeps the tab list prefix, name and suffix of every player
// up to date for every viewer.
package tablist

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/errlog"
	"github.com/MONDERASDOR/SaverTab/feature"
	"github.com/MONDERASDOR/SaverTab/player"
	"github.com/MONDERASDOR/SaverTab/protocol"
	"github.com/MONDERASDOR/SaverTab/scheduler"
	"github.com/MONDERASDOR/SaverTab/world"
)

// CompensationDelay is how long after an add player packet the display
// names are sent again to clients that may be 1.8.0. One server tick.
const CompensationDelay = 50 * time.Millisecond

var propertyKeys = []string{config.TabPrefix, config.CustomTabName, config.TabSuffix}

// Feature handles tab list prefix, name and suffix.
type Feature struct {
	ctx *feature.Context

	mu               sync.RWMutex
	usedPlaceholders []string
	disabled         world.Disabled
}

func New(ctx *feature.Context) *Feature {
	f := &Feature{ctx: ctx}
	f.RefreshUsedPlaceholders()
	return f
}

func (f *Feature) Tag() feature.Tag { return feature.TablistNames }

// RefreshUsedPlaceholders recomputes, from the active configuration, the
// placeholders the three properties depend on and the disabled worlds.
func (f *Feature) RefreshUsedPlaceholders() {
	cfg := f.ctx.Config.Get()
	used := cfg.UsedPlaceholderIdentifiersRecursive(propertyKeys...)
	disabled := world.NewDisabled(cfg.DisabledWorlds(config.DisableTablistNames))
	f.mu.Lock()
	f.usedPlaceholders = used
	f.disabled = disabled
	f.mu.Unlock()
}

func (f *Feature) UsedPlaceholders() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.usedPlaceholders...)
}

func (f *Feature) IsDisabledWorld(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.disabled.Contains(name)
}

// Load refreshes every connected player.
func (f *Feature) Load() {
	wg := sizedwaitgroup.New(runtime.NumCPU())
	for _, p := range f.ctx.Roster.Players() {
		wg.Add()
		go func(p *player.Player) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					f.ctx.Errors.PrintError(fmt.Sprintf("%s: refresh of %s failed", f.Tag(), p.Name), fmt.Errorf("%v", r), false, errlog.Errors)
				}
			}()
			f.Refresh(p, true)
		}(p)
	}
	wg.Wait()
}

// Unload makes every viewer drop the custom names. It expects the feature to
// be unregistered already so the packets are not rewritten again.
func (f *Feature) Unload() {
	var entries []protocol.PlayerInfoEntry
	for _, p := range f.ctx.Roster.Players() {
		if !f.IsDisabledWorld(p.World()) {
			entries = append(entries, protocol.PlayerInfoEntry{UUID: p.TablistUUID})
		}
	}
	for _, viewer := range f.ctx.Roster.Players() {
		if viewer.Version.SupportsPlayerInfo() {
			pk := protocol.NewPlayerInfo(protocol.UpdateDisplayName, append([]protocol.PlayerInfoEntry(nil), entries...)...)
			f.ctx.Features.SendPacket(viewer, pk, f.Tag())
		}
	}
}

func (f *Feature) OnWorldChange(p *player.Player, from, to string) {
	f.Refresh(p, true)
}

// OnJoin loads the player's properties, shows them to everyone and sends the
// joining client the names of everyone already online.
func (f *Feature) OnJoin(p *player.Player) {
	f.Refresh(p, true)
	if !p.Version.SupportsPlayerInfo() {
		return
	}
	var entries []protocol.PlayerInfoEntry
	for _, all := range f.ctx.Roster.Players() {
		entries = append(entries, protocol.PlayerInfoEntry{UUID: all.TablistUUID})
	}
	f.ctx.Features.SendPacket(p, protocol.NewPlayerInfo(protocol.UpdateDisplayName, entries...), f.Tag())
}

// OnPacketSend writes the receiver specific tab list name into every entry
// of add and display name packets.
func (f *Feature) OnPacketSend(receiver *player.Player, info *protocol.PlayerInfoPacket) func() {
	add := info.Action == protocol.AddPlayer
	if !add && info.Action != protocol.UpdateDisplayName {
		return nil
	}
	nameTags := f.ctx.Features.IsEnabled(feature.NameTags)
	var compensation []protocol.PlayerInfoEntry
	for i := range info.Entries {
		e := &info.Entries[i]
		packetPlayer := f.ctx.Roster.ByTablistUUID(e.UUID)
		if packetPlayer == nil {
			continue
		}
		if !f.IsDisabledWorld(packetPlayer.World()) {
			if c, err := f.Format(packetPlayer, receiver); err == nil {
				e.DisplayName = c
			}
			// name tags match players by name, so a renamed entry would break them
			if add && nameTags && e.Name != packetPlayer.Name {
				f.ctx.Errors.PrintError(fmt.Sprintf("Blocking name change of player %s to %q for viewer %s", packetPlayer.Name, e.Name, receiver.Name), nil, false, errlog.AntiOverride)
				e.Name = packetPlayer.Name
			}
		}
		if add && e.DisplayName != nil && receiver.Version.AffectedByAddDisplayNameBug() {
			compensation = append(compensation, e.Clone())
		}
	}
	if len(compensation) == 0 {
		return nil
	}
	return func() {
		f.ctx.Scheduler.RunTaskLater(CompensationDelay, "sending PlayerInfo", string(f.Tag()), scheduler.V180BugCompensation, func() {
			if !receiver.Connected() {
				return
			}
			f.ctx.Features.SendPacket(receiver, protocol.NewPlayerInfo(protocol.UpdateDisplayName, compensation...), f.Tag())
		})
	}
}

// Refresh sends p's tab list name to every viewer. Unless forced, it only
// does so when a property resolved to a different value.
func (f *Feature) Refresh(p *player.Player, force bool) {
	if !p.Connected() {
		return
	}
	var refresh bool
	if force {
		f.updateProperties(p)
		refresh = true
	} else {
		prefix, name, suffix := p.Property(config.TabPrefix), p.Property(config.CustomTabName), p.Property(config.TabSuffix)
		if prefix == nil || name == nil || suffix == nil {
			return
		}
		changedPrefix := prefix.Update()
		changedName := name.Update()
		changedSuffix := suffix.Update()
		refresh = changedPrefix || changedName || changedSuffix
	}
	if !refresh {
		return
	}
	if f.widthMoved() {
		f.broadcastAll()
		return
	}
	for _, viewer := range f.ctx.Roster.Players() {
		if viewer.Version.SupportsPlayerInfo() {
			pk := protocol.NewPlayerInfo(protocol.UpdateDisplayName, protocol.PlayerInfoEntry{UUID: p.TablistUUID})
			f.ctx.Features.SendPacket(viewer, pk, f.Tag())
		}
	}
}

// OnQuit realigns the remaining suffixes when the widest name left.
func (f *Feature) OnQuit(p *player.Player) {
	if f.widthMoved() {
		f.broadcastAll()
	}
}

func (f *Feature) widthMoved() bool {
	wf, ok := f.ctx.Features.Get(feature.AlignedSuffix).(WidthFixer)
	return ok && wf.UpdateWidth()
}

// broadcastAll sends the name of every player outside disabled worlds to
// every viewer.
func (f *Feature) broadcastAll() {
	players := f.ctx.Roster.Players()
	var entries []protocol.PlayerInfoEntry
	for _, p := range players {
		if !f.IsDisabledWorld(p.World()) {
			entries = append(entries, protocol.PlayerInfoEntry{UUID: p.TablistUUID})
		}
	}
	if len(entries) == 0 {
		return
	}
	for _, viewer := range players {
		if viewer.Version.SupportsPlayerInfo() {
			pk := protocol.NewPlayerInfo(protocol.UpdateDisplayName, append([]protocol.PlayerInfoEntry(nil), entries...)...)
			f.ctx.Features.SendPacket(viewer, pk, f.Tag())
		}
	}
}

func (f *Feature) updateProperties(p *player.Player) {
	cfg := f.ctx.Config.Get()
	for _, key := range propertyKeys {
		raw, ok := cfg.Property(p.Name, p.Group(), p.World(), key)
		if !ok && key == config.CustomTabName {
			raw = p.Name
		}
		p.LoadProperty(key, raw, f.ctx.Placeholders)
	}
}
