package tablist

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MONDERASDOR/SaverTab/component"
	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/errlog"
	"github.com/MONDERASDOR/SaverTab/feature"
	"github.com/MONDERASDOR/SaverTab/feature/nametags"
	"github.com/MONDERASDOR/SaverTab/placeholder"
	"github.com/MONDERASDOR/SaverTab/player"
	"github.com/MONDERASDOR/SaverTab/protocol"
	"github.com/MONDERASDOR/SaverTab/scheduler"
	"github.com/MONDERASDOR/SaverTab/version"
)

const testConfig = `
disable-features-in-worlds:
  tablist-names: [lobby]
groups:
  _OTHER_:
    tabprefix: ""
    tabsuffix: ""
  admin:
    tabprefix: "&c[%group%] "
users:
  A:
    tabprefix: "[VIP] "
  R:
    tabprefix: "%rel_worldcolor%"
  S:
    tabsuffix: " %score%"
`

type sent struct {
	to *player.Player
	pk protocol.Packet
}

type task struct {
	delay   time.Duration
	feature string
	usage   scheduler.Usage
	fn      func()
}

type env struct {
	t     *testing.T
	m     *feature.Manager
	ctx   *feature.Context
	tab   *Feature
	logs  *bytes.Buffer
	score string

	mu     sync.Mutex
	sent   []sent
	tasks  []task
	events []string
}

func (e *env) Send(receiver *player.Player, p protocol.Packet, tag feature.Tag) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, sent{receiver, p})
	e.events = append(e.events, "send "+receiver.Name)
}

func (e *env) RunTaskLater(delay time.Duration, label, featureTag string, usage scheduler.Usage, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task{delay, featureTag, usage, fn})
	e.events = append(e.events, "schedule")
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	if err != nil {
		t.Fatal(err)
	}
	e := &env{t: t, logs: new(bytes.Buffer), score: "1"}
	roster := player.NewRoster()
	ph := placeholder.NewManager()
	ph.RegisterDefaults(roster)
	ph.RegisterPlayer("%score%", func(*player.Player) string { return e.score })
	e.ctx = &feature.Context{
		Roster:       roster,
		Config:       config.NewStore(cfg),
		Placeholders: ph,
		Scheduler:    e,
		Errors:       errlog.NewWithWriter("", e.logs),
		Sender:       e,
	}
	e.m = feature.NewManager(e.ctx)
	e.tab = New(e.ctx)
	e.m.Register(e.tab)
	return e
}

func (e *env) join(name string, v version.Version, world string) *player.Player {
	p := player.New(player.OfflineUUID(name), name, v, nil)
	p.SetWorld(world)
	e.m.OnJoin(p)
	return p
}

func (e *env) reset() {
	e.mu.Lock()
	e.sent, e.tasks, e.events = nil, nil, nil
	e.mu.Unlock()
}

func (e *env) sentTo(p *player.Player) []protocol.Packet {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []protocol.Packet
	for _, s := range e.sent {
		if s.to == p {
			out = append(out, s.pk)
		}
	}
	return out
}

type entry struct {
	id      uuid.UUID
	name    string
	display string // JSON, empty when no override
}

// decode reads a pre 1.19 player list item packet.
func decode(t *testing.T, p protocol.Packet) (int, []entry) {
	t.Helper()
	r := bytes.NewReader(p.Data)
	action, _ := protocol.ReadVarInt(r)
	count, _ := protocol.ReadVarInt(r)
	entries := make([]entry, 0, count)
	for i := 0; i < count; i++ {
		var e entry
		e.id, _ = protocol.ReadUUID(r)
		if action == 0 {
			e.name, _ = protocol.ReadString(r)
			protocol.ReadVarInt(r)
			protocol.ReadVarInt(r)
			protocol.ReadVarInt(r)
		}
		if action == 0 || action == 3 {
			if has, _ := protocol.ReadBool(r); has {
				e.display, _ = protocol.ReadString(r)
			}
		}
		entries = append(entries, e)
	}
	if r.Len() != 0 {
		t.Fatalf("%d unread bytes", r.Len())
	}
	return action, entries
}

func displayJSON(t *testing.T, text string, v version.Version) string {
	t.Helper()
	b, err := component.Build(text, v).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestJoinBroadcastsAndSendsSnapshot(t *testing.T) {
	e := newEnv(t)
	b := e.join("B", version.V1_12_2, "world")
	e.reset()
	a := e.join("A", version.V1_12_2, "world")

	toB := e.sentTo(b)
	if len(toB) != 1 {
		t.Fatalf("B got %d packets, want 1", len(toB))
	}
	action, entries := decode(t, toB[0])
	if action != 3 || len(entries) != 1 || entries[0].id != a.TablistUUID {
		t.Fatalf("unexpected packet to B: action %d entries %+v", action, entries)
	}
	if want := displayJSON(t, "[VIP] A", version.V1_12_2); entries[0].display != want {
		t.Fatalf("display = %s, want %s", entries[0].display, want)
	}

	toA := e.sentTo(a)
	if len(toA) != 2 {
		t.Fatalf("A got %d packets, want own update and snapshot", len(toA))
	}
	_, snapshot := decode(t, toA[1])
	if len(snapshot) != 2 || snapshot[0].id != b.TablistUUID || snapshot[1].id != a.TablistUUID {
		t.Fatalf("snapshot = %+v", snapshot)
	}
	for _, s := range snapshot {
		if s.display == "" {
			t.Fatalf("snapshot entry %v without display name", s.id)
		}
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.join("B", version.V1_12_2, "world")
	admin := player.New(player.OfflineUUID("C"), "C", version.V1_12_2, nil)
	admin.SetGroup("admin")
	e.m.OnJoin(admin)
	e.reset()

	e.tab.Refresh(admin, false)
	e.tab.Refresh(admin, false)
	if len(e.sent) != 0 {
		t.Fatalf("unchanged refresh sent %d packets", len(e.sent))
	}

	admin.SetGroup("owner")
	e.tab.Refresh(admin, false)
	if len(e.sent) != 2 {
		t.Fatalf("changed refresh sent %d packets, want one per viewer", len(e.sent))
	}
	e.reset()
	e.tab.Refresh(admin, false)
	if len(e.sent) != 0 {
		t.Fatalf("second refresh sent %d packets", len(e.sent))
	}
}

func TestPlaceholderTickRefreshes(t *testing.T) {
	e := newEnv(t)
	s := e.join("S", version.V1_12_2, "world")
	e.m.RefreshPlaceholders()
	e.reset()

	e.m.RefreshPlaceholders()
	if len(e.sent) != 0 {
		t.Fatalf("no placeholder changed but %d packets sent", len(e.sent))
	}
	e.score = "2"
	e.m.RefreshPlaceholders()
	toS := e.sentTo(s)
	if len(toS) != 1 {
		t.Fatalf("got %d packets", len(toS))
	}
	if _, entries := decode(t, toS[0]); entries[0].display != displayJSON(t, "S 2", version.V1_12_2) {
		t.Fatalf("display = %s", entries[0].display)
	}
}

func TestFirstTickAfterJoinSeesChange(t *testing.T) {
	e := newEnv(t)
	s := e.join("S", version.V1_12_2, "world")
	e.reset()
	e.score = "2"
	e.m.RefreshPlaceholders()
	toS := e.sentTo(s)
	if len(toS) != 1 {
		t.Fatalf("got %d packets", len(toS))
	}
	if _, entries := decode(t, toS[0]); entries[0].display != displayJSON(t, "S 2", version.V1_12_2) {
		t.Fatalf("display = %s", entries[0].display)
	}
	e.reset()
	e.m.RefreshPlaceholders()
	if len(e.sent) != 0 {
		t.Fatalf("unchanged tick sent %d packets", len(e.sent))
	}
}

func TestAddCompensationFor18(t *testing.T) {
	e := newEnv(t)
	a := e.join("A", version.V1_12_2, "world")
	b := e.join("B", version.V1_12_2, "world")
	old := e.join("Old", version.V1_8, "world")
	e.reset()

	npc := protocol.PlayerInfoEntry{UUID: uuid.New(), Name: "NPC"}
	pk := protocol.NewPlayerInfo(protocol.AddPlayer,
		protocol.PlayerInfoEntry{UUID: a.TablistUUID, Name: "A"},
		npc,
		protocol.PlayerInfoEntry{UUID: b.TablistUUID, Name: "B"},
	)
	e.m.SendPacket(old, pk, feature.TablistNames)

	if len(e.tasks) != 1 {
		t.Fatalf("scheduled %d tasks, want 1", len(e.tasks))
	}
	if got := strings.Join(e.events, ","); got != "send Old,schedule" {
		t.Fatalf("events = %s", got)
	}
	tk := e.tasks[0]
	if tk.delay != CompensationDelay || tk.usage != scheduler.V180BugCompensation || tk.feature != string(feature.TablistNames) {
		t.Fatalf("unexpected task %+v", tk)
	}

	// the caller reusing its packet must not affect the scheduled copy
	pk.Entries[0].DisplayName = nil
	pk.Entries[0].UUID = uuid.Nil

	tk.fn()
	toOld := e.sentTo(old)
	if len(toOld) != 2 {
		t.Fatalf("Old got %d packets", len(toOld))
	}
	action, entries := decode(t, toOld[1])
	if action != 3 || len(entries) != 2 || entries[0].id != a.TablistUUID || entries[1].id != b.TablistUUID {
		t.Fatalf("compensation = %d %+v", action, entries)
	}
	if entries[0].display != displayJSON(t, "[VIP] A", version.V1_8) {
		t.Fatalf("compensation display = %s", entries[0].display)
	}
	if len(e.sent) != 2 {
		t.Fatalf("compensation went to other players")
	}
}

func TestNoCompensation(t *testing.T) {
	e := newEnv(t)
	a := e.join("A", version.V1_12_2, "world")
	old := e.join("Old", version.V1_8, "world")
	modern := e.join("Modern", version.V1_9, "world")
	e.reset()

	e.m.SendPacket(modern, protocol.NewPlayerInfo(protocol.AddPlayer, protocol.PlayerInfoEntry{UUID: a.TablistUUID, Name: "A"}), feature.TablistNames)
	e.m.SendPacket(old, protocol.NewPlayerInfo(protocol.AddPlayer, protocol.PlayerInfoEntry{UUID: uuid.New(), Name: "NPC"}), feature.TablistNames)
	e.m.SendPacket(old, protocol.NewPlayerInfo(protocol.UpdateDisplayName, protocol.PlayerInfoEntry{UUID: a.TablistUUID}), feature.TablistNames)
	if len(e.tasks) != 0 {
		t.Fatalf("scheduled %d tasks, want none", len(e.tasks))
	}
}

func TestCompensationSkippedAfterDisconnect(t *testing.T) {
	e := newEnv(t)
	a := e.join("A", version.V1_12_2, "world")
	old := e.join("Old", version.V1_8, "world")
	e.reset()
	e.m.SendPacket(old, protocol.NewPlayerInfo(protocol.AddPlayer, protocol.PlayerInfoEntry{UUID: a.TablistUUID, Name: "A"}), feature.TablistNames)
	e.m.OnQuit(old)
	e.tasks[0].fn()
	if n := len(e.sentTo(old)); n != 1 {
		t.Fatalf("Old got %d packets, want only the original", n)
	}
}

func TestDisabledWorldIsExcluded(t *testing.T) {
	e := newEnv(t)
	viewer := e.join("B", version.V1_12_2, "world")
	a := e.join("A", version.V1_12_2, "lobby")
	if _, err := e.tab.Format(a, viewer); !errors.Is(err, ErrDisabledWorld) {
		t.Fatalf("Format err = %v", err)
	}
	e.reset()
	e.tab.Refresh(a, true)
	_, entries := decode(t, e.sentTo(viewer)[0])
	if entries[0].display != "" {
		t.Fatalf("disabled world player got display name %s", entries[0].display)
	}
	// a third party override for a disabled world player is left alone
	custom := component.Plain("custom")
	pk := protocol.NewPlayerInfo(protocol.UpdateDisplayName, protocol.PlayerInfoEntry{UUID: a.TablistUUID, DisplayName: custom})
	e.m.SendPacket(viewer, pk, feature.TablistNames)
	if pk.Entries[0].DisplayName != custom {
		t.Fatalf("display name of disabled world player was overwritten")
	}
}

func TestWorldChangeForcesRefresh(t *testing.T) {
	e := newEnv(t)
	viewer := e.join("B", version.V1_12_2, "world")
	a := e.join("A", version.V1_12_2, "world")
	e.reset()
	e.m.OnWorldChange(a, "lobby")
	toB := e.sentTo(viewer)
	if len(toB) != 1 {
		t.Fatalf("got %d packets", len(toB))
	}
	if _, entries := decode(t, toB[0]); entries[0].display != "" {
		t.Fatalf("override kept after entering disabled world")
	}
	e.reset()
	e.m.OnWorldChange(a, "world")
	if _, entries := decode(t, e.sentTo(viewer)[0]); entries[0].display == "" {
		t.Fatalf("override not restored after leaving disabled world")
	}
}

func TestOldClientsNeverGetPlayerInfo(t *testing.T) {
	e := newEnv(t)
	legacy := e.join("Legacy", version.V1_7_10, "world")
	e.join("A", version.V1_12_2, "world")
	e.tab.Refresh(legacy, true)
	if n := len(e.sentTo(legacy)); n != 0 {
		t.Fatalf("1.7 client got %d packets", n)
	}
}

func TestUnload(t *testing.T) {
	e := newEnv(t)
	e.join("A", version.V1_12_2, "world")
	e.join("B", version.V1_8, "world")
	e.join("C", version.V1_16_4, "lobby")
	e.join("D", version.V1_7_10, "world")
	e.reset()

	e.m.Unregister(feature.TablistNames)
	if len(e.sent) != 3 {
		t.Fatalf("sent %d packets, want one per 1.8+ viewer", len(e.sent))
	}
	for _, s := range e.sent {
		action, entries := decode(t, s.pk)
		if action != 3 || len(entries) != 3 {
			t.Fatalf("to %s: action %d, %d entries", s.to.Name, action, len(entries))
		}
		for _, en := range entries {
			if en.display != "" {
				t.Fatalf("unload kept a display name for %v", en.id)
			}
		}
	}
}

func TestAddNameOverrideBlocked(t *testing.T) {
	e := newEnv(t)
	a := e.join("A", version.V1_12_2, "world")
	viewer := e.join("B", version.V1_12_2, "world")

	pk := protocol.NewPlayerInfo(protocol.AddPlayer, protocol.PlayerInfoEntry{UUID: a.TablistUUID, Name: "Fake"})
	e.m.SendPacket(viewer, pk, feature.TablistNames)
	if pk.Entries[0].Name != "Fake" {
		t.Fatalf("name changed without the name tag feature")
	}

	e.m.Register(nametags.New())
	e.reset()
	pk = protocol.NewPlayerInfo(protocol.AddPlayer, protocol.PlayerInfoEntry{UUID: a.TablistUUID, Name: "Fake"})
	e.m.SendPacket(viewer, pk, feature.TablistNames)
	_, entries := decode(t, e.sentTo(viewer)[0])
	if entries[0].name != "A" {
		t.Fatalf("sent name %q", entries[0].name)
	}
	if !strings.Contains(e.logs.String(), `Blocking name change of player A to "Fake" for viewer B`) {
		t.Fatalf("missing anti-override log: %s", e.logs.String())
	}
}

func TestNotReady(t *testing.T) {
	e := newEnv(t)
	viewer := e.join("B", version.V1_12_2, "world")
	fresh := player.New(uuid.New(), "Fresh", version.V1_12_2, nil)
	e.ctx.Roster.Add(fresh)
	if _, err := e.tab.Format(fresh, viewer); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Format err = %v", err)
	}
	e.tab.Refresh(fresh, false)
	custom := component.Plain("custom")
	pk := protocol.NewPlayerInfo(protocol.UpdateDisplayName, protocol.PlayerInfoEntry{UUID: fresh.TablistUUID, DisplayName: custom})
	e.m.SendPacket(viewer, pk, feature.TablistNames)
	if pk.Entries[0].DisplayName != custom {
		t.Fatalf("entry of a player that is not ready was changed")
	}
}

func TestRelationalPrefixPerViewer(t *testing.T) {
	e := newEnv(t)
	same := e.join("Same", version.V1_12_2, "world")
	other := e.join("Other", version.V1_12_2, "nether")
	e.reset()
	e.join("R", version.V1_12_2, "world")
	_, toSame := decode(t, e.sentTo(same)[0])
	_, toOther := decode(t, e.sentTo(other)[0])
	if toSame[0].display != displayJSON(t, "§aR", version.V1_12_2) {
		t.Fatalf("same world sees %s", toSame[0].display)
	}
	if toOther[0].display != displayJSON(t, "§7R", version.V1_12_2) {
		t.Fatalf("other world sees %s", toOther[0].display)
	}
}

type fixedWidth struct{}

func (fixedWidth) Tag() feature.Tag { return feature.AlignedSuffix }

func (fixedWidth) FixTextWidth(p *player.Player, leading, trailing string) string {
	return "|" + leading + "|" + trailing
}

func (fixedWidth) UpdateWidth() bool { return false }

func TestWidthFixerUsed(t *testing.T) {
	e := newEnv(t)
	e.m.Register(fixedWidth{})
	viewer := e.join("B", version.V1_12_2, "world")
	a := e.join("A", version.V1_12_2, "world")
	c, err := e.tab.Format(a, viewer)
	if err != nil {
		t.Fatal(err)
	}
	if c.Legacy != "[VIP] A|[VIP] A|" {
		t.Fatalf("Legacy = %q", c.Legacy)
	}
}

func TestLoadRefreshesEveryone(t *testing.T) {
	e := newEnv(t)
	e.join("A", version.V1_12_2, "world")
	e.join("B", version.V1_12_2, "world")
	e.join("C", version.V1_12_2, "world")
	e.reset()
	e.m.Load()
	if len(e.sent) != 9 {
		t.Fatalf("sent %d packets, want 3 players x 3 viewers", len(e.sent))
	}
}

func TestReloadRecomputesPlaceholders(t *testing.T) {
	e := newEnv(t)
	if got := e.tab.UsedPlaceholders(); len(got) != 3 {
		t.Fatalf("used = %v", got)
	}
	cfg, err := config.Parse([]byte("groups:\n  _OTHER_:\n    tabprefix: \"%ping% \"\n"))
	if err != nil {
		t.Fatal(err)
	}
	e.m.Reload(cfg)
	if got := e.tab.UsedPlaceholders(); len(got) != 1 || got[0] != "%ping%" {
		t.Fatalf("used after reload = %v", got)
	}
	if e.tab.IsDisabledWorld("lobby") {
		t.Fatalf("disabled worlds not reloaded")
	}
}

type movingWidth struct{ moved bool }

func (*movingWidth) Tag() feature.Tag { return feature.AlignedSuffix }

func (*movingWidth) FixTextWidth(p *player.Player, leading, trailing string) string {
	return trailing
}

func (m *movingWidth) UpdateWidth() bool { return m.moved }

func TestWidthChangeRealignsEveryone(t *testing.T) {
	e := newEnv(t)
	a := e.join("A", version.V1_12_2, "world")
	b := e.join("B", version.V1_12_2, "world")
	e.join("L", version.V1_12_2, "lobby")
	mw := &movingWidth{moved: true}
	e.m.Register(mw)
	e.reset()

	e.tab.Refresh(a, true)
	if len(e.sent) != 3 {
		t.Fatalf("sent %d packets, want one per viewer", len(e.sent))
	}
	_, entries := decode(t, e.sentTo(b)[0])
	if len(entries) != 2 || entries[0].id != a.TablistUUID || entries[1].id != b.TablistUUID {
		t.Fatalf("entries = %+v", entries)
	}

	mw.moved = false
	e.reset()
	e.tab.Refresh(a, true)
	if _, entries := decode(t, e.sentTo(b)[0]); len(entries) != 1 {
		t.Fatalf("unmoved width sent %d entries", len(entries))
	}

	mw.moved = true
	e.reset()
	e.m.OnQuit(b)
	toA := e.sentTo(a)
	if len(toA) != 1 || len(e.sent) != 2 {
		t.Fatalf("quit realign sent %d packets, %d to A", len(e.sent), len(toA))
	}
	if _, entries := decode(t, toA[0]); len(entries) != 1 || entries[0].id != a.TablistUUID {
		t.Fatalf("entries = %+v", entries)
	}
}
