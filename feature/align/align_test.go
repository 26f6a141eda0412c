package align

import (
	"strings"
	"testing"

	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/feature"
	"github.com/MONDERASDOR/SaverTab/placeholder"
	"github.com/MONDERASDOR/SaverTab/player"
	"github.com/MONDERASDOR/SaverTab/version"
)

func TestTextWidth(t *testing.T) {
	for _, c := range []struct {
		text string
		want int
	}{
		{"", 0},
		{"il", 5},
		{"A", 6},
		{"§lA", 7},
		{"§cI§r t", 4 + 4 + 4},
		{"世界", 18},
		{"§x§f§f§0§0§0§0ab", 12},
	} {
		if got := TextWidth(c.text); got != c.want {
			t.Errorf("TextWidth(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestPadding(t *testing.T) {
	for n := Gap; n < Gap+40; n++ {
		if got := TextWidth(padding(n)); got != n {
			t.Fatalf("padding(%d) is %d pixels wide", n, got)
		}
	}
}

func newPlayer(roster *player.Roster, ph *placeholder.Manager, name, prefix string) *player.Player {
	p := player.New(player.OfflineUUID(name), name, version.V1_12_2, nil)
	p.LoadProperty(config.TabPrefix, prefix, ph)
	p.LoadProperty(config.CustomTabName, name, ph)
	p.LoadProperty(config.TabSuffix, "", ph)
	roster.Add(p)
	return p
}

func TestSuffixesLineUp(t *testing.T) {
	roster := player.NewRoster()
	ph := placeholder.NewManager()
	f := New(&feature.Context{Roster: roster})
	steve := newPlayer(roster, ph, "Steve", "&l[Admin] ")
	al := newPlayer(roster, ph, "Al", "")
	wide := newPlayer(roster, ph, "Ii", "&7")

	want := -1
	for _, p := range []*player.Player{steve, al, wide} {
		leading := p.Property(config.TabPrefix).Get() + p.Property(config.CustomTabName).Get()
		out := f.FixTextWidth(p, leading, "§e100")
		if !strings.HasSuffix(out, "§e100") {
			t.Fatalf("suffix lost: %q", out)
		}
		got := TextWidth(leading + out)
		if want == -1 {
			want = got
		}
		if got != want {
			t.Fatalf("%s: width %d, want %d", p.Name, got, want)
		}
	}
	if f.FixTextWidth(al, "Al", "") != "" {
		t.Fatal("empty suffix padded")
	}
}

func TestUpdateWidth(t *testing.T) {
	roster := player.NewRoster()
	ph := placeholder.NewManager()
	f := New(&feature.Context{Roster: roster})
	newPlayer(roster, ph, "Al", "")
	if !f.UpdateWidth() {
		t.Fatal("first UpdateWidth reported no change")
	}
	if f.UpdateWidth() {
		t.Fatal("unchanged roster moved the column")
	}
	steve := newPlayer(roster, ph, "Steve", "")
	if !f.UpdateWidth() {
		t.Fatal("longer name did not move the column")
	}
	roster.Remove(steve.UUID)
	if !f.UpdateWidth() || f.MaxWidth() != TextWidth("Al") {
		t.Fatal("column did not shrink after the widest player left")
	}
}
