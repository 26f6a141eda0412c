package config

import (
	"reflect"
	"testing"
	"time"
)

const sample = `
placeholder-refresh-interval-ms: 250
disable-features-in-worlds:
  tablist-names: [lobby]
custom-placeholders:
  "%rank%": "&c%group%%tag%"
  "%tag%": "%rank% %ping%"
groups:
  _OTHER_:
    tabprefix: "&7"
  admin:
    tabprefix: "%rank% "
users:
  Notch:
    tabsuffix: " &6%world%"
per-world:
  nether:
    groups:
      admin:
        tabprefix: "&4[Nether] "
    users:
      Notch:
        customtabname: "%player%!"
`

func TestParseAndLookup(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if c.RefreshInterval() != 250*time.Millisecond {
		t.Fatalf("RefreshInterval = %v", c.RefreshInterval())
	}
	if got := c.DisabledWorlds(DisableTablistNames); !reflect.DeepEqual(got, []string{"lobby"}) {
		t.Fatalf("DisabledWorlds = %v", got)
	}
	tests := []struct {
		name, group, world, key string
		want                    string
		ok                      bool
	}{
		{"Steve", "default", "world", TabPrefix, "&7", true},
		{"Steve", "admin", "world", TabPrefix, "%rank% ", true},
		{"Steve", "admin", "nether", TabPrefix, "&4[Nether] ", true},
		{"Notch", "admin", "world", TabSuffix, " &6%world%", true},
		{"Notch", "admin", "nether", CustomTabName, "%player%!", true},
		{"Steve", "admin", "world", CustomTabName, "", false},
	}
	for _, tt := range tests {
		got, ok := c.Property(tt.name, tt.group, tt.world, tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Property(%s,%s,%s,%s) = %q,%v want %q,%v", tt.name, tt.group, tt.world, tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestUsedPlaceholderIdentifiersRecursive(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	got := c.UsedPlaceholderIdentifiersRecursive(TabPrefix, CustomTabName, TabSuffix)
	want := []string{"%group%", "%ping%", "%player%", "%rank%", "%tag%", "%world%"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if got := c.UsedPlaceholderIdentifiersRecursive(TabSuffix); !reflect.DeepEqual(got, []string{"%world%"}) {
		t.Fatalf("suffix only: %v", got)
	}
}

func TestDefaultAndStore(t *testing.T) {
	s := NewStore(Default())
	if s.Get().RefreshInterval() != defaultRefreshInterval {
		t.Fatalf("unexpected default interval")
	}
	c, _ := Parse([]byte("enable-nametags: true"))
	s.Set(c)
	if !s.Get().EnableNametags {
		t.Fatalf("store not updated")
	}
	if _, ok := s.Get().Property("x", "y", "z", TabPrefix); !ok {
		t.Fatalf("defaults lost when parsing a partial file")
	}
}
