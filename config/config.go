// Package config loads the tab list configuration.
package config

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MONDERASDOR/SaverTab/placeholder"
	"github.com/MONDERASDOR/SaverTab/player"
)

// Property keys of the tab list name feature.
const (
	TabPrefix     = "tabprefix"
	CustomTabName = "customtabname"
	TabSuffix     = "tabsuffix"
)

// Feature keys of disable-features-in-worlds.
const DisableTablistNames = "tablist-names"

const defaultRefreshInterval = 500 * time.Millisecond

// Properties maps property keys to formatted text.
type Properties map[string]string

type worldSection struct {
	Groups map[string]Properties `yaml:"groups"`
	Users  map[string]Properties `yaml:"users"`
}

// Config is a parsed configuration. It is not modified after parsing;
// reloads produce a new Config.
type Config struct {
	EnableNametags     bool                    `yaml:"enable-nametags"`
	AlignedSuffix      bool                    `yaml:"aligned-suffix"`
	RefreshIntervalMs  int                     `yaml:"placeholder-refresh-interval-ms"`
	DisableInWorlds    map[string][]string     `yaml:"disable-features-in-worlds"`
	CustomPlaceholders map[string]string       `yaml:"custom-placeholders"`
	Groups             map[string]Properties   `yaml:"groups"`
	Users              map[string]Properties   `yaml:"users"`
	PerWorld           map[string]worldSection `yaml:"per-world"`
}

// Default is used when no configuration file exists.
func Default() *Config {
	return &Config{
		DisableInWorlds: map[string][]string{DisableTablistNames: {"disabledworld"}},
		Groups: map[string]Properties{
			player.DefaultGroup: {TabPrefix: "&7", TabSuffix: ""},
		},
	}
}

func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// RefreshInterval is how often placeholder values are re-evaluated.
func (c *Config) RefreshInterval() time.Duration {
	if c.RefreshIntervalMs <= 0 {
		return defaultRefreshInterval
	}
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

// DisabledWorlds returns the worlds where a feature is switched off.
func (c *Config) DisabledWorlds(feature string) []string {
	return c.DisableInWorlds[feature]
}

// Property finds the definition of key for a player, most specific first:
// per-world user, user, per-world group, group, per-world default group,
// default group.
func (c *Config) Property(name, group, world, key string) (string, bool) {
	ws := c.PerWorld[world]
	for _, props := range []Properties{
		ws.Users[name],
		c.Users[name],
		ws.Groups[group],
		c.Groups[group],
		ws.Groups[player.DefaultGroup],
		c.Groups[player.DefaultGroup],
	} {
		if v, ok := props[key]; ok {
			return v, true
		}
	}
	return "", false
}

// UsedPlaceholderIdentifiersRecursive lists every placeholder the given
// property keys can reach, following custom placeholders into their
// definitions.
func (c *Config) UsedPlaceholderIdentifiersRecursive(keys ...string) []string {
	seen := make(map[string]bool)
	var visit func(text string)
	visit = func(text string) {
		for _, id := range placeholder.Identifiers(text) {
			if seen[id] {
				continue
			}
			seen[id] = true
			if def, ok := c.CustomPlaceholders[id]; ok {
				visit(def)
			}
		}
	}
	sections := []map[string]Properties{c.Groups, c.Users}
	for _, ws := range c.PerWorld {
		sections = append(sections, ws.Groups, ws.Users)
	}
	for _, section := range sections {
		for _, props := range section {
			for _, key := range keys {
				visit(props[key])
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Store holds the active configuration and is safe for concurrent use.
type Store struct {
	p atomic.Pointer[Config]
}

func NewStore(c *Config) *Store {
	s := &Store{}
	s.Set(c)
	return s
}

func (s *Store) Get() *Config { return s.p.Load() }

func (s *Store) Set(c *Config) { s.p.Store(c) }
