package player

import (
	"crypto/md5"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/MONDERASDOR/SaverTab/version"
)

// DefaultGroup is used for players the host did not assign a group to.
const DefaultGroup = "_OTHER_"

// Player represents a connected player
type Player struct {
	UUID uuid.UUID
	// TablistUUID is the id clients know the player by in the tab list. It
	// differs from UUID when a proxy rewrites ids.
	TablistUUID uuid.UUID
	Name        string
	Version     version.Version

	conn    io.Writer
	writeMu sync.Mutex

	mu         sync.RWMutex
	group      string
	world      string
	latency    int
	gameMode   int
	properties map[string]*Property

	connected atomic.Bool
}

// New creates a connected player. conn may be nil when packets are delivered
// by other means.
func New(id uuid.UUID, name string, v version.Version, conn io.Writer) *Player {
	p := &Player{
		UUID:        id,
		TablistUUID: id,
		Name:        name,
		Version:     v,
		conn:        conn,
		group:       DefaultGroup,
		properties:  make(map[string]*Property),
	}
	p.connected.Store(true)
	return p
}

// OfflineUUID generates a valid offline-mode UUID for a username
func OfflineUUID(username string) uuid.UUID {
	data := []byte("OfflinePlayer:" + username)
	hash := md5.Sum(data)
	hash[6] = (hash[6] & 0x0f) | 0x30 // version 3
	hash[8] = (hash[8] & 0x3f) | 0x80 // variant is 10
	return uuid.UUID(hash)
}

func (p *Player) Connected() bool { return p.connected.Load() }

// Write sends raw bytes on the player's connection. Writes from concurrent
// senders are serialized so frames never interleave.
func (p *Player) Write(b []byte) error {
	if p.conn == nil || !p.Connected() {
		return nil
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := p.conn.Write(b)
	return err
}

func (p *Player) World() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.world
}

// SetWorld moves the player and returns the world it left.
func (p *Player) SetWorld(world string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	from := p.world
	p.world = world
	return from
}

func (p *Player) Group() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.group
}

func (p *Player) SetGroup(group string) {
	p.mu.Lock()
	p.group = group
	p.mu.Unlock()
}

func (p *Player) Latency() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latency
}

func (p *Player) SetLatency(ms int) {
	p.mu.Lock()
	p.latency = ms
	p.mu.Unlock()
}

func (p *Player) GameMode() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gameMode
}

func (p *Player) SetGameMode(mode int) {
	p.mu.Lock()
	p.gameMode = mode
	p.mu.Unlock()
}

// Property returns a loaded property or nil if it was never loaded.
func (p *Player) Property(key string) *Property {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.properties[key]
}

// LoadProperty sets the raw value of a property, creating it on first use.
// It reports whether the resolved value changed.
// Resolving reads the player's own state, so it never runs under p.mu.
func (p *Player) LoadProperty(key, raw string, r TextResolver) bool {
	p.mu.RLock()
	prop, ok := p.properties[key]
	p.mu.RUnlock()
	if ok {
		return prop.ChangeRaw(raw)
	}
	created := newProperty(p, raw, r)
	p.mu.Lock()
	if prop, ok = p.properties[key]; !ok {
		p.properties[key] = created
	}
	p.mu.Unlock()
	if ok {
		return prop.ChangeRaw(raw)
	}
	return true
}
