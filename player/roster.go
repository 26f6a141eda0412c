package player

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Roster is the set of connected players. Mutations are serialized with
// iteration so a broadcast never sees a player that is being torn down.
type Roster struct {
	mu        sync.RWMutex
	order     []*Player
	byUUID    map[uuid.UUID]*Player
	byTablist map[uuid.UUID]*Player
}

func NewRoster() *Roster {
	return &Roster{
		byUUID:    make(map[uuid.UUID]*Player),
		byTablist: make(map[uuid.UUID]*Player),
	}
}

// Add registers p. A player already connected with the same id is replaced
// and returned.
func (r *Roster) Add(p *Player) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.removeLocked(p.UUID)
	r.order = append(r.order, p)
	r.byUUID[p.UUID] = p
	r.byTablist[p.TablistUUID] = p
	return old
}

// Remove disconnects and unregisters the player with the given id.
func (r *Roster) Remove(id uuid.UUID) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

func (r *Roster) removeLocked(id uuid.UUID) *Player {
	p, ok := r.byUUID[id]
	if !ok {
		return nil
	}
	p.connected.Store(false)
	delete(r.byUUID, id)
	delete(r.byTablist, p.TablistUUID)
	for i, o := range r.order {
		if o == p {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return p
}

func (r *Roster) ByTablistUUID(id uuid.UUID) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byTablist[id]
}

// ByName finds a player by name, ignoring case.
func (r *Roster) ByName(name string) *Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.order {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// Players returns a snapshot of connected players in join order.
func (r *Roster) Players() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Player(nil), r.order...)
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
