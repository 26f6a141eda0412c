package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/feature"
	"github.com/MONDERASDOR/SaverTab/feature/tablist"
	"github.com/MONDERASDOR/SaverTab/player"
	"github.com/MONDERASDOR/SaverTab/protocol"
	"github.com/MONDERASDOR/SaverTab/version"
)

const (
	idleTimeout  = 30 * time.Second
	defaultWorld = "world"
	maxPlayers   = 20
)

// Packet ids of 1.12.2, the only version the demo world supports. Status
// pings are answered for every version.
const (
	loginDisconnectID = 0x00
	serverboundChat   = 0x02
	joinGameID        = 0x23
	positionAndLook   = 0x2F
	loginSuccessID    = 0x02
	statusResponseID  = 0x00
	pongID            = 0x01
)

// hostTag marks packets the server sends on its own behalf.
const hostTag feature.Tag = "host"

type ServerStatus struct {
	Version     VersionInfo `json:"version"`
	Players     PlayersInfo `json:"players"`
	Description Chat        `json:"description"`
}

type VersionInfo struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

type PlayersInfo struct {
	Max    int `json:"max"`
	Online int `json:"online"`
}

type Chat struct {
	Text string `json:"text"`
}

type server struct {
	features   *feature.Manager
	configPath string
}

func (s *server) handleConn(conn net.Conn) {
	defer conn.Close()
	var state = 0 // 0 = handshake, 1 = status, 2 = login, 3 = play
	var clientVersion version.Version
	var protocolVersion int
	var pl *player.Player
	defer func() {
		if pl != nil {
			s.quit(pl)
		}
	}()
	for {
		conn.SetDeadline(time.Now().Add(idleTimeout))
		pk, err := protocol.ReadPacket(conn)
		if err != nil {
			return
		}
		r := bytes.NewReader(pk.Data)
		switch {
		case state == 0 && pk.ID == 0x00:
			// Handshake
			protocolVersion, _ = protocol.ReadVarInt(r)
			_, _ = protocol.ReadString(r)          // server address
			_, _ = protocol.ReadUnsignedShort(r)   // server port
			nextState, _ := protocol.ReadVarInt(r) // 1 status, 2 login
			clientVersion = version.FromProtocol(protocolVersion)
			if nextState == 1 || nextState == 2 {
				state = nextState
			}
		case state == 1 && pk.ID == 0x00:
			s.writeStatus(conn, clientVersion, protocolVersion)
		case state == 1 && pk.ID == 0x01:
			// Ping
			protocol.WritePacket(conn, pongID, pk.Data)
			return
		case state == 2 && pk.ID == 0x00:
			// Login Start
			username, err := protocol.ReadString(r)
			if err != nil {
				return
			}
			if clientVersion != version.V1_12_2 {
				log.Printf("Rejecting login of %s from %s: protocol %d", username, conn.RemoteAddr(), protocolVersion)
				writeLoginDisconnect(conn, fmt.Sprintf("The demo world needs %s", version.V1_12_2))
				return
			}
			newPlayer := player.New(player.OfflineUUID(username), username, clientVersion, conn)
			if err := writeLoginSuccess(conn, newPlayer); err != nil {
				return
			}
			if err := writeSpawn(conn); err != nil {
				return
			}
			pl = newPlayer
			s.join(pl)
			state = 3
		case state == 3 && pk.ID == serverboundChat:
			msg, _ := protocol.ReadString(r)
			s.handleChat(pl, msg)
		}
	}
}

func (s *server) writeStatus(w io.Writer, v version.Version, protocolVersion int) error {
	if v == version.Unknown {
		v, protocolVersion = version.V1_12_2, version.V1_12_2.Protocol()
	}
	status := ServerStatus{
		Version: VersionInfo{
			Name:     v.String(),
			Protocol: protocolVersion,
		},
		Players: PlayersInfo{
			Max:    maxPlayers,
			Online: s.features.Context().Roster.Len(),
		},
		Description: Chat{Text: "§bSaverTab: Go tab list server"},
	}
	b, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return protocol.WritePacket(w, statusResponseID, protocol.WriteString(string(b)))
}

func writeLoginSuccess(w io.Writer, pl *player.Player) error {
	data := protocol.WriteString(pl.UUID.String())
	data = append(data, protocol.WriteString(pl.Name)...)
	return protocol.WritePacket(w, loginSuccessID, data)
}

func writeLoginDisconnect(w io.Writer, reason string) error {
	b, err := json.Marshal(Chat{Text: reason})
	if err != nil {
		return err
	}
	return protocol.WritePacket(w, loginDisconnectID, protocol.WriteString(string(b)))
}

// writeSpawn puts a 1.12.2 client into an empty world.
func writeSpawn(w io.Writer) error {
	entityID := int32(time.Now().UnixNano() & 0x7fffffff)
	joinBuf := new(bytes.Buffer)
	binary.Write(joinBuf, binary.BigEndian, entityID)  // Entity ID (int32)
	joinBuf.WriteByte(1)                               // Gamemode (byte)
	binary.Write(joinBuf, binary.BigEndian, int32(0))  // Dimension (int32)
	joinBuf.WriteByte(0)                               // Difficulty (byte)
	joinBuf.WriteByte(maxPlayers)                      // Max players (byte)
	joinBuf.Write(protocol.WriteString("default"))     // Level type
	joinBuf.WriteByte(0)                               // Reduced debug info
	if err := protocol.WritePacket(w, joinGameID, joinBuf.Bytes()); err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, float64(0))  // X
	binary.Write(buf, binary.BigEndian, float64(65)) // Y
	binary.Write(buf, binary.BigEndian, float64(0))  // Z
	binary.Write(buf, binary.BigEndian, float32(0))  // Yaw
	binary.Write(buf, binary.BigEndian, float32(0))  // Pitch
	buf.WriteByte(0x00)                              // Flags: 0 = absolute position
	buf.Write(protocol.WriteVarInt(1))               // Teleport ID
	return protocol.WritePacket(w, positionAndLook, buf.Bytes())
}

func entryOf(p *player.Player) protocol.PlayerInfoEntry {
	return protocol.PlayerInfoEntry{
		UUID:     p.TablistUUID,
		Name:     p.Name,
		GameMode: p.GameMode(),
		Latency:  p.Latency(),
	}
}

// join adds pl to the tab list of everyone and everyone to pl's.
func (s *server) join(pl *player.Player) {
	pl.SetWorld(defaultWorld)
	pl.SetGameMode(1)
	s.features.OnJoin(pl)
	log.Printf("%s joined with %s", pl.Name, pl.Version)

	roster := s.features.Context().Roster
	var all []protocol.PlayerInfoEntry
	for _, other := range roster.Players() {
		all = append(all, entryOf(other))
		if other != pl {
			s.features.SendPacket(other, protocol.NewPlayerInfo(protocol.AddPlayer, entryOf(pl)), hostTag)
		}
	}
	s.features.SendPacket(pl, protocol.NewPlayerInfo(protocol.AddPlayer, all...), hostTag)
	s.features.SendMessage(pl, fmt.Sprintf("&bWelcome &f%s&b, %d online", pl.Name, roster.Len()), protocol.SystemMessage, hostTag)
}

func (s *server) quit(pl *player.Player) {
	s.features.OnQuit(pl)
	log.Printf("%s left", pl.Name)
	for _, other := range s.features.Context().Roster.Players() {
		s.features.SendPacket(other, protocol.NewPlayerInfo(protocol.RemovePlayer, protocol.PlayerInfoEntry{UUID: pl.TablistUUID}), hostTag)
	}
}

// handleChat runs the few commands the demo server understands.
func (s *server) handleChat(pl *player.Player, msg string) {
	fields := strings.Fields(msg)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return
	}
	reply := func(text string) { s.features.SendMessage(pl, text, protocol.SystemMessage, hostTag) }
	switch fields[0] {
	case "/world":
		if len(fields) != 2 {
			reply("&cUsage: /world <name>")
			return
		}
		s.features.OnWorldChange(pl, fields[1])
		reply("&aMoved to " + fields[1])
	case "/group":
		if len(fields) != 2 {
			reply("&cUsage: /group <name>")
			return
		}
		pl.SetGroup(fields[1])
		if f, ok := s.features.Get(feature.TablistNames).(*tablist.Feature); ok {
			f.Refresh(pl, true)
		}
		reply("&aGroup set to " + fields[1])
	case "/reload":
		cfg, err := config.Load(s.configPath)
		if err != nil {
			reply("&cReload failed: " + err.Error())
			return
		}
		registerFeatures(s.features, cfg)
		s.features.Reload(cfg)
		reply("&aConfiguration reloaded")
	default:
		reply("&cUnknown command")
	}
}
