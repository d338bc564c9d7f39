// Package lobby keeps a joining client in a minimal fake world while the
// real server starts, then transfers it.
package lobby

import (
	"context"
	"crypto/md5"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/snoozemc/snoozemc/internal/config"
	"github.com/snoozemc/snoozemc/internal/server"
	"github.com/snoozemc/snoozemc/protocol"
)

var lobbyLog = log.WithField("subsystem", "lobby")

// MinProtocol is the lowest protocol version the lobby supports. Older
// clients fall back to the next join method.
const MinProtocol = 765

const (
	messageInterval   = 5 * time.Second
	keepAliveInterval = 10 * time.Second

	// Grace period for the client to act on the transfer packet.
	transferGrace = 5 * time.Second
)

// Session is one client held in the lobby.
type Session struct {
	cfg  *config.Config
	srv  *server.Server
	conn *protocol.Conn

	username     string
	transferHost string
	transferPort int

	log *log.Entry
}

func NewSession(cfg *config.Config, srv *server.Server, conn *protocol.Conn, username, transferHost string, transferPort int) *Session {
	return &Session{
		cfg:  cfg,
		srv:  srv,
		conn: conn,

		username:     username,
		transferHost: transferHost,
		transferPort: transferPort,

		log: lobbyLog.WithField("username", username),
	}
}

// Serve runs the lobby session: completes login, walks the configuration
// phase, spawns the client into a void world, and keeps it entertained
// until the server is ready or the lobby times out.
func (s *Session) Serve(ctx context.Context) error {
	s.log.Info("Serving lobby world while server starts")

	if err := s.completeLogin(); err != nil {
		return err
	}
	if err := s.completeConfiguration(); err != nil {
		return err
	}
	if err := s.spawnPlayer(); err != nil {
		return err
	}

	return s.occupy(ctx)
}

func (s *Session) completeLogin() error {
	success := protocol.LoginSuccess{
		UUID:     OfflineUUID(s.username),
		Username: protocol.String255(s.username),
	}
	if err := s.conn.WritePacket(&success); err != nil {
		return err
	}

	// Wait for login acknowledged.
	_, err := s.awaitFrame(0x03)
	return err
}

func (s *Session) completeConfiguration() error {
	registry := protocol.RegistryData{Data: registryCodec()}
	if err := s.conn.WritePacket(&registry); err != nil {
		return err
	}

	flags := protocol.FeatureFlags{Flags: []protocol.Identifier{"minecraft:vanilla"}}
	if err := s.conn.WritePacket(&flags); err != nil {
		return err
	}

	if err := s.conn.WritePacket(&protocol.FinishConfiguration{}); err != nil {
		return err
	}

	// Wait for acknowledge finish configuration, skipping client
	// information and plugin messages.
	_, err := s.awaitFrame(0x02)
	return err
}

func (s *Session) spawnPlayer() error {
	join := protocol.JoinGame{
		EntityID:            1,
		DimensionNames:      []protocol.Identifier{"minecraft:overworld"},
		MaxPlayers:          20,
		ViewDistance:        2,
		SimulationDistance:  2,
		EnableRespawnScreen: true,
		DimensionType:       "minecraft:overworld",
		DimensionName:       "minecraft:overworld",
		GameMode:            3,
		PreviousGameMode:    -1,
	}
	if err := s.conn.WritePacket(&join); err != nil {
		return err
	}

	// Start waiting for level chunks, or the client never leaves the
	// loading screen.
	if err := s.conn.WritePacket(&protocol.GameEvent{Event: 13}); err != nil {
		return err
	}

	position := protocol.PlayerPosition{Y: 128, TeleportID: 1}
	if err := s.conn.WritePacket(&position); err != nil {
		return err
	}

	if err := s.conn.WritePacket(&protocol.SetCenterChunk{}); err != nil {
		return err
	}

	return s.conn.WritePacket(emptyChunk(0, 0))
}

// occupy loops chat banners and keep-alives until the server is ready,
// the lobby times out, or the client leaves.
func (s *Session) occupy(ctx context.Context) error {
	disconnected := make(chan error, 1)
	go s.drainClient(disconnected)

	ready := make(chan bool, 1)
	go func() {
		timeout := time.Duration(s.cfg.Join.Lobby.Timeout) * time.Second
		ready <- s.srv.AwaitStarted(ctx, timeout)
	}()

	message := time.NewTicker(messageInterval)
	defer message.Stop()
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	if err := s.sendMessage(s.cfg.Join.Lobby.Message); err != nil {
		return err
	}

	var keepAliveID protocol.Long
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-disconnected:
			s.log.Info("Client left the lobby")
			return err

		case <-message.C:
			if err := s.sendMessage(s.cfg.Join.Lobby.Message); err != nil {
				return err
			}

		case <-keepAlive.C:
			keepAliveID++
			ka := protocol.PlayKeepAlive{KeepAliveID: keepAliveID}
			if err := s.conn.WritePacket(&ka); err != nil {
				return err
			}

		case ok := <-ready:
			if !ok {
				s.log.Info("Lobby timed out before the server was ready")
				return s.disconnect(s.cfg.Join.Kick.Starting)
			}
			return s.transfer()
		}
	}
}

// transfer hands the client over to the real server.
func (s *Session) transfer() error {
	s.log.Info("Server is ready, transferring client")

	if err := s.sendMessage("Server is ready, sending you over"); err != nil {
		return err
	}

	packet := protocol.Transfer{
		Host: protocol.String255(s.transferHost),
		Port: protocol.VarInt(s.transferPort),
	}
	if err := s.conn.WritePacket(&packet); err != nil {
		return err
	}

	// Give the client a moment to reconnect before tearing down.
	time.Sleep(transferGrace)
	return nil
}

func (s *Session) disconnect(message string) error {
	packet := protocol.PlayDisconnect{Reason: protocol.NBTText(message)}
	return s.conn.WritePacket(&packet)
}

func (s *Session) sendMessage(message string) error {
	packet := protocol.SystemChat{Content: protocol.NBTText(message)}
	return s.conn.WritePacket(&packet)
}

// awaitFrame reads frames until one with the wanted id arrives.
func (s *Session) awaitFrame(id protocol.VarInt) ([]byte, error) {
	for {
		frameID, payload, _, err := s.conn.ReadFrame()
		if err != nil {
			return nil, err
		}
		if frameID == id {
			return payload, nil
		}
	}
}

// drainClient consumes serverbound packets for the rest of the session.
// Keep-alive echoes and player movement need no replies.
func (s *Session) drainClient(disconnected chan<- error) {
	for {
		if _, _, _, err := s.conn.ReadFrame(); err != nil {
			disconnected <- err
			return
		}
	}
}

// OfflineUUID derives the deterministic offline-mode UUID for a
// username: the MD5 of "OfflinePlayer:<name>" as a version 3 UUID.
func OfflineUUID(username string) protocol.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + username))
	sum[6] = sum[6]&0x0f | 0x30 // version 3
	sum[8] = sum[8]&0x3f | 0x80 // RFC 4122 variant
	return protocol.UUID(uuid.UUID(sum))
}

// emptyChunk builds a chunk with 24 empty sections and no light data.
func emptyChunk(x, z int32) *protocol.ChunkData {
	var sections []byte
	for range 24 {
		sections = append(sections,
			0x00, 0x00, // block count
			0x00, 0x00, 0x00, // block states: single-value palette, air
			0x00, 0x00, 0x00, // biomes: single-value palette
		)
	}

	return &protocol.ChunkData{
		ChunkX:     protocol.Int(x),
		ChunkZ:     protocol.Int(z),
		Heightmaps: protocol.RawNBT{tagCompound, tagEnd},
		Data:       sections,
		// No block entities, empty light masks and arrays.
		Tail: []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	}
}
