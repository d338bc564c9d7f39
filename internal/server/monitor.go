package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/snoozemc/snoozemc/internal/mc"
	"github.com/snoozemc/snoozemc/protocol"
)

var monLog = log.WithField("subsystem", "monitor")

const (
	// Poll cadence while the server is starting or sleeping.
	monitorInterval = 2 * time.Second

	// Poll cadence once the server answers probes.
	monitorIntervalStarted = 10 * time.Second

	probeConnectTimeout = 10 * time.Second
	statusTimeout       = 20 * time.Second
	pingTimeout         = 10 * time.Second

	// Consecutive failed probes in Started before the server is
	// considered crashed.
	unreachableThreshold = 3
)

// probeResult is the aggregate of one probe ladder pass.
type probeResult struct {
	reachable    bool
	status       *protocol.ServerStatus
	players      int
	playersKnown bool
}

// Monitor polls the backend and feeds results into the server state
// machine until ctx is cancelled.
func (s *Server) Monitor(ctx context.Context) {
	unreachable := 0

	for {
		interval := monitorInterval
		if s.State() == Started {
			interval = monitorIntervalStarted
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		result := s.probe()
		switch {
		case result.reachable:
			unreachable = 0
			s.updateProbe(result.status, result.playersKnown, result.players)

			if s.State() == Starting {
				monLog.Info("Server responded to probe, marking as started")
				s.propose(Starting, Started)
			}

		default:
			s.updateProbe(nil, false, 0)
			if s.State() == Started {
				unreachable++
				monLog.WithField("failures", unreachable).Debug("Server did not respond to probe")
				if unreachable >= unreachableThreshold {
					monLog.Error("Server stopped responding, marking as crashed")
					unreachable = 0
					s.propose(Started, Crashed)
				}
			} else {
				unreachable = 0
			}
		}

		if s.shouldSleep() {
			monLog.Info("Server has been idle, sleeping")
			s.RequestStop()
		}

		if s.shouldKill() {
			monLog.Error("Force killing server, took too long to start or stop")
			if !s.forceKill() {
				monLog.Warn("Failed to force kill server")
			}
		}
	}
}

// probe walks the detection ladder: status request, ping fallback, and
// RCON list for player counts when status is unavailable or omits them.
func (s *Server) probe() probeResult {
	if s.State() == Stopped || s.State() == Crashed {
		// No point dialing a server we know is down; a frozen process
		// cannot answer either.
		if s.processResident() {
			return probeResult{}
		}
	}

	status, playersKnown, players, err := s.fetchStatus()
	if err == nil {
		result := probeResult{
			reachable:    true,
			status:       status,
			players:      players,
			playersKnown: playersKnown,
		}

		// The status omitted the player count; RCON may still know it.
		if !playersKnown && s.cfg.RCON.Enabled {
			if count, err := s.RconPlayers(); err == nil {
				result.players = count
				result.playersKnown = true
			}
		}
		return result
	}

	// Status failed. Try the cheaper ping to tell dead from degraded.
	switch s.State() {
	case Starting, Started:
		if s.ping() == nil {
			monLog.Debug("Status probe failed but ping succeeded")
			result := probeResult{reachable: true}

			// Status polling is broken; RCON can still tell us whether
			// players are online so we don't sleep under them.
			if s.cfg.RCON.Enabled {
				if count, err := s.RconPlayers(); err == nil {
					result.players = count
					result.playersKnown = true
				} else {
					monLog.WithError(err).Warn("RCON player count query failed")
				}
			}
			return result
		}
	}

	return probeResult{}
}

func (s *Server) processResident() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.process != nil && s.process.Frozen()
}

// fetchStatus performs a status request against the backend.
func (s *Server) fetchStatus() (*protocol.ServerStatus, bool, int, error) {
	conn, err := s.dialBackend()
	if err != nil {
		return nil, false, 0, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(statusTimeout))

	mcConn := protocol.NewConn(conn)
	if err := s.writeProbeHandshake(mcConn, conn); err != nil {
		return nil, false, 0, err
	}
	if err := mcConn.WritePacket(&protocol.StatusRequest{}); err != nil {
		return nil, false, 0, err
	}

	for {
		id, payload, _, err := mcConn.ReadFrame()
		if err != nil {
			return nil, false, 0, err
		}
		if id != 0x00 {
			continue
		}

		return parseStatusPayload(payload)
	}
}

// ping round-trips a ping request with a random token.
func (s *Server) ping() error {
	conn, err := s.dialBackend()
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(pingTimeout))

	mcConn := protocol.NewConn(conn)
	if err := s.writeProbeHandshake(mcConn, conn); err != nil {
		return err
	}

	token := protocol.Long(rand.Int63())
	if err := mcConn.WritePacket(&protocol.PingRequest{Payload: token}); err != nil {
		return err
	}

	for {
		packet, err := mcConn.ReadPacket(&protocol.PongResponse{})
		if err != nil {
			return err
		}

		if pong := packet.(*protocol.PongResponse); pong.Payload == token {
			return nil
		}
		monLog.Debug("Got unmatched ping response when polling server status")
	}
}

func (s *Server) dialBackend() (net.Conn, error) {
	return net.DialTimeout("tcp", s.cfg.Server.Address, probeConnectTimeout)
}

func (s *Server) writeProbeHandshake(mcConn *protocol.Conn, conn net.Conn) error {
	if s.cfg.Server.SendProxyV1 {
		if err := mcConn.WriteRaw([]byte(mc.LocalProxyV1Header(conn))); err != nil {
			return err
		}
	}

	host, port, _ := net.SplitHostPort(s.cfg.Server.Address)
	portNum, _ := strconv.Atoi(port)

	return mcConn.WritePacket(&protocol.HandshakeIntention{
		ProtocolVersion: protocol.VarInt(s.cfg.Public.Protocol),
		ServerAddress:   protocol.String255(host),
		ServerPort:      protocol.UShort(portNum),
		NextState:       protocol.NextStateStatus,
	})
}

// parseStatusPayload decodes a status response payload: a VarInt-prefixed
// JSON string. Strict decoding is tried first; servers returning
// non-conformant JSON (description as object, missing player counts) are
// handled by a tolerant extraction pass.
func parseStatusPayload(payload []byte) (*protocol.ServerStatus, bool, int, error) {
	reader := bytes.NewReader(payload)
	var str protocol.String
	if err := str.ReadBytesFrom(reader); err != nil {
		return nil, false, 0, err
	}
	jsonBytes := []byte(str)

	var root map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &root); err != nil {
		return nil, false, 0, fmt.Errorf("%w: status response is not JSON", protocol.ErrMalformed)
	}

	var status protocol.ServerStatus
	if err := json.Unmarshal(jsonBytes, &status); err != nil {
		// Non-conformant field types; extract what we can.
		monLog.Debug("Used lenient JSON parsing for server status")
		status = lenientStatus(root)
	}

	players, playersKnown := lookupNumber(root, "players", "online")
	if playersKnown {
		status.Players.Online = players
	}

	return &status, playersKnown, players, nil
}

// lenientStatus pulls status fields out of arbitrary JSON, defaulting
// whatever is missing.
func lenientStatus(root map[string]interface{}) protocol.ServerStatus {
	var status protocol.ServerStatus

	if name, ok := lookupString(root, "version", "name"); ok {
		status.Version.Name = name
	} else {
		status.Version.Name = "Unknown"
	}
	if proto, ok := lookupNumber(root, "version", "protocol"); ok {
		status.Version.Protocol = proto
	}

	if max, ok := lookupNumber(root, "players", "max"); ok {
		status.Players.Max = max
	}
	if online, ok := lookupNumber(root, "players", "online"); ok {
		status.Players.Online = online
	}

	if desc, ok := root["description"]; ok {
		if data, err := json.Marshal(desc); err == nil {
			status.Description = data
		}
	}

	if favicon, ok := root["favicon"].(string); ok {
		status.Favicon = favicon
	}

	return status
}

func lookup(root map[string]interface{}, keys ...string) (interface{}, bool) {
	var value interface{} = root
	for _, key := range keys {
		table, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		value, ok = table[key]
		if !ok {
			return nil, false
		}
	}
	return value, true
}

func lookupNumber(root map[string]interface{}, keys ...string) (int, bool) {
	value, ok := lookup(root, keys...)
	if !ok {
		return 0, false
	}
	number, ok := value.(float64)
	if !ok {
		return 0, false
	}
	return int(number), true
}

func lookupString(root map[string]interface{}, keys ...string) (string, bool) {
	value, ok := lookup(root, keys...)
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}
