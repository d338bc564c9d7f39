package proxy

import (
	"errors"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/snoozemc/snoozemc/internal/config"
	"github.com/snoozemc/snoozemc/internal/mc"
	"github.com/snoozemc/snoozemc/internal/server"
	"github.com/snoozemc/snoozemc/protocol"
)

// serveStatus impersonates the server for a status connection while the
// backend is not ready: status requests get the configured MOTD for the
// current state, pings are echoed.
func (r *Router) serveStatus(conn *protocol.Conn, handshake *protocol.HandshakeIntention, connLog *log.Entry) error {
	for {
		packet, err := conn.ReadPacket(
			&protocol.StatusRequest{},
			&protocol.PingRequest{},
		)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch packet := packet.(type) {
		case *protocol.StatusRequest:
			response := r.statusResponse(handshake)
			if err := conn.WritePacket(response); err != nil {
				return err
			}

		case *protocol.PingRequest:
			pong := protocol.PongResponse{Payload: packet.Payload}
			if err := conn.WritePacket(&pong); err != nil {
				return err
			}
			connLog.Debug("Answered ping while server is asleep")
			return nil
		}
	}
}

// statusResponse builds the impersonated status. The client's own
// protocol version is echoed back so the MOTD always renders as a
// compatible server.
func (r *Router) statusResponse(handshake *protocol.HandshakeIntention) *protocol.StatusResponse {
	var response protocol.StatusResponse
	status := &response.JSONResponse

	status.Version.Name = r.cfg.Public.Version
	status.Version.Protocol = int(handshake.ProtocolVersion)
	status.Players.Online = 0
	status.Players.Max = 0
	status.SetDescription(protocol.NewChat(r.motd()))

	if cached := r.srv.CachedStatus(); cached != nil {
		status.Players.Max = cached.Players.Max
		if cached.Favicon != "" {
			status.Favicon = cached.Favicon
		}
		if r.cfg.MOTD.FromServer {
			status.Description = cached.Description
			status.Version.Name = cached.Version.Name
		}
	}

	if r.favicon != "" {
		status.Favicon = r.favicon
	}

	return &response
}

func (r *Router) motd() string {
	switch r.srv.State() {
	case server.Starting:
		return r.cfg.MOTD.Starting
	case server.Stopping:
		return r.cfg.MOTD.Stopping
	default:
		return r.cfg.MOTD.Sleeping
	}
}

// loadFavicon resolves the configured favicon once at startup.
func loadFavicon(cfg *config.Config) string {
	if cfg.Public.Favicon == "" {
		return ""
	}

	icon, err := mc.LoadFavicon(cfg.Public.Favicon)
	if err != nil {
		log.WithError(err).Warn("Failed to load favicon")
		return ""
	}
	return icon
}
