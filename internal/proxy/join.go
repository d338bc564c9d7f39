package proxy

import (
	"context"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/snoozemc/snoozemc/internal/config"
	"github.com/snoozemc/snoozemc/internal/lobby"
	"github.com/snoozemc/snoozemc/internal/mc"
	"github.com/snoozemc/snoozemc/internal/server"
	"github.com/snoozemc/snoozemc/protocol"
)

// joinRequest is a login-intent client with its handshake and login
// start packets buffered for verbatim replay.
type joinRequest struct {
	conn    *protocol.Conn
	netConn net.Conn

	handshake  *protocol.HandshakeIntention
	loginStart *protocol.LoginStart

	rawHandshake []byte
	rawLogin     []byte

	log *log.Entry
}

// dispatchJoin routes a joining client through the configured join
// methods until one terminally handles it.
func (r *Router) dispatchJoin(ctx context.Context, req joinRequest) {
	if r.cfg.Lockout.Enabled {
		req.log.Info("Rejecting client, lockout is enabled")
		r.kick(req, r.cfg.Lockout.Message)
		return
	}

	if r.srv.State() == server.Started {
		if err := r.spliceJoin(ctx, req); err != nil {
			req.log.WithError(err).Info("Connection to server ended")
		}
		return
	}

	req.log.Info("Client is waking the server")
	if !r.srv.Wake() {
		r.kick(req, r.cfg.Join.Kick.Stopping)
		return
	}

	for _, method := range r.cfg.Join.Methods {
		handled := r.tryJoinMethod(ctx, method, req)
		if handled {
			return
		}
	}

	req.log.WithError(errNoMethod).Info("Closing client connection")
}

// tryJoinMethod attempts one join method, reporting whether it
// terminally handled the client.
func (r *Router) tryJoinMethod(ctx context.Context, method string, req joinRequest) bool {
	switch method {
	case config.MethodHold:
		return r.holdJoin(ctx, req)

	case config.MethodKick:
		switch r.srv.State() {
		case server.Stopping:
			r.kick(req, r.cfg.Join.Kick.Stopping)
		default:
			r.kick(req, r.cfg.Join.Kick.Starting)
		}
		return true

	case config.MethodForward:
		r.forwardJoin(ctx, req)
		return true

	case config.MethodLobby:
		if req.conn.Version() < lobby.MinProtocol {
			req.log.Debug("Client protocol too old for lobby, trying next method")
			return false
		}
		r.lobbyJoin(ctx, req)
		return true

	default:
		return false
	}
}

// holdJoin keeps the connection open without sending a byte until the
// server is ready, then splices.
func (r *Router) holdJoin(ctx context.Context, req joinRequest) bool {
	timeout := time.Duration(r.cfg.Join.Hold.Timeout) * time.Second
	req.log.WithField("timeout", timeout).Info("Holding client while server starts")

	r.srv.OccupierAdd()
	ready := r.srv.AwaitStarted(ctx, timeout)
	r.srv.OccupierDone()

	if !ready {
		req.log.Info("Hold timed out, trying next join method")
		return false
	}

	if err := r.spliceJoin(ctx, req); err != nil {
		req.log.WithError(err).Info("Connection to server ended")
	}
	return true
}

// forwardJoin splices the client onto the forward address instead of the
// backend. Forwarding is terminal even when the target is down.
func (r *Router) forwardJoin(ctx context.Context, req joinRequest) {
	address := r.cfg.Join.Forward.Address
	req.log.WithField("address", address).Info("Forwarding client")

	backend, err := net.DialTimeout("tcp", address, spliceDialTimeout)
	if err != nil {
		req.log.WithError(err).Warn("Failed to connect to forward address")
		return
	}

	if r.cfg.Join.Forward.SendProxyV1 {
		header := mc.ProxyV1Header(req.netConn.RemoteAddr(), backend.RemoteAddr())
		if _, err := backend.Write([]byte(header)); err != nil {
			backend.Close()
			return
		}
	}

	r.srv.OccupierAdd()
	defer r.srv.OccupierDone()

	if err := req.conn.PipeTo(ctx, backend, req.rawHandshake, req.rawLogin); err != nil {
		req.log.WithError(err).Info("Forwarded connection ended")
	}
}

// lobbyJoin keeps the client in the fake lobby world until the server is
// ready, then transfers it.
func (r *Router) lobbyJoin(ctx context.Context, req joinRequest) {
	r.srv.OccupierAdd()
	defer r.srv.OccupierDone()

	// Transfer the client back to whatever address it dialed us on.
	session := lobby.NewSession(
		r.cfg, r.srv, req.conn,
		string(req.loginStart.Name),
		string(req.handshake.ServerAddress), int(req.handshake.ServerPort),
	)
	if err := session.Serve(ctx); err != nil {
		req.log.WithError(err).Info("Lobby session ended")
	}
}

// spliceJoin connects the client to the backend, replaying the buffered
// handshake and login start packets unchanged.
func (r *Router) spliceJoin(ctx context.Context, req joinRequest) error {
	req.log.Info("Connecting client to server")

	r.srv.MarkActive()
	return r.splice(ctx, req.conn, req.netConn, req.rawHandshake, req.rawLogin)
}

// splice dials the backend and copies bytes both ways, starting with the
// given buffered frames.
func (r *Router) splice(ctx context.Context, conn *protocol.Conn, netConn net.Conn, frames ...[]byte) error {
	backend, err := net.DialTimeout("tcp", r.cfg.Server.Address, spliceDialTimeout)
	if err != nil {
		return err
	}

	if r.cfg.Server.SendProxyV1 {
		header := mc.ProxyV1Header(netConn.RemoteAddr(), backend.RemoteAddr())
		if _, err := backend.Write([]byte(header)); err != nil {
			backend.Close()
			return err
		}
	}

	netConn.SetDeadline(time.Time{})
	return conn.PipeTo(ctx, backend, frames...)
}

func (r *Router) kick(req joinRequest, message string) {
	disconnect := protocol.LoginDisconnect{Reason: protocol.NewChat(message)}
	if err := req.conn.WritePacket(&disconnect); err != nil {
		req.log.WithError(err).Debug("Failed to send kick message")
	}
}
