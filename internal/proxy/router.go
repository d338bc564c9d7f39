package proxy

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/snoozemc/snoozemc/internal/config"
	"github.com/snoozemc/snoozemc/internal/server"
	"github.com/snoozemc/snoozemc/protocol"
)

var rtrLog = log.WithField("subsystem", "proxy")

const (
	// How long a client gets to complete handshake and login start.
	handshakeTimeout = 5 * time.Second

	// Backend dial timeout for splices.
	spliceDialTimeout = 10 * time.Second

	// Status requests allowed per source per second, against ping floods.
	statusRatePerSecond = 5
	statusRateBurst     = 10
)

type Router struct {
	cfg     *config.Config
	srv     *server.Server
	bans    *BanList
	favicon string

	active atomic.Int32

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRouter(cfg *config.Config, srv *server.Server) *Router {
	r := &Router{
		cfg:      cfg,
		srv:      srv,
		bans:     NewBanList(),
		favicon:  loadFavicon(cfg),
		limiters: make(map[string]*rate.Limiter),
	}

	if cfg.Server.BlockBannedIPs {
		if err := r.bans.Load(cfg.ServerDirectory()); err != nil {
			banLog.WithError(err).Warn("Failed to load ban list")
		}
	}

	return r
}

// Serve accepts client connections on the public address until ctx is
// cancelled.
func (r *Router) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", r.cfg.Public.Address)
	if err != nil {
		return err
	}

	return r.ServeListener(ctx, listener)
}

// ServeListener accepts client connections from an existing listener.
func (r *Router) ServeListener(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	if r.cfg.Server.BlockBannedIPs {
		go r.bans.Watch(ctx, r.cfg.ServerDirectory())
	}

	rtrLog.WithField("address", r.cfg.Public.Address).Info("Listening for clients")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		// Established connections outlive the accept loop so they can
		// drain during shutdown.
		go r.handle(context.WithoutCancel(ctx), conn)
	}
}

// Active is the number of client connections currently being handled.
func (r *Router) Active() int {
	return int(r.active.Load())
}

func (r *Router) handle(ctx context.Context, netConn net.Conn) {
	defer netConn.Close()

	r.active.Add(1)
	defer r.active.Add(-1)

	connLog := rtrLog.WithField("client", netConn.RemoteAddr().String())

	accepted := time.Now()
	netConn.SetDeadline(accepted.Add(handshakeTimeout))

	conn := protocol.NewConn(netConn)
	id, payload, rawHandshake, err := conn.ReadFrame()
	if err != nil || id != 0x00 {
		// No reply for malformed handshakes; linger briefly so port
		// scanners learn nothing from the close timing.
		connLog.WithError(err).Info("Closing connection with invalid handshake")
		time.Sleep(time.Until(accepted.Add(handshakeTimeout)))
		return
	}

	var handshake protocol.HandshakeIntention
	if err := handshake.ReadBytesFrom(bytes.NewReader(payload)); err != nil {
		connLog.WithError(err).Warn("Malformed handshake packet")
		time.Sleep(time.Until(accepted.Add(handshakeTimeout)))
		return
	}

	ip := peerIP(netConn)
	if r.cfg.Server.BlockBannedIPs && r.bans.IsBanned(ip) {
		r.rejectBanned(conn, &handshake, connLog)
		return
	}

	switch handshake.NextState {
	case protocol.NextStateStatus:
		if !r.allowStatus(ip) {
			connLog.Debug("Status request rate limited")
			return
		}

		netConn.SetDeadline(time.Now().Add(30 * time.Second))
		if r.srv.State() == server.Started {
			if err := r.splice(ctx, conn, netConn, rawHandshake); err != nil {
				connLog.WithError(err).Info("Status splice ended")
			}
			return
		}

		if err := r.serveStatus(conn, &handshake, connLog); err != nil {
			connLog.WithError(err).Info("Status connection ended")
		}

	case protocol.NextStateLogin, protocol.NextStateTransfer:
		loginID, loginPayload, rawLogin, err := conn.ReadFrame()
		if err != nil || loginID != 0x00 {
			connLog.WithError(err).Warn("Expected login start packet")
			return
		}

		var loginStart protocol.LoginStart
		if err := loginStart.ReadBytesFrom(bytes.NewReader(loginPayload)); err != nil {
			connLog.WithError(err).Warn("Malformed login start packet")
			return
		}

		netConn.SetDeadline(time.Time{})
		r.dispatchJoin(ctx, joinRequest{
			conn:         conn,
			netConn:      netConn,
			handshake:    &handshake,
			loginStart:   &loginStart,
			rawHandshake: rawHandshake,
			rawLogin:     rawLogin,
			log:          connLog.WithField("username", string(loginStart.Name)),
		})

	default:
		connLog.WithField("next_state", handshake.NextState).Warn("Unknown handshake intent")
	}
}

// rejectBanned kicks or drops a banned client.
func (r *Router) rejectBanned(conn *protocol.Conn, handshake *protocol.HandshakeIntention, connLog *log.Entry) {
	connLog.Info("Rejecting banned client")

	if r.cfg.Server.DropBannedIPs {
		return
	}

	if handshake.NextState == protocol.NextStateLogin || handshake.NextState == protocol.NextStateTransfer {
		// The login start packet is still queued; kick without reading it.
		disconnect := protocol.LoginDisconnect{Reason: protocol.NewChat("You are banned")}
		if err := conn.WritePacket(&disconnect); err != nil {
			connLog.WithError(err).Debug("Failed to kick banned client")
		}
	}
}

func (r *Router) allowStatus(ip net.IP) bool {
	if ip == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Keep the limiter table bounded under address churn.
	if len(r.limiters) > 1024 {
		r.limiters = make(map[string]*rate.Limiter)
	}

	limiter, ok := r.limiters[ip.String()]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(statusRatePerSecond), statusRateBurst)
		r.limiters[ip.String()] = limiter
	}
	return limiter.Allow()
}

func peerIP(conn net.Conn) net.IP {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP
	}
	return nil
}

var errNoMethod = errors.New("no join method handled the client")
