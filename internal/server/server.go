// Package server owns the backend server lifecycle: the state machine,
// the child process, and the liveness monitor.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/snoozemc/snoozemc/internal/config"
	"github.com/snoozemc/snoozemc/internal/mc"
	"github.com/snoozemc/snoozemc/protocol"
)

var srvLog = log.WithField("subsystem", "server")

// Delay before respawning a crashed server.
const crashRestartDelay = 5 * time.Second

// Server tracks the backend server state. State is read by many
// goroutines through atomics; every mutation goes through the proposal
// channel consumed by Run, which serializes transitions.
type Server struct {
	cfg *config.Config

	state        atomic.Int32
	stateChanged atomic.Int64
	lastStarted  atomic.Int64
	lastActive   atomic.Int64

	probedPlayers atomic.Int32 // -1 while unknown
	occupiers     atomic.Int32

	shuttingDown atomic.Bool

	mu           sync.Mutex
	notify       chan struct{}
	process      *Process
	status       *protocol.ServerStatus
	rconPassword string

	proposals chan proposal
}

type proposal struct {
	from, to State
	reply    chan bool
}

func New(cfg *config.Config) *Server {
	s := &Server{
		cfg:       cfg,
		notify:    make(chan struct{}),
		proposals: make(chan proposal),
	}
	s.probedPlayers.Store(-1)
	s.stateChanged.Store(time.Now().UnixNano())

	s.rconPassword = cfg.RCON.Password
	if cfg.RCON.Enabled && cfg.RCON.RandomizePassword {
		s.rconPassword = generatePassword()
	}

	return s
}

// Run consumes transition proposals until ctx is cancelled. It must be
// running for any state change to take effect.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-s.proposals:
			cur := s.State()
			ok := cur == p.from && validTransition(p.from, p.to)
			if ok {
				s.setState(p.to)
			}
			p.reply <- ok
			if ok {
				s.entered(ctx, p.to)
			}
		}
	}
}

func (s *Server) propose(from, to State) bool {
	p := proposal{from: from, to: to, reply: make(chan bool, 1)}
	select {
	case s.proposals <- p:
		return <-p.reply
	case <-time.After(time.Minute):
		srvLog.Error("Lifecycle loop not consuming proposals")
		return false
	}
}

func (s *Server) setState(to State) {
	from := State(s.state.Swap(int32(to)))
	s.stateChanged.Store(time.Now().UnixNano())
	if to == Started {
		now := time.Now().UnixNano()
		s.lastStarted.Store(now)
		s.lastActive.Store(now)
	}

	s.mu.Lock()
	close(s.notify)
	s.notify = make(chan struct{})
	s.mu.Unlock()

	srvLog.WithFields(log.Fields{"from": from, "to": to}).Info("Server state changed")
}

// entered runs the enter action for a state. Long-running actions spawn
// their own goroutine and report back through new proposals.
func (s *Server) entered(ctx context.Context, st State) {
	switch st {
	case Starting:
		go s.startProcess(ctx)

	case Stopping:
		go s.stopProcess(ctx)

	case Stopped:
		s.probedPlayers.Store(-1)
		s.mu.Lock()
		if s.process != nil && !s.process.Frozen() {
			s.process = nil
		}
		s.mu.Unlock()

	case Crashed:
		s.probedPlayers.Store(-1)

		// A process that stopped answering probes may still be running;
		// it must die before any respawn so only one child ever exists.
		s.mu.Lock()
		p := s.process
		s.process = nil
		s.mu.Unlock()
		if p != nil && !p.Exited() {
			srvLog.Warn("Killing unresponsive server process")
			_ = p.Kill()
		}

		// Proposals are issued from a fresh goroutine: entered runs on
		// the lifecycle loop, which must get back to the channel first.
		if s.shuttingDown.Load() || !s.cfg.Server.WakeOnCrash {
			go s.propose(Crashed, Stopped)
			return
		}
		go func() {
			srvLog.Info("Server crashed, restarting shortly")
			time.Sleep(crashRestartDelay)
			s.propose(Crashed, Starting)
		}()
	}
}

// State is the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// StateChanged is when the state last changed.
func (s *Server) StateChanged() time.Time {
	return time.Unix(0, s.stateChanged.Load())
}

func (s *Server) notifyChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notify
}

// AwaitStarted blocks until the server reaches Started, the timeout
// passes, or ctx is cancelled.
func (s *Server) AwaitStarted(ctx context.Context, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		if s.State() == Started {
			return true
		}

		ch := s.notifyChan()
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ch:
		}
	}
}

// Wake requests a server start for a joining or pinging client. The
// first caller wins the Stopped to Starting transition; losers observe
// Starting and wait. Returns false when the server cannot be woken.
func (s *Server) Wake() bool {
	if s.cfg.Lockout.Enabled || s.shuttingDown.Load() {
		return false
	}

	for {
		switch s.State() {
		case Stopped:
			if s.propose(Stopped, Starting) {
				return true
			}
			// Lost the race, re-read the state.
		case Crashed:
			// A crash restart may already be pending; treat a waking
			// client like the restart trigger.
			if s.propose(Crashed, Starting) {
				return true
			}
		case Starting, Started:
			return true
		case Stopping:
			return false
		}
	}
}

// RequestStop asks for a graceful shutdown from Started.
func (s *Server) RequestStop() bool {
	return s.propose(Started, Stopping)
}

// OccupierAdd registers an active hold, forward or lobby client. Active
// occupiers count as online players for idleness.
func (s *Server) OccupierAdd() {
	s.occupiers.Add(1)
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Server) OccupierDone() {
	s.occupiers.Add(-1)
}

// PlayerCount is the authoritative online count: the greater of the last
// successful probe and the live occupier count.
func (s *Server) PlayerCount() int {
	probed := s.probedPlayers.Load()
	if probed < 0 {
		probed = 0
	}
	if occ := s.occupiers.Load(); occ > probed {
		probed = occ
	}
	return int(probed)
}

// updateProbe records a probe result. Called by the monitor only.
func (s *Server) updateProbe(status *protocol.ServerStatus, playersKnown bool, players int) {
	if status != nil {
		s.mu.Lock()
		s.status = status
		s.mu.Unlock()
	}

	if playersKnown {
		s.probedPlayers.Store(int32(players))
		if players > 0 {
			s.lastActive.Store(time.Now().UnixNano())
		}
	} else {
		s.probedPlayers.Store(-1)
	}
}

// MarkActive refreshes the last-known player activity timestamp.
func (s *Server) MarkActive() {
	s.lastActive.Store(time.Now().UnixNano())
}

// CachedStatus is the last status the real server returned, if any.
func (s *Server) CachedStatus() *protocol.ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == nil {
		return nil
	}
	status := *s.status
	return &status
}

// shouldSleep reports whether the server has idled long enough to stop.
func (s *Server) shouldSleep() bool {
	if s.State() != Started || s.PlayerCount() > 0 {
		return false
	}

	now := time.Now()
	if now.Sub(time.Unix(0, s.lastStarted.Load())) < time.Duration(s.cfg.Time.MinimumOnlineTime)*time.Second {
		return false
	}
	return now.Sub(time.Unix(0, s.lastActive.Load())) >= time.Duration(s.cfg.Time.SleepAfter)*time.Second
}

// shouldKill reports whether starting or stopping has exceeded its
// timeout and the process must be force killed.
func (s *Server) shouldKill() bool {
	since := time.Since(s.StateChanged())
	switch s.State() {
	case Starting:
		return since > time.Duration(s.cfg.Server.StartTimeout)*time.Second
	case Stopping:
		return since > time.Duration(s.cfg.Server.StopTimeout)*time.Second
	default:
		return false
	}
}

// forceKill kills the server process. The exit handler moves the state
// machine along.
func (s *Server) forceKill() bool {
	s.mu.Lock()
	p := s.process
	s.mu.Unlock()

	if p == nil {
		// Nothing to kill; resolve the stuck state directly.
		switch s.State() {
		case Starting:
			return s.propose(Starting, Crashed)
		case Stopping:
			return s.propose(Stopping, Stopped)
		}
		return false
	}

	return p.Kill() == nil
}

// startProcess spawns the server process, or thaws a frozen one.
func (s *Server) startProcess(ctx context.Context) {
	s.mu.Lock()
	p := s.process
	s.mu.Unlock()

	if p != nil && p.Frozen() {
		srvLog.Info("Thawing frozen server process")
		if p.Thaw() == nil {
			// The process was Started when frozen; probing confirms it
			// again before clients are spliced.
			return
		}
		srvLog.Warn("Failed to thaw server process, spawning a new one")
		_ = p.Kill()
	}

	if s.cfg.Advanced.RewriteServerProperties {
		s.rewriteProperties()
	}

	// Register the handle before spawning: a fast-exiting process fires
	// the exit callback immediately.
	p = NewProcess(s.cfg, s.onProcessExit)
	s.mu.Lock()
	s.process = p
	s.mu.Unlock()

	if err := p.Start(ctx); err != nil {
		srvLog.WithError(err).Error("Failed to spawn server process")
		s.mu.Lock()
		s.process = nil
		s.mu.Unlock()
		s.propose(Starting, Crashed)
		return
	}
}

func (s *Server) rewriteProperties() {
	changes := map[string]string{}

	host, port, err := net.SplitHostPort(s.cfg.Server.Address)
	if err == nil {
		changes["server-ip"] = host
		changes["server-port"] = port
	}

	if s.cfg.RCON.Enabled {
		changes["enable-rcon"] = "true"
		changes["rcon.port"] = portOf(s.cfg.RCONAddress())
		changes["rcon.password"] = s.rconPassword
	}

	if err := mc.RewriteProperties(s.cfg.ServerDirectory(), changes); err != nil {
		srvLog.WithError(err).Warn("Failed to rewrite server.properties")
	}
}

func portOf(address string) string {
	_, port, err := net.SplitHostPort(address)
	if err != nil {
		return "25575"
	}
	return port
}

// onProcessExit is called from the process waiter goroutine.
func (s *Server) onProcessExit(err error) {
	switch s.State() {
	case Stopping:
		s.propose(Stopping, Stopped)
	case Starting, Started:
		if err != nil {
			srvLog.WithError(err).Error("Server process exited unexpectedly")
		} else {
			srvLog.Warn("Server process exited unexpectedly")
		}
		if s.State() == Starting {
			s.propose(Starting, Crashed)
		} else {
			s.propose(Started, Crashed)
		}
	default:
		s.propose(Stopping, Stopped)
	}
}

// stopProcess puts the server to sleep: freeze when configured, the
// graceful stop ladder otherwise.
func (s *Server) stopProcess(ctx context.Context) {
	s.mu.Lock()
	p := s.process
	s.mu.Unlock()

	if p == nil {
		s.propose(Stopping, Stopped)
		return
	}

	if s.cfg.Server.FreezeProcess && !s.shuttingDown.Load() {
		if p.Freeze() == nil {
			srvLog.Info("Server process frozen")
			s.propose(Stopping, Stopped)
			return
		}
		srvLog.Warn("Failed to freeze server process, stopping instead")
	}

	s.stopLadder(ctx, p)
}

// stopLadder walks the graceful stop escalation: RCON stop, stop on
// stdin, SIGTERM, and finally SIGKILL.
func (s *Server) stopLadder(ctx context.Context, p *Process) {
	step := time.Duration(s.cfg.Server.StopStepTimeout) * time.Second

	if s.cfg.RCON.Enabled {
		if err := s.rconStop(); err != nil {
			srvLog.WithError(err).Debug("RCON stop failed")
		} else if p.WaitExit(step) {
			return
		}
	}

	if err := p.WriteStdin("stop\n"); err != nil {
		srvLog.WithError(err).Debug("Writing stop to server stdin failed")
	} else if p.WaitExit(step) {
		return
	}

	if err := p.Terminate(); err != nil {
		srvLog.WithError(err).Debug("Terminating server process failed")
	} else if p.WaitExit(step) {
		return
	}

	srvLog.Error("Server did not stop gracefully, force killing")
	_ = p.Kill()
}

func (s *Server) rconStop() error {
	rcon, err := mc.DialRcon(s.cfg.RCONAddress(), s.rconPassword)
	if err != nil {
		return err
	}
	defer rcon.Close()

	return rcon.Stop()
}

// RconPlayers queries the player count over RCON.
func (s *Server) RconPlayers() (int, error) {
	rcon, err := mc.DialRcon(s.cfg.RCONAddress(), s.rconPassword)
	if err != nil {
		return 0, err
	}
	defer rcon.Close()

	count, _, err := rcon.Players()
	return count, err
}

// ForwardCommand writes an operator console line to the server stdin.
func (s *Server) ForwardCommand(line string) {
	s.mu.Lock()
	p := s.process
	s.mu.Unlock()

	if p == nil || p.Frozen() {
		return
	}
	if err := p.WriteStdin(line); err != nil {
		srvLog.WithError(err).Warn("Failed to forward console input to server")
	}
}

// Shutdown gracefully stops the backend before the proxy exits. A frozen
// process is thawed first so it can save and exit cleanly.
func (s *Server) Shutdown(ctx context.Context) {
	s.shuttingDown.Store(true)

	s.mu.Lock()
	p := s.process
	s.mu.Unlock()

	if p != nil && p.Frozen() {
		srvLog.Info("Thawing frozen server for shutdown")
		if p.Thaw() != nil {
			_ = p.Kill()
			return
		}
		s.stopLadder(ctx, p)
		return
	}

	switch s.State() {
	case Started:
		s.RequestStop()
	case Starting:
		s.forceKill()
	case Stopped:
		return
	}

	deadline := time.Duration(s.cfg.Server.StopTimeout) * time.Second
	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	for s.State() != Stopped {
		ch := s.notifyChan()
		select {
		case <-waitCtx.Done():
			s.forceKill()
			return
		case <-ch:
		}
	}
}

func generatePassword() string {
	buff := make([]byte, 16)
	if _, err := rand.Read(buff); err != nil {
		return "snoozemc"
	}
	return hex.EncodeToString(buff)
}
