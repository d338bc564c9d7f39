package server

import (
	"context"
	"testing"
	"time"

	"github.com/snoozemc/snoozemc/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Command = "sleep 60"
	cfg.Server.FreezeProcess = false
	cfg.Advanced.RewriteServerProperties = false
	cfg.RCON.Enabled = false
	return &cfg
}

func TestValidTransitions(t *testing.T) {
	allowed := []struct{ from, to State }{
		{Stopped, Starting},
		{Starting, Started},
		{Starting, Crashed},
		{Started, Stopping},
		{Started, Crashed},
		{Stopping, Stopped},
		{Stopping, Crashed},
		{Crashed, Starting},
		{Crashed, Stopped},
	}
	for _, tr := range allowed {
		if !validTransition(tr.from, tr.to) {
			t.Errorf("%v -> %v should be allowed", tr.from, tr.to)
		}
	}

	denied := []struct{ from, to State }{
		{Stopped, Started},
		{Stopped, Stopping},
		{Started, Starting},
		{Stopping, Started},
		{Starting, Stopping},
		{Started, Started},
	}
	for _, tr := range denied {
		if validTransition(tr.from, tr.to) {
			t.Errorf("%v -> %v should be denied", tr.from, tr.to)
		}
	}
}

func TestWakeTransitionsToStarting(t *testing.T) {
	cfg := testConfig()
	srv := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	if srv.State() != Stopped {
		t.Fatalf("initial state: %v", srv.State())
	}

	if !srv.Wake() {
		t.Fatal("wake failed")
	}
	if got := srv.State(); got != Starting {
		t.Fatalf("state after wake: %v", got)
	}

	// Further wakes observe Starting without a transition.
	if !srv.Wake() {
		t.Fatal("second wake should succeed as observer")
	}

	srv.Shutdown(ctx)
}

func TestWakeRejectedDuringLockout(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.Enabled = true
	srv := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	if srv.Wake() {
		t.Fatal("wake should be rejected during lockout")
	}
	if srv.State() != Stopped {
		t.Fatalf("state: %v", srv.State())
	}
}

func TestCrashWithoutRestartSettlesStopped(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Command = "false"
	srv := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	if !srv.Wake() {
		t.Fatal("wake failed")
	}

	deadline := time.After(5 * time.Second)
	for srv.State() != Stopped {
		select {
		case <-deadline:
			t.Fatalf("state never settled, still %v", srv.State())
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestPlayerCountPrefersGreater(t *testing.T) {
	srv := New(testConfig())

	srv.updateProbe(nil, true, 2)
	if got := srv.PlayerCount(); got != 2 {
		t.Errorf("probed count: %v", got)
	}

	srv.OccupierAdd()
	srv.OccupierAdd()
	srv.OccupierAdd()
	if got := srv.PlayerCount(); got != 3 {
		t.Errorf("occupier count should win: %v", got)
	}

	srv.OccupierDone()
	srv.OccupierDone()
	srv.OccupierDone()
	if got := srv.PlayerCount(); got != 2 {
		t.Errorf("probed count should win again: %v", got)
	}
}

func TestShouldSleepRespectsIdleTimer(t *testing.T) {
	cfg := testConfig()
	cfg.Time.SleepAfter = 1
	cfg.Time.MinimumOnlineTime = 0
	srv := New(cfg)

	srv.state.Store(int32(Started))
	now := time.Now().UnixNano()
	srv.lastStarted.Store(now - int64(10*time.Second))
	srv.lastActive.Store(now - int64(10*time.Second))

	if !srv.shouldSleep() {
		t.Error("idle server past the timer should sleep")
	}

	srv.MarkActive()
	if srv.shouldSleep() {
		t.Error("recently active server should not sleep")
	}

	srv.lastActive.Store(now - int64(10*time.Second))
	srv.OccupierAdd()
	srv.lastActive.Store(now - int64(10*time.Second))
	if srv.shouldSleep() {
		t.Error("server with an occupier should not sleep")
	}
	srv.OccupierDone()
}

func TestShouldSleepRespectsMinimumOnlineTime(t *testing.T) {
	cfg := testConfig()
	cfg.Time.SleepAfter = 0
	cfg.Time.MinimumOnlineTime = 3600
	srv := New(cfg)

	srv.state.Store(int32(Started))
	now := time.Now().UnixNano()
	srv.lastStarted.Store(now - int64(time.Second))
	srv.lastActive.Store(now - int64(time.Hour))

	if srv.shouldSleep() {
		t.Error("server within minimum online time should not sleep")
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		command string
		want    []string
	}{
		{"java -jar server.jar", []string{"java", "-jar", "server.jar"}},
		{`java -jar "my server.jar" --nogui`, []string{"java", "-jar", "my server.jar", "--nogui"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{"", nil},
		{"'single quoted arg'", []string{"single quoted arg"}},
	}

	for _, c := range cases {
		got := splitCommand(c.command)
		if len(got) != len(c.want) {
			t.Errorf("splitCommand(%q) = %v, want %v", c.command, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitCommand(%q) = %v, want %v", c.command, got, c.want)
				break
			}
		}
	}
}
