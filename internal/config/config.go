// Package config loads and validates the proxy configuration from a TOML
// file, environment variables, or both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

// DefaultFile is the default configuration file location.
const DefaultFile = "snoozemc.toml"

// Version is the configuration version users should be on. A warning is
// shown for older or unknown versions.
const Version = "0.1.0"

var cfgLog = log.WithField("subsystem", "config")

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// Path the config was loaded from, empty for env-only configs. Used
	// as the base for relative filesystem paths.
	Path string `toml:"-"`

	Public   Public   `toml:"public"`
	Server   Server   `toml:"server"`
	Time     Time     `toml:"time"`
	MOTD     MOTD     `toml:"motd"`
	Join     Join     `toml:"join"`
	Lockout  Lockout  `toml:"lockout"`
	RCON     RCON     `toml:"rcon"`
	Advanced Advanced `toml:"advanced"`
	Config   Meta     `toml:"config"`
}

type Public struct {
	Address string `toml:"address"`
	Version string `toml:"version"`
	Protocol int   `toml:"protocol"`
	Favicon string `toml:"favicon"`
}

type Server struct {
	Command   string `toml:"command"`
	Directory string `toml:"directory"`
	Address   string `toml:"address"`

	FreezeProcess bool `toml:"freeze_process"`
	WakeOnStart   bool `toml:"wake_on_start"`
	WakeOnCrash   bool `toml:"wake_on_crash"`
	ProbeOnStart  bool `toml:"probe_on_start"`

	BlockBannedIPs bool `toml:"block_banned_ips"`
	DropBannedIPs  bool `toml:"drop_banned_ips"`

	StartTimeout    int `toml:"start_timeout"`
	StopTimeout     int `toml:"stop_timeout"`
	StopStepTimeout int `toml:"stop_step_timeout"`

	SendProxyV1 bool `toml:"send_proxy"`
}

type Time struct {
	SleepAfter        int `toml:"sleep_after"`
	MinimumOnlineTime int `toml:"minimum_online_time"`
}

type MOTD struct {
	Sleeping   string `toml:"sleeping"`
	Starting   string `toml:"starting"`
	Stopping   string `toml:"stopping"`
	FromServer bool   `toml:"from_server"`
}

// Join methods.
const (
	MethodHold    = "hold"
	MethodKick    = "kick"
	MethodForward = "forward"
	MethodLobby   = "lobby"
)

type Join struct {
	Methods []string    `toml:"methods"`
	Kick    JoinKick    `toml:"kick"`
	Hold    JoinHold    `toml:"hold"`
	Forward JoinForward `toml:"forward"`
	Lobby   JoinLobby   `toml:"lobby"`
}

type JoinKick struct {
	Starting string `toml:"starting"`
	Stopping string `toml:"stopping"`
}

type JoinHold struct {
	Timeout int `toml:"timeout"`
}

type JoinForward struct {
	Address     string `toml:"address"`
	SendProxyV1 bool   `toml:"send_proxy"`
}

type JoinLobby struct {
	Timeout int    `toml:"timeout"`
	Message string `toml:"message"`
}

type Lockout struct {
	Enabled bool   `toml:"enabled"`
	Message string `toml:"message"`
}

type RCON struct {
	Enabled           bool   `toml:"enabled"`
	Port              int    `toml:"port"`
	Password          string `toml:"password"`
	RandomizePassword bool   `toml:"randomize_password"`
}

type Advanced struct {
	RewriteServerProperties bool `toml:"rewrite_server_properties"`
}

type Meta struct {
	Version string `toml:"version"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Public: Public{
			Address:  "0.0.0.0:25565",
			Version:  "1.20.4",
			Protocol: 765,
		},
		Server: Server{
			Directory:       ".",
			Address:         "127.0.0.1:25566",
			FreezeProcess:   true,
			BlockBannedIPs:  true,
			StartTimeout:    300,
			StopTimeout:     150,
			StopStepTimeout: 30,
		},
		Time: Time{
			SleepAfter:        300,
			MinimumOnlineTime: 60,
		},
		MOTD: MOTD{
			Sleeping: "☠ Server is sleeping\n§2☻ Join to start it up",
			Starting: "§2☻ Server is starting...\n§7⌛ Please wait...",
			Stopping: "☠ Server going to sleep...\n⌛ Please wait...",
		},
		Join: Join{
			Methods: []string{MethodHold, MethodKick},
			Kick: JoinKick{
				Starting: "Server is starting...\nPlease try to reconnect in a minute.",
				Stopping: "Server is going to sleep...\nPlease try to reconnect in a minute to wake it again.",
			},
			Hold: JoinHold{Timeout: 25},
			Forward: JoinForward{
				Address: "127.0.0.1:25565",
			},
			Lobby: JoinLobby{
				Timeout: 600,
				Message: "§2Server is starting\n§7⌛ Please wait...",
			},
		},
		Lockout: Lockout{
			Message: "Server is closed\nPlease come back another time.",
		},
		RCON: RCON{
			Enabled:           runtime.GOOS == "windows",
			Port:              25575,
			RandomizePassword: true,
		},
		Advanced: Advanced{
			RewriteServerProperties: true,
		},
	}
}

// Load reads the config from path with environment overrides merged on
// top. When the file does not exist but SNOOZEMC_ environment variables
// are set, the config is built purely from the environment.
func Load(path string) (*Config, error) {
	var fileValue map[string]interface{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &fileValue); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err) && HasEnvConfig():
		fileValue = map[string]interface{}{}
		path = ""
	default:
		return nil, fmt.Errorf(
			"config file does not exist: %s (hint: snoozemc can also be configured entirely through %s* environment variables)",
			path, envPrefix,
		)
	}

	merged := deepMerge(fileValue, collectEnvConfig())

	cfg, err := fromValue(merged)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		cfg.Path = path
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromValue re-encodes the merged tree and decodes it over the defaults.
func fromValue(value map[string]interface{}) (*Config, error) {
	var buff bytes.Buffer
	if err := toml.NewEncoder(&buff).Encode(value); err != nil {
		return nil, fmt.Errorf("failed to encode merged config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(buff.Bytes(), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	switch cfg.Config.Version {
	case "":
		cfgLog.Warn("Config version unknown, it may be outdated")
	case Version:
	default:
		cfgLog.Warn("Config is for a different snoozemc version, you may need to update it")
	}

	if cfg.Server.FreezeProcess && runtime.GOOS == "windows" {
		cfgLog.Warn("Process freezing is not supported on this platform, disabling")
		cfg.Server.FreezeProcess = false
	}

	return &cfg, nil
}

// HasEnvConfig reports whether any SNOOZEMC_ environment variables are set.
func HasEnvConfig() bool {
	return hasEnvConfig()
}

// Validate checks the loaded config for errors.
func (c *Config) Validate() error {
	if c.Server.Command == "" {
		return fmt.Errorf("%w: server.command must be set", ErrInvalid)
	}

	for _, addr := range []struct{ name, value string }{
		{"public.address", c.Public.Address},
		{"server.address", c.Server.Address},
	} {
		if _, _, err := net.SplitHostPort(addr.value); err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalid, addr.name, addr.value, err)
		}
	}

	if len(c.Join.Methods) == 0 {
		return fmt.Errorf("%w: join.methods must not be empty", ErrInvalid)
	}
	for _, m := range c.Join.Methods {
		switch m {
		case MethodHold, MethodKick, MethodForward, MethodLobby:
		default:
			return fmt.Errorf("%w: unknown join method %q", ErrInvalid, m)
		}
	}

	if hasMethod(c.Join.Methods, MethodForward) {
		if _, _, err := net.SplitHostPort(c.Join.Forward.Address); err != nil {
			return fmt.Errorf("%w: join.forward.address %q: %v", ErrInvalid, c.Join.Forward.Address, err)
		}
	}

	if c.RCON.Enabled && !c.RCON.RandomizePassword && c.RCON.Password == "" {
		return fmt.Errorf("%w: rcon.password must be set when rcon.randomize_password is off", ErrInvalid)
	}

	return nil
}

func hasMethod(methods []string, method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

// HasJoinMethod reports whether the given join method is configured.
func (c *Config) HasJoinMethod(method string) bool {
	return hasMethod(c.Join.Methods, method)
}

// ServerDirectory is the server working directory resolved relative to
// the config file location.
func (c *Config) ServerDirectory() string {
	dir := c.Server.Directory
	if dir == "" {
		dir = "."
	}
	if filepath.IsAbs(dir) || c.Path == "" {
		return dir
	}
	return filepath.Join(filepath.Dir(c.Path), dir)
}

// RCONAddress is the backend RCON endpoint.
func (c *Config) RCONAddress() string {
	host, _, err := net.SplitHostPort(c.Server.Address)
	if err != nil {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, fmt.Sprint(c.RCON.Port))
}
