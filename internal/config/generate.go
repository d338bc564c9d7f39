package config

import (
	"fmt"
	"os"
)

const defaultConfigFile = `# snoozemc configuration
#
# Any option may also be set through the environment:
# SNOOZEMC_SERVER__ADDRESS maps to server.address, and so on.

[public]
# Address snoozemc listens on for Minecraft clients.
#address = "0.0.0.0:25565"

# Version name and protocol hint shown while the server is asleep.
#version = "1.20.4"
#protocol = 765

# Optional path to a 64x64 PNG served as the status favicon.
#favicon = ""

[server]
# Command used to start the server.
command = "java -Xmx1G -jar server.jar --nogui"

# Server working directory.
#directory = "."

# Address the real server listens on. Rewritten into server.properties
# when advanced.rewrite_server_properties is on.
#address = "127.0.0.1:25566"

# Freeze the server process instead of stopping it when idle (Unix only).
#freeze_process = true

# Wake the server as soon as snoozemc starts.
#wake_on_start = false

# Restart the server after a crash.
#wake_on_crash = false

# Wake once at startup to probe the real MOTD and version.
#probe_on_start = false

# Block connections from IPs in the server's banned-ips.json.
#block_banned_ips = true

# Close banned connections without a kick message.
#drop_banned_ips = false

# Force kill the server process if starting or stopping takes longer.
#start_timeout = 300
#stop_timeout = 150

# Wait between steps of the graceful stop ladder.
#stop_step_timeout = 30

# Send a PROXY protocol v1 header on spliced connections.
#send_proxy = false

[time]
# Put the server to sleep after this many seconds with nobody online.
#sleep_after = 300

# Never sleep before the server has been online this long.
#minimum_online_time = 60

[motd]
# Status messages for each proxy state.
#sleeping = "☠ Server is sleeping\n§2☻ Join to start it up"
#starting = "§2☻ Server is starting...\n§7⌛ Please wait..."
#stopping = "☠ Server going to sleep...\n⌛ Please wait..."

# Impersonate the real server MOTD once it is known.
#from_server = false

[join]
# How to occupy a joining client until the server is ready, in order.
# Choose from: hold, kick, forward, lobby.
#methods = ["hold", "kick"]

[join.kick]
#starting = "Server is starting...\nPlease try to reconnect in a minute."
#stopping = "Server is going to sleep...\nPlease try to reconnect in a minute to wake it again."

[join.hold]
# Hold the connection for up to this many seconds while the server starts.
#timeout = 25

[join.forward]
# Forward clients to this address while the server is not ready.
#address = "127.0.0.1:25565"
#send_proxy = false

[join.lobby]
# Keep clients in a fake lobby world for up to this many seconds.
#timeout = 600
#message = "§2Server is starting\n§7⌛ Please wait..."

[lockout]
# Reject every login with the given message.
#enabled = false
#message = "Server is closed\nPlease come back another time."

[rcon]
# Use RCON to stop the server and query player counts.
# Defaults to true on Windows and false elsewhere.
#enabled = false
#port = 25575
#password = ""
#randomize_password = true

[advanced]
# Rewrite server.properties with the internal address and RCON settings.
#rewrite_server_properties = true

[config]
version = "` + Version + `"
`

// Generate writes the default config file to path. An existing file is
// only overwritten when force is set.
func Generate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s, use --force to overwrite", path)
		}
	}

	if err := os.WriteFile(path, []byte(defaultConfigFile), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cfgLog.WithField("path", path).Info("Generated default config file")
	return nil
}
