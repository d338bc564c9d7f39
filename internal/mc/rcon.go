// Package mc holds Minecraft server integrations that are not part of
// the wire protocol: RCON, server.properties and the status favicon.
package mc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorcon/rcon"
	log "github.com/sirupsen/logrus"
)

var rconLog = log.WithField("subsystem", "rcon")

// ErrAuthFailed is returned when the server rejects the RCON password.
var ErrAuthFailed = errors.New("rcon authentication failed")

const (
	rconConnectTimeout = 3 * time.Second
	rconCommandTimeout = 5 * time.Second
)

// Matches "There are N of a max of M players online: a, b, c".
var listPattern = regexp.MustCompile(`There are (\d+) of a max of (\d+) players online:?\s*(.*)`)

var numberPattern = regexp.MustCompile(`\d+`)

// Rcon is a single-use RCON session. A session that returned an error
// must not be reused; dial a fresh one instead.
type Rcon struct {
	conn *rcon.Conn
}

// DialRcon connects and authenticates against the server RCON port.
func DialRcon(address, password string) (*Rcon, error) {
	conn, err := rcon.Dial(
		address, password,
		rcon.SetDialTimeout(rconConnectTimeout),
		rcon.SetDeadline(rconCommandTimeout),
	)
	if err != nil {
		if errors.Is(err, rcon.ErrAuthFailed) {
			return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return nil, err
	}

	return &Rcon{conn: conn}, nil
}

// Exec runs a console command and returns the server response.
func (r *Rcon) Exec(command string) (string, error) {
	response, err := r.conn.Execute(command)
	if err != nil {
		return "", err
	}
	return response, nil
}

// Stop issues the stop command.
func (r *Rcon) Stop() error {
	_, err := r.Exec("stop")
	return err
}

// Players runs the list command and returns the online player count and
// the listed usernames, when the response carries them.
func (r *Rcon) Players() (int, []string, error) {
	response, err := r.Exec("list")
	if err != nil {
		return 0, nil, err
	}

	count, names, ok := parseListResponse(response)
	if !ok {
		rconLog.WithField("response", response).Debug("Unrecognized list response")
		return 0, nil, fmt.Errorf("unrecognized list response: %q", response)
	}
	return count, names, nil
}

func (r *Rcon) Close() error {
	return r.conn.Close()
}

// parseListResponse extracts the player count and usernames from a list
// command reply. Falls back to the first number in the reply for servers
// with non-vanilla phrasing.
func parseListResponse(response string) (int, []string, bool) {
	if m := listPattern.FindStringSubmatch(response); m != nil {
		count, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, nil, false
		}

		var names []string
		for _, name := range strings.Split(m[3], ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		return count, names, true
	}

	if m := numberPattern.FindString(response); m != "" {
		count, err := strconv.Atoi(m)
		if err != nil {
			return 0, nil, false
		}
		return count, nil, true
	}

	return 0, nil, false
}
