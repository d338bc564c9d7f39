// Package proxy accepts client connections, impersonates the sleeping
// server, and routes joining players to the backend.
package proxy

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

var banLog = log.WithField("subsystem", "banlist")

// BannedIPsFile is the vanilla server ban list file name.
const BannedIPsFile = "banned-ips.json"

// BanList is the set of banned client addresses, rebuilt whenever the
// server's banned-ips.json changes.
type BanList struct {
	mu    sync.RWMutex
	ips   mapset.Set[string]
	cidrs []*net.IPNet
}

func NewBanList() *BanList {
	return &BanList{ips: mapset.NewThreadUnsafeSet[string]()}
}

type bannedEntry struct {
	IP string `json:"ip"`
}

// Load reads banned-ips.json from the server directory. A missing file
// clears the list.
func (b *BanList) Load(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, BannedIPsFile))
	if err != nil {
		if os.IsNotExist(err) {
			b.replace(mapset.NewThreadUnsafeSet[string](), nil)
			return nil
		}
		return err
	}

	var entries []bannedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	ips := mapset.NewThreadUnsafeSet[string]()
	var cidrs []*net.IPNet
	for _, entry := range entries {
		if strings.Contains(entry.IP, "/") {
			_, network, err := net.ParseCIDR(entry.IP)
			if err != nil {
				banLog.WithField("entry", entry.IP).Warn("Ignoring unparseable ban entry")
				continue
			}
			cidrs = append(cidrs, network)
			continue
		}

		if ip := net.ParseIP(entry.IP); ip != nil {
			ips.Add(ip.String())
		} else {
			banLog.WithField("entry", entry.IP).Warn("Ignoring unparseable ban entry")
		}
	}

	b.replace(ips, cidrs)
	banLog.WithField("count", ips.Cardinality()+len(cidrs)).Debug("Loaded ban list")
	return nil
}

func (b *BanList) replace(ips mapset.Set[string], cidrs []*net.IPNet) {
	b.mu.Lock()
	b.ips = ips
	b.cidrs = cidrs
	b.mu.Unlock()
}

// IsBanned reports whether the address is covered by the ban list.
func (b *BanList) IsBanned(ip net.IP) bool {
	if ip == nil {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.ips.Contains(ip.String()) {
		return true
	}
	for _, network := range b.cidrs {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Watch reloads the ban list whenever the file changes, until ctx is
// cancelled.
func (b *BanList) Watch(ctx context.Context, dir string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		banLog.WithError(err).Warn("Failed to watch ban list, bans load once at startup")
		return
	}
	defer watcher.Close()

	// Watch the directory: the server replaces the file on save, which
	// would invalidate a watch on the file itself.
	if err := watcher.Add(dir); err != nil {
		banLog.WithError(err).Warn("Failed to watch server directory for ban changes")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != BannedIPsFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := b.Load(dir); err != nil {
				banLog.WithError(err).Warn("Failed to reload ban list")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			banLog.WithError(err).Warn("Ban list watcher error")
		}
	}
}
