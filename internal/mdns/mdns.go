// Package mdns provides optional mDNS/Bonjour advertisement of the remote page.
//
// When enabled, the listener advertises itself on the local network using
// DNS-SD so phones and tablets can find the control page without typing an
// IP address. Discovery only reveals presence; it does not grant anything a
// browser pointed at the same address would not already have.
//
// The advertisement includes:
//   - Service type: _stagehand-remote._tcp
//   - TXT records with protocol version, instance name and page path
package mdns

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the mDNS service type for stagehand remote listeners.
const ServiceType = "_stagehand-remote._tcp"

// ProtocolVersion identifies the WebSocket vocabulary advertised in TXT records.
const ProtocolVersion = "1"

// PagePath is the HTTP path of the control page.
const PagePath = "/"

// Config holds configuration for mDNS advertisement.
type Config struct {
	// Name is a human-readable instance name.
	// Defaults to the system hostname if empty.
	Name string
}

// Advertiser manages mDNS/DNS-SD service registration.
// The port is only known once the listener is bound, so it is passed to Start.
type Advertiser struct {
	config Config
	server *zeroconf.Server
	port   int
	mu     sync.Mutex
}

// NewAdvertiser creates a new mDNS advertiser with the given configuration.
func NewAdvertiser(cfg Config) *Advertiser {
	return &Advertiser{
		config: cfg,
	}
}

// instanceName returns the configured name, the hostname, or "stagehand".
func (a *Advertiser) instanceName() string {
	if a.config.Name != "" {
		return a.config.Name
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return "stagehand"
	}
	return hostname
}

// txtRecords builds the TXT strings published with the service.
// DNS TXT records support up to 255 bytes per string.
func txtRecords(name string) []string {
	return []string{
		fmt.Sprintf("version=%s", ProtocolVersion),
		fmt.Sprintf("name=%s", name),
		fmt.Sprintf("path=%s", PagePath),
	}
}

// Start begins advertising the service on port.
//
// Start is a no-op if already advertising the same port. A different port
// replaces the previous registration.
func (a *Advertiser) Start(port int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		if a.port == port {
			return nil
		}
		a.server.Shutdown()
		a.server = nil
	}

	name := a.instanceName()
	server, err := zeroconf.Register(
		name,
		ServiceType,
		"local.",
		port,
		txtRecords(name),
		nil, // all interfaces
	)
	if err != nil {
		return fmt.Errorf("mdns register: %w", err)
	}

	a.server = server
	a.port = port
	return nil
}

// Stop withdraws the advertisement. It is safe to call Stop multiple times
// or on an advertiser that was never started.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
		a.port = 0
	}
}

// IsRunning returns true if the advertiser is currently running.
func (a *Advertiser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// DiscoveredHost is a stagehand listener found via mDNS.
type DiscoveredHost struct {
	Name    string
	Host    string
	Port    int
	Version string
	Path    string
}

// URL returns the address of the host's control page.
func (h DiscoveredHost) URL() string {
	path := h.Path
	if path == "" {
		path = PagePath
	}
	host := h.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("http://%s:%d%s", host, h.Port, path)
}

// applyTXT fills host fields from the service's TXT strings.
func (h *DiscoveredHost) applyTXT(records []string) {
	for _, txt := range records {
		key, value, ok := strings.Cut(txt, "=")
		if !ok {
			continue
		}
		switch key {
		case "version":
			h.Version = value
		case "name":
			h.Name = value
		case "path":
			h.Path = value
		}
	}
}

// Discover browses for stagehand listeners until ctx is done.
// It backs the "stagehand remote discover" command.
func Discover(ctx context.Context) ([]DiscoveredHost, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	var (
		hosts []DiscoveredHost
		mu    sync.Mutex
		wg    sync.WaitGroup
	)

	entries := make(chan *zeroconf.ServiceEntry)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range entries {
			host := DiscoveredHost{
				Name: entry.Instance,
				Port: entry.Port,
			}

			// Prefer IPv4 address
			if len(entry.AddrIPv4) > 0 {
				host.Host = entry.AddrIPv4[0].String()
			} else if len(entry.AddrIPv6) > 0 {
				host.Host = entry.AddrIPv6[0].String()
			}
			host.applyTXT(entry.Text)

			mu.Lock()
			hosts = append(hosts, host)
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	// zeroconf closes entries once ctx is done.
	<-ctx.Done()
	wg.Wait()

	return hosts, nil
}
