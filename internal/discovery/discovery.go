// Package discovery finds game servers on the local network and checks
// whether known servers are up.
//
// A client broadcasts Message over UDP; every server answers the sender with
// a JSON Reply listing all of its IPv4 addresses. The client keeps the address
// the reply actually came from.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"roomviewer/internal/store"
)

// Message is the discovery probe.
const Message = "DISCOVER_GAME_SERVER"

// PingLimit caps concurrent status checks.
const PingLimit = 5

// Reply is a server's answer to a probe.
type Reply struct {
	ServerID string   `json:"server_id"`
	Name     string   `json:"name"`
	Hosts    []string `json:"host"`
	Port     int      `json:"port"`
}

// Status is the outcome of a status check.
type Status int

const (
	StatusUnknown Status = iota
	StatusOnline
	StatusOffline
	StatusError
)

// Server is one entry of the server picker.
type Server struct {
	ID   string
	Name string
	Host string
	Port int
	// Known is set for servers read from the servers file.
	Known  bool
	Status Status
	RTT    time.Duration
	Err    error
}

// Address returns host:port.
func (s Server) Address() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// Label formats the server for the picker, padding the name to nameWidth.
func (s Server) Label(nameWidth int) string {
	head := fmt.Sprintf("%-*s@%s:%d", nameWidth, s.Name, s.Host, s.Port)
	ms := float64(s.RTT.Microseconds()) / 1000
	switch {
	case s.Status == StatusError:
		return fmt.Sprintf("%-45s - ERROR", head)
	case s.Status != StatusOnline:
		return fmt.Sprintf("%-45s - OFFLINE", head)
	case !s.Known:
		return fmt.Sprintf("%-45s - DISCOVERED %.2fms", head, ms)
	}
	return fmt.Sprintf("%-45s - ONLINE %.2fms", head, ms)
}

// Probe configures one discovery round.
type Probe struct {
	Port    int
	Timeout time.Duration
	// Targets overrides the interface broadcast addresses.
	Targets []*net.UDPAddr
	Logger  *slog.Logger
}

// Discover broadcasts a probe and collects replies until the timeout. It
// returns the servers that answered, keyed by server id.
func Discover(ctx context.Context, p Probe) (map[string]Server, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("discovery socket: %w", err)
	}
	defer conn.Close()

	targets := p.Targets
	if len(targets) == 0 {
		for _, ip := range broadcastAddrs() {
			targets = append(targets, &net.UDPAddr{IP: ip, Port: p.Port})
		}
	}
	start := time.Now()
	sent := 0
	for _, t := range targets {
		if _, err := conn.WriteToUDP([]byte(Message), t); err != nil {
			logger.Debug("discovery send failed", "target", t.String(), "error", err)
			continue
		}
		sent++
	}
	if sent == 0 {
		return nil, errors.New("discovery: no probe could be sent")
	}

	deadline := start.Add(p.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	servers := map[string]Server{}
	buf := make([]byte, 1024)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				break
			}
			return servers, fmt.Errorf("discovery read: %w", err)
		}
		srv, err := parseReply(buf[:n], from.IP)
		if err != nil {
			logger.Debug("ignoring discovery reply", "from", from.String(), "error", err)
			continue
		}
		srv.RTT = time.Since(start)
		servers[srv.ID] = srv
	}
	logger.Info("discovery finished", "servers", len(servers))
	return servers, nil
}

// parseReply keeps the reply only if one of its hosts is the sender.
func parseReply(data []byte, from net.IP) (Server, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return Server{}, err
	}
	if r.ServerID == "" {
		return Server{}, errors.New("reply without server id")
	}
	for _, h := range r.Hosts {
		if ip := net.ParseIP(h); ip != nil && ip.Equal(from) {
			return Server{
				ID:     r.ServerID,
				Name:   r.Name,
				Host:   h,
				Port:   r.Port,
				Status: StatusOnline,
			}, nil
		}
	}
	return Server{}, fmt.Errorf("sender %s not among hosts %v", from, r.Hosts)
}

// broadcastAddrs returns the IPv4 broadcast address of every up interface,
// plus the limited broadcast address.
func broadcastAddrs() []net.IP {
	out := []net.IP{net.IPv4bcast}
	ifaces, err := net.Interfaces()
	if err != nil {
		return out
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || len(ipnet.Mask) != net.IPv4len {
				continue
			}
			bc := make(net.IP, net.IPv4len)
			for i := range ip4 {
				bc[i] = ip4[i] | ^ipnet.Mask[i]
			}
			out = append(out, bc)
		}
	}
	return out
}

// LocalIPv4s lists this machine's IPv4 addresses, for Reply.Hosts.
func LocalIPv4s() []string {
	var hosts []string
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return hosts
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
			hosts = append(hosts, ipnet.IP.String())
		}
	}
	return hosts
}

// Merge combines discovered servers with the servers file. A known server
// keeps its entry unless discovery found it on a different host.
func Merge(discovered map[string]Server, known map[string]store.Server) []Server {
	merged := map[string]Server{}
	for id, k := range known {
		merged[id] = Server{ID: id, Name: k.Name, Host: k.Host, Port: k.Port, Known: true}
	}
	for id, d := range discovered {
		if k, ok := merged[id]; ok && k.Host == d.Host {
			continue
		} else if ok {
			d.Known = true
		}
		merged[id] = d
	}
	out := make([]Server, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !strings.EqualFold(out[i].Name, out[j].Name) {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Pinger checks one server and returns its round-trip time.
type Pinger func(ctx context.Context, host string, port int) (time.Duration, error)

// PingAll checks every server, at most PingLimit at a time, each bounded by
// timeout. Results are written back in place.
func PingAll(ctx context.Context, servers []Server, ping Pinger, timeout time.Duration) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(PingLimit)
	for i := range servers {
		s := &servers[i]
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			rtt, err := ping(pctx, s.Host, s.Port)
			switch {
			case err == nil:
				s.Status, s.RTT = StatusOnline, rtt
			case errors.Is(err, context.DeadlineExceeded):
				s.Status, s.Err = StatusOffline, err
			default:
				s.Status, s.Err = StatusError, err
				var ne net.Error
				if errors.As(err, &ne) {
					s.Status = StatusOffline
				}
			}
			// Failures are per server; never cancel the siblings.
			return nil
		})
	}
	_ = g.Wait()
}
