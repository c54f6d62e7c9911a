package transport

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

// serviceName is the mDNS service type swapbytes peers announce and
// browse for on the local network segment, generalizing the teacher's
// tracker-based peer discovery (internal/tracker) to a serverless LAN
// setting where no tracker/DHT infrastructure exists.
const serviceName = "_swapbytes._tcp"

// discoveryInterval is how often the browser re-queries the network
// for new service instances.
const discoveryInterval = 5 * time.Second

// Announce registers an mDNS service advertising this peer's listening
// port and nickname as a TXT record, returning a shutdown func.
func Announce(nickname string, port int) (func(), error) {
	info := []string{"nickname=" + nickname}
	svc, err := mdns.NewMDNSService(nickname, serviceName, "", "", port, nil, info)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: svc})
	if err != nil {
		return nil, err
	}

	return func() { server.Shutdown() }, nil
}

// Browse polls for other swapbytes instances on the LAN every
// discoveryInterval until ctx is cancelled, emitting a PeerDiscovered
// event (with the discovered host:port) for each entry found. It does
// not dedupe against already-connected peers; the network task skips
// any discovered address it has already dialed once.
func (s *Swarm) Browse(ctx context.Context, log *slog.Logger) {
	ticker := time.NewTicker(discoveryInterval)
	defer ticker.Stop()

	s.browseOnce(ctx, log)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.browseOnce(ctx, log)
		}
	}
}

func (s *Swarm) browseOnce(ctx context.Context, log *slog.Logger) {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			addr := entry.AddrV4.String() + ":" + strconv.Itoa(entry.Port)
			s.emit(PeerDiscovered{Addr: addr})
		}
	}()

	params := mdns.DefaultParams(serviceName)
	params.Entries = entries
	params.Timeout = time.Second
	params.DisableIPv6 = true

	if err := mdns.Query(params); err != nil {
		log.Warn("mdns query failed", "error", err)
	}
	close(entries)
	<-done
}
