// Command swapbytes runs a single LAN/WAN file-sharing and chat peer:
// it wires together the transport, network task, and UI task and
// drives them with an errgroup, the same lifecycle-management idiom
// the teacher's Torrent.Run uses for its peer manager, scheduler, and
// storage loops (internal/torrent/torrent.go).
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/swapbytes/swapbytes/internal/config"
	"github.com/swapbytes/swapbytes/internal/events"
	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/logging"
	"github.com/swapbytes/swapbytes/internal/network"
	"github.com/swapbytes/swapbytes/internal/transport"
	"github.com/swapbytes/swapbytes/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "swapbytes:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		listenAddr  string
		downloadDir string
		nickname    string
		hide        bool
		debug       bool
	)
	flag.StringVar(&configPath, "config", "", "path to a YAML config file overlay")
	flag.StringVar(&listenAddr, "listen", "", "host:port to listen on (default: ephemeral port on all interfaces)")
	flag.StringVar(&downloadDir, "download-dir", "", "directory incoming files are written to")
	flag.StringVar(&nickname, "nickname", "", "display nickname")
	flag.BoolVar(&hide, "hide", false, "start hidden rather than visible")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.WithDefaultConfig()
	if err != nil {
		return fmt.Errorf("default config: %w", err)
	}
	if configPath != "" {
		if cfg, err = config.LoadFile(cfg, configPath); err != nil {
			return err
		}
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if downloadDir != "" {
		cfg.DownloadDir = downloadDir
	}
	if nickname != "" {
		cfg.Nickname = nickname
	}
	if hide {
		cfg.Visible = false
	}

	log := logging.New(os.Stdout, debug)

	self, err := identity.Generate()
	if err != nil {
		return fmt.Errorf("generate identity: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	swarm := transport.New(self, log)

	actualAddr, err := swarm.Listen(ctx, cfg.ListenAddr)
	if err != nil {
		// Fatal per the error taxonomy: failure to bind a listener at
		// startup aborts the process.
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
	}
	log.Info("listening", "addr", actualAddr, "peer_id", self.Public.String())

	if stopAnnounce, err := announcePort(cfg.Nickname, actualAddr); err != nil {
		log.Warn("mdns announce failed, LAN discovery disabled", "error", err)
	} else {
		defer stopAnnounce()
	}

	commands := make(chan events.Command, 64)
	outbound := make(chan events.Event, 64)

	netTask := network.New(self, swarm, network.Config{
		Nickname:    cfg.Nickname,
		DownloadDir: cfg.DownloadDir,
		Visible:     cfg.Visible,
	}, commands, outbound, log)

	uiTask := ui.New(ui.Config{
		Self:        self.Public,
		Nickname:    cfg.Nickname,
		DownloadDir: cfg.DownloadDir,
		Visible:     cfg.Visible,
		ListenAddr:  actualAddr,
	}, os.Stdin, os.Stdout, commands, outbound, log)

	// A separate cancellable layer beneath the errgroup's own context:
	// errgroup only cancels its derived context on a non-nil error, but
	// /quit and stdin EOF are graceful, error-free exits that still need
	// to stop the network task and the discovery loop.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		netTask.Run(gctx)
		return nil
	})
	g.Go(func() error {
		swarm.Browse(gctx, log)
		return nil
	})
	g.Go(func() error {
		uiTask.Run(gctx)
		cancelRun()
		return nil
	})

	return g.Wait()
}

// announcePort extracts the bound port from listenAddr (which may
// have resolved "0" to an ephemeral port) and advertises it over mDNS.
func announcePort(nickname, listenAddr string) (func(), error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("parse listen addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parse listen port: %w", err)
	}
	return transport.Announce(nickname, port)
}
