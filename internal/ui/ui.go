// Package ui implements the UI task: it owns the view-model
// exclusively (§2, §5), reads line-oriented input from the console,
// turns it into commands for the network task via the command parser
// in command.go, and renders incoming events as console output. Like
// the network task, it runs a single select loop and touches no state
// the network task also touches.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"

	"github.com/swapbytes/swapbytes/internal/events"
	"github.com/swapbytes/swapbytes/internal/identity"
	"github.com/swapbytes/swapbytes/internal/viewmodel"
)

// ewmaTickInterval matches rcrowley/go-metrics' EWMA1/5/15 assumption
// that Tick is called every 5 seconds; see throughput.go.
const ewmaTickInterval = 5 * time.Second

// Config carries the UI task's initial settings, mirroring the
// operator-facing config fields the UI itself can report or change
// (/me, /setdir, /setname, /hide, /show).
type Config struct {
	Self        identity.ID
	Nickname    string
	DownloadDir string
	Visible     bool
	ListenAddr  string
}

// Task is the UI task's exclusive state.
type Task struct {
	in  *bufio.Scanner
	out io.Writer
	log *slog.Logger

	commands chan<- events.Command
	incoming <-chan events.Event

	vm         *viewmodel.ViewModel
	peers      map[identity.ID]events.PeerView
	throughput *throughputTracker

	self        identity.ID
	nickname    string
	downloadDir string
	visible     bool
	listenAddr  string
}

// New constructs a UI task. in is typically os.Stdin, out typically
// os.Stdout; both are parameterized here for testing.
func New(cfg Config, in io.Reader, out io.Writer, commands chan<- events.Command, incoming <-chan events.Event, log *slog.Logger) *Task {
	return &Task{
		in:          bufio.NewScanner(in),
		out:         out,
		log:         log.With("component", "ui"),
		commands:    commands,
		incoming:    incoming,
		vm:          viewmodel.New(),
		peers:       make(map[identity.ID]events.PeerView),
		throughput:  newThroughputTracker(),
		self:        cfg.Self,
		nickname:    cfg.Nickname,
		downloadDir: cfg.DownloadDir,
		visible:     cfg.Visible,
		listenAddr:  cfg.ListenAddr,
	}
}

// Run drives the console REPL until ctx is cancelled, stdin reaches
// EOF, or /quit is entered. Reading stdin is the one blocking
// operation the UI task cannot fold into its own select, so a single
// reader goroutine feeds completed lines back over a channel — the
// same completion-channel idiom the network task uses for blocking
// transport I/O (internal/network.Task.completions).
func (t *Task) Run(ctx context.Context) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for t.in.Scan() {
			select {
			case lines <- t.in.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	tick := time.NewTicker(ewmaTickInterval)
	defer tick.Stop()

	fmt.Fprintln(t.out, bannerText)
	t.printHelp()

	for {
		select {
		case <-ctx.Done():
			return

		case <-tick.C:
			t.throughput.tick()

		case line, ok := <-lines:
			if !ok {
				// stdin closed (Ctrl+D): treat like /quit.
				t.commands <- events.Shutdown{}
				return
			}
			if t.handleInput(line) {
				return
			}

		case ev, ok := <-t.incoming:
			if !ok {
				return
			}
			t.handleEvent(ev)
		}
	}
}

const bannerText = "SwapBytes -- type /help for commands, or just start typing to chat."

func (t *Task) println(a ...any) { fmt.Fprintln(t.out, a...) }

// printLine renders a LogLine-shaped message with level-appropriate
// coloring, matching the palette internal/logging.PrettyHandler uses
// for the same levels.
func (t *Task) printLine(level events.Level, msg string) {
	switch level {
	case events.LevelWarn:
		t.println(color.YellowString(msg))
	case events.LevelError:
		t.println(color.RedString(msg))
	default:
		t.println(msg)
	}
}

func (t *Task) nicknameOf(peer identity.ID) string {
	if v, ok := t.peers[peer]; ok && v.Nickname != "" {
		return v.Nickname
	}
	return ""
}

// peerLabel renders a peer as "nickname (shortid)" when a nickname is
// known, else just the short fingerprint.
func (t *Task) peerLabel(peer identity.ID) string {
	if nick := t.nicknameOf(peer); nick != "" {
		return fmt.Sprintf("%s (%s)", nick, peer.Short())
	}
	return peer.Short()
}
