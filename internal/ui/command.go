package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/swapbytes/swapbytes/internal/events"
	"github.com/swapbytes/swapbytes/internal/identity"
)

// nicknamePattern implements §6's nickname character class and length
// bounds, carried verbatim from commands.rs's validate_name (3-16
// chars, [A-Za-z0-9_-]).
var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,16}$`)

func validateNickname(name string) error {
	if strings.EqualFold(name, "global") {
		return errors.New("nickname cannot be \"global\"")
	}
	if !nicknamePattern.MatchString(name) {
		return errors.New("nickname must be 3-16 characters from [A-Za-z0-9_-]")
	}
	return nil
}

// verifyDownloadDir implements §6's /setdir validation: the path must
// be absolute, exist, be a directory, and be writable, the last
// checked by creating and removing a sentinel file exactly as the
// original's utils::verify_download_directory does.
func verifyDownloadDir(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", errors.New("path must be absolute")
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return "", errors.New("path is not a directory")
	}

	sentinel := filepath.Join(path, fmt.Sprintf(".swapbytes_write_test_%d", os.Getpid()))
	f, err := os.Create(sentinel)
	if err != nil {
		return "", fmt.Errorf("directory is not writable: %w", err)
	}
	f.Close()
	os.Remove(sentinel)
	return path, nil
}

// resolvePeer looks a command's target-peer token up against the
// known directory: a full base58 identity, an 8-hex-char short
// fingerprint, or a case-insensitive nickname. The REPL has no
// "selected peer" pane to target implicitly, so every private-facing
// command names its peer explicitly; this is the one generalization
// the command grammar needs beyond §6's table.
func (t *Task) resolvePeer(token string) (identity.ID, error) {
	if id, err := identity.ParseID(token); err == nil {
		return id, nil
	}

	var matches []identity.ID
	for id, v := range t.peers {
		if id.Short() == token || (v.Nickname != "" && strings.EqualFold(v.Nickname, token)) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return identity.ID{}, fmt.Errorf("unknown peer %q", token)
	case 1:
		return matches[0], nil
	default:
		return identity.ID{}, fmt.Errorf("%q matches more than one peer, use the full id", token)
	}
}

// handleInput processes one line of console input. It returns true if
// the UI task should exit its loop.
func (t *Task) handleInput(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		t.sendGlobal(line)
		return false
	}

	// A lone "/" is rejected rather than treated as an empty command
	// name, matching input_handler.rs's guard against it.
	if line == "/" {
		t.printLine(events.LevelError, "unrecognized command: \"/\"")
		t.hint()
		return false
	}

	name, args, _ := strings.Cut(line[1:], " ")
	args = strings.TrimSpace(args)

	switch name {
	case "help", "h":
		t.printHelp()
	case "me":
		t.printMe()
	case "setdir":
		t.cmdSetDir(args)
	case "setname":
		t.cmdSetName(args)
	case "ping":
		t.cmdPing(args)
	case "hide":
		t.cmdSetVisible(false)
	case "show":
		t.cmdSetVisible(true)
	case "pm":
		t.cmdPrivateMessage(args)
	case "offer":
		t.cmdOffer(args)
	case "accept":
		t.cmdAccept(args)
	case "decline":
		t.cmdDecline(args)
	case "quit", "q":
		t.commands <- events.Shutdown{}
		return true
	default:
		t.printLine(events.LevelError, fmt.Sprintf("unknown command: /%s", name))
		t.hint()
	}
	return false
}

func (t *Task) hint() {
	t.printLine(events.LevelInfo, "type /help for a list of commands")
}

func (t *Task) sendGlobal(content string) {
	t.commands <- events.SendGlobalMessage{Content: content}
}

func (t *Task) cmdSetDir(args string) {
	if args == "" {
		t.printLine(events.LevelError, "usage: /setdir <absolute path>")
		return
	}
	dir, err := verifyDownloadDir(args)
	if err != nil {
		t.printLine(events.LevelError, err.Error())
		return
	}
	t.downloadDir = dir
	t.commands <- events.SetDownloadDir{Path: dir}
	t.printLine(events.LevelInfo, "download directory set to "+dir)
}

func (t *Task) cmdSetName(args string) {
	if args == "" {
		t.printLine(events.LevelError, "usage: /setname <nickname>")
		return
	}
	if err := validateNickname(args); err != nil {
		t.printLine(events.LevelError, err.Error())
		return
	}
	t.nickname = args
	t.commands <- events.SetNickname{Nickname: args}
	t.printLine(events.LevelInfo, "nickname set to "+args)
}

func (t *Task) cmdPing(args string) {
	if args == "" {
		t.printLine(events.LevelError, "usage: /ping <host:port>")
		return
	}
	t.commands <- events.Ping{Addr: args}
}

func (t *Task) cmdSetVisible(visible bool) {
	if t.visible == visible {
		state := "hidden"
		if visible {
			state = "visible"
		}
		t.printLine(events.LevelInfo, "you are already "+state)
		return
	}
	t.visible = visible
	t.commands <- events.SetVisible{Visible: visible}
	if visible {
		t.printLine(events.LevelInfo, "you are now visible")
	} else {
		t.printLine(events.LevelInfo, "you are now hidden; use /show to become visible again")
	}
}

func (t *Task) cmdPrivateMessage(args string) {
	target, content, ok := strings.Cut(args, " ")
	content = strings.TrimSpace(content)
	if !ok || target == "" || content == "" {
		t.printLine(events.LevelError, "usage: /pm <peer> <message>")
		return
	}
	peer, err := t.resolvePeer(target)
	if err != nil {
		t.printLine(events.LevelError, err.Error())
		return
	}
	t.commands <- events.SendPrivateMessage{Peer: peer, Content: content}
}

func (t *Task) cmdOffer(args string) {
	target, path, ok := strings.Cut(args, " ")
	path = strings.TrimSpace(path)
	if !ok || target == "" || path == "" {
		t.printLine(events.LevelError, "usage: /offer <peer> <absolute path>")
		return
	}
	peer, err := t.resolvePeer(target)
	if err != nil {
		t.printLine(events.LevelError, err.Error())
		return
	}
	if !filepath.IsAbs(path) {
		t.printLine(events.LevelError, "path must be absolute")
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		t.printLine(events.LevelError, fmt.Sprintf("cannot offer %q: %v", path, err))
		return
	}
	if info.IsDir() {
		t.printLine(events.LevelError, "cannot offer a directory")
		return
	}
	t.commands <- events.OfferFile{Peer: peer, Filename: filepath.Base(path), Size: info.Size(), Path: path}
}

func (t *Task) cmdAccept(args string) {
	target, filename, ok := strings.Cut(args, " ")
	filename = strings.TrimSpace(filename)
	if !ok || target == "" || filename == "" {
		t.printLine(events.LevelError, "usage: /accept <peer> <filename>")
		return
	}
	peer, err := t.resolvePeer(target)
	if err != nil {
		t.printLine(events.LevelError, err.Error())
		return
	}
	t.vm.ClearPendingOffer(peer, filename)
	t.commands <- events.AcceptOffer{Peer: peer, Filename: filename}
}

func (t *Task) cmdDecline(args string) {
	target, filename, ok := strings.Cut(args, " ")
	filename = strings.TrimSpace(filename)
	if !ok || target == "" || filename == "" {
		t.printLine(events.LevelError, "usage: /decline <peer> <filename>")
		return
	}
	peer, err := t.resolvePeer(target)
	if err != nil {
		t.printLine(events.LevelError, err.Error())
		return
	}
	t.vm.ClearPendingOffer(peer, filename)
	t.commands <- events.DeclineOffer{Peer: peer, Filename: filename}
}
