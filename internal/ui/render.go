package ui

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/swapbytes/swapbytes/internal/events"
	"github.com/swapbytes/swapbytes/internal/viewmodel"
)

const helpText = `SwapBytes commands:
  /help, /h                 Show this help message
  /me                       Show my info (addr, peer id, dir, nickname, visibility)
  /setdir <path>            Set the absolute path for downloads
  /setname <name>           Set your nickname (3-16 chars, a-z A-Z 0-9 - _)
  /ping <host:port>         Ping a peer and time the round trip
  /pm <peer> <message>      Send a private message
  /offer <peer> <path>      Offer a file to a peer
  /accept <peer> <file>     Accept a pending file offer
  /decline <peer> <file>    Decline a pending file offer
  /hide                     Appear offline to other peers
  /show                     Appear online to other peers
  /quit, /q                 Exit SwapBytes
Anything not starting with "/" is sent as a global chat message.`

func (t *Task) printHelp() { t.println(helpText) }

// printMe implements /me per §6 plus the supplemental fingerprint and
// peer-count reporting original_source's event_handler.rs status
// rendering adds.
func (t *Task) printMe() {
	online, hidden := 0, 0
	for _, v := range t.peers {
		if v.Online {
			online++
		} else {
			hidden++
		}
	}

	visibility := "hidden"
	if t.visible {
		visibility = "visible"
	}

	t.println("You are listening on:", t.listenAddr)
	t.println("Peer id:", t.self.String())
	t.println("Fingerprint:", t.self.Short())
	t.println("Nickname:", t.nickname)
	if t.downloadDir == "" {
		t.println("Download directory: (not set, use /setdir)")
	} else {
		t.println("Download directory:", t.downloadDir)
	}
	t.println(fmt.Sprintf("Visibility: %s (%d online, %d hidden-or-stale peers known)", visibility, online, hidden))
}

// handleEvent folds one network->UI event into the view model and
// renders it, mirroring event_handler.rs's single big dispatch over
// AppEvent onto the TUI's panes.
func (t *Task) handleEvent(ev events.Event) {
	switch e := ev.(type) {
	case events.GlobalMessageReceived:
		if e.Sender == t.self {
			return // we already echoed our own send
		}
		t.vm.AppendGlobal(viewmodel.ChatMessage{SenderIdentity: e.Sender, SenderNicknameSnapshot: e.Nickname, Content: e.Content, TimestampMs: e.TimestampMs})
		label := e.Nickname
		if label == "" {
			label = e.Sender.Short()
		}
		t.println(fmt.Sprintf("[global] %s: %s", label, e.Content))

	case events.PeerDiscovered:
		t.log.Debug("peer discovered", "peer", e.Peer.Short())

	case events.PeerNicknameChanged:
		t.vm.RewriteNickname(e.Peer, e.NewName)
		if e.OldName != "" {
			t.printLine(events.LevelInfo, fmt.Sprintf("%s is now known as %s", e.OldName, e.NewName))
		}

	case events.PeerDirectoryUpdated:
		t.peers = e.Snapshot

	case events.PrivateMessageReceived:
		t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{
			Kind:    viewmodel.ItemMessage,
			Message: viewmodel.ChatMessage{SenderIdentity: e.Peer, SenderNicknameSnapshot: t.nicknameOf(e.Peer), Content: e.Content, TimestampMs: e.TimestampMs},
		})
		t.println(fmt.Sprintf("[pm %s] %s", t.peerLabel(e.Peer), e.Content))

	case events.PrivateMessageSent:
		t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{
			Kind:    viewmodel.ItemMessage,
			Message: viewmodel.ChatMessage{SenderIdentity: t.self, SenderNicknameSnapshot: t.nickname, Content: e.Content, TimestampMs: e.TimestampMs},
		})

	case events.FileOfferReceived:
		t.vm.SetPendingOffer(e.Peer, e.Filename, e.Size)
		t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{Kind: viewmodel.ItemOfferReceived, Filename: e.Filename, Size: e.Size})
		t.println(fmt.Sprintf("%s offered %q (%s) -- /accept %s %s or /decline %s %s",
			t.peerLabel(e.Peer), e.Filename, humanize.Bytes(uint64(e.Size)), e.Peer.Short(), e.Filename, e.Peer.Short(), e.Filename))

	case events.FileOfferSent:
		t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{Kind: viewmodel.ItemOfferSent, Filename: e.Filename, Size: e.Size, LocalPath: e.LocalPath})
		t.println(fmt.Sprintf("offered %q (%s) to %s", e.Filename, humanize.Bytes(uint64(e.Size)), t.peerLabel(e.Peer)))

	case events.FileOfferDeclined:
		t.vm.ClearPendingOffer(e.Peer, e.Filename)
		t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{Kind: viewmodel.ItemOfferDeclinedByRemote, Filename: e.Filename})
		t.println(fmt.Sprintf("%s declined %q", t.peerLabel(e.Peer), e.Filename))

	case events.FileOfferAccepted:
		t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{Kind: viewmodel.ItemOfferAcceptedByRemote, Filename: e.Filename})
		t.println(fmt.Sprintf("%s accepted %q", t.peerLabel(e.Peer), e.Filename))

	case events.FileTransferProgress:
		t.renderProgress(e)

	case events.FileTransferComplete:
		t.throughput.clear(transferKey{Peer: e.Peer, Filename: e.Filename, Direction: e.Direction})
		t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{
			Kind: viewmodel.ItemTransferComplete, Filename: e.Filename, FinalPath: e.FinalPath, Size: e.Size,
		})
		verb := "received"
		if e.Direction == events.Upload {
			verb = "sent"
		}
		t.println(fmt.Sprintf("transfer complete: %s %s (%s) %s", verb, e.Filename, humanize.Bytes(uint64(e.Size)), finalPathSuffix(e)))

	case events.FileTransferFailed:
		t.throughput.clear(transferKey{Peer: e.Peer, Filename: e.Filename, Direction: e.Direction})
		t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{Kind: viewmodel.ItemTransferFailed, Filename: e.Filename, Error: e.Error})
		t.printLine(events.LevelError, fmt.Sprintf("transfer of %q with %s failed: %s", e.Filename, t.peerLabel(e.Peer), e.Error))

	case events.PingResult:
		if e.Err != nil {
			t.printLine(events.LevelError, fmt.Sprintf("ping %s failed: %v", e.Target, e.Err))
			return
		}
		t.println(fmt.Sprintf("ping %s: %.1fms", e.Target, float64(e.RTT.Microseconds())/1000))

	case events.LogLine:
		t.printLine(e.Level, e.Message)
	}
}

func finalPathSuffix(e events.FileTransferComplete) string {
	if e.FinalPath == "" {
		return ""
	}
	return "-> " + e.FinalPath
}

func (t *Task) renderProgress(e events.FileTransferProgress) {
	key := transferKey{Peer: e.Peer, Filename: e.Filename, Direction: e.Direction}
	rate := t.throughput.update(key, e.Received)

	t.vm.AppendPrivate(e.Peer, viewmodel.PrivateChatItem{
		Kind: viewmodel.ItemTransferProgress, Filename: e.Filename,
		Direction: viewmodel.Direction(e.Direction), Received: e.Received, Size: e.Total,
	})

	var pct float64
	if e.Total > 0 {
		pct = float64(e.Received) / float64(e.Total) * 100
	}
	verb := "downloading"
	if e.Direction == events.Upload {
		verb = "uploading"
	}
	t.println(fmt.Sprintf("%s %q: %s/%s (%.1f%%, %s/s)",
		verb, e.Filename, humanize.Bytes(uint64(e.Received)), humanize.Bytes(uint64(e.Total)), pct, humanize.Bytes(uint64(rate))))
}
