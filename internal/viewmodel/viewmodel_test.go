package viewmodel

import (
	"testing"

	"github.com/swapbytes/swapbytes/internal/identity"
)

func peerID(b byte) identity.ID {
	var id identity.ID
	id[0] = b
	return id
}

func TestAppendGlobalStaysPinnedToTail(t *testing.T) {
	v := New()
	v.Scroll = NewScrollState()

	v.AppendGlobal(ChatMessage{Content: "hi"})
	v.AppendGlobal(ChatMessage{Content: "there"})

	if !v.Scroll.PinnedToTail() {
		t.Fatal("scroll should remain pinned to tail when never scrolled up")
	}
}

func TestUserScrollAwayStopsAutoPin(t *testing.T) {
	v := New()
	v.Scroll = NewScrollState()
	v.Scroll.ViewportHeight = 2

	for i := 0; i < 5; i++ {
		v.AppendGlobal(ChatMessage{Content: "x"})
	}

	v.Scroll.UserScrolled(0, len(v.Global))
	if v.Scroll.PinnedToTail() {
		t.Fatal("scrolling to the top should unpin from tail")
	}

	offsetBefore := v.Scroll.Offset
	v.AppendGlobal(ChatMessage{Content: "y"})
	if v.Scroll.Offset != offsetBefore {
		t.Fatalf("offset changed after append while unpinned: %d -> %d", offsetBefore, v.Scroll.Offset)
	}
}

func TestProgressItemsCoalesce(t *testing.T) {
	v := New()
	peer := peerID(1)

	v.AppendPrivate(peer, PrivateChatItem{Kind: ItemTransferProgress, Filename: "a.bin", Direction: Download, Received: 100, Size: 1000})
	v.AppendPrivate(peer, PrivateChatItem{Kind: ItemTransferProgress, Filename: "a.bin", Direction: Download, Received: 500, Size: 1000})
	v.AppendPrivate(peer, PrivateChatItem{Kind: ItemTransferProgress, Filename: "a.bin", Direction: Download, Received: 900, Size: 1000})

	log := v.Private[peer]
	if len(log) != 1 {
		t.Fatalf("expected progress items to coalesce into one, got %d", len(log))
	}
	if log[0].Received != 900 {
		t.Fatalf("tail item not updated: %+v", log[0])
	}
}

func TestProgressDoesNotCoalesceAcrossDifferentFiles(t *testing.T) {
	v := New()
	peer := peerID(1)

	v.AppendPrivate(peer, PrivateChatItem{Kind: ItemTransferProgress, Filename: "a.bin", Direction: Download, Received: 100})
	v.AppendPrivate(peer, PrivateChatItem{Kind: ItemTransferProgress, Filename: "b.bin", Direction: Download, Received: 200})

	if len(v.Private[peer]) != 2 {
		t.Fatalf("expected 2 distinct progress items, got %d", len(v.Private[peer]))
	}
}

func TestMessageItemsNeverCoalesce(t *testing.T) {
	v := New()
	peer := peerID(1)

	v.AppendPrivate(peer, PrivateChatItem{Kind: ItemMessage, Message: ChatMessage{Content: "one"}})
	v.AppendPrivate(peer, PrivateChatItem{Kind: ItemMessage, Message: ChatMessage{Content: "two"}})

	if len(v.Private[peer]) != 2 {
		t.Fatalf("message items must be append-only, got %d entries", len(v.Private[peer]))
	}
}

func TestRewriteNicknameUpdatesSnapshotOnly(t *testing.T) {
	v := New()
	peer := peerID(1)

	v.AppendGlobal(ChatMessage{SenderIdentity: peer, SenderNicknameSnapshot: "alice", Content: "hi"})
	v.AppendPrivate(peer, PrivateChatItem{Kind: ItemMessage, Message: ChatMessage{SenderIdentity: peer, SenderNicknameSnapshot: "alice", Content: "yo"}})

	v.RewriteNickname(peer, "alicia")

	if v.Global[0].SenderNicknameSnapshot != "alicia" {
		t.Fatalf("global snapshot not rewritten: %+v", v.Global[0])
	}
	if v.Global[0].Content != "hi" {
		t.Fatal("message content must not change on nickname rewrite")
	}
	if v.Private[peer][0].Message.SenderNicknameSnapshot != "alicia" {
		t.Fatalf("private snapshot not rewritten: %+v", v.Private[peer][0])
	}
}

func TestPendingOfferSetAndClear(t *testing.T) {
	v := New()
	peer := peerID(1)

	v.SetPendingOffer(peer, "x.dat", 1000)
	if _, ok := v.PendingOffer[pendingKey{peer, "x.dat"}]; !ok {
		t.Fatal("pending offer not recorded")
	}

	v.ClearPendingOffer(peer, "x.dat")
	if _, ok := v.PendingOffer[pendingKey{peer, "x.dat"}]; ok {
		t.Fatal("pending offer not cleared")
	}
}

func TestAtBottomWithZeroViewport(t *testing.T) {
	if !AtBottom(100, 0, 0) {
		t.Fatal("an unknown viewport height should be treated as always at bottom")
	}
}
