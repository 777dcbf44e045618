package board

import (
	"sync"
	"testing"
	"time"

	"github.com/boardlyhq/boardly/backend/internal/auth"
)

// captureSender records the events fanned out to one participant. Typing
// timers fire on their own goroutines, so access is guarded.
type captureSender struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSender) Deliver(event Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *captureSender) list() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *captureSender) countByName(name string) int {
	count := 0
	for _, event := range c.list() {
		if event.Name == name {
			count++
		}
	}
	return count
}

func (c *captureSender) lastByName(name string) (Event, bool) {
	var found Event
	ok := false
	for _, event := range c.list() {
		if event.Name == name {
			found = event
			ok = true
		}
	}
	return found, ok
}

func newTestRoom(t *testing.T, policy Policy) *Room {
	t.Helper()
	return newRoom("room-1", policy, roomConfig{
		historyDepth: 10,
		chatLogLimit: 10,
		typingIdle:   -1,
	})
}

func mustJoin(t *testing.T, room *Room, connectionID, username, password string, sender Sender) Details {
	t.Helper()
	details, err := room.Join(JoinRequest{
		ConnectionID: connectionID,
		Username:     username,
		Password:     password,
		Sender:       sender,
	})
	if err != nil {
		t.Fatalf("join failed for %s: %v", username, err)
	}
	return details
}

func TestJoinReturnsExactlyConnectedParticipants(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open room"})

	alice := &captureSender{}
	bob := &captureSender{}

	first := mustJoin(t, room, "conn-a", "alice", "", alice)
	if len(first.Users) != 1 || first.Users[0].Username != "alice" {
		t.Fatalf("expected [alice], got %#v", first.Users)
	}

	second := mustJoin(t, room, "conn-b", "bob", "", bob)
	if len(second.Users) != 2 || second.Users[0].Username != "alice" || second.Users[1].Username != "bob" {
		t.Fatalf("expected [alice bob] in join order, got %#v", second.Users)
	}

	// The presence update reaches everyone, the joiner included.
	if alice.countByName(EventUserList) != 2 {
		t.Fatalf("expected alice to observe 2 user-list updates, got %d", alice.countByName(EventUserList))
	}
	if bob.countByName(EventUserList) != 1 {
		t.Fatalf("expected bob to observe 1 user-list update, got %d", bob.countByName(EventUserList))
	}
}

func TestPrivateRoomJoinScenario(t *testing.T) {
	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	room := newTestRoom(t, Policy{Name: "abc123", IsPrivate: true, PasswordHash: hash})

	alice := &captureSender{}
	bob := &captureSender{}

	mustJoin(t, room, "conn-a", "alice", "secret", alice)
	if room.ParticipantCount() != 1 {
		t.Fatalf("expected 1 participant, got %d", room.ParticipantCount())
	}

	if _, err := room.Join(JoinRequest{ConnectionID: "conn-b", Username: "bob", Password: "wrong", Sender: bob}); err != ErrIncorrectPassword {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
	if room.ParticipantCount() != 1 {
		t.Fatalf("expected failed join to leave participant count unchanged, got %d", room.ParticipantCount())
	}

	details := mustJoin(t, room, "conn-b", "bob", "secret", bob)
	if len(details.Users) != 2 {
		t.Fatalf("expected 2 participants after retry, got %d", len(details.Users))
	}
	if alice.countByName(EventUserList) != 2 || bob.countByName(EventUserList) != 1 {
		t.Fatal("expected both participants to receive the updated user list")
	}
}

func TestPrivateRoomRequiresPassword(t *testing.T) {
	hash, err := auth.HashPassword("secret")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	room := newTestRoom(t, Policy{Name: "locked", IsPrivate: true, PasswordHash: hash})

	if _, err := room.Join(JoinRequest{ConnectionID: "conn-a", Username: "alice", Sender: &captureSender{}}); err != ErrPasswordRequired {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
	if room.ParticipantCount() != 0 {
		t.Fatalf("expected no participants after rejected join, got %d", room.ParticipantCount())
	}
}

func TestDuplicateConnectionIDRejected(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	mustJoin(t, room, "conn-a", "alice", "", &captureSender{})

	if _, err := room.Join(JoinRequest{ConnectionID: "conn-a", Username: "alice-again", Sender: &captureSender{}}); err != ErrAlreadyJoined {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestCommitStrokeUndoRedoScenario(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	alice := &captureSender{}
	bob := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", alice)
	mustJoin(t, room, "conn-b", "bob", "", bob)

	room.CommitStroke("conn-a", "S0", "stroke-payload-0")
	room.CommitStroke("conn-a", "S1", "stroke-payload-1")
	if room.Snapshot() != "S1" {
		t.Fatalf("expected authoritative snapshot S1, got %q", room.Snapshot())
	}

	// The completed stroke reaches the other participant only.
	if bob.countByName(EventDraw) != 2 {
		t.Fatalf("expected bob to receive 2 draw events, got %d", bob.countByName(EventDraw))
	}
	if alice.countByName(EventDraw) != 0 {
		t.Fatalf("expected alice to receive no echo of her own strokes, got %d", alice.countByName(EventDraw))
	}

	if !room.Undo() {
		t.Fatal("expected undo to succeed")
	}
	if room.Snapshot() != "S0" {
		t.Fatalf("expected canvas S0 after undo, got %q", room.Snapshot())
	}

	// Undo broadcasts the authoritative bitmap to everyone, requester included.
	for name, sender := range map[string]*captureSender{"alice": alice, "bob": bob} {
		event, ok := sender.lastByName(EventCanvasData)
		if !ok {
			t.Fatalf("expected %s to receive canvas-data after undo", name)
		}
		if event.Data.(CanvasData).CanvasData != "S0" {
			t.Fatalf("expected %s to receive S0, got %#v", name, event.Data)
		}
	}

	if !room.Redo() {
		t.Fatal("expected redo to succeed")
	}
	if room.Snapshot() != "S1" {
		t.Fatalf("expected canvas S1 after redo, got %q", room.Snapshot())
	}
	if room.Redo() {
		t.Fatal("expected second redo to be a no-op")
	}
}

func TestEditAfterUndoDiscardsRedoBranch(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	mustJoin(t, room, "conn-a", "alice", "", &captureSender{})

	room.CommitStroke("conn-a", "S1", nil)
	if !room.Undo() {
		t.Fatal("expected undo to succeed")
	}

	room.CommitStroke("conn-a", "S2", nil)

	if room.Redo() {
		t.Fatal("expected redo to be a no-op after a new committed edit")
	}
	if room.Snapshot() != "S2" {
		t.Fatalf("expected snapshot S2, got %q", room.Snapshot())
	}
}

func TestClearResetsCanvasAndIsUndoable(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	alice := &captureSender{}
	bob := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", alice)
	mustJoin(t, room, "conn-b", "bob", "", bob)

	room.CommitStroke("conn-a", "S1", nil)
	room.Clear()

	if room.Snapshot() != "" {
		t.Fatalf("expected empty baseline after clear, got %q", room.Snapshot())
	}
	if alice.countByName(EventClearCanvas) != 1 || bob.countByName(EventClearCanvas) != 1 {
		t.Fatal("expected clear-canvas broadcast to all participants")
	}

	if !room.Undo() {
		t.Fatal("expected clear to be undoable")
	}
	if room.Snapshot() != "S1" {
		t.Fatalf("expected undo of clear to restore S1, got %q", room.Snapshot())
	}
}

func TestRelayStrokeSkipsSenderAndLeavesStateUntouched(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	alice := &captureSender{}
	bob := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", alice)
	mustJoin(t, room, "conn-b", "bob", "", bob)

	room.RelayStroke("conn-a", "segment")

	if bob.countByName(EventStroke) != 1 {
		t.Fatalf("expected bob to receive the segment, got %d", bob.countByName(EventStroke))
	}
	if alice.countByName(EventStroke) != 0 {
		t.Fatal("expected no echo to the sender")
	}
	if room.Snapshot() != "" {
		t.Fatal("expected transient segments to leave the snapshot untouched")
	}
}

func TestRequestCanvasIsIdempotent(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	mustJoin(t, room, "conn-a", "alice", "", &captureSender{})

	room.CommitStroke("conn-a", "S1", nil)

	first := room.Snapshot()
	second := room.Snapshot()
	if first != second || first != "S1" {
		t.Fatalf("expected identical snapshots with no intervening edit, got %q and %q", first, second)
	}
}

func TestAppendMessageStampsServerTimeAndBroadcastsToAll(t *testing.T) {
	fixed := time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)
	room := newRoom("room-1", Policy{Name: "open"}, roomConfig{
		chatLogLimit: 10,
		typingIdle:   -1,
		clock:        func() time.Time { return fixed },
	})
	alice := &captureSender{}
	bob := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", alice)
	mustJoin(t, room, "conn-b", "bob", "", bob)

	message, err := room.AppendMessage("alice", "  hello board  ")
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if message.Message != "hello board" {
		t.Fatalf("expected trimmed message, got %q", message.Message)
	}
	if !message.Timestamp.Equal(fixed) {
		t.Fatalf("expected server-stamped timestamp %v, got %v", fixed, message.Timestamp)
	}

	// Sender included, so displayed order is server-authoritative.
	if alice.countByName(EventReceiveMessage) != 1 || bob.countByName(EventReceiveMessage) != 1 {
		t.Fatal("expected receive-message broadcast to all participants")
	}
}

func TestAppendMessageRejectsBlankText(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	alice := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", alice)

	if _, err := room.AppendMessage("alice", "   "); err != ErrEmptyMessage {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if alice.countByName(EventReceiveMessage) != 0 {
		t.Fatal("expected no broadcast for a rejected message")
	}
}

func TestChatMessagesObservedInArrivalOrder(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	alice := &captureSender{}
	bob := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", alice)
	mustJoin(t, room, "conn-b", "bob", "", bob)

	expected := []string{"one", "two", "three", "four"}
	senders := []string{"alice", "bob", "alice", "bob"}
	for index, text := range expected {
		if _, err := room.AppendMessage(senders[index], text); err != nil {
			t.Fatalf("append %q failed: %v", text, err)
		}
	}

	for name, capture := range map[string]*captureSender{"alice": alice, "bob": bob} {
		observed := make([]string, 0, len(expected))
		for _, event := range capture.list() {
			if event.Name != EventReceiveMessage {
				continue
			}
			observed = append(observed, event.Data.(ChatMessage).Message)
		}
		if len(observed) != len(expected) {
			t.Fatalf("expected %s to observe %d messages, got %d", name, len(expected), len(observed))
		}
		for index := range expected {
			if observed[index] != expected[index] {
				t.Fatalf("expected %s to observe %q at position %d, got %q", name, expected[index], index, observed[index])
			}
		}
	}
}

func TestTypingRelayedToOthersAndExpires(t *testing.T) {
	room := newRoom("room-1", Policy{Name: "open"}, roomConfig{
		typingIdle: 30 * time.Millisecond,
	})
	alice := &captureSender{}
	bob := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", alice)
	mustJoin(t, room, "conn-b", "bob", "", bob)

	room.SetTyping("conn-a")

	if bob.countByName(EventUserTyping) != 1 {
		t.Fatalf("expected bob to observe user-typing, got %d", bob.countByName(EventUserTyping))
	}
	if alice.countByName(EventUserTyping) != 0 {
		t.Fatal("expected no typing echo to the typist")
	}

	deadline := time.After(500 * time.Millisecond)
	for bob.countByName(EventUserStopTyping) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected idle timer to emit user-stop-typing")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if stop, _ := bob.lastByName(EventUserStopTyping); stop.Data.(UserInfo).Username != "alice" {
		t.Fatalf("expected stop signal for alice, got %#v", stop.Data)
	}
}

func TestExplicitStopTypingCancelsTimer(t *testing.T) {
	room := newRoom("room-1", Policy{Name: "open"}, roomConfig{
		typingIdle: 30 * time.Millisecond,
	})
	bob := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", &captureSender{})
	mustJoin(t, room, "conn-b", "bob", "", bob)

	room.SetTyping("conn-a")
	room.StopTyping("conn-a")

	if bob.countByName(EventUserStopTyping) != 1 {
		t.Fatalf("expected exactly one stop signal, got %d", bob.countByName(EventUserStopTyping))
	}

	// The cancelled timer must not fire a second stop.
	time.Sleep(80 * time.Millisecond)
	if bob.countByName(EventUserStopTyping) != 1 {
		t.Fatalf("expected cancelled timer to stay silent, got %d stop signals", bob.countByName(EventUserStopTyping))
	}
}

func TestLeaveBroadcastsShrunkenUserListAndClearsTyping(t *testing.T) {
	room := newRoom("room-1", Policy{Name: "open"}, roomConfig{
		typingIdle: time.Minute,
	})
	alice := &captureSender{}
	bob := &captureSender{}
	mustJoin(t, room, "conn-a", "alice", "", alice)
	mustJoin(t, room, "conn-b", "bob", "", bob)

	room.SetTyping("conn-b")

	remaining, existed := room.Leave("conn-b")
	if !existed {
		t.Fatal("expected leave to find the participant")
	}
	if remaining != 1 {
		t.Fatalf("expected 1 remaining participant, got %d", remaining)
	}

	event, ok := alice.lastByName(EventUserList)
	if !ok {
		t.Fatal("expected alice to receive an updated user list")
	}
	users := event.Data.([]UserInfo)
	if len(users) != 1 || users[0].Username != "alice" {
		t.Fatalf("expected remaining list [alice], got %#v", users)
	}
	if alice.countByName(EventUserStopTyping) != 1 {
		t.Fatal("expected the leaver's typing indicator to be cleared")
	}
}

func TestLeaveUnknownConnectionIsNoOp(t *testing.T) {
	room := newTestRoom(t, Policy{Name: "open"})
	mustJoin(t, room, "conn-a", "alice", "", &captureSender{})

	remaining, existed := room.Leave("conn-missing")
	if existed {
		t.Fatal("expected unknown connection to report not found")
	}
	if remaining != 1 {
		t.Fatalf("expected participant count unchanged, got %d", remaining)
	}
}
