package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestConn(userID uuid.UUID) *Connection {
	return &Connection{
		UserID: userID,
		Send:   make(chan []byte, 16),
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)
	return hub
}

// waitEvent reads the next event from the connection's send channel.
func waitEvent(t *testing.T, conn *Connection) Envelope {
	t.Helper()
	select {
	case payload, ok := <-conn.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Envelope{}
	}
}

func expectNoEvent(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case payload := <-conn.Send:
		t.Fatalf("unexpected event: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func onlineIDs(t *testing.T, env Envelope) []string {
	t.Helper()
	if env.Event != EventOnlineUsers {
		t.Fatalf("expected %s, got %s", EventOnlineUsers, env.Event)
	}
	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		t.Fatalf("unmarshal online ids: %v", err)
	}
	return ids
}

func TestRegisterBroadcastsOnlineUsers(t *testing.T) {
	hub := startHub(t)

	alice := newTestConn(uuid.New())
	hub.Register(alice)

	ids := onlineIDs(t, waitEvent(t, alice))
	if len(ids) != 1 || ids[0] != alice.UserID.String() {
		t.Fatalf("expected [%s], got %v", alice.UserID, ids)
	}

	bob := newTestConn(uuid.New())
	hub.Register(bob)

	// both connections see the two-user snapshot
	if got := onlineIDs(t, waitEvent(t, alice)); len(got) != 2 {
		t.Fatalf("expected 2 online users, got %v", got)
	}
	if got := onlineIDs(t, waitEvent(t, bob)); len(got) != 2 {
		t.Fatalf("expected 2 online users, got %v", got)
	}
}

func TestReconnectReplacesConnection(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()

	first := newTestConn(userID)
	hub.Register(first)
	waitEvent(t, first)

	second := newTestConn(userID)
	hub.Register(second)
	waitEvent(t, second)

	if hub.ConnectionCount() != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.ConnectionCount())
	}
	if hub.Lookup(userID) != second {
		t.Fatal("expected latest connection to win")
	}
}

func TestStaleUnregisterIsIgnored(t *testing.T) {
	hub := startHub(t)
	userID := uuid.New()

	first := newTestConn(userID)
	hub.Register(first)
	waitEvent(t, first)

	second := newTestConn(userID)
	hub.Register(second)
	waitEvent(t, second)

	// the superseded connection disconnecting must not remove the new one
	hub.Unregister(first)

	hub.Emit(userID, EventUserTyping, TypingPayload{SenderID: userID, IsTyping: true})
	env := waitEvent(t, second)
	if env.Event != EventUserTyping {
		t.Fatalf("expected %s after stale unregister, got %s", EventUserTyping, env.Event)
	}
	if !hub.IsOnline(userID) {
		t.Fatal("user should still be online")
	}
}

func TestUnregisterBroadcastsAndClosesSend(t *testing.T) {
	hub := startHub(t)

	alice := newTestConn(uuid.New())
	bob := newTestConn(uuid.New())
	hub.Register(alice)
	waitEvent(t, alice)
	hub.Register(bob)
	waitEvent(t, alice)
	waitEvent(t, bob)

	hub.Unregister(bob)

	ids := onlineIDs(t, waitEvent(t, alice))
	if len(ids) != 1 || ids[0] != alice.UserID.String() {
		t.Fatalf("expected only alice online, got %v", ids)
	}

	select {
	case _, ok := <-bob.Send:
		if ok {
			t.Fatal("expected bob's send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("bob's send channel was not closed")
	}
}

func TestEmitToOfflineUserIsNoOp(t *testing.T) {
	hub := startHub(t)

	alice := newTestConn(uuid.New())
	hub.Register(alice)
	waitEvent(t, alice)

	hub.Emit(uuid.New(), EventNewMessage, nil)
	expectNoEvent(t, alice)
}

func TestEmitToEachDedupsSameConnection(t *testing.T) {
	hub := startHub(t)

	alice := newTestConn(uuid.New())
	hub.Register(alice)
	waitEvent(t, alice)

	hub.EmitToEach(EventNewMessage, map[string]string{"k": "v"}, alice.UserID, alice.UserID)

	if env := waitEvent(t, alice); env.Event != EventNewMessage {
		t.Fatalf("expected %s, got %s", EventNewMessage, env.Event)
	}
	expectNoEvent(t, alice)
}
