package message

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pingline/pingline-api/internal/domain/friend"
	"github.com/pingline/pingline-api/internal/domain/user"
	"github.com/pingline/pingline-api/internal/pkg/upload"
	"github.com/pingline/pingline-api/internal/realtime"
)

type stubRepo struct {
	messages map[uuid.UUID]*Message
	list     []*Message

	deletedFor     []uuid.UUID
	markedEveryone bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{messages: make(map[uuid.UUID]*Message)}
}

func (s *stubRepo) Create(_ context.Context, msg *Message) error {
	stored := *msg
	stored.CreatedAt = time.Now()
	s.messages[msg.ID] = &stored
	return nil
}

func (s *stubRepo) GetByID(_ context.Context, id uuid.UUID) (*Message, error) {
	msg, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *msg
	return &copied, nil
}

func (s *stubRepo) ListBetween(_ context.Context, _, _ uuid.UUID) ([]*Message, error) {
	return s.list, nil
}

func (s *stubRepo) AddDeletedFor(_ context.Context, id uuid.UUID, userID uuid.UUID) error {
	s.deletedFor = append(s.deletedFor, userID)
	if msg, ok := s.messages[id]; ok && !msg.HiddenFor(userID) {
		msg.DeletedFor = append(msg.DeletedFor, userID.String())
	}
	return nil
}

func (s *stubRepo) MarkDeletedForEveryone(_ context.Context, id uuid.UUID, senderID, receiverID uuid.UUID) error {
	s.markedEveryone = true
	if msg, ok := s.messages[id]; ok {
		msg.DeleteForEveryone = true
		msg.DeletedFor = append(msg.DeletedFor, senderID.String(), receiverID.String())
	}
	return nil
}

type stubFriends struct {
	snap     friend.Snapshot
	partners []*user.PublicProfile
}

func (s *stubFriends) Relationship(_ context.Context, _, _ uuid.UUID) (*friend.Snapshot, error) {
	snap := s.snap
	return &snap, nil
}

func (s *stubFriends) Partners(_ context.Context, _ uuid.UUID) ([]*user.PublicProfile, error) {
	return s.partners, nil
}

type stubUsers struct {
	byID map[uuid.UUID]*user.User
}

func (s *stubUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return s.byID[id], nil
}

type stubUploader struct {
	url    string
	err    error
	called bool
}

func (s *stubUploader) Upload(_ context.Context, _ uuid.UUID, _ string, _ upload.Kind) (string, error) {
	s.called = true
	return s.url, s.err
}

type fixture struct {
	repo     *stubRepo
	friends  *stubFriends
	uploader *stubUploader
	hub      *realtime.Hub
	svc      Service

	alice *user.User
	bob   *user.User
}

func newFixture(t *testing.T, snap friend.Snapshot) *fixture {
	t.Helper()

	alice := &user.User{ID: uuid.New(), FullName: "alice", Email: "alice@example.com"}
	bob := &user.User{ID: uuid.New(), FullName: "bob", Email: "bob@example.com"}

	repo := newStubRepo()
	friends := &stubFriends{snap: snap}
	uploader := &stubUploader{url: "https://cdn.example.com/img.jpg"}
	users := &stubUsers{byID: map[uuid.UUID]*user.User{alice.ID: alice, bob.ID: bob}}

	hub := realtime.NewHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	svc := NewService(repo, users, friends, uploader, NewRateLimiter(nil), hub)

	return &fixture{
		repo:     repo,
		friends:  friends,
		uploader: uploader,
		hub:      hub,
		svc:      svc,
		alice:    alice,
		bob:      bob,
	}
}

func (f *fixture) connect(t *testing.T, userID uuid.UUID) *realtime.Connection {
	t.Helper()
	conn := &realtime.Connection{UserID: userID, Send: make(chan []byte, 16)}
	f.hub.Register(conn)
	// drain the online snapshot the registration broadcasts
	drainEvents(t, conn, 1)
	return conn
}

func drainEvents(t *testing.T, conn *realtime.Connection, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		waitEvent(t, conn)
	}
}

func waitEvent(t *testing.T, conn *realtime.Connection) realtime.Envelope {
	t.Helper()
	select {
	case payload, ok := <-conn.Send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var env realtime.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return realtime.Envelope{}
	}
}

func expectNoEvent(t *testing.T, conn *realtime.Connection) {
	t.Helper()
	select {
	case payload := <-conn.Send:
		t.Fatalf("unexpected event: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendMessage(t *testing.T) {
	t.Run("delivers to both participants", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		aliceConn := f.connect(t, f.alice.ID)
		bobConn := f.connect(t, f.bob.ID)
		drainEvents(t, aliceConn, 1) // bob's registration broadcast

		resp, err := f.svc.SendMessage(context.Background(), f.alice.ID, f.bob.ID, &SendMessageRequest{Text: "hi"})
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
		if resp.Text != "hi" {
			t.Errorf("text = %q, want %q", resp.Text, "hi")
		}
		if len(f.repo.messages) != 1 {
			t.Fatalf("expected 1 persisted message, got %d", len(f.repo.messages))
		}

		for _, conn := range []*realtime.Connection{bobConn, aliceConn} {
			env := waitEvent(t, conn)
			if env.Event != realtime.EventNewMessage {
				t.Errorf("event = %s, want %s", env.Event, realtime.EventNewMessage)
			}
		}
	})

	t.Run("non-friends are refused with no events", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{})
		bobConn := f.connect(t, f.bob.ID)

		_, err := f.svc.SendMessage(context.Background(), f.alice.ID, f.bob.ID, &SendMessageRequest{Text: "hi"})
		if err != ErrNotFriends {
			t.Fatalf("error = %v, want ErrNotFriends", err)
		}
		if len(f.repo.messages) != 0 {
			t.Error("denied message must not be persisted")
		}
		expectNoEvent(t, bobConn)
	})

	t.Run("block in either direction wins over friendship", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true, ViewerIsBlocked: true})

		_, err := f.svc.SendMessage(context.Background(), f.alice.ID, f.bob.ID, &SendMessageRequest{Text: "hi"})
		if err != ErrBlocked {
			t.Fatalf("error = %v, want ErrBlocked", err)
		}
	})

	t.Run("empty message is rejected", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})

		_, err := f.svc.SendMessage(context.Background(), f.alice.ID, f.bob.ID, &SendMessageRequest{})
		if err != ErrEmptyMessage {
			t.Fatalf("error = %v, want ErrEmptyMessage", err)
		}
	})

	t.Run("image goes through the upload pipeline", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})

		resp, err := f.svc.SendMessage(context.Background(), f.alice.ID, f.bob.ID, &SendMessageRequest{Image: "aGVsbG8="})
		if err != nil {
			t.Fatalf("SendMessage() error = %v", err)
		}
		if !f.uploader.called {
			t.Error("uploader was not called")
		}
		if resp.Image != f.uploader.url {
			t.Errorf("image = %q, want %q", resp.Image, f.uploader.url)
		}
	})

	t.Run("upload failure aborts the send", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		f.uploader.err = upload.ErrUploadFailed

		_, err := f.svc.SendMessage(context.Background(), f.alice.ID, f.bob.ID, &SendMessageRequest{Image: "aGVsbG8="})
		if !errors.Is(err, upload.ErrUploadFailed) {
			t.Fatalf("error = %v, want ErrUploadFailed", err)
		}
		if len(f.repo.messages) != 0 {
			t.Error("failed upload must not persist a message")
		}
	})
}

func TestGetMessages(t *testing.T) {
	t.Run("flagged rows never leak content", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		f.repo.list = []*Message{
			{ID: uuid.New(), SenderID: f.alice.ID, ReceiverID: f.bob.ID, Text: "hello"},
			// a flagged row normally carries both ids in deleted_for and is
			// filtered at the query; redaction still guards the boundary
			{ID: uuid.New(), SenderID: f.bob.ID, ReceiverID: f.alice.ID, Text: "secret", ImageURL: "x.jpg", DeleteForEveryone: true},
		}

		messages, err := f.svc.GetMessages(context.Background(), f.alice.ID, f.bob.ID)
		if err != nil {
			t.Fatalf("GetMessages() error = %v", err)
		}
		if len(messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(messages))
		}
		if messages[0].Text != "hello" {
			t.Errorf("first message text = %q", messages[0].Text)
		}
		redacted := messages[1]
		if !redacted.DeleteForEveryone {
			t.Error("expected delete_for_everyone flag")
		}
		if redacted.Text != "" || redacted.Image != "" {
			t.Errorf("redacted message leaked content: %+v", redacted)
		}
	})

	t.Run("non-friends cannot read the conversation", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{})
		if _, err := f.svc.GetMessages(context.Background(), f.alice.ID, f.bob.ID); err != ErrNotFriends {
			t.Fatalf("error = %v, want ErrNotFriends", err)
		}
	})
}

func TestDeleteMessage(t *testing.T) {
	seed := func(f *fixture) *Message {
		msg := &Message{ID: uuid.New(), SenderID: f.alice.ID, ReceiverID: f.bob.ID, Text: "hi"}
		f.repo.messages[msg.ID] = msg
		return msg
	}

	t.Run("for me hides it for the caller only", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		msg := seed(f)
		bobConn := f.connect(t, f.bob.ID)

		if err := f.svc.DeleteMessage(context.Background(), f.bob.ID, msg.ID, false); err != nil {
			t.Fatalf("DeleteMessage() error = %v", err)
		}
		if len(f.repo.deletedFor) != 1 || f.repo.deletedFor[0] != f.bob.ID {
			t.Errorf("deletedFor = %v, want [%s]", f.repo.deletedFor, f.bob.ID)
		}
		if f.repo.markedEveryone {
			t.Error("for-me delete must not affect the other participant")
		}

		env := waitEvent(t, bobConn)
		if env.Event != realtime.EventMessageDeleted {
			t.Errorf("event = %s, want %s", env.Event, realtime.EventMessageDeleted)
		}
	})

	t.Run("for everyone is sender-only", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		msg := seed(f)

		if err := f.svc.DeleteMessage(context.Background(), f.bob.ID, msg.ID, true); err != ErrNotSender {
			t.Fatalf("error = %v, want ErrNotSender", err)
		}
		if f.repo.markedEveryone {
			t.Error("receiver must not delete for everyone")
		}
	})

	t.Run("for everyone notifies both participants", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		msg := seed(f)
		aliceConn := f.connect(t, f.alice.ID)
		bobConn := f.connect(t, f.bob.ID)
		drainEvents(t, aliceConn, 1)

		if err := f.svc.DeleteMessage(context.Background(), f.alice.ID, msg.ID, true); err != nil {
			t.Fatalf("DeleteMessage() error = %v", err)
		}
		if !f.repo.markedEveryone {
			t.Error("message was not marked deleted for everyone")
		}
		stored := f.repo.messages[msg.ID]
		if !stored.HiddenFor(f.alice.ID) || !stored.HiddenFor(f.bob.ID) {
			t.Error("both participants must end up in deleted_for")
		}

		for _, conn := range []*realtime.Connection{aliceConn, bobConn} {
			env := waitEvent(t, conn)
			if env.Event != realtime.EventMessageDeleted {
				t.Errorf("event = %s, want %s", env.Event, realtime.EventMessageDeleted)
			}
		}
	})

	t.Run("for everyone is terminal", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		msg := seed(f)
		msg.DeleteForEveryone = true

		if err := f.svc.DeleteMessage(context.Background(), f.alice.ID, msg.ID, true); err != ErrAlreadyDeleted {
			t.Fatalf("error = %v, want ErrAlreadyDeleted", err)
		}
	})

	t.Run("outsiders cannot delete", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		msg := seed(f)

		if err := f.svc.DeleteMessage(context.Background(), uuid.New(), msg.ID, false); err != ErrNotParticipant {
			t.Fatalf("error = %v, want ErrNotParticipant", err)
		}
	})

	t.Run("unknown message", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		if err := f.svc.DeleteMessage(context.Background(), f.alice.ID, uuid.New(), false); err != ErrMessageNotFound {
			t.Fatalf("error = %v, want ErrMessageNotFound", err)
		}
	})
}

func TestForwardMessage(t *testing.T) {
	t.Run("relays without persisting", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		bobConn := f.connect(t, f.bob.ID)

		if err := f.svc.ForwardMessage(context.Background(), f.alice.ID, f.bob.ID, "hi", ""); err != nil {
			t.Fatalf("ForwardMessage() error = %v", err)
		}
		if len(f.repo.messages) != 0 {
			t.Error("forwarded message must not be persisted")
		}

		env := waitEvent(t, bobConn)
		if env.Event != realtime.EventNewMessage {
			t.Errorf("event = %s, want %s", env.Event, realtime.EventNewMessage)
		}
	})

	t.Run("runs the same gate as persisted sends", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true, ViewerBlocked: true})
		bobConn := f.connect(t, f.bob.ID)

		if err := f.svc.ForwardMessage(context.Background(), f.alice.ID, f.bob.ID, "hi", ""); err != ErrBlocked {
			t.Fatalf("error = %v, want ErrBlocked", err)
		}
		expectNoEvent(t, bobConn)
	})
}

func TestForwardTyping(t *testing.T) {
	t.Run("relays the indicator", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{Friends: true})
		bobConn := f.connect(t, f.bob.ID)

		if err := f.svc.ForwardTyping(context.Background(), f.alice.ID, f.bob.ID, true); err != nil {
			t.Fatalf("ForwardTyping() error = %v", err)
		}

		env := waitEvent(t, bobConn)
		if env.Event != realtime.EventUserTyping {
			t.Errorf("event = %s, want %s", env.Event, realtime.EventUserTyping)
		}
	})

	t.Run("gated for non-friends", func(t *testing.T) {
		f := newFixture(t, friend.Snapshot{})
		if err := f.svc.ForwardTyping(context.Background(), f.alice.ID, f.bob.ID, true); err != ErrNotFriends {
			t.Fatalf("error = %v, want ErrNotFriends", err)
		}
	})
}
