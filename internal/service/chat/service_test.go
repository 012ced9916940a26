package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	chatmodel "github.com/arashpm/atlas-chat/internal/model/chat"
	"github.com/arashpm/atlas-chat/internal/model/persona"
	chatservice "github.com/arashpm/atlas-chat/internal/service/chat"
	"github.com/arashpm/atlas-chat/internal/service/gemini"
	"github.com/arashpm/atlas-chat/internal/session"
	"github.com/arashpm/atlas-chat/internal/store"
)

// fakeChat mimics the Gemini chat session: history grows only on a
// successful send, mirroring the curated history the real API keeps.
type fakeChat struct {
	reply    string
	sendFail bool
	history  []chatmodel.Turn
}

func (c *fakeChat) Send(_ context.Context, message string) (string, error) {
	if c.sendFail {
		return "", errors.New("completion blew up")
	}
	c.history = append(c.history, chatmodel.TextTurn(chatmodel.RoleUser, message))
	c.history = append(c.history, chatmodel.TextTurn(chatmodel.RoleModel, c.reply))
	return c.reply, nil
}

func (c *fakeChat) SendStream(ctx context.Context, message string, fn func(string) error) error {
	if c.sendFail {
		return errors.New("completion blew up")
	}
	if err := fn(c.reply); err != nil {
		return err
	}
	c.history = append(c.history, chatmodel.TextTurn(chatmodel.RoleUser, message))
	c.history = append(c.history, chatmodel.TextTurn(chatmodel.RoleModel, c.reply))
	return nil
}

func (c *fakeChat) History() []chatmodel.Turn {
	return append([]chatmodel.Turn(nil), c.history...)
}

type newChatCall struct {
	instruction string
	history     []chatmodel.Turn
}

type fakeGateway struct {
	reply    string
	fail     bool
	sendFail bool
	calls    []newChatCall
}

func (g *fakeGateway) NewChat(_ context.Context, instruction string, history []chatmodel.Turn) (gemini.Chat, error) {
	if g.fail {
		return nil, errors.New("gateway down")
	}
	g.calls = append(g.calls, newChatCall{
		instruction: instruction,
		history:     append([]chatmodel.Turn(nil), history...),
	})
	return &fakeChat{
		reply:    g.reply,
		sendFail: g.sendFail,
		history:  append([]chatmodel.Turn(nil), history...),
	}, nil
}

func setup(reply string) (*chatservice.Service, *fakeGateway, *store.Memory) {
	gateway := &fakeGateway{reply: reply}
	conversations := store.NewMemory()
	personas := persona.NewMemoryStore(persona.Seed())
	return chatservice.NewService(gateway, conversations, personas), gateway, conversations
}

func TestChatFirstContactStartsEmpty(t *testing.T) {
	svc, gateway, conversations := setup("hi there")
	sess := session.Session{ID: "session-1", PersonaKey: persona.DefaultKey}

	reply, err := svc.Chat(context.Background(), sess, "hello")
	if err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if len(gateway.calls) != 1 {
		t.Fatalf("expected one NewChat call, got %d", len(gateway.calls))
	}
	if len(gateway.calls[0].history) != 0 {
		t.Fatalf("expected empty prior history, got %d turns", len(gateway.calls[0].history))
	}

	saved := conversations.Load(context.Background(), sess.ID)
	if len(saved) != 2 {
		t.Fatalf("expected 2 stored turns, got %d", len(saved))
	}
	if saved[0].Role != chatmodel.RoleUser || saved[0].Parts[0].Text != "hello" {
		t.Fatalf("unexpected first turn: %+v", saved[0])
	}
	if saved[1].Role != chatmodel.RoleModel || saved[1].Parts[0].Text != "hi there" {
		t.Fatalf("unexpected second turn: %+v", saved[1])
	}
}

func TestChatTwoSequentialCallsStoreFourTurns(t *testing.T) {
	svc, _, conversations := setup("ok")
	sess := session.Session{ID: "session-2", PersonaKey: persona.DefaultKey}
	ctx := context.Background()

	if _, err := svc.Chat(ctx, sess, "first"); err != nil {
		t.Fatalf("first Chat err: %v", err)
	}
	if _, err := svc.Chat(ctx, sess, "second"); err != nil {
		t.Fatalf("second Chat err: %v", err)
	}

	saved := conversations.Load(ctx, sess.ID)
	if len(saved) != 4 {
		t.Fatalf("expected 4 stored turns, got %d", len(saved))
	}
	wantTexts := []string{"first", "ok", "second", "ok"}
	for i, want := range wantTexts {
		if saved[i].Parts[0].Text != want {
			t.Fatalf("turn %d: got %q want %q", i, saved[i].Parts[0].Text, want)
		}
	}
}

func TestChatEmptyMessageNeverReachesGateway(t *testing.T) {
	svc, gateway, conversations := setup("ok")
	sess := session.Session{ID: "session-3", PersonaKey: persona.DefaultKey}

	for _, message := range []string{"", "   ", "\n\t"} {
		if _, err := svc.Chat(context.Background(), sess, message); !errors.Is(err, chatservice.ErrEmptyMessage) {
			t.Fatalf("message %q: expected ErrEmptyMessage, got %v", message, err)
		}
	}

	if len(gateway.calls) != 0 {
		t.Fatalf("gateway should not have been called, got %d calls", len(gateway.calls))
	}
	if conversations.Len() != 0 {
		t.Fatalf("store should be empty, has %d records", conversations.Len())
	}
}

func TestChatCompletionFailureLeavesStoreUntouched(t *testing.T) {
	svc, gateway, conversations := setup("ok")
	sess := session.Session{ID: "session-4", PersonaKey: persona.DefaultKey}
	ctx := context.Background()

	if _, err := svc.Chat(ctx, sess, "hello"); err != nil {
		t.Fatalf("Chat err: %v", err)
	}
	before := conversations.Load(ctx, sess.ID)

	gateway.sendFail = true
	// Invalidate so the next call builds a fresh (failing) chat.
	svc.Invalidate(sess.ID)

	if _, err := svc.Chat(ctx, sess, "boom"); !errors.Is(err, chatservice.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	after := conversations.Load(ctx, sess.ID)
	if len(after) != len(before) {
		t.Fatalf("stored history changed on failure: before=%d after=%d", len(before), len(after))
	}
	for i := range before {
		if after[i].Parts[0].Text != before[i].Parts[0].Text {
			t.Fatalf("turn %d changed on failure", i)
		}
	}
}

func TestPersonaChangeRebuildsFromStore(t *testing.T) {
	svc, gateway, _ := setup("ok")
	sess := session.Session{ID: "session-5", PersonaKey: persona.DefaultKey}
	ctx := context.Background()

	if _, err := svc.Chat(ctx, sess, "hello"); err != nil {
		t.Fatalf("Chat err: %v", err)
	}

	svc.Invalidate(sess.ID)
	sess.PersonaKey = "miku"

	if _, err := svc.Chat(ctx, sess, "sing"); err != nil {
		t.Fatalf("Chat err: %v", err)
	}

	if len(gateway.calls) != 2 {
		t.Fatalf("expected handle rebuild, got %d NewChat calls", len(gateway.calls))
	}
	if len(gateway.calls[1].history) != 2 {
		t.Fatalf("rebuild should carry stored history, got %d turns", len(gateway.calls[1].history))
	}
	if !strings.Contains(gateway.calls[1].instruction, "Hatsune Miku") {
		t.Fatalf("instruction should reflect new persona: %q", gateway.calls[1].instruction)
	}
}

func TestStaleHandleDetectedWithoutInvalidate(t *testing.T) {
	svc, gateway, _ := setup("ok")
	sess := session.Session{ID: "session-6", PersonaKey: persona.DefaultKey}
	ctx := context.Background()

	if _, err := svc.Chat(ctx, sess, "hello"); err != nil {
		t.Fatalf("Chat err: %v", err)
	}

	// Persona changed on the session but no explicit invalidation happened:
	// the cached handle no longer matches and must be rebuilt.
	sess.PersonaKey = "cyn"
	if _, err := svc.Chat(ctx, sess, "again"); err != nil {
		t.Fatalf("Chat err: %v", err)
	}

	if len(gateway.calls) != 2 {
		t.Fatalf("expected stale handle rebuild, got %d NewChat calls", len(gateway.calls))
	}
}

func TestUserNameShapesInstruction(t *testing.T) {
	svc, gateway, _ := setup("ok")
	sess := session.Session{ID: "session-7", PersonaKey: persona.DefaultKey, UserName: "Sam"}

	if _, err := svc.Chat(context.Background(), sess, "hello"); err != nil {
		t.Fatalf("Chat err: %v", err)
	}

	instruction := gateway.calls[0].instruction
	if !strings.Contains(instruction, "'Sam'") {
		t.Fatalf("instruction should carry the display name: %q", instruction)
	}
}

func TestUnknownPersonaFallsBackToDefault(t *testing.T) {
	svc, gateway, _ := setup("ok")
	sess := session.Session{ID: "session-8", PersonaKey: "ghost"}

	if _, err := svc.Chat(context.Background(), sess, "hello"); err != nil {
		t.Fatalf("Chat err: %v", err)
	}

	if !strings.Contains(gateway.calls[0].instruction, "Atlas") {
		t.Fatalf("unknown persona should fall back to default prompt: %q", gateway.calls[0].instruction)
	}
}

func TestNilGatewayReportsUnavailable(t *testing.T) {
	conversations := store.NewMemory()
	personas := persona.NewMemoryStore(persona.Seed())
	svc := chatservice.NewService(nil, conversations, personas)

	sess := session.Session{ID: "session-9", PersonaKey: persona.DefaultKey}
	if _, err := svc.Chat(context.Background(), sess, "hello"); !errors.Is(err, chatservice.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestChatStreamDeliversChunksAndPersists(t *testing.T) {
	svc, _, conversations := setup("streamed reply")
	sess := session.Session{ID: "session-10", PersonaKey: persona.DefaultKey}
	ctx := context.Background()

	var chunks []string
	err := svc.ChatStream(ctx, sess, "hello", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream err: %v", err)
	}

	if len(chunks) != 1 || chunks[0] != "streamed reply" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
	if saved := conversations.Load(ctx, sess.ID); len(saved) != 2 {
		t.Fatalf("expected 2 stored turns after stream, got %d", len(saved))
	}
}
