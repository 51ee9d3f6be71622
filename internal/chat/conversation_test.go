package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"unichat-router/internal/models"
	"unichat-router/internal/provider"
	"unichat-router/internal/router"
)

// scriptedRouter replies with a numbered canned response per call, or fails
// when exhausted is set.
type scriptedRouter struct {
	calls     int
	exhausted bool
	lastSeen  []models.Message
}

func (s *scriptedRouter) Chat(ctx context.Context, messages []models.Message, params models.GenerationParams) (*router.RouteResult, error) {
	s.calls++
	s.lastSeen = messages
	if s.exhausted {
		return nil, &router.ExhaustionError{Attempts: 3, Last: errors.New("E3")}
	}
	return &router.RouteResult{
		ChatResult: models.ChatResult{Content: fmt.Sprintf("reply-%d", s.calls)},
		Provider:   provider.Gemini,
	}, nil
}

func TestSendAppendsTurnsInOrder(t *testing.T) {
	conv := NewConversation(&scriptedRouter{}, models.GenerationParams{})

	if _, err := conv.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send(hello) error = %v", err)
	}
	if _, err := conv.Send(context.Background(), "world"); err != nil {
		t.Fatalf("Send(world) error = %v", err)
	}

	want := []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "reply-1"},
		{Role: models.RoleUser, Content: "world"},
		{Role: models.RoleAssistant, Content: "reply-2"},
	}

	history := conv.History()
	if len(history) != len(want) {
		t.Fatalf("history length = %d, want %d", len(history), len(want))
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, history[i], want[i])
		}
	}

	if conv.CurrentProvider() != provider.Gemini {
		t.Errorf("current provider = %s, want gemini", conv.CurrentProvider())
	}
}

func TestFailedTurnRetainsUserMessage(t *testing.T) {
	rt := &scriptedRouter{exhausted: true}
	conv := NewConversation(rt, models.GenerationParams{})

	_, err := conv.Send(context.Background(), "still here?")
	if err == nil {
		t.Fatal("Send() should propagate exhaustion")
	}

	var exhErr *router.ExhaustionError
	if !errors.As(err, &exhErr) {
		t.Fatalf("error type = %T, want *ExhaustionError", err)
	}

	history := conv.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "still here?" {
		t.Errorf("history[0] = %+v, want the unanswered user turn", history[0])
	}

	// A retry reuses the transcript including the unanswered turn.
	rt.exhausted = false
	if _, err := conv.Send(context.Background(), "retry"); err != nil {
		t.Fatalf("retry Send() error = %v", err)
	}
	if len(rt.lastSeen) != 2 {
		t.Errorf("router saw %d messages on retry, want 2", len(rt.lastSeen))
	}
}

func TestSetSystemInstruction(t *testing.T) {
	conv := NewConversation(&scriptedRouter{}, models.GenerationParams{})

	if _, err := conv.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	conv.SetSystemInstruction("first")
	conv.SetSystemInstruction("second")

	history := conv.History()
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	if history[0].Role != models.RoleSystem || history[0].Content != "second" {
		t.Errorf("history[0] = %+v, want the replacement system turn at position 0", history[0])
	}
	if history[1].Content != "hi" || history[2].Content != "reply-1" {
		t.Error("existing turn order was disturbed by SetSystemInstruction")
	}
}

func TestClearResetsTranscriptAndProvider(t *testing.T) {
	conv := NewConversation(&scriptedRouter{}, models.GenerationParams{})

	if _, err := conv.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	conv.Clear()

	if len(conv.History()) != 0 {
		t.Error("history should be empty after Clear")
	}
	if conv.CurrentProvider() != "" {
		t.Errorf("current provider = %s, want empty after Clear", conv.CurrentProvider())
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	conv := NewConversation(&scriptedRouter{}, models.GenerationParams{})

	if _, err := conv.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	history := conv.History()
	history[0].Content = "tampered"

	if conv.History()[0].Content != "hi" {
		t.Error("mutating the returned slice must not affect internal state")
	}
}
