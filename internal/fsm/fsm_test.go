package fsm

import (
	"context"
	"errors"
	"testing"
)

func newTestFSM(t *testing.T) *FSM {
	t.Helper()

	f := New("draft")
	transitions := []Transition{
		{From: "draft", To: "active", Event: "activate"},
		{From: "active", To: "closed", Event: "close"},
	}
	for _, tr := range transitions {
		if err := f.AddTransition(tr); err != nil {
			t.Fatalf("AddTransition failed: %v", err)
		}
	}
	return f
}

func TestFSM_Trigger(t *testing.T) {
	f := newTestFSM(t)
	ctx := context.Background()

	if f.Current() != "draft" {
		t.Errorf("Expected initial state draft, got %s", f.Current())
	}

	if err := f.Trigger(ctx, Event{Name: "activate"}); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	if f.Current() != "active" {
		t.Errorf("Expected state active, got %s", f.Current())
	}
}

func TestFSM_Trigger_UnknownTransition(t *testing.T) {
	f := newTestFSM(t)

	err := f.Trigger(context.Background(), Event{Name: "close"})
	var notFound *ErrTransitionNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected ErrTransitionNotFound, got %v", err)
	}
	if notFound.From != "draft" || notFound.Event != "close" {
		t.Errorf("Unexpected error details: %+v", notFound)
	}
	if f.Current() != "draft" {
		t.Errorf("Expected state unchanged, got %s", f.Current())
	}
}

func TestFSM_Trigger_ActionFailureKeepsState(t *testing.T) {
	f := New("draft")
	f.AddTransition(Transition{
		From:  "draft",
		To:    "active",
		Event: "activate",
		Actions: []Action{func(ctx context.Context, e Event) error {
			return errors.New("action failed")
		}},
	})

	if err := f.Trigger(context.Background(), Event{Name: "activate"}); err == nil {
		t.Fatal("Expected action error, got nil")
	}
	if f.Current() != "draft" {
		t.Errorf("Expected state unchanged after failed action, got %s", f.Current())
	}
}

func TestFSM_Guard(t *testing.T) {
	f := New("draft")
	allowed := false
	f.AddTransition(Transition{
		From:  "draft",
		To:    "active",
		Event: "activate",
		Guard: func(ctx context.Context, e Event) (bool, error) {
			return allowed, nil
		},
	})

	if err := f.Trigger(context.Background(), Event{Name: "activate"}); err == nil {
		t.Fatal("Expected guard to reject transition")
	}

	allowed = true
	if err := f.Trigger(context.Background(), Event{Name: "activate"}); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
}

func TestFSM_SetCurrent(t *testing.T) {
	f := newTestFSM(t)

	if err := f.SetCurrent("closed"); err != nil {
		t.Fatalf("SetCurrent failed: %v", err)
	}
	if f.Current() != "closed" {
		t.Errorf("Expected state closed, got %s", f.Current())
	}

	if err := f.SetCurrent("nonexistent"); err == nil {
		t.Error("Expected error for unknown state")
	}
}

func TestFSM_CanTriggerAndPeek(t *testing.T) {
	f := newTestFSM(t)

	if !f.CanTrigger("activate") {
		t.Error("Expected activate to be allowed from draft")
	}
	if f.CanTrigger("close") {
		t.Error("Expected close to be rejected from draft")
	}

	to, err := f.Peek("activate")
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if to != "active" {
		t.Errorf("Expected peek target active, got %s", to)
	}
	if f.Current() != "draft" {
		t.Errorf("Peek must not change state, got %s", f.Current())
	}
}
